package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
)

// sessionStartConfig holds the parsed flags for the session-start command.
type sessionStartConfig struct{}

func parseSessionStartArgs(args []string) (*sessionStartConfig, error) {
	cfg := &sessionStartConfig{}

	for _, arg := range args {
		if strings.HasPrefix(arg, "-") {
			return nil, fmt.Errorf("unknown flag: %s", arg)
		}
	}

	return cfg, nil
}

// runSessionStart generates a new shell session identifier and writes it to
// stdout so the calling shell can export it as NICEHIST_SESSION_ID. There is
// no daemon-assigned session ID method in the RPC surface, so every shell
// generates its own locally. The ID is sent along with each store call, but
// the daemon does not record it (history.session_id stays NULL) and n-grams
// are keyed by the previous commands the hook passes, so collisions are
// immaterial.
func runSessionStart(stdout io.Writer, args []string) int {
	if _, err := parseSessionStartArgs(args); err != nil {
		fmt.Fprintf(os.Stderr, "nicehist-hook session-start: %v\n", err)
		return 1
	}

	fmt.Fprintln(stdout, uuid.New().String())
	return 0
}
