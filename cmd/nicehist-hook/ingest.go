package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/runger/nicehist/internal/config"
	"github.com/runger/nicehist/internal/rpc"
	"github.com/runger/nicehist/internal/rpcclient"
)

// ingestConfig holds the parsed flags for the ingest command.
type ingestConfig struct {
	cmdStdin bool // read command from stdin instead of NICEHIST_CMD
}

func parseIngestArgs(args []string) (*ingestConfig, error) {
	cfg := &ingestConfig{}

	for _, arg := range args {
		switch arg {
		case "--cmd-stdin":
			cfg.cmdStdin = true
		default:
			if strings.HasPrefix(arg, "-") {
				return nil, fmt.Errorf("unknown flag: %s", arg)
			}
		}
	}

	return cfg, nil
}

// runIngest reads a command event from environment variables (and
// optionally stdin) and forwards it to the daemon's "store" method. A
// daemon that isn't running is not an error: ingestion is fire-and-forget
// and must never interrupt the user's shell.
func runIngest(args []string) int {
	if os.Getenv("NICEHIST_NO_RECORD") == "1" {
		return 0
	}

	cfg, err := parseIngestArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "nicehist-hook ingest: %v\n", err)
		return 1
	}

	params, err := readIngestEnv(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "nicehist-hook ingest: %v\n", err)
		return 1
	}

	paths := config.DefaultPaths()
	client := rpcclient.New(paths.SocketFile())
	_ = client.Call("store", params, nil) // daemon unreachable: silent drop

	return 0
}

func readIngestEnv(cfg *ingestConfig) (rpc.StoreParams, error) {
	var p rpc.StoreParams

	var cmdRaw string
	if cfg.cmdStdin {
		scanner := bufio.NewScanner(os.Stdin)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		var lines []string
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return p, fmt.Errorf("read command from stdin: %w", err)
		}
		cmdRaw = strings.Join(lines, "\n")
	} else {
		cmdRaw = os.Getenv("NICEHIST_CMD")
		if cmdRaw == "" {
			return p, fmt.Errorf("NICEHIST_CMD is required (or use --cmd-stdin)")
		}
	}
	p.Cmd = toValidUTF8(cmdRaw)

	cwd := os.Getenv("NICEHIST_CWD")
	if cwd == "" {
		return p, fmt.Errorf("NICEHIST_CWD is required")
	}
	p.Cwd = cwd

	if exitStr := os.Getenv("NICEHIST_EXIT"); exitStr != "" {
		exitCode, err := strconv.Atoi(exitStr)
		if err != nil {
			return p, fmt.Errorf("NICEHIST_EXIT must be an integer: %w", err)
		}
		p.ExitStatus = &exitCode
	}

	if tsStr := os.Getenv("NICEHIST_TS"); tsStr != "" {
		tsMillis, err := strconv.ParseInt(tsStr, 10, 64)
		if err != nil {
			return p, fmt.Errorf("NICEHIST_TS must be an integer: %w", err)
		}
		tsSeconds := tsMillis / 1000
		p.StartTime = &tsSeconds
	}

	if durationStr := os.Getenv("NICEHIST_DURATION_MS"); durationStr != "" {
		duration, err := strconv.ParseInt(durationStr, 10, 64)
		if err != nil {
			return p, fmt.Errorf("NICEHIST_DURATION_MS must be an integer: %w", err)
		}
		p.DurationMs = &duration
	}

	p.SessionID = os.Getenv("NICEHIST_SESSION_ID")
	p.PrevCmd = os.Getenv("NICEHIST_PREV_CMD")
	p.Prev2Cmd = os.Getenv("NICEHIST_PREV2_CMD")

	return p, nil
}

// toValidUTF8 replaces invalid byte sequences with the Unicode replacement
// character so the event can always be safely JSON-encoded.
func toValidUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			b.WriteRune(utf8.RuneError)
		} else {
			b.WriteRune(r)
		}
		i += size
	}

	return b.String()
}
