package cmd

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/runger/nicehist/internal/rpc"
)

func TestContextCmd_PrintsJSON(t *testing.T) {
	dir := withIsolatedHome(t)
	sock := filepath.Join(dir, "nicehist.sock")
	serveOnceRPC(t, sock, func(req rpc.Request) *rpc.Response {
		return rpc.Success(req.ID, rpc.ContextInfo{VCS: "git", Branch: "main", Project: "go"})
	})

	out := captureStdout(t, func() {
		if err := contextCmd.RunE(contextCmd, nil); err != nil {
			t.Fatalf("RunE error: %v", err)
		}
	})

	if !strings.Contains(out, `"vcs":"git"`) {
		t.Fatalf("expected vcs field in output, got %q", out)
	}
	if !strings.Contains(out, `"branch":"main"`) {
		t.Fatalf("expected branch field in output, got %q", out)
	}
}

func TestContextCmd_DaemonUnreachable(t *testing.T) {
	withIsolatedHome(t)

	if err := contextCmd.RunE(contextCmd, nil); err == nil {
		t.Fatal("expected error when daemon socket does not exist")
	}
}
