package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/runger/nicehist/internal/rpc"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe() failed: %v", err)
	}
	os.Stdout = w

	outC := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		outC <- buf.String()
	}()

	fn()
	_ = w.Close()
	os.Stdout = old
	out := <-outC
	_ = r.Close()
	return out
}

// withIsolatedHome points XDG_RUNTIME_DIR/HOME at a fresh temp directory so
// config.DefaultPaths() resolves under it instead of the real user's home.
func withIsolatedHome(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", dir)
	t.Setenv("HOME", dir)
	return dir
}

// serveOnceRPC accepts a single connection on sockPath, decodes one
// rpc.Request, and replies with whatever handle returns.
func serveOnceRPC(t *testing.T, sockPath string, handle func(rpc.Request) *rpc.Response) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(sockPath), 0700); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	ln, err := net.Listen("unix", sockPath)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}

	go func() {
		defer ln.Close()
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		var req rpc.Request
		if err := json.NewDecoder(conn).Decode(&req); err != nil {
			return
		}
		resp := handle(req)
		_ = json.NewEncoder(conn).Encode(resp)
	}()
}
