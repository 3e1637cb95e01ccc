package daemon

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/runger/nicehist/internal/config"
	"github.com/runger/nicehist/internal/rpc"
	"github.com/runger/nicehist/internal/rpcclient"
)

func TestServer_StartAcceptsConnectionsAndShutdownIsClean(t *testing.T) {
	base := t.TempDir()
	paths := &config.Paths{BaseDir: base}
	require.NoError(t, paths.EnsureDirectories())

	cfg := config.DefaultConfig()
	cfg.Daemon.SocketPath = filepath.Join(base, "test.sock")

	s, err := NewServer(&ServerConfig{Paths: paths, Config: cfg})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	waitForSocket(t, cfg.Daemon.SocketPath)

	client := rpcclient.New(cfg.Daemon.SocketPath)
	var result rpc.PingResult
	require.NoError(t, client.Call("ping", nil, &result))

	cancel()
	s.Shutdown()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after shutdown")
	}
}

func waitForSocket(t *testing.T, path string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		c := rpcclient.New(path)
		if err := c.Call("ping", nil, nil); err == nil {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("socket never became ready")
}
