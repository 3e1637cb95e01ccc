package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strconv"
	"sync"

	"github.com/runger/nicehist/internal/config"
	"github.com/runger/nicehist/internal/rpc"
	"github.com/runger/nicehist/internal/store"
	"github.com/runger/nicehist/internal/transport"
)

// ServerConfig configures a Server. Paths and Config are resolved to
// defaults when nil; ReloadFn, if set, is invoked on SIGHUP by Run.
type ServerConfig struct {
	Paths    *config.Paths
	Config   *config.Config
	ReloadFn ReloadFunc
}

// Server owns the store, the Unix socket listener, and the connection
// accept loop. One connection handles exactly one request/response pair
// (§6): the client writes a single newline-delimited JSON request and
// reads back a single newline-delimited JSON response before closing.
type Server struct {
	logger    *slog.Logger
	st        *store.Store
	transport *transport.UnixTransport
	wg        sync.WaitGroup

	shutdownOnce sync.Once
	closed       chan struct{}
}

// NewServer opens the store and binds the Unix socket, but does not yet
// accept connections; call Start to run the accept loop.
func NewServer(cfg *ServerConfig) (*Server, error) {
	paths := cfg.Paths
	if paths == nil {
		paths = config.DefaultPaths()
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	cc := cfg.Config
	if cc == nil {
		var err error
		cc, err = config.Load()
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}

	logger := newLogger(paths, cc.Daemon.LogLevel)

	st, err := store.Open(paths.DatabaseFile(), logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	socketPath := cc.Daemon.SocketPath
	if socketPath == "" {
		socketPath = paths.SocketFile()
	}

	if err := writePIDFile(paths.PIDFile()); err != nil {
		logger.Warn("failed to write PID file", "error", err)
	}

	return &Server{
		logger:    logger,
		st:        st,
		transport: transport.NewUnixTransport(socketPath),
		closed:    make(chan struct{}),
	}, nil
}

func newLogger(paths *config.Paths, level string) *slog.Logger {
	var handler slog.Handler
	f, err := os.OpenFile(paths.LogFile(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	var w io.Writer = os.Stderr
	if err == nil {
		w = f
	}
	handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: parseLevel(level)})
	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func writePIDFile(path string) error {
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o600)
}

// Start listens on the Unix socket and accepts connections until ctx is
// cancelled or Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	listener, err := s.transport.Listen()
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	s.logger.Info("daemon listening", "socket", s.transport.SocketPath())

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-s.closed:
				s.wg.Wait()
				return nil
			default:
			}
			if ctx.Err() != nil {
				s.wg.Wait()
				return nil
			}
			s.logger.Error("accept failed", "error", err)
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(conn)
		}()
	}
}

// Shutdown stops accepting new connections, closes the listener and
// store, and waits for in-flight requests to finish.
func (s *Server) Shutdown() {
	s.shutdownOnce.Do(func() {
		close(s.closed)
		s.transport.Close()
		s.wg.Wait()
		if err := s.st.Close(); err != nil {
			s.logger.Error("failed to close store", "error", err)
		}
	})
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	dec := json.NewDecoder(conn)
	var req rpc.Request
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return
		}
		s.writeResponse(conn, rpc.Failure(nil, rpc.NewError(rpc.CodeParseError, err.Error())))
		return
	}

	resp := s.dispatch(context.Background(), req)
	s.writeResponse(conn, resp)
}

func (s *Server) writeResponse(conn net.Conn, resp *rpc.Response) {
	enc := json.NewEncoder(conn)
	if err := enc.Encode(resp); err != nil {
		s.logger.Error("failed to write response", "error", err)
	}
}
