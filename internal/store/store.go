// Package store implements component A: the embedded relational
// persistence layer. It owns schema migration, a single mutex-guarded
// connection, and the nine-step ingestion transaction along with the
// prediction and frecency queries built on top of it.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // pure-Go SQLite driver

	nicehistcontext "github.com/runger/nicehist/internal/context"
)

// ErrClosed is returned when an operation is attempted on a closed Store.
var ErrClosed = errors.New("store: closed")

// walCheckpointInterval bounds WAL growth during long daemon sessions.
const walCheckpointInterval = 60 * time.Second

// Store is the single-connection, mutex-guarded embedded database handle
// described in §4.A and §5 (concurrency model).
type Store struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *slog.Logger

	stopCh    chan struct{}
	stoppedCh chan struct{}
	closeOnce sync.Once

	contexts *nicehistcontext.Collector
}

// Open opens (creating if necessary) the database at path, enables WAL and
// foreign-key enforcement, and runs migrations to CurrentVersion.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("store: create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: pragma %q: %w", p, err)
		}
	}

	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}

	s := &Store{
		db:        db,
		logger:    logger,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
		contexts:  nicehistcontext.NewCollector(nicehistcontext.DefaultTTL),
	}

	go s.checkpointLoop()

	return s, nil
}

// checkpointLoop issues a passive WAL checkpoint periodically so the WAL
// file does not grow unbounded across a long-running daemon session.
func (s *Store) checkpointLoop() {
	defer close(s.stoppedCh)
	ticker := time.NewTicker(walCheckpointInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			_, err := s.db.Exec("PRAGMA wal_checkpoint(PASSIVE)")
			s.mu.Unlock()
			if err != nil {
				s.logger.Debug("wal checkpoint failed", "error", err)
			}
		case <-s.stopCh:
			return
		}
	}
}

// Close stops the checkpoint loop and closes the underlying connection.
func (s *Store) Close() error {
	var closeErr error
	s.closeOnce.Do(func() {
		close(s.stopCh)
		<-s.stoppedCh

		s.mu.Lock()
		defer s.mu.Unlock()

		closeErr = s.db.Close()
	})
	return closeErr
}

// beginImmediate opens a write transaction that acquires the database
// lock immediately. modernc.org/sqlite does not honor BEGIN IMMEDIATE via
// database/sql's TxOptions, so a dummy read forces the lock up front,
// avoiding a late "database is locked" failure partway through a
// multi-statement ingestion transaction.
func beginImmediate(ctx context.Context, db *sql.DB) (*sql.Tx, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, "SELECT 1"); err != nil {
		tx.Rollback()
		return nil, err
	}
	return tx, nil
}

// Hostname returns the local hostname, falling back to "unknown" per the
// non-fatal-condition handling in §7.
func Hostname() string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return "unknown"
	}
	return h
}
