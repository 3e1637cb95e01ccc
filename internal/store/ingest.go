package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/runger/nicehist/internal/ingest"
	"github.com/runger/nicehist/internal/parser"
	"github.com/runger/nicehist/internal/rpc"
)

// StoreCommand runs the nine-step ingestion pipeline (component C) inside
// a single immediate-mode write transaction: resolve/insert the Command
// and Place, resolve the working directory's Context, insert the History
// row, upsert the bigram/trigram/directory-frequency counters, parse the
// command and upsert its ParsedCommand and ArgPattern rows, and finally
// feed the command's arguments to the frecency engine's path extraction.
func (s *Store) StoreCommand(ctx context.Context, p rpc.StoreParams) (int64, error) {
	if p.Cmd == "" {
		return 0, rpc.NewError(rpc.CodeInvalidParams, "cmd must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := beginImmediate(ctx, s.db)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	startTime := time.Now().Unix()
	if p.StartTime != nil {
		startTime = *p.StartTime
	}

	commandID, err := upsertCommand(ctx, tx, p.Cmd)
	if err != nil {
		return 0, err
	}

	placeID, err := upsertPlace(ctx, tx, Hostname(), p.Cwd)
	if err != nil {
		return 0, err
	}

	info := s.contexts.Collect(p.Cwd)
	contextID, err := resolveContext(ctx, tx, info)
	if err != nil {
		return 0, err
	}

	var duration sql.NullFloat64
	if p.DurationMs != nil {
		duration = sql.NullFloat64{Float64: float64(*p.DurationMs) / 1000.0, Valid: true}
	}
	var exitStatus sql.NullInt64
	if p.ExitStatus != nil {
		exitStatus = sql.NullInt64{Int64: int64(*p.ExitStatus), Valid: true}
	}

	historyID, err := insertHistory(ctx, tx, historyRow{
		commandID:  commandID,
		placeID:    placeID,
		contextID:  contextID,
		startTime:  startTime,
		duration:   duration,
		exitStatus: exitStatus,
		timeBucket: ingest.TimeBucket(startTime),
	})
	if err != nil {
		return 0, err
	}

	if p.PrevCmd != "" {
		prevID, err := upsertCommand(ctx, tx, p.PrevCmd)
		if err != nil {
			return 0, err
		}
		if err := upsertBigram(ctx, tx, prevID, commandID, startTime); err != nil {
			return 0, err
		}

		if p.Prev2Cmd != "" {
			prev2ID, err := upsertCommand(ctx, tx, p.Prev2Cmd)
			if err != nil {
				return 0, err
			}
			if err := upsertTrigram(ctx, tx, prev2ID, prevID, commandID, startTime); err != nil {
				return 0, err
			}
		}
	}

	if err := upsertDirCommandFreq(ctx, tx, placeID, commandID, startTime); err != nil {
		return 0, err
	}

	parsed := parser.Parse(p.Cmd)
	learnable := parser.ExtractLearnableArgs(parsed)
	if err := upsertParsedCommand(ctx, tx, commandID, parsed, learnable); err != nil {
		return 0, err
	}
	for _, arg := range learnable {
		if len(arg) < 2 {
			continue
		}
		if err := upsertArgPattern(ctx, tx, parsed, arg, placeID, startTime); err != nil {
			return 0, err
		}
	}

	if err := extractFrecentPaths(ctx, tx, p.Cwd, parsed, learnable, startTime); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return historyID, nil
}

func upsertCommand(ctx context.Context, tx *sql.Tx, argv string) (int64, error) {
	if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO commands (argv) VALUES (?)`, argv); err != nil {
		return 0, err
	}
	var id int64
	err := tx.QueryRowContext(ctx, `SELECT id FROM commands WHERE argv = ?`, argv).Scan(&id)
	return id, err
}

func upsertPlace(ctx context.Context, tx *sql.Tx, host, dir string) (int64, error) {
	if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO places (host, dir) VALUES (?, ?)`, host, dir); err != nil {
		return 0, err
	}
	var id int64
	err := tx.QueryRowContext(ctx, `SELECT id FROM places WHERE host = ? AND dir = ?`, host, dir).Scan(&id)
	return id, err
}

type historyRow struct {
	commandID  int64
	placeID    int64
	contextID  sql.NullInt64
	startTime  int64
	duration   sql.NullFloat64
	exitStatus sql.NullInt64
	timeBucket int
}

func insertHistory(ctx context.Context, tx *sql.Tx, r historyRow) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO history (session_id, command_id, place_id, context_id, start_time, duration, exit_status, time_bucket)
		VALUES (NULL, ?, ?, ?, ?, ?, ?, ?)`,
		r.commandID, r.placeID, nullableInt64(r.contextID), r.startTime, r.duration, r.exitStatus, r.timeBucket)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func nullableInt64(n sql.NullInt64) any {
	if !n.Valid {
		return nil
	}
	return n.Int64
}

func upsertBigram(ctx context.Context, tx *sql.Tx, prevID, commandID, now int64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO ngrams_2 (prev_command_id, command_id, frequency, last_used)
		VALUES (?, ?, 1, ?)
		ON CONFLICT(prev_command_id, command_id) DO UPDATE SET
			frequency = frequency + 1, last_used = excluded.last_used`,
		prevID, commandID, now)
	return err
}

func upsertTrigram(ctx context.Context, tx *sql.Tx, prev2ID, prev1ID, commandID, now int64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO ngrams_3 (prev2_command_id, prev1_command_id, command_id, frequency, last_used)
		VALUES (?, ?, ?, 1, ?)
		ON CONFLICT(prev2_command_id, prev1_command_id, command_id) DO UPDATE SET
			frequency = frequency + 1, last_used = excluded.last_used`,
		prev2ID, prev1ID, commandID, now)
	return err
}

func upsertDirCommandFreq(ctx context.Context, tx *sql.Tx, placeID, commandID, now int64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO dir_command_freq (place_id, command_id, frequency, last_used)
		VALUES (?, ?, 1, ?)
		ON CONFLICT(place_id, command_id) DO UPDATE SET
			frequency = frequency + 1, last_used = excluded.last_used`,
		placeID, commandID, now)
	return err
}

func upsertParsedCommand(ctx context.Context, tx *sql.Tx, commandID int64, parsed parser.Parsed, learnable []string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO parsed_commands (command_id, program, subcommand, args_hash)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(command_id) DO UPDATE SET
			program = excluded.program, subcommand = excluded.subcommand, args_hash = excluded.args_hash`,
		commandID, nullableString(parsed.Program), nullableString(parsed.Subcommand), ingest.ArgsDigest(learnable))
	return err
}

// upsertArgPattern increments the (program, subcommand, arg_value, place_id)
// row's frequency, or inserts it at frequency 1. subcommand is NULL for
// every non-multi-level program, and SQLite's unique index treats NULL as
// distinct from NULL, so ON CONFLICT alone never fires for those rows; the
// lookup below uses the same "IS ?" null-safe comparison as resolveContext
// to find the existing row before deciding whether to update or insert.
func upsertArgPattern(ctx context.Context, tx *sql.Tx, parsed parser.Parsed, arg string, placeID, now int64) error {
	subcommand := nullableString(parsed.Subcommand)

	var id int64
	err := tx.QueryRowContext(ctx, `
		SELECT id FROM arg_patterns
		WHERE program = ? AND subcommand IS ? AND arg_value = ? AND place_id IS ?`,
		parsed.Program, subcommand, arg, placeID,
	).Scan(&id)
	if err == nil {
		_, err := tx.ExecContext(ctx, `
			UPDATE arg_patterns SET frequency = frequency + 1, last_used = ? WHERE id = ?`,
			now, id)
		return err
	}
	if err != sql.ErrNoRows {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO arg_patterns (program, subcommand, arg_value, frequency, last_used, place_id)
		VALUES (?, ?, ?, 1, ?, ?)`,
		parsed.Program, subcommand, arg, now, placeID)
	return err
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
