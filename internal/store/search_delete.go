package store

import (
	"context"
	"database/sql"

	"github.com/runger/nicehist/internal/rpc"
)

// Search implements the "search" RPC method: a straightforward filtered
// history query, not passed through the ranker. LastCmds, Cwd, and
// NgramBoost are accepted but not consulted (spec Open Question (a)).
func (s *Store) Search(ctx context.Context, p rpc.SearchParams) (rpc.SearchResultList, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT c.argv, p.dir, h.start_time, h.exit_status, h.duration
		FROM history h
		JOIN commands c ON c.id = h.command_id
		JOIN places p ON p.id = h.place_id
		WHERE 1=1`
	var args []any

	if p.Pattern != "" {
		query += ` AND c.argv LIKE '%' || ? || '%' ESCAPE '\'`
		args = append(args, escapeLike(p.Pattern))
	}
	if p.Dir != "" {
		query += ` AND p.dir = ?`
		args = append(args, p.Dir)
	}
	if p.ExitStatus != nil {
		query += ` AND h.exit_status = ?`
		args = append(args, *p.ExitStatus)
	}
	query += ` ORDER BY h.start_time DESC LIMIT ?`
	args = append(args, limit)

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return rpc.SearchResultList{}, err
	}
	defer rows.Close()

	var results []rpc.SearchResult
	for rows.Next() {
		var r rpc.SearchResult
		var exitStatus sql.NullInt64
		var duration sql.NullFloat64
		if err := rows.Scan(&r.Cmd, &r.Cwd, &r.Timestamp, &exitStatus, &duration); err != nil {
			return rpc.SearchResultList{}, err
		}
		if exitStatus.Valid {
			v := int(exitStatus.Int64)
			r.ExitStatus = &v
		}
		if duration.Valid {
			ms := int64(duration.Float64 * 1000)
			r.DurationMs = &ms
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return rpc.SearchResultList{}, err
	}

	return rpc.SearchResultList{Results: results}, nil
}

// DeleteCommand implements the "delete" RPC method: removes a command and
// (via ON DELETE CASCADE) every history, n-gram, and directory-frequency
// row that references it, so a mistakenly-learned or sensitive command can
// be fully forgotten rather than merely hidden from future results.
// ArgPattern carries no foreign key to commands (it is keyed by
// program+subcommand, shared across every command with that shape), so its
// matching rows are deleted explicitly rather than by cascade.
func (s *Store) DeleteCommand(ctx context.Context, p rpc.DeleteParams) (rpc.DeleteResult, error) {
	if p.Cmd == "" {
		return rpc.DeleteResult{}, rpc.NewError(rpc.CodeInvalidParams, "cmd must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := beginImmediate(ctx, s.db)
	if err != nil {
		return rpc.DeleteResult{}, err
	}
	defer tx.Rollback()

	var commandID int64
	var program, subcommand sql.NullString
	err = tx.QueryRowContext(ctx, `
		SELECT c.id, pc.program, pc.subcommand
		FROM commands c
		LEFT JOIN parsed_commands pc ON pc.command_id = c.id
		WHERE c.argv = ?`, p.Cmd).Scan(&commandID, &program, &subcommand)
	if err == sql.ErrNoRows {
		return rpc.DeleteResult{Deleted: false}, nil
	}
	if err != nil {
		return rpc.DeleteResult{}, err
	}

	if program.Valid {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM arg_patterns WHERE program = ? AND subcommand IS ?`,
			program.String, nullableString(subcommand.String)); err != nil {
			return rpc.DeleteResult{}, err
		}
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM commands WHERE id = ?`, commandID)
	if err != nil {
		return rpc.DeleteResult{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return rpc.DeleteResult{}, err
	}

	if err := tx.Commit(); err != nil {
		return rpc.DeleteResult{}, err
	}
	return rpc.DeleteResult{Deleted: n > 0}, nil
}

// Context implements the "context" RPC method directly against the
// cached collector, bypassing the database entirely.
func (s *Store) Context(cwd string) rpc.ContextInfo {
	return s.contexts.CollectRPC(cwd)
}
