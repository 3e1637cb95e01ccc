package store

import (
	"context"
	"database/sql"

	nicehistcontext "github.com/runger/nicehist/internal/context"
)

// resolveContext finds or inserts the contexts row matching info, returning
// a NULL id when info carries no version-control or project facts at all
// (a command run outside any recognized repository or project tree).
func resolveContext(ctx context.Context, tx *sql.Tx, info nicehistcontext.Info) (sql.NullInt64, error) {
	if info.VCS == "" && info.Project == "" {
		return sql.NullInt64{}, nil
	}

	var id int64
	err := tx.QueryRowContext(ctx, `
		SELECT id FROM contexts
		WHERE vcs_type IS ? AND vcs_root IS ? AND vcs_branch IS ? AND project_type IS ?`,
		nullableString(info.VCS), nullableString(info.VCSRoot), nullableString(info.Branch), nullableString(info.Project),
	).Scan(&id)
	if err == nil {
		return sql.NullInt64{Int64: id, Valid: true}, nil
	}
	if err != sql.ErrNoRows {
		return sql.NullInt64{}, err
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO contexts (vcs_type, vcs_root, vcs_branch, project_type) VALUES (?, ?, ?, ?)`,
		nullableString(info.VCS), nullableString(info.VCSRoot), nullableString(info.Branch), nullableString(info.Project))
	if err != nil {
		return sql.NullInt64{}, err
	}
	id, err = res.LastInsertId()
	if err != nil {
		return sql.NullInt64{}, err
	}
	return sql.NullInt64{Int64: id, Valid: true}, nil
}
