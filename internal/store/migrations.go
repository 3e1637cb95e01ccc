package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// CurrentVersion is the schema version a fresh or fully-migrated database
// carries in its schema_version table.
const CurrentVersion = 3

// migrate brings db up to CurrentVersion. A fresh database (version 0)
// installs schemaV1 directly and stamps CurrentVersion; an existing one
// applies each intermediate version's forward migration in order,
// stamping after each. Migrations are idempotent.
func migrate(ctx context.Context, db *sql.DB) error {
	version, err := schemaVersion(ctx, db)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	if version == 0 {
		if _, err := db.ExecContext(ctx, schemaV1); err != nil {
			return fmt.Errorf("install schema: %w", err)
		}
		return setSchemaVersion(ctx, db, CurrentVersion)
	}

	for v := version + 1; v <= CurrentVersion; v++ {
		if err := applyMigration(ctx, db, v); err != nil {
			return fmt.Errorf("apply migration v%d: %w", v, err)
		}
		if err := setSchemaVersion(ctx, db, v); err != nil {
			return fmt.Errorf("stamp schema version v%d: %w", v, err)
		}
	}

	return nil
}

// schemaVersion returns the highest applied version, or 0 if the
// schema_version table doesn't exist yet.
func schemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var exists int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'
	`).Scan(&exists)
	if err != nil {
		return 0, err
	}
	if exists == 0 {
		return 0, nil
	}

	var version sql.NullInt64
	err = db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version)
	if err != nil {
		return 0, err
	}
	return int(version.Int64), nil
}

func setSchemaVersion(ctx context.Context, db *sql.DB, version int) error {
	_, err := db.ExecContext(ctx, `
		INSERT OR REPLACE INTO schema_version (version, applied_at) VALUES (?, ?)
	`, version, time.Now().Unix())
	return err
}

func applyMigration(ctx context.Context, db *sql.DB, version int) error {
	switch version {
	case 1:
		_, err := db.ExecContext(ctx, schemaV1)
		return err
	case 2:
		return applyMigrationV2(ctx, db)
	case 3:
		return applyMigrationV3(ctx, db)
	default:
		return fmt.Errorf("unknown migration version %d", version)
	}
}

// applyMigrationV2 adds parsed_commands and arg_patterns plus their index.
func applyMigrationV2(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS parsed_commands (
			command_id INTEGER PRIMARY KEY REFERENCES commands(id) ON DELETE CASCADE,
			program TEXT,
			subcommand TEXT,
			args_hash TEXT
		);

		CREATE TABLE IF NOT EXISTS arg_patterns (
			id INTEGER PRIMARY KEY,
			program TEXT NOT NULL,
			subcommand TEXT,
			arg_value TEXT NOT NULL,
			frequency INTEGER NOT NULL DEFAULT 1,
			last_used INTEGER NOT NULL,
			place_id INTEGER REFERENCES places(id) ON DELETE CASCADE,
			UNIQUE(program, subcommand, arg_value, place_id)
		);

		CREATE INDEX IF NOT EXISTS idx_argpatterns_lookup ON arg_patterns(program, subcommand);
	`)
	return err
}

// applyMigrationV3 adds frecent_paths and bootstraps it from existing
// History, grouped by Place.dir, seeding rank = count and
// last_access = max(start_time).
func applyMigrationV3(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS frecent_paths (
			id INTEGER PRIMARY KEY,
			path TEXT NOT NULL,
			path_type TEXT NOT NULL DEFAULT 'd',
			rank REAL NOT NULL DEFAULT 1.0,
			last_access INTEGER NOT NULL,
			access_count INTEGER NOT NULL DEFAULT 1,
			UNIQUE(path, path_type)
		);

		CREATE INDEX IF NOT EXISTS idx_frecent_paths_type ON frecent_paths(path_type);
		CREATE INDEX IF NOT EXISTS idx_frecent_paths_rank ON frecent_paths(path_type, rank);

		INSERT OR IGNORE INTO frecent_paths (path, path_type, rank, last_access, access_count)
		SELECT p.dir, 'd', COUNT(*) * 1.0, MAX(h.start_time), COUNT(*)
		FROM history h
		JOIN places p ON p.id = h.place_id
		GROUP BY p.dir;
	`)
	return err
}
