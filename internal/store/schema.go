package store

// schemaV1 is the full current schema (component A / data model, §3),
// installed directly on a fresh database and via forward migration on an
// existing one.
const schemaV1 = `
CREATE TABLE IF NOT EXISTS commands (
	id INTEGER PRIMARY KEY,
	argv TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS places (
	id INTEGER PRIMARY KEY,
	host TEXT NOT NULL,
	dir TEXT NOT NULL,
	UNIQUE(host, dir)
);

CREATE TABLE IF NOT EXISTS contexts (
	id INTEGER PRIMARY KEY,
	vcs_type TEXT,
	vcs_root TEXT,
	vcs_branch TEXT,
	project_type TEXT
);

CREATE TABLE IF NOT EXISTS sessions (
	id INTEGER PRIMARY KEY,
	host TEXT,
	pid INTEGER,
	start_time INTEGER,
	end_time INTEGER
);

CREATE TABLE IF NOT EXISTS history (
	id INTEGER PRIMARY KEY,
	session_id INTEGER REFERENCES sessions(id),
	command_id INTEGER NOT NULL REFERENCES commands(id) ON DELETE CASCADE,
	place_id INTEGER NOT NULL REFERENCES places(id),
	context_id INTEGER REFERENCES contexts(id),
	start_time INTEGER NOT NULL,
	duration REAL,
	exit_status INTEGER,
	time_bucket INTEGER
);

CREATE TABLE IF NOT EXISTS ngrams_2 (
	prev_command_id INTEGER NOT NULL REFERENCES commands(id) ON DELETE CASCADE,
	command_id INTEGER NOT NULL REFERENCES commands(id) ON DELETE CASCADE,
	frequency INTEGER NOT NULL DEFAULT 1,
	last_used INTEGER NOT NULL,
	PRIMARY KEY (prev_command_id, command_id)
);

CREATE TABLE IF NOT EXISTS ngrams_3 (
	prev2_command_id INTEGER NOT NULL REFERENCES commands(id) ON DELETE CASCADE,
	prev1_command_id INTEGER NOT NULL REFERENCES commands(id) ON DELETE CASCADE,
	command_id INTEGER NOT NULL REFERENCES commands(id) ON DELETE CASCADE,
	frequency INTEGER NOT NULL DEFAULT 1,
	last_used INTEGER NOT NULL,
	PRIMARY KEY (prev2_command_id, prev1_command_id, command_id)
);

CREATE TABLE IF NOT EXISTS dir_command_freq (
	place_id INTEGER NOT NULL REFERENCES places(id) ON DELETE CASCADE,
	command_id INTEGER NOT NULL REFERENCES commands(id) ON DELETE CASCADE,
	frequency INTEGER NOT NULL DEFAULT 1,
	last_used INTEGER NOT NULL,
	PRIMARY KEY (place_id, command_id)
);

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

CREATE TABLE IF NOT EXISTS frecent_paths (
	id INTEGER PRIMARY KEY,
	path TEXT NOT NULL,
	path_type TEXT NOT NULL DEFAULT 'd',
	rank REAL NOT NULL DEFAULT 1.0,
	last_access INTEGER NOT NULL,
	access_count INTEGER NOT NULL DEFAULT 1,
	UNIQUE(path, path_type)
);

CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER PRIMARY KEY,
	applied_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_history_command ON history(command_id);
CREATE INDEX IF NOT EXISTS idx_history_place ON history(place_id);
CREATE INDEX IF NOT EXISTS idx_history_context ON history(context_id);
CREATE INDEX IF NOT EXISTS idx_history_session ON history(session_id);
CREATE INDEX IF NOT EXISTS idx_history_start_time ON history(start_time);
CREATE INDEX IF NOT EXISTS idx_history_time_bucket ON history(time_bucket);
CREATE INDEX IF NOT EXISTS idx_places_host_dir ON places(host, dir);
CREATE INDEX IF NOT EXISTS idx_ngrams2_prev ON ngrams_2(prev_command_id);
CREATE INDEX IF NOT EXISTS idx_ngrams2_command ON ngrams_2(command_id);
CREATE INDEX IF NOT EXISTS idx_ngrams3_prev2 ON ngrams_3(prev2_command_id);
CREATE INDEX IF NOT EXISTS idx_ngrams3_prev1 ON ngrams_3(prev1_command_id);
CREATE INDEX IF NOT EXISTS idx_dircmdfreq_place ON dir_command_freq(place_id);
CREATE INDEX IF NOT EXISTS idx_argpatterns_lookup ON arg_patterns(program, subcommand);
CREATE INDEX IF NOT EXISTS idx_frecent_paths_type ON frecent_paths(path_type);
CREATE INDEX IF NOT EXISTS idx_frecent_paths_rank ON frecent_paths(path_type, rank);
`
