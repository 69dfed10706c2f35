package store

// migrations are forward-only, numbered, and additive (table / index
// creation only). Each is applied at most once, tracked in schema_migrations,
// and must be idempotent under its own version number — safe to list twice
// by accident but never applied twice.
var migrations = []struct {
	version int
	stmt    string
}{
	{1, `
CREATE TABLE IF NOT EXISTS runs (
	run_id       TEXT PRIMARY KEY,
	workspace_id TEXT NOT NULL,
	package_scope TEXT NOT NULL DEFAULT '',
	started_at   INTEGER NOT NULL
);
`},
	{2, `
CREATE INDEX IF NOT EXISTS idx_runs_workspace_started
	ON runs (workspace_id, started_at DESC);
`},
	{3, `
CREATE TABLE IF NOT EXISTS test_failures (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id     TEXT NOT NULL REFERENCES runs(run_id),
	stable_id  TEXT NOT NULL,
	test_id    TEXT NOT NULL,
	file       TEXT NOT NULL,
	message    TEXT NOT NULL DEFAULT '',
	package    TEXT NOT NULL DEFAULT ''
);
`},
	{4, `
CREATE INDEX IF NOT EXISTS idx_test_failures_run_stable
	ON test_failures (run_id, stable_id);
`},
	{5, `
CREATE INDEX IF NOT EXISTS idx_test_failures_run_package
	ON test_failures (run_id, package);
`},
	{6, `
CREATE TABLE IF NOT EXISTS findings (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id       TEXT NOT NULL REFERENCES runs(run_id),
	stable_id    TEXT NOT NULL,
	tool         TEXT NOT NULL,
	rule         TEXT NOT NULL DEFAULT '',
	file         TEXT NOT NULL,
	start_line   INTEGER NOT NULL,
	start_column INTEGER NOT NULL,
	end_line     INTEGER NOT NULL DEFAULT 0,
	end_column   INTEGER NOT NULL DEFAULT 0,
	message      TEXT NOT NULL DEFAULT '',
	package      TEXT NOT NULL DEFAULT ''
);
`},
	{7, `
CREATE INDEX IF NOT EXISTS idx_findings_run_stable
	ON findings (run_id, stable_id);
`},
	{8, `
CREATE INDEX IF NOT EXISTS idx_findings_run_package
	ON findings (run_id, package);
`},
	{9, `
CREATE TABLE IF NOT EXISTS dirty_files (
	workspace_id TEXT NOT NULL,
	path         TEXT NOT NULL,
	observed_at  INTEGER NOT NULL,
	PRIMARY KEY (workspace_id, path)
);
`},
}
