package journal

// schemaVersionV1 has runs and dispatches without failure details.
const schemaVersionV1 = 1

// schemaVersionV2 adds the error column on runs.
const schemaVersionV2 = 2

// currentSchemaVersion is the target schema version for this build.
const currentSchemaVersion = schemaVersionV2

var schemaV1 = `
CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL);

CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	process     TEXT NOT NULL,
	input_event TEXT NOT NULL,
	status      TEXT NOT NULL,
	steps       INTEGER NOT NULL DEFAULT 0,
	started_at  TEXT NOT NULL,
	ended_at    TEXT
);

CREATE TABLE IF NOT EXISTS dispatches (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id   TEXT NOT NULL REFERENCES runs(id),
	seq      INTEGER NOT NULL,
	step     TEXT NOT NULL,
	event    TEXT NOT NULL,
	payload  TEXT,
	targets  TEXT NOT NULL DEFAULT '[]',
	stop     INTEGER NOT NULL DEFAULT 0,
	error    TEXT,
	at       TEXT NOT NULL
);
`

// schemaV2 is the fresh-install DDL.
var schemaV2 = `
CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL);

CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	process     TEXT NOT NULL,
	input_event TEXT NOT NULL,
	status      TEXT NOT NULL,
	steps       INTEGER NOT NULL DEFAULT 0,
	error       TEXT,
	started_at  TEXT NOT NULL,
	ended_at    TEXT
);

CREATE TABLE IF NOT EXISTS dispatches (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id   TEXT NOT NULL REFERENCES runs(id),
	seq      INTEGER NOT NULL,
	step     TEXT NOT NULL,
	event    TEXT NOT NULL,
	payload  TEXT,
	targets  TEXT NOT NULL DEFAULT '[]',
	stop     INTEGER NOT NULL DEFAULT 0,
	error    TEXT,
	at       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_dispatches_run ON dispatches(run_id, seq);
`

var migrationV1ToV2 = `
ALTER TABLE runs ADD COLUMN error TEXT;
CREATE INDEX IF NOT EXISTS idx_dispatches_run ON dispatches(run_id, seq);
UPDATE schema_version SET version = 2;
`
