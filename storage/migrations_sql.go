package storage

var sqliteMigrations = map[int][]string{
	1: {
		`CREATE TABLE IF NOT EXISTS kuro_schema_version (num INTEGER NOT NULL)`,
		`CREATE TABLE IF NOT EXISTS kuro_knowledge (
			question     TEXT PRIMARY KEY,
			answer       TEXT NOT NULL,
			source       TEXT NOT NULL DEFAULT '',
			date_created TEXT NOT NULL DEFAULT '',
			date_updated TEXT NOT NULL DEFAULT '',
			use_count    INTEGER NOT NULL DEFAULT 0,
			category     TEXT NOT NULL DEFAULT '',
			tokens       TEXT,
			stems        TEXT,
			entities     TEXT,
			alternates   TEXT,
			reference    TEXT NOT NULL DEFAULT '',
			is_alias     INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS kuro_knowledge_category ON kuro_knowledge (category)`,
		`CREATE TABLE IF NOT EXISTS kuro_artifact (
			name         TEXT PRIMARY KEY,
			data         BLOB NOT NULL,
			date_updated TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS kuro_snapshot (
			uuid         TEXT PRIMARY KEY,
			records      INTEGER NOT NULL,
			date_created TEXT NOT NULL
		)`,
	},
}

var postgresMigrations = map[int][]string{
	1: {
		`CREATE TABLE IF NOT EXISTS kuro_schema_version (num INTEGER NOT NULL)`,
		`CREATE TABLE IF NOT EXISTS kuro_knowledge (
			question     TEXT PRIMARY KEY,
			answer       TEXT NOT NULL,
			source       TEXT NOT NULL DEFAULT '',
			date_created TEXT NOT NULL DEFAULT '',
			date_updated TEXT NOT NULL DEFAULT '',
			use_count    INTEGER NOT NULL DEFAULT 0,
			category     TEXT NOT NULL DEFAULT '',
			tokens       TEXT,
			stems        TEXT,
			entities     TEXT,
			alternates   TEXT,
			reference    TEXT NOT NULL DEFAULT '',
			is_alias     INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS kuro_knowledge_category ON kuro_knowledge (category)`,
		`CREATE TABLE IF NOT EXISTS kuro_artifact (
			name         TEXT PRIMARY KEY,
			data         BYTEA NOT NULL,
			date_updated TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS kuro_snapshot (
			uuid         UUID PRIMARY KEY,
			records      INTEGER NOT NULL,
			date_created TEXT NOT NULL
		)`,
	},
}
