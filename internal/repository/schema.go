package repository

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

var schema = map[string][]string{
	DriverPostgres: {
		`CREATE TABLE IF NOT EXISTS habits (
			id               TEXT PRIMARY KEY,
			user_id          TEXT NOT NULL,
			name             TEXT NOT NULL,
			category         TEXT NOT NULL DEFAULT 'General',
			description      TEXT NOT NULL DEFAULT '',
			duration_minutes INTEGER NOT NULL,
			priority         TEXT NOT NULL DEFAULT 'medium',
			scheduled_time   TEXT NOT NULL DEFAULT '',
			timer            JSONB NOT NULL,
			history          JSONB NOT NULL DEFAULT '[]',
			streak           INTEGER NOT NULL DEFAULT 0,
			longest_streak   INTEGER NOT NULL DEFAULT 0,
			version          INTEGER NOT NULL DEFAULT 1,
			created_at       TIMESTAMPTZ NOT NULL,
			updated_at       TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_habits_user_id ON habits (user_id)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_habits_user_name ON habits (user_id, LOWER(name))`,
	},
	DriverSQLite: {
		`CREATE TABLE IF NOT EXISTS habits (
			id               TEXT PRIMARY KEY,
			user_id          TEXT NOT NULL,
			name             TEXT NOT NULL,
			category         TEXT NOT NULL DEFAULT 'General',
			description      TEXT NOT NULL DEFAULT '',
			duration_minutes INTEGER NOT NULL,
			priority         TEXT NOT NULL DEFAULT 'medium',
			scheduled_time   TEXT NOT NULL DEFAULT '',
			timer            TEXT NOT NULL,
			history          TEXT NOT NULL DEFAULT '[]',
			streak           INTEGER NOT NULL DEFAULT 0,
			longest_streak   INTEGER NOT NULL DEFAULT 0,
			version          INTEGER NOT NULL DEFAULT 1,
			created_at       DATETIME NOT NULL,
			updated_at       DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_habits_user_id ON habits (user_id)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_habits_user_name ON habits (user_id, name COLLATE NOCASE)`,
	},
}
