package state

import (
	"database/sql"
)

const currentSchemaVersion = 1

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);

		CREATE TABLE IF NOT EXISTS ui_state (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			station_index INTEGER NOT NULL DEFAULT 0,
			station_uri TEXT,
			volume REAL NOT NULL DEFAULT 0.8,
			updated_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS play_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			station_name TEXT NOT NULL,
			station_uri TEXT NOT NULL,
			title TEXT,
			started_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_play_history_started_at ON play_history(started_at DESC);
	`)
	if err != nil {
		return err
	}

	// Set initial version if not exists
	_, err = db.Exec(`
		INSERT OR IGNORE INTO schema_version (version) VALUES (?)
	`, currentSchemaVersion)
	return err
}
