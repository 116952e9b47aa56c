package db

import (
	"database/sql"
	"fmt"
)

// migrations are applied in order; the index+1 of the last applied step is
// stored in PRAGMA user_version.
var migrations = []string{
	// 1: customer -> epic mappings
	`CREATE TABLE IF NOT EXISTS epic_mappings (
		customer   TEXT PRIMARY KEY,
		epic_key   TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	// 2: monthly position snapshots; frozen rows are never overwritten
	`CREATE TABLE IF NOT EXISTS position_snapshots (
		epic_key          TEXT NOT NULL,
		month_key         TEXT NOT NULL,
		frozen            INTEGER NOT NULL DEFAULT 0,
		computed_at       TEXT NOT NULL,
		total_seconds     INTEGER NOT NULL DEFAULT 0,
		seconds_by_person TEXT NOT NULL DEFAULT '{}',
		percents          TEXT NOT NULL DEFAULT '{}',
		PRIMARY KEY (epic_key, month_key)
	)`,
	// 3
	`CREATE INDEX IF NOT EXISTS idx_epic_mappings_epic ON epic_mappings(epic_key)`,
	// 4: notices outlive the process that raised them
	`CREATE TABLE IF NOT EXISTS notices (
		id         TEXT PRIMARY KEY,
		operation  TEXT NOT NULL,
		scope      TEXT NOT NULL DEFAULT '',
		message    TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
}

// Migrate applies every migration newer than the database's user_version.
func Migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	for i := version; i < len(migrations); i++ {
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("migration %d: beginning transaction: %w", i+1, err)
		}
		if _, err := tx.Exec(migrations[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		// PRAGMA does not accept bound parameters.
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", i+1)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d: recording version: %w", i+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d: committing: %w", i+1, err)
		}
	}
	return nil
}

// SchemaVersion returns the number of applied migrations.
func SchemaVersion(db *sql.DB) (int, error) {
	var v int
	err := db.QueryRow("PRAGMA user_version").Scan(&v)
	return v, err
}
