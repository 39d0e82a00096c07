package database

import (
	"database/sql"
	"fmt"
)

// SeedDefaults inserts the settings a fresh install needs. Existing rows
// win, so operator overrides survive restarts.
func SeedDefaults(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin seed tx: %w", err)
	}

	if _, err := tx.Exec(`
		INSERT OR IGNORE INTO settings (key, value)
		VALUES
			('polling_minutes', '30'),
			('search_limit', '10'),
			('popular_limit', '20');
	`); err != nil {
		tx.Rollback()
		return fmt.Errorf("seed settings: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed tx: %w", err)
	}

	return nil
}
