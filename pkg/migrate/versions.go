package migrate

import (
	"database/sql"
	"fmt"
)

// versionTable names the table holding applied versions, one row per migration
type versionTable string

func (t versionTable) ensure(db *sql.DB) error {
	_, err := db.Exec(fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`, string(t)))
	if err != nil {
		return fmt.Errorf("failed to create version table %s: %w", string(t), err)
	}
	return nil
}

func (t versionTable) current(db *sql.DB) (int, error) {
	var version int
	err := db.QueryRow(fmt.Sprintf(`SELECT COALESCE(MAX(version), 0) FROM %q`, string(t))).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

// set makes version the newest row. Rows above it are rows of reverted migrations.
func (t versionTable) set(tx *sql.Tx, version int) error {
	if _, err := tx.Exec(fmt.Sprintf(`DELETE FROM %q WHERE version > ?`, string(t)), version); err != nil {
		return fmt.Errorf("failed to record schema version %d: %w", version, err)
	}
	if version == 0 {
		return nil
	}
	if _, err := tx.Exec(fmt.Sprintf(`INSERT OR IGNORE INTO %q (version) VALUES (?)`, string(t)), version); err != nil {
		return fmt.Errorf("failed to record schema version %d: %w", version, err)
	}
	return nil
}
