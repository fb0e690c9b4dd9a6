package db

import "fmt"

const currentVersion = 2

func (d *DB) migrate() error {
	// Create migrations table if it doesn't exist
	if _, err := d.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("creating migrations table: %w", err)
	}

	// Get current version
	var version int
	err := d.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		return fmt.Errorf("getting schema version: %w", err)
	}

	// Apply migrations
	migrations := []func(*DB) error{
		migrateV1,
		migrateV2,
	}

	for i := version; i < len(migrations); i++ {
		if err := migrations[i](d); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		if _, err := d.Exec("INSERT INTO schema_migrations (version) VALUES (?)", i+1); err != nil {
			return fmt.Errorf("recording migration %d: %w", i+1, err)
		}
	}

	return nil
}

// SchemaVersion returns the latest applied migration
func (d *DB) SchemaVersion() (int, error) {
	var version int
	if err := d.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version); err != nil {
		return 0, fmt.Errorf("getting schema version: %w", err)
	}
	return version, nil
}

func migrateV1(d *DB) error {
	statements := []string{
		`CREATE TABLE collections (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE COLLATE NOCASE,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE mod_settings (
			collection_id TEXT NOT NULL,
			mod_id TEXT NOT NULL,
			enabled INTEGER NOT NULL DEFAULT 0,
			priority INTEGER NOT NULL DEFAULT 0,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY(collection_id, mod_id),
			FOREIGN KEY(collection_id) REFERENCES collections(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX idx_mod_settings_mod ON mod_settings(mod_id)`,
	}

	for _, stmt := range statements {
		if _, err := d.Exec(stmt); err != nil {
			return fmt.Errorf("executing %q: %w", stmt[:min(len(stmt), 50)], err)
		}
	}

	return nil
}

func migrateV2(d *DB) error {
	// Group values are keyed by group name so they survive groups being reordered
	_, err := d.Exec(`
		CREATE TABLE IF NOT EXISTS group_settings (
			collection_id TEXT NOT NULL,
			mod_id TEXT NOT NULL,
			group_name TEXT NOT NULL COLLATE NOCASE,
			value INTEGER NOT NULL,
			PRIMARY KEY(collection_id, mod_id, group_name),
			FOREIGN KEY(collection_id, mod_id)
				REFERENCES mod_settings(collection_id, mod_id)
				ON DELETE CASCADE
		)
	`)
	return err
}
