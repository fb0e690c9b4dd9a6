package db

import (
	"fmt"
	"time"

	"github.com/xivdev/Penumbra-sub003/internal/domain"
)

// ModSettingsRecord is the stored form of one mod's settings in one collection.
// Group values are keyed by group name.
type ModSettingsRecord struct {
	ModID    string
	Enabled  bool
	Priority int
	Groups   map[string]uint32
}

// SaveModSettings inserts or replaces a mod's settings in a collection
func (d *DB) SaveModSettings(collectionID string, rec ModSettingsRecord) error {
	tx, err := d.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO mod_settings (collection_id, mod_id, enabled, priority, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(collection_id, mod_id) DO UPDATE SET
			enabled = excluded.enabled,
			priority = excluded.priority,
			updated_at = excluded.updated_at
	`, collectionID, rec.ModID, rec.Enabled, rec.Priority, time.Now())
	if err != nil {
		return fmt.Errorf("saving mod settings: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM group_settings WHERE collection_id = ? AND mod_id = ?`, collectionID, rec.ModID); err != nil {
		return fmt.Errorf("clearing group settings: %w", err)
	}
	for name, value := range rec.Groups {
		_, err := tx.Exec(`
			INSERT INTO group_settings (collection_id, mod_id, group_name, value)
			VALUES (?, ?, ?, ?)
		`, collectionID, rec.ModID, name, int64(value))
		if err != nil {
			return fmt.Errorf("saving group setting %s: %w", name, err)
		}
	}

	return tx.Commit()
}

// GetModSettings returns every stored mod setting of a collection, keyed by mod ID
func (d *DB) GetModSettings(collectionID string) (map[string]ModSettingsRecord, error) {
	rows, err := d.Query(`
		SELECT mod_id, enabled, priority
		FROM mod_settings
		WHERE collection_id = ?
	`, collectionID)
	if err != nil {
		return nil, fmt.Errorf("querying mod settings: %w", err)
	}

	out := make(map[string]ModSettingsRecord)
	for rows.Next() {
		var rec ModSettingsRecord
		if err := rows.Scan(&rec.ModID, &rec.Enabled, &rec.Priority); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning mod settings: %w", err)
		}
		rec.Groups = make(map[string]uint32)
		out[rec.ModID] = rec
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	groupRows, err := d.Query(`
		SELECT mod_id, group_name, value
		FROM group_settings
		WHERE collection_id = ?
	`, collectionID)
	if err != nil {
		return nil, fmt.Errorf("querying group settings: %w", err)
	}
	defer groupRows.Close()

	for groupRows.Next() {
		var (
			modID, name string
			value       int64
		)
		if err := groupRows.Scan(&modID, &name, &value); err != nil {
			return nil, fmt.Errorf("scanning group setting: %w", err)
		}
		if rec, ok := out[modID]; ok {
			rec.Groups[name] = uint32(value)
		}
	}

	return out, groupRows.Err()
}

// DeleteModSettings removes a mod's settings from a collection
func (d *DB) DeleteModSettings(collectionID, modID string) error {
	result, err := d.Exec(`DELETE FROM mod_settings WHERE collection_id = ? AND mod_id = ?`, collectionID, modID)
	if err != nil {
		return fmt.Errorf("deleting mod settings: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrModNotFound
	}
	return nil
}
