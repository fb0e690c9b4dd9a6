package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xivdev/Penumbra-sub003/internal/domain"
)

// CreateCollection inserts a new collection record
func (d *DB) CreateCollection(c *domain.CollectionInfo) error {
	if _, err := d.GetCollection(c.Name); err == nil {
		return fmt.Errorf("%w: %s", domain.ErrCollectionExists, c.Name)
	} else if !errors.Is(err, domain.ErrCollectionNotFound) {
		return err
	}

	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	_, err := d.Exec(`INSERT INTO collections (id, name, created_at) VALUES (?, ?, ?)`, c.ID, c.Name, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("saving collection: %w", err)
	}
	return nil
}

// GetCollection returns a collection by name, compared case-insensitively
func (d *DB) GetCollection(name string) (*domain.CollectionInfo, error) {
	var c domain.CollectionInfo
	err := d.QueryRow(`SELECT id, name, created_at FROM collections WHERE name = ?`, name).
		Scan(&c.ID, &c.Name, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("querying collection: %w", err)
	}
	return &c, nil
}

// ListCollections returns all collections ordered by name
func (d *DB) ListCollections() ([]domain.CollectionInfo, error) {
	rows, err := d.Query(`SELECT id, name, created_at FROM collections ORDER BY name COLLATE NOCASE ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying collections: %w", err)
	}
	defer rows.Close()

	var out []domain.CollectionInfo
	for rows.Next() {
		var c domain.CollectionInfo
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning collection: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteCollection removes a collection and all of its settings
func (d *DB) DeleteCollection(name string) error {
	result, err := d.Exec(`DELETE FROM collections WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("deleting collection: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, name)
	}
	return nil
}
