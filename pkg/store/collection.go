package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Collection is a named archive folder tracked by the index.
type Collection struct {
	Name      string
	Path      string
	Mask      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AddCollection registers an archive folder. Re-adding an existing name
// updates its path and mask.
func (s *Store) AddCollection(name, path, mask string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.Exec(`
		INSERT INTO collections (name, path, mask, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			path = excluded.path,
			mask = excluded.mask,
			updated_at = excluded.updated_at
	`, name, path, mask, now, now)
	if err != nil {
		return fmt.Errorf("failed to add collection: %w", err)
	}
	return nil
}

// GetCollection looks up a collection by name.
func (s *Store) GetCollection(name string) (*Collection, error) {
	var c Collection
	var createdAt, updatedAt string

	err := s.db.QueryRow(
		"SELECT name, path, mask, created_at, updated_at FROM collections WHERE name = ?",
		name,
	).Scan(&c.Name, &c.Path, &c.Mask, &createdAt, &updatedAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("collection not found: %s", name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get collection: %w", err)
	}

	c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	c.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	return &c, nil
}

// ListCollections returns all registered collections.
func (s *Store) ListCollections() ([]Collection, error) {
	rows, err := s.db.Query("SELECT name, path, mask, created_at, updated_at FROM collections ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	defer rows.Close()

	var collections []Collection
	for rows.Next() {
		var c Collection
		var createdAt, updatedAt string
		if err := rows.Scan(&c.Name, &c.Path, &c.Mask, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan collection: %w", err)
		}
		c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		c.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		collections = append(collections, c)
	}

	return collections, rows.Err()
}

// RemoveCollection unregisters a collection and soft-deletes its
// documents.
func (s *Store) RemoveCollection(name string) error {
	result, err := s.db.Exec("DELETE FROM collections WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("failed to remove collection: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("collection not found: %s", name)
	}

	_, err = s.db.Exec("UPDATE documents SET active = 0 WHERE collection = ?", name)
	if err != nil {
		return fmt.Errorf("failed to deactivate collection documents: %w", err)
	}

	return nil
}

// TouchCollection bumps a collection's updated_at after an index run.
func (s *Store) TouchCollection(name string) error {
	_, err := s.db.Exec(
		"UPDATE collections SET updated_at = ? WHERE name = ?",
		time.Now().UTC().Format(time.RFC3339), name,
	)
	if err != nil {
		return fmt.Errorf("failed to touch collection: %w", err)
	}
	return nil
}
