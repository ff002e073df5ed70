package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"backoffice/internal/repository"

	"github.com/jmoiron/sqlx"
)

// Store implements repository.Store on PostgreSQL.
// Records live in one JSONB table keyed by (tbl, id).
type Store struct {
	db *sqlx.DB
}

// NewStore creates a new postgres store
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

type recordRow struct {
	ID   string `db:"id"`
	Data []byte `db:"data"`
}

// Get returns the record data or false when missing
func (s *Store) Get(table, id string) ([]byte, bool, error) {
	query := `
		SELECT data
		FROM records
		WHERE tbl = $1 AND id = $2
	`
	var data []byte
	err := s.db.Get(&data, query, table, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("Store.Get: %w", err)
	}
	return data, true, nil
}

// Put upserts the record
func (s *Store) Put(table, id string, data []byte) error {
	query := `
		INSERT INTO records (tbl, id, data, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (tbl, id) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()
	`
	if _, err := s.db.Exec(query, table, id, data); err != nil {
		return fmt.Errorf("Store.Put: %w", err)
	}
	return nil
}

// Delete removes the record
func (s *Store) Delete(table, id string) error {
	query := `
		DELETE FROM records
		WHERE tbl = $1 AND id = $2
	`
	if _, err := s.db.Exec(query, table, id); err != nil {
		return fmt.Errorf("Store.Delete: %w", err)
	}
	return nil
}

// List returns all records of a table ordered by id
func (s *Store) List(table string) ([]repository.Entry, error) {
	query := `
		SELECT id, data
		FROM records
		WHERE tbl = $1
		ORDER BY id
	`
	var rows []recordRow
	if err := s.db.Select(&rows, query, table); err != nil {
		return nil, fmt.Errorf("Store.List: %w", err)
	}

	entries := make([]repository.Entry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, repository.Entry{ID: r.ID, Data: r.Data})
	}
	return entries, nil
}

// Clear deletes every record of a table
func (s *Store) Clear(table string) error {
	query := `
		DELETE FROM records
		WHERE tbl = $1
	`
	if _, err := s.db.Exec(query, table); err != nil {
		return fmt.Errorf("Store.Clear: %w", err)
	}
	return nil
}

// Next atomically increments the named counter
func (s *Store) Next(counter string) (int64, error) {
	query := `
		INSERT INTO counters (name, value)
		VALUES ($1, 1)
		ON CONFLICT (name) DO UPDATE SET value = counters.value + 1
		RETURNING value
	`
	var value int64
	if err := s.db.Get(&value, query, counter); err != nil {
		return 0, fmt.Errorf("Store.Next: %w", err)
	}
	return value, nil
}
