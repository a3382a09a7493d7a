package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/studyflow/internal/shared"
)

// SQLStorage keeps values in the kv table created by the shared migrations.
type SQLStorage struct {
	db *sql.DB
}

// NewSQLStorage wraps an already-migrated database.
func NewSQLStorage(db *sql.DB) *SQLStorage {
	return &SQLStorage{db: db}
}

// OpenSQLStorage opens path with driver and applies migrations.
func OpenSQLStorage(driver, path string) (*SQLStorage, error) {
	db, err := shared.OpenDatabase(shared.DatabaseConfig{Driver: driver, Path: path, MaxOpenConns: 1})
	if err != nil {
		return nil, err
	}
	return NewSQLStorage(db), nil
}

func (s *SQLStorage) GetItem(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query %s: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLStorage) SetItem(key, value string) error {
	query := `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := s.db.Exec(query, key, value, shared.FormatTime(time.Now())); err != nil {
		return fmt.Errorf("failed to store %s: %w", key, err)
	}
	return nil
}

func (s *SQLStorage) RemoveItem(key string) error {
	if _, err := s.db.Exec("DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	return nil
}

func (s *SQLStorage) Keys() ([]string, error) {
	rows, err := s.db.Query("SELECT key FROM kv ORDER BY key ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("failed to scan key: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return keys, nil
}

func (s *SQLStorage) Close() error {
	return s.db.Close()
}
