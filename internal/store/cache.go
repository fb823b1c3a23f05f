package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doughub/engine/internal/cache"
)

// Compile-time assertion that Store implements cache.Store.
var _ cache.Store = (*Store)(nil)

// GetEntry retrieves a cache entry by its key. Returns (nil, nil) if the
// key does not exist.
func (s *Store) GetEntry(key string) (*cache.Entry, error) {
	var (
		taskID    string
		value     []byte
		createdAt string
		expiresAt string
	)
	err := s.reader.QueryRow(`
		SELECT task_id, value, created_at, expires_at
		FROM cache_entries WHERE key = ?`, key,
	).Scan(&taskID, &value, &createdAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get cache entry %s: %w", key, err)
	}

	created, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("store: parse created_at for %s: %w", key, err)
	}
	expires, err := time.Parse(time.RFC3339Nano, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("store: parse expires_at for %s: %w", key, err)
	}

	return &cache.Entry{
		Value:     value,
		TaskID:    taskID,
		CreatedAt: created,
		ExpiresAt: expires,
	}, nil
}

// SetEntry inserts or replaces a cache entry. If an entry with the same
// key already exists it is overwritten.
func (s *Store) SetEntry(key string, entry *cache.Entry) error {
	_, err := s.writer.Exec(`
		INSERT OR REPLACE INTO cache_entries (key, task_id, value, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?)`,
		key, entry.TaskID, []byte(entry.Value),
		entry.CreatedAt.UTC().Format(time.RFC3339Nano),
		entry.ExpiresAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("store: set cache entry: %w", err)
	}
	return nil
}

// DeleteExpired removes all cache entries whose expiry is at or before now.
// It returns the number of rows deleted.
func (s *Store) DeleteExpired(now time.Time) (int64, error) {
	result, err := s.writer.Exec(
		"DELETE FROM cache_entries WHERE expires_at <= ?",
		now.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("store: delete expired entries: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("store: delete expired rows affected: %w", err)
	}
	return n, nil
}

// DeleteAll empties the cache_entries table.
func (s *Store) DeleteAll() error {
	if _, err := s.writer.Exec("DELETE FROM cache_entries"); err != nil {
		return fmt.Errorf("store: delete all entries: %w", err)
	}
	return nil
}
