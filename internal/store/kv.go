package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// KVEntry is a stored key/value pair. Version starts at 1 and increments on
// every KVSet of the same key.
type KVEntry struct {
	Key     string
	Value   string
	Version int64
}

// KVSet stores value under key and returns the new entry.
func (s *Store) KVSet(ctx context.Context, key, value string) (KVEntry, error) {
	var e KVEntry
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO kv (key, value, version) VALUES (?, ?, 1)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, version = kv.version + 1
		RETURNING key, value, version
	`, key, value).Scan(&e.Key, &e.Value, &e.Version)
	if err != nil {
		return KVEntry{}, fmt.Errorf("kv set %q: %w", key, err)
	}
	return e, nil
}

// KVGet returns the entry stored under key. found is false if there is none.
func (s *Store) KVGet(ctx context.Context, key string) (entry KVEntry, found bool, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT key, value, version FROM kv WHERE key = ?
	`, key).Scan(&entry.Key, &entry.Value, &entry.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return KVEntry{}, false, nil
	}
	if err != nil {
		return KVEntry{}, false, fmt.Errorf("kv get %q: %w", key, err)
	}
	return entry, true, nil
}

// KVDelete removes key. It reports whether an entry existed.
func (s *Store) KVDelete(ctx context.Context, key string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
	if err != nil {
		return false, fmt.Errorf("kv delete %q: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("kv delete %q: %w", key, err)
	}
	return n > 0, nil
}

// KVList returns every entry ordered by key.
func (s *Store) KVList(ctx context.Context) ([]KVEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, value, version FROM kv ORDER BY key COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("kv list: %w", err)
	}
	defer rows.Close()

	entries := []KVEntry{}
	for rows.Next() {
		var e KVEntry
		if err := rows.Scan(&e.Key, &e.Value, &e.Version); err != nil {
			return nil, fmt.Errorf("kv list: scan: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("kv list: %w", err)
	}
	return entries, nil
}
