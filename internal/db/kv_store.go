package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// KVStore is a string key/value table. Each call is atomic per key.
type KVStore struct {
	db *sql.DB
}

// NewKVStore creates a key/value store from a base store
func NewKVStore(store *Store) *KVStore {
	if store == nil {
		return nil
	}
	return &KVStore{db: store.DB()}
}

// Get returns the value stored under key
func (kv *KVStore) Get(ctx context.Context, key string) (string, bool, error) {
	if kv == nil || kv.db == nil {
		return "", false, fmt.Errorf("kv store not initialized")
	}
	if strings.TrimSpace(key) == "" {
		return "", false, fmt.Errorf("empty key")
	}
	var out string
	err := kv.db.QueryRowContext(ctx, `SELECT value FROM kv_entries WHERE key=?`, key).Scan(&out)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return out, true, nil
}

// Set upserts value under key
func (kv *KVStore) Set(ctx context.Context, key, value string) error {
	if kv == nil || kv.db == nil {
		return fmt.Errorf("kv store not initialized")
	}
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("empty key")
	}
	_, err := kv.db.ExecContext(ctx, `INSERT INTO kv_entries(key, value, updated_at)
VALUES(?,?,?)
ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at;
`, key, value, time.Now().Unix())
	return err
}

// Remove deletes key; removing a missing key is not an error
func (kv *KVStore) Remove(ctx context.Context, key string) error {
	if kv == nil || kv.db == nil {
		return fmt.Errorf("kv store not initialized")
	}
	_, err := kv.db.ExecContext(ctx, `DELETE FROM kv_entries WHERE key=?`, key)
	return err
}

// Keys lists keys starting with prefix, sorted
func (kv *KVStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	if kv == nil || kv.db == nil {
		return nil, fmt.Errorf("kv store not initialized")
	}
	rows, err := kv.db.QueryContext(ctx, `SELECT key FROM kv_entries WHERE substr(key, 1, ?) = ? ORDER BY key`, len(prefix), prefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
