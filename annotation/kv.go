// Copyright 2025 The CartoBDX Authors
// SPDX-License-Identifier: Apache-2.0

package annotation

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

type sqlKVStore struct {
	db  *sql.DB
	now func() time.Time
}

// SQLKVStore is a KVStore persisted in a DuckDB table.
type SQLKVStore interface {
	KVStore

	// CreateSchema creates the kv table
	CreateSchema() error

	// Keys returns the keys starting with prefix, sorted
	Keys(prefix string) ([]string, error)
}

// NewSQLKVStore creates a KVStore over db. Call CreateSchema before use.
func NewSQLKVStore(db *sql.DB) SQLKVStore {
	return &sqlKVStore{db: db, now: time.Now}
}

func (r *sqlKVStore) CreateSchema() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS kv (
			key VARCHAR PRIMARY KEY,
			value VARCHAR NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)

	return err
}

func (r *sqlKVStore) Get(key string) (string, bool, error) {
	var value string

	err := r.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}

	if err != nil {
		return "", false, fmt.Errorf("reading key %s: %w", key, err)
	}

	return value, true, nil
}

func (r *sqlKVStore) Set(key, value string) error {
	_, err := r.db.Exec(`
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, r.now().UTC())
	if err != nil {
		return fmt.Errorf("writing key %s: %w", key, err)
	}

	return nil
}

func (r *sqlKVStore) Remove(key string) error {
	if _, err := r.db.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("deleting key %s: %w", key, err)
	}

	return nil
}

func (r *sqlKVStore) Keys(prefix string) ([]string, error) {
	rows, err := r.db.Query(`SELECT key FROM kv WHERE starts_with(key, ?) ORDER BY key`, prefix)
	if err != nil {
		return nil, fmt.Errorf("listing keys: %w", err)
	}
	defer rows.Close()

	var keys []string

	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}

		keys = append(keys, key)
	}

	return keys, rows.Err()
}

// MemoryKVStore is an in-process KVStore.
type MemoryKVStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryKVStore creates an empty MemoryKVStore.
func NewMemoryKVStore() *MemoryKVStore {
	return &MemoryKVStore{values: make(map[string]string)}
}

// Get implements KVStore.
func (m *MemoryKVStore) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]

	return v, ok, nil
}

// Set implements KVStore.
func (m *MemoryKVStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = value

	return nil
}

// Remove implements KVStore.
func (m *MemoryKVStore) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, key)

	return nil
}

// Keys implements KeyLister.
func (m *MemoryKVStore) Keys(prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var keys []string

	for k := range m.values {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}

	sort.Strings(keys)

	return keys, nil
}

// Len returns the number of stored keys.
func (m *MemoryKVStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.values)
}
