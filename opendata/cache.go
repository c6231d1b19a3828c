// Copyright 2025 The CartoBDX Authors
// SPDX-License-Identifier: Apache-2.0

package opendata

import (
	"sync"
	"time"
)

// DatasetCache is a single-slot cache: storing a value replaces the
// previous one. A value is fresh while it is younger than the TTL; stale
// values stay available through Last for timeout fallbacks.
type DatasetCache[T any] struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	value    T
	storedAt time.Time
	ok       bool
}

// NewDatasetCache creates an empty cache. now defaults to time.Now.
func NewDatasetCache[T any](ttl time.Duration, now func() time.Time) *DatasetCache[T] {
	if now == nil {
		now = time.Now
	}

	return &DatasetCache[T]{ttl: ttl, now: now}
}

// Fresh returns the cached value if it is younger than the TTL.
func (c *DatasetCache[T]) Fresh() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.ok || c.now().Sub(c.storedAt) >= c.ttl {
		var zero T

		return zero, false
	}

	return c.value, true
}

// Last returns the cached value regardless of its age.
func (c *DatasetCache[T]) Last() (T, time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.value, c.storedAt, c.ok
}

// Store replaces the cached value and stamps it with the current time.
func (c *DatasetCache[T]) Store(v T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.value = v
	c.storedAt = c.now()
	c.ok = true
}

// Clear empties the cache.
func (c *DatasetCache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T

	c.value = zero
	c.storedAt = time.Time{}
	c.ok = false
}
