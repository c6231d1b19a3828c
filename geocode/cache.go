// Copyright 2025 The CartoBDX Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"log"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/cartobdx/cartobdx/spatial"
)

// DefaultCacheSize bounds the number of remembered addresses.
const DefaultCacheSize = 4096

// Cache remembers geocoding outcomes by normalized address. A nil point is
// a remembered "no result" and is never re-queried while it stays cached.
// It is safe for concurrent use.
type Cache struct {
	entries *lru.Cache[string, *spatial.Point]
}

// NewCache creates a cache holding at most size entries. A size of zero or
// less uses DefaultCacheSize.
func NewCache(size int) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}

	entries, err := lru.New[string, *spatial.Point](size)
	if err != nil {
		log.Fatalf("Failed to create geocode cache: %v", err)
	}

	return &Cache{entries: entries}
}

// CacheKey normalizes an address to "address|postalCode|city": trimmed,
// lower-cased, inner whitespace collapsed.
func CacheKey(address, city, postalCode string) string {
	return normalize(address) + "|" + normalize(postalCode) + "|" + normalize(city)
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Get returns a copy of the cached point. ok is true for cached misses too,
// in which case the point is nil.
func (c *Cache) Get(key string) (*spatial.Point, bool) {
	p, ok := c.entries.Get(key)
	if !ok || p == nil {
		return nil, ok
	}

	cp := *p

	return &cp, true
}

// Put stores an outcome, nil meaning "no result".
func (c *Cache) Put(key string, p *spatial.Point) {
	if p != nil {
		cp := *p
		p = &cp
	}

	c.entries.Add(key, p)
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	return c.entries.Len()
}

// Purge removes every entry.
func (c *Cache) Purge() {
	c.entries.Purge()
}
