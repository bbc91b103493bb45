// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package cache provides a TTL cache with lazy eviction, a Redis-backed
// variant and a single-flight loader on top of either.
package cache

import (
	"sync"
	"time"
)

// Cache is a key/value store with per-entry expiry. One value per key,
// last write wins.
type Cache[V any] interface {
	// Get retrieves a value. Expired entries are removed and reported missing.
	Get(key string) (V, bool)
	// Set stores a value with the specified TTL.
	Set(key string, value V, ttl time.Duration)
	// Delete removes a value.
	Delete(key string)
	// Clear removes all values.
	Clear()
	// Stats returns cache statistics.
	Stats() Stats
}

// Stats holds cache performance metrics.
type Stats struct {
	Hits        int64 // Number of successful Get operations
	Misses      int64 // Number of failed Get operations (not found or expired)
	Sets        int64 // Number of Set operations
	Evictions   int64 // Number of expired entries removed on read
	CurrentSize int   // Current number of cached entries
}

// entry represents a cached value with expiration time.
type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// expired reports whether now is past the expiry. An entry is still valid
// at exactly expiresAt.
func (e *entry[V]) expired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// MemoryOption configures a memory cache.
type MemoryOption func(*memoryOptions)

type memoryOptions struct {
	now func() time.Time
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(o *memoryOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// memoryCache is an in-memory implementation of Cache. There is no
// background sweeper; expired entries are dropped by the Get that finds them.
type memoryCache[V any] struct {
	mu      sync.Mutex
	entries map[string]*entry[V]
	stats   Stats
	now     func() time.Time
}

// NewMemory creates a new in-memory cache.
func NewMemory[V any](opts ...MemoryOption) Cache[V] {
	o := memoryOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &memoryCache[V]{
		entries: make(map[string]*entry[V]),
		now:     o.now,
	}
}

// Get retrieves a value from the cache.
func (c *memoryCache[V]) Get(key string) (V, bool) {
	// Full lock: a read may evict.
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, found := c.entries[key]
	if !found {
		c.stats.Misses++
		return zero, false
	}

	if e.expired(c.now()) {
		delete(c.entries, key)
		c.stats.Evictions++
		c.stats.Misses++
		return zero, false
	}

	c.stats.Hits++
	return e.value, true
}

// Set stores a value in the cache.
func (c *memoryCache[V]) Set(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &entry[V]{
		value:     value,
		expiresAt: c.now().Add(ttl),
	}
	c.stats.Sets++
}

// Delete removes a value from the cache.
func (c *memoryCache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear removes all values from the cache.
func (c *memoryCache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry[V])
}

// Stats returns cache statistics.
func (c *memoryCache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.CurrentSize = len(c.entries)
	return stats
}

// noOpCache is a cache that does nothing (useful for disabling caching).
type noOpCache[V any] struct{}

// NewNoOp creates a cache that doesn't cache anything.
func NewNoOp[V any]() Cache[V] {
	return noOpCache[V]{}
}

func (noOpCache[V]) Get(string) (V, bool) {
	var zero V
	return zero, false
}
func (noOpCache[V]) Set(string, V, time.Duration) {}
func (noOpCache[V]) Delete(string)                {}
func (noOpCache[V]) Clear()                       {}
func (noOpCache[V]) Stats() Stats                 { return Stats{} }
