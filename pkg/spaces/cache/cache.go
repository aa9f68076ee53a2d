// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package cache provides the in-memory TTL caches backing space discovery.
//
// Two independent caches share this implementation: one for space metadata
// and one for space tool schemas. Expiry is measured from entry creation
// (not last access) and evaluated on read, so entries expire predictably
// under any read pattern. A separate revalidation path returns expired
// entries so their ETags can be replayed as If-None-Match.
//
// The privacy invariant — never store entries for private spaces — is
// enforced at the fetcher call sites, not here: the cache cannot know what
// "private" means for an arbitrary value type.
package cache

import (
	"sync"
	"time"
)

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	// Hits is the number of reads that returned a live entry.
	Hits int64 `json:"hits"`

	// Misses is the number of reads that found nothing or an expired entry.
	Misses int64 `json:"misses"`

	// Size is the current number of stored entries.
	Size int `json:"size"`

	// Revalidations counts 304-style refreshes of existing entries.
	Revalidations int64 `json:"etagRevalidations"`
}

type entry[V any] struct {
	value     V
	fetchedAt time.Time
}

// Cache is a concurrency-safe TTL map keyed by space name.
//
// Reads are frequent and writes are bursty; a single RWMutex over a small
// map is sufficient because each entry is small and discovery batches are
// bounded.
type Cache[V any] struct {
	mu      sync.RWMutex
	entries map[string]*entry[V]
	ttl     time.Duration

	hits          int64
	misses        int64
	revalidations int64

	// now is injectable for tests; defaults to time.Now.
	now func() time.Time
}

// New creates a cache whose entries expire ttl after creation.
func New[V any](ttl time.Duration) *Cache[V] {
	return &Cache[V]{
		entries: make(map[string]*entry[V]),
		ttl:     ttl,
		now:     time.Now,
	}
}

// SetClock replaces the cache's time source. Tests only.
func (c *Cache[V]) SetClock(now func() time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

// Get returns the live entry for key. Expired entries count as misses and
// are left in place for the revalidation path.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || c.now().Sub(e.fetchedAt) >= c.ttl {
		c.misses++
		var zero V
		return zero, false
	}
	c.hits++
	return e.value, true
}

// GetForRevalidation returns the entry for key regardless of expiry, along
// with its creation time. It does not touch the hit/miss counters: it is a
// bookkeeping read on the refetch path, not a cache lookup.
func (c *Cache[V]) GetForRevalidation(key string) (V, time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, time.Time{}, false
	}
	return e.value, e.fetchedAt, true
}

// Set stores value under key with a fresh creation timestamp, overwriting
// any previous entry in place.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	c.entries[key] = &entry[V]{value: value, fetchedAt: c.now()}
	c.mu.Unlock()
}

// Refresh restarts the TTL of an existing entry without replacing its
// value, and records an ETag revalidation. Returns the new creation time,
// or false when the key is absent.
func (c *Cache[V]) Refresh(key string) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return time.Time{}, false
	}
	e.fetchedAt = c.now()
	c.revalidations++
	return e.fetchedAt, true
}

// Delete removes the entry for key, if present.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Clear removes every entry and resets all statistics to zero.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*entry[V])
	c.hits = 0
	c.misses = 0
	c.revalidations = 0
	c.mu.Unlock()
}

// Stats returns a snapshot of the cache counters.
func (c *Cache[V]) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{
		Hits:          c.hits,
		Misses:        c.misses,
		Size:          len(c.entries),
		Revalidations: c.revalidations,
	}
}
