// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package fscache maintains a process-wide, concurrency-safe view of
// filesystem existence and metadata so repeated large-repo scans don't
// re-stat the same paths.
//
// # Coherence contract
//
// The cache is at-most-stale-between-invalidations: it never refreshes in
// the background. Every mutation path in this module (Atomic FS Ops,
// the Repair Coordinator) MUST call Invalidate(path) immediately after
// writing or deleting a file, before any subsequent read of that path.
// The cache never papers over a failed stat call as "exists" — a failed
// lookup is recorded as unknown, not cached, so the next query retries.
//
// # Thread Safety
//
// Cache is safe for concurrent use. Reads take an RLock; writes
// (including Invalidate) take a write lock. A singleflight group
// collapses concurrent first-lookups of the same path into one stat call.
package fscache

import (
	"os"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Info is the cached view of one path's filesystem state.
type Info struct {
	Exists  bool
	IsDir   bool
	IsFile  bool
	ModTime int64 // Unix nanoseconds; zero if Exists is false.
	Size    int64
}

// Cache is a read-mostly, concurrency-safe filesystem-state cache.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Info
	flight  singleflight.Group

	hits   int64
	misses int64
}

// New creates an empty Cache.
func New() *Cache {
	return &Cache{entries: make(map[string]Info)}
}

// Stat returns the cached Info for path, populating it from the
// filesystem on first access. If the underlying stat call fails for a
// reason other than "not exist" (e.g. permission denied), the error is
// returned and the entry is left unknown — it is never cached as
// existing, per the failure-mode requirement in spec §4.1.
func (c *Cache) Stat(path string) (Info, error) {
	c.mu.RLock()
	info, ok := c.entries[path]
	c.mu.RUnlock()
	if ok {
		c.bump(&c.hits)
		return info, nil
	}
	c.bump(&c.misses)

	v, err, _ := c.flight.Do(path, func() (any, error) {
		return c.statUncached(path)
	})
	if err != nil {
		return Info{}, err
	}
	return v.(Info), nil
}

func (c *Cache) statUncached(path string) (Info, error) {
	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			absent := Info{Exists: false}
			c.mu.Lock()
			c.entries[path] = absent
			c.mu.Unlock()
			return absent, nil
		}
		// Permission error or similar: surface it, cache nothing.
		return Info{}, err
	}

	info := Info{
		Exists:  true,
		IsDir:   fi.IsDir(),
		IsFile:  !fi.IsDir(),
		ModTime: fi.ModTime().UnixNano(),
		Size:    fi.Size(),
	}
	c.mu.Lock()
	c.entries[path] = info
	c.mu.Unlock()
	return info, nil
}

// Exists is a convenience wrapper around Stat that treats stat errors as
// "does not exist" for callers that don't need to distinguish a
// permission failure from absence. Callers that need the distinction
// should call Stat directly.
func (c *Cache) Exists(path string) bool {
	info, err := c.Stat(path)
	if err != nil {
		return false
	}
	return info.Exists
}

// Invalidate drops the cached entry for path. Mutation paths must call
// this immediately after a write or delete, before any subsequent read.
func (c *Cache) Invalidate(path string) {
	c.mu.Lock()
	delete(c.entries, path)
	c.mu.Unlock()
}

// InvalidateAll clears every cached entry. Used when a caller can't
// enumerate the exact set of touched paths (e.g. after an incremental
// build that may have renamed directories).
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	c.entries = make(map[string]Info)
	c.mu.Unlock()
}

// Stats reports cumulative hit/miss counters, primarily for tests and
// diagnostics.
func (c *Cache) Stats() (hits, misses int64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}

func (c *Cache) bump(counter *int64) {
	c.mu.Lock()
	*counter++
	c.mu.Unlock()
}
