// Kverna - EVE Online Killmail Intel Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kverna

package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// entry is a cached value with expiration.
type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLCache is a thread-safe key/value cache whose entries expire after a
// fixed TTL. Concurrent misses for the same key share one load.
type TTLCache[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]entry[V]
	ttl     time.Duration
	now     func() time.Time
	group   singleflight.Group

	statsMu sync.Mutex
	stats   Stats
}

// Stats tracks cache performance.
type Stats struct {
	Hits      int64
	Misses    int64
	Loads     int64
	Evictions int64
}

// HitRate returns hits as a percentage of lookups.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

// NewTTLCache creates a cache whose entries live for ttl.
// A non-positive ttl disables storage, so every GetOrLoad calls load
// (concurrent callers are still coalesced).
func NewTTLCache[K comparable, V any](ttl time.Duration) *TTLCache[K, V] {
	return &TTLCache[K, V]{
		entries: make(map[K]entry[V]),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the live value for key.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	e, exists := c.entries[key]
	c.mu.RUnlock()

	if !exists {
		c.record(func(s *Stats) { s.Misses++ })
		var zero V
		return zero, false
	}
	if c.now().After(e.expiresAt) {
		c.mu.Lock()
		if cur, ok := c.entries[key]; ok && cur.expiresAt.Equal(e.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		c.record(func(s *Stats) { s.Misses++; s.Evictions++ })
		var zero V
		return zero, false
	}

	c.record(func(s *Stats) { s.Hits++ })
	return e.value, true
}

// Set stores value under key for the cache TTL.
func (c *TTLCache[K, V]) Set(key K, value V) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.entries[key] = entry[V]{value: value, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

// Delete removes key.
func (c *TTLCache[K, V]) Delete(key K) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// GetOrLoad returns the cached value for key or calls load once, sharing the
// result with any caller that asks for the same key meanwhile. Errors are not
// cached.
func (c *TTLCache[K, V]) GetOrLoad(key K, load func() (V, error)) (V, error) {
	return c.GetOrLoadContext(context.Background(), key, func(context.Context) (V, error) {
		return load()
	})
}

// GetOrLoadContext is GetOrLoad for loads that take a context. The shared
// load runs on a context detached from ctx's cancellation, so one caller
// giving up never fails the others waiting on the same key. ctx only bounds
// how long this caller waits. The load must bound itself, for example with
// an HTTP client timeout.
func (c *TTLCache[K, V]) GetOrLoadContext(ctx context.Context, key K, load func(context.Context) (V, error)) (V, error) {
	var zero V
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(fmt.Sprint(key), func() (interface{}, error) {
		// Another flight may have filled the entry while we queued.
		c.mu.RLock()
		e, exists := c.entries[key]
		c.mu.RUnlock()
		if exists && !c.now().After(e.expiresAt) {
			return e.value, nil
		}

		c.record(func(s *Stats) { s.Loads++ })
		v, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		c.Set(key, v)
		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(V), nil
	}
}

// Len returns the number of stored entries, including expired ones.
func (c *TTLCache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Cleanup removes expired entries and returns how many were dropped.
func (c *TTLCache[K, V]) Cleanup() int {
	now := c.now()
	c.mu.Lock()
	removed := 0
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	c.mu.Unlock()

	c.record(func(s *Stats) { s.Evictions += int64(removed) })
	return removed
}

// Clear drops every entry.
func (c *TTLCache[K, V]) Clear() {
	c.mu.Lock()
	n := len(c.entries)
	c.entries = make(map[K]entry[V])
	c.mu.Unlock()

	c.record(func(s *Stats) { s.Evictions += int64(n) })
}

// GetStats returns a snapshot of the counters.
func (c *TTLCache[K, V]) GetStats() Stats {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return c.stats
}

func (c *TTLCache[K, V]) record(update func(*Stats)) {
	c.statsMu.Lock()
	update(&c.stats)
	c.statsMu.Unlock()
}
