// Kverna - EVE Online Killmail Intel Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kverna

package cache

import (
	"sync"
	"time"
)

// lruEntry is a node in the recency list.
type lruEntry[K comparable] struct {
	key       K
	seenAt    time.Time
	prev      *lruEntry[K]
	next      *lruEntry[K]
	expiresAt time.Time
}

// LRUCache is a thread-safe, bounded, TTL-aware set of recently seen keys.
// The feed poller uses it to drop killmails that RedisQ hands out twice.
//
// Get, Add, Remove and IsDuplicate are O(1). When capacity is reached the
// least recently used key is evicted. Expiry is lazy.
type LRUCache[K comparable] struct {
	mu sync.Mutex

	capacity int
	ttl      time.Duration
	now      func() time.Time

	items map[K]*lruEntry[K]

	// head.next is the most recently used, tail.prev the least
	head *lruEntry[K]
	tail *lruEntry[K]

	hits   int64
	misses int64
}

// NewLRUCache creates a cache holding at most capacity keys for ttl each.
func NewLRUCache[K comparable](capacity int, ttl time.Duration) *LRUCache[K] {
	if capacity <= 0 {
		capacity = 10000
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	c := &LRUCache[K]{
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
		items:    make(map[K]*lruEntry[K], capacity),
		head:     &lruEntry[K]{},
		tail:     &lruEntry[K]{},
	}
	c.head.next = c.tail
	c.tail.prev = c.head

	return c
}

// Get returns when key was recorded, moving it to the front.
func (c *LRUCache[K]) Get(key K) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.items[key]
	if !exists {
		c.misses++
		return time.Time{}, false
	}
	if c.now().After(entry.expiresAt) {
		c.removeEntry(entry)
		c.misses++
		return time.Time{}, false
	}

	c.moveToFront(entry)
	c.hits++
	return entry.seenAt, true
}

// Contains reports whether key is live without touching recency or stats.
func (c *LRUCache[K]) Contains(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, exists := c.items[key]; exists {
		return !c.now().After(entry.expiresAt)
	}
	return false
}

// Add records key as seen now, refreshing its TTL if already present.
func (c *LRUCache[K]) Add(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record(key, c.now())
}

// Remove forgets key. It returns true if the key was present.
func (c *LRUCache[K]) Remove(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, exists := c.items[key]; exists {
		c.removeEntry(entry)
		return true
	}
	return false
}

// IsDuplicate reports whether key was seen within the TTL. A key that was not
// seen is recorded, so exactly one of several concurrent callers gets false.
func (c *LRUCache[K]) IsDuplicate(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if entry, exists := c.items[key]; exists {
		if !now.After(entry.expiresAt) {
			c.moveToFront(entry)
			c.hits++
			return true
		}
		c.removeEntry(entry)
	}

	c.record(key, now)
	c.misses++
	return false
}

// Len returns the number of keys held, expired or not.
func (c *LRUCache[K]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// CleanupExpired drops expired keys and returns how many were removed.
func (c *LRUCache[K]) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for entry := c.tail.prev; entry != c.head; {
		prev := entry.prev
		if now.After(entry.expiresAt) {
			c.removeEntry(entry)
			removed++
		}
		entry = prev
	}
	return removed
}

// Stats returns hit/miss counters and the current size.
func (c *LRUCache[K]) Stats() (hits, misses int64, size int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses, len(c.items)
}

// Internal methods (must be called with lock held)

func (c *LRUCache[K]) record(key K, at time.Time) {
	if entry, exists := c.items[key]; exists {
		entry.seenAt = at
		entry.expiresAt = at.Add(c.ttl)
		c.moveToFront(entry)
		return
	}

	entry := &lruEntry[K]{key: key, seenAt: at, expiresAt: at.Add(c.ttl)}
	c.addToFront(entry)
	c.items[key] = entry

	for len(c.items) > c.capacity {
		c.evictOldest()
	}
}

func (c *LRUCache[K]) addToFront(entry *lruEntry[K]) {
	entry.prev = c.head
	entry.next = c.head.next
	c.head.next.prev = entry
	c.head.next = entry
}

func (c *LRUCache[K]) moveToFront(entry *lruEntry[K]) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
	c.addToFront(entry)
}

func (c *LRUCache[K]) removeEntry(entry *lruEntry[K]) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
	delete(c.items, entry.key)
}

func (c *LRUCache[K]) evictOldest() {
	oldest := c.tail.prev
	if oldest == c.head {
		return
	}
	c.removeEntry(oldest)
}
