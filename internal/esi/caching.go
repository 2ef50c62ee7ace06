// Kverna - EVE Online Killmail Intel Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kverna

package esi

import (
	"context"
	"time"

	"github.com/tomtom215/kverna/internal/cache"
	"github.com/tomtom215/kverna/internal/metrics"
)

// Ensure CachingClient implements Enricher
var _ Enricher = (*CachingClient)(nil)

// CachingClient memoizes map lookups for a short TTL. Concurrent requests
// for the same ID share one upstream call.
type CachingClient struct {
	next           Enricher
	loadTimeout    time.Duration
	systems        *cache.TTLCache[int64, *SystemInfo]
	constellations *cache.TTLCache[int64, *Constellation]
	regions        *cache.TTLCache[int64, *Region]
}

// defaultLoadTimeout bounds a shared upstream lookup, which outlives the
// caller that started it.
const defaultLoadTimeout = 30 * time.Second

// NewCachingClient wraps next with caches holding entries for ttl.
func NewCachingClient(next Enricher, ttl time.Duration) *CachingClient {
	return &CachingClient{
		next:           next,
		loadTimeout:    defaultLoadTimeout,
		systems:        cache.NewTTLCache[int64, *SystemInfo](ttl),
		constellations: cache.NewTTLCache[int64, *Constellation](ttl),
		regions:        cache.NewTTLCache[int64, *Region](ttl),
	}
}

// SystemInfo returns a cached or freshly loaded solar system.
func (c *CachingClient) SystemInfo(ctx context.Context, systemID int64) (*SystemInfo, error) {
	return cachedLookup(ctx, c, c.systems, "system", systemID, func(ctx context.Context) (*SystemInfo, error) {
		return c.next.SystemInfo(ctx, systemID)
	})
}

// Constellation returns a cached or freshly loaded constellation.
func (c *CachingClient) Constellation(ctx context.Context, constellationID int64) (*Constellation, error) {
	return cachedLookup(ctx, c, c.constellations, "constellation", constellationID, func(ctx context.Context) (*Constellation, error) {
		return c.next.Constellation(ctx, constellationID)
	})
}

// Region returns a cached or freshly loaded region.
func (c *CachingClient) Region(ctx context.Context, regionID int64) (*Region, error) {
	return cachedLookup(ctx, c, c.regions, "region", regionID, func(ctx context.Context) (*Region, error) {
		return c.next.Region(ctx, regionID)
	})
}

// ResolveNames is not cached.
func (c *CachingClient) ResolveNames(ctx context.Context, ids []int64) ([]Name, error) {
	return c.next.ResolveNames(ctx, ids)
}

// ResolveIDs is not cached.
func (c *CachingClient) ResolveIDs(ctx context.Context, names []string) (IDs, error) {
	return c.next.ResolveIDs(ctx, names)
}

// Search is not cached.
func (c *CachingClient) Search(ctx context.Context, category, text string) ([]int64, error) {
	return c.next.Search(ctx, category, text)
}

// Cleanup drops expired entries from every cache.
func (c *CachingClient) Cleanup() int {
	return c.systems.Cleanup() + c.constellations.Cleanup() + c.regions.Cleanup()
}

// Stats returns the system cache counters, the hottest of the three.
func (c *CachingClient) Stats() cache.Stats {
	return c.systems.GetStats()
}

// cachedLookup shares one upstream call per ID among concurrent callers.
// A caller whose context ends stops waiting without cancelling the call the
// others are waiting on.
func cachedLookup[V any](ctx context.Context, c *CachingClient, tc *cache.TTLCache[int64, V], kind string, id int64, load func(context.Context) (V, error)) (V, error) {
	loaded := false
	v, err := tc.GetOrLoadContext(ctx, id, func(loadCtx context.Context) (V, error) {
		loaded = true
		loadCtx, cancel := context.WithTimeout(loadCtx, c.loadTimeout)
		defer cancel()
		return load(loadCtx)
	})
	if err != nil {
		return v, err
	}
	metrics.RecordESICache(kind, !loaded)
	return v, nil
}
