// Kverna - EVE Online Killmail Intel Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kverna

/*
Package cache provides the in-memory structures Kverna keeps between and
within feed cycles.

# TTLCache

TTLCache is a generic key/value cache with a fixed TTL and a singleflight
loader. The ESI caching client stores solar system, constellation and region
lookups in it so a burst of filters asking about the same system triggers a
single upstream request:

	systems := cache.NewTTLCache[int64, esi.SystemInfo](time.Minute)
	info, err := systems.GetOrLoad(systemID, func() (esi.SystemInfo, error) {
	    return client.SystemInfo(ctx, systemID)
	})

Load errors are returned to every waiting caller and never cached.

# LRUCache

LRUCache is a bounded recency set with per-key TTL. The feed poller asks it
IsDuplicate(killmailID) before dispatching, which drops redeliveries without
touching the durable ledger.

Both types are safe for concurrent use.
*/
package cache
