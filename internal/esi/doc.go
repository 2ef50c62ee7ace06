// Kverna - EVE Online Killmail Intel Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kverna

/*
Package esi is the enrichment client for the EVE Swagger Interface.

Three layers implement the same Enricher interface and are stacked at startup:

	client := esi.NewClient(&cfg.ESI)                 // HTTP, rate limited
	breaker := esi.NewCircuitBreakerClient(client)     // gobreaker
	enricher := esi.NewCachingClient(breaker, cfg.ESI.CacheTTL)

Client issues GET requests for solar systems, constellations, regions and
search, and POST requests for batch name and ID resolution. Every request
carries the configured datasource and language query parameters and waits on
a token bucket limiter before hitting the network. A 404 is reported as
ErrNotFound; any other status of 400 or above is an error.

CircuitBreakerClient trips after 60% failures over at least 10 requests and
rejects calls for two minutes. ErrNotFound does not count as a failure.

CachingClient keeps system, constellation and region lookups for a short TTL
and coalesces concurrent requests for the same ID, so sibling filter
evaluations for one killmail share a single upstream call. Name and ID
resolution is passed through uncached.
*/
package esi
