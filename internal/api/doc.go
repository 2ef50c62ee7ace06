// Kverna - EVE Online Killmail Intel Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kverna

/*
Package api serves kverna's operations endpoints on a chi router.

	GET /health   liveness plus feed, engine and subscriber counters (always 200)
	GET /ready    runs registered checks, 503 if any fails
	GET /metrics  Prometheus exposition

Every request gets an X-Request-Id that doubles as the logging correlation
ID. Requests are rate limited per client IP with go-chi/httprate when
server.rate_limit_reqs is set, and counted in api_requests_total by route
pattern.
*/
package api
