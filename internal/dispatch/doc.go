// Kverna - EVE Online Killmail Intel Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kverna

// Package dispatch fans one killmail out to every subscriber that has not
// yet been told about it.
//
// Each (subscriber, enabled filter) pair becomes one task in an errgroup
// capped at max_concurrency, and every task gets its own evaluation timeout.
// Dispatch waits for all tasks before returning, so the feed poller hands
// over the next killmail only after the previous one is finished. Each cycle
// carries a fresh correlation ID and the killmail ID in its context for
// logging.
package dispatch
