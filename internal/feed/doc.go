// Kverna - EVE Online Killmail Intel Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kverna

/*
Package feed pulls killmails from zKillboard's RedisQ long-poll queue.

Client performs one poll: a GET to the queue endpoint that blocks server side
until a killmail is available, then a second GET to the package's href for
the full killmail body. Both payloads go through the lenient decoder.

Poller runs the loop as a supervised service. A poll that yields a killmail
is handed to the Handler and the next poll starts at once. An empty queue, a
transport error or a payload that fails to decode waits a fixed backoff and
tries again. No error stops the loop; only context cancellation does, which
also aborts the in-flight request.

Killmails the queue delivers twice within a short window are dropped by an
in-memory LRU before dispatch. The durable dedup is the subscriber ledger;
this filter only saves the fan-out work.
*/
package feed
