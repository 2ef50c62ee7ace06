// Kverna - EVE Online Killmail Intel Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kverna

/*
Package metrics exposes Kverna's Prometheus instrumentation.

All collectors are registered on the default registry through promauto and
served by the operations router at /metrics:

	curl http://localhost:8086/metrics

Pipeline collectors follow a killmail from the feed to a notifier:

  - kverna_feed_polls_total{outcome}: killmail, empty, error, malformed
  - kverna_feed_duplicates_total: redeliveries dropped before dispatch
  - kverna_decode_failures_total{source}
  - kverna_filter_evaluations_total{result}: match, no_match, error
  - kverna_matches_total{first}: first="false" means the ledger already held the pair
  - kverna_notifications_total{notifier,result}

Supporting collectors cover ESI latency and cache efficiency, durable store
writes and the gobreaker circuit state.
*/
package metrics
