// Kverna - EVE Online Killmail Intel Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kverna

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Feed Metrics
	FeedPolls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kverna_feed_polls_total",
			Help: "Total number of RedisQ polls by outcome",
		},
		[]string{"outcome"}, // "killmail", "empty", "error", "malformed"
	)

	FeedPollDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "kverna_feed_poll_duration_seconds",
			Help:    "Duration of a RedisQ long poll in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 15, 20, 30},
		},
	)

	FeedDuplicates = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kverna_feed_duplicates_total",
			Help: "Killmails dropped because the feed delivered them again",
		},
	)

	DecodeFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kverna_decode_failures_total",
			Help: "Payloads discarded because they could not be decoded",
		},
		[]string{"source"}, // "feed", "killmail", "store"
	)

	// Dispatch Metrics
	KillmailsDispatched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kverna_killmails_dispatched_total",
			Help: "Killmails fanned out to subscribers",
		},
	)

	DispatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "kverna_dispatch_duration_seconds",
			Help:    "Time to evaluate one killmail against every subscriber",
			Buckets: prometheus.DefBuckets,
		},
	)

	DispatchInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "kverna_dispatch_in_flight",
			Help: "Subscriber evaluations currently running",
		},
	)

	// Engine Metrics
	FilterEvaluations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kverna_filter_evaluations_total",
			Help: "Filter evaluations by result",
		},
		[]string{"result"}, // "match", "no_match", "error"
	)

	PredicateErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kverna_predicate_errors_total",
			Help: "Predicates that evaluated false because enrichment failed",
		},
		[]string{"predicate"},
	)

	Matches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kverna_matches_total",
			Help: "Killmail/subscriber pairs that matched a filter",
		},
		[]string{"first"}, // "true" when this match claimed the ledger slot
	)

	// Notification Metrics
	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kverna_notifications_total",
			Help: "Notifications by notifier and result",
		},
		[]string{"notifier", "result"}, // result: "success", "failure", "rate_limited"
	)

	// ESI Metrics
	ESIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kverna_esi_request_duration_seconds",
			Help:    "Duration of ESI requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "status"},
	)

	ESICacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kverna_esi_cache_lookups_total",
			Help: "ESI cache lookups by kind and result",
		},
		[]string{"kind", "result"}, // result: "hit", "miss"
	)

	// Store Metrics
	StorePersists = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kverna_store_persists_total",
			Help: "Durable subscriber writes by backend and result",
		},
		[]string{"backend", "result"},
	)

	StorePersistDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kverna_store_persist_duration_seconds",
			Help:    "Duration of durable subscriber writes",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"backend"},
	)

	Subscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "kverna_subscribers",
			Help: "Number of subscribers loaded in the store",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rate_limited", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)
)

// RecordFeedPoll records the outcome of one RedisQ poll
func RecordFeedPoll(outcome string, duration time.Duration) {
	FeedPolls.WithLabelValues(outcome).Inc()
	FeedPollDuration.Observe(duration.Seconds())
}

// RecordFilterEvaluation records a filter result: match, no_match or error
func RecordFilterEvaluation(result string) {
	FilterEvaluations.WithLabelValues(result).Inc()
}

// RecordMatch records a match and whether it claimed the ledger slot
func RecordMatch(first bool) {
	if first {
		Matches.WithLabelValues("true").Inc()
		return
	}
	Matches.WithLabelValues("false").Inc()
}

// RecordNotification records a notifier delivery attempt
func RecordNotification(notifier string, err error) {
	if err != nil {
		NotificationsSent.WithLabelValues(notifier, "failure").Inc()
		return
	}
	NotificationsSent.WithLabelValues(notifier, "success").Inc()
}

// RecordNotificationDropped records a message dropped because the notifier's
// rate limit queue was full
func RecordNotificationDropped(notifier string) {
	NotificationsSent.WithLabelValues(notifier, "rate_limited").Inc()
}

// RecordESIRequest records an ESI request metric
func RecordESIRequest(endpoint, status string, duration time.Duration) {
	ESIRequestDuration.WithLabelValues(endpoint, status).Observe(duration.Seconds())
}

// RecordESICache records an ESI cache lookup
func RecordESICache(kind string, hit bool) {
	if hit {
		ESICacheLookups.WithLabelValues(kind, "hit").Inc()
		return
	}
	ESICacheLookups.WithLabelValues(kind, "miss").Inc()
}

// RecordStorePersist records a durable subscriber write
func RecordStorePersist(backend string, duration time.Duration, err error) {
	StorePersistDuration.WithLabelValues(backend).Observe(duration.Seconds())
	if err != nil {
		StorePersists.WithLabelValues(backend, "failure").Inc()
		return
	}
	StorePersists.WithLabelValues(backend, "success").Inc()
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
