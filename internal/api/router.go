// Kverna - EVE Online Killmail Intel Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kverna

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/kverna/internal/config"
	"github.com/tomtom215/kverna/internal/engine"
)

// Check reports whether one dependency is ready. A nil return means ready.
type Check func(ctx context.Context) error

// PollStatus matches the feed poller's counters.
type PollStatus interface {
	Stats() (polls, events int64)
	LastPoll() time.Time
}

// EngineStatus matches the engine's metrics snapshot.
type EngineStatus interface {
	Metrics() engine.EngineMetrics
}

// SubscriberCount matches the subscriber store's size accessor.
type SubscriberCount interface {
	Len() int
}

// Deps are the components the ops endpoints report on. Nil fields are
// omitted from /health.
type Deps struct {
	Poller      PollStatus
	Engine      EngineStatus
	Subscribers SubscriberCount
	Notifiers   []string
	Checks      map[string]Check
	Version     string
}

// Handler serves the ops endpoints.
type Handler struct {
	deps      Deps
	startTime time.Time
}

// NewHandler creates a Handler. The uptime clock starts now.
func NewHandler(deps Deps) *Handler {
	return &Handler{deps: deps, startTime: time.Now()}
}

// NewRouter builds the chi router for /health, /ready and /metrics.
func NewRouter(h *Handler, cfg *config.ServerConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(rateLimit(cfg))
	r.Use(PrometheusMetrics)

	r.Get("/health", h.Health)
	r.Get("/ready", h.Ready)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusNotFound, "NOT_FOUND", "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	})

	return r
}

// rateLimit limits requests per client IP. A zero request count disables it.
func rateLimit(cfg *config.ServerConfig) func(http.Handler) http.Handler {
	if cfg == nil || cfg.RateLimitReqs <= 0 || cfg.RateLimitWindow <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(
		cfg.RateLimitReqs,
		cfg.RateLimitWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			respondError(w, r, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests")
		}),
	)
}
