// Kverna - EVE Online Killmail Intel Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kverna

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/tomtom215/kverna/internal/logging"
)

const checkTimeout = 2 * time.Second

// ErrNoPollYet is returned by a poller check before the first poll completes.
var ErrNoPollYet = errors.New("no feed poll completed yet")

// HealthStatus is the /health payload.
type HealthStatus struct {
	Status      string        `json:"status"`
	Version     string        `json:"version,omitempty"`
	Uptime      float64       `json:"uptime_seconds"`
	Subscribers *int          `json:"subscribers,omitempty"`
	Notifiers   []string      `json:"notifiers"`
	Feed        *FeedStatus   `json:"feed,omitempty"`
	Engine      *EngineReport `json:"engine,omitempty"`
}

// FeedStatus summarizes the poller.
type FeedStatus struct {
	Polls    int64      `json:"polls"`
	Events   int64      `json:"events"`
	LastPoll *time.Time `json:"last_poll,omitempty"`
}

// EngineReport mirrors engine.EngineMetrics for JSON output.
type EngineReport struct {
	FiltersEvaluated int64      `json:"filters_evaluated"`
	Matches          int64      `json:"matches"`
	Notifications    int64      `json:"notifications"`
	NotifyErrors     int64      `json:"notify_errors"`
	ConfigErrors     int64      `json:"config_errors"`
	PredicateErrors  int64      `json:"predicate_errors"`
	LastMatchAt      *time.Time `json:"last_match_at,omitempty"`
}

// ReadyStatus is the /ready payload.
type ReadyStatus struct {
	Ready  bool              `json:"ready"`
	Checks map[string]string `json:"checks"`
}

// Health reports liveness plus a summary of the pipeline. It always
// returns 200 while the process can serve HTTP.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{
		Status:    "healthy",
		Version:   h.deps.Version,
		Uptime:    time.Since(h.startTime).Seconds(),
		Notifiers: h.deps.Notifiers,
	}
	if status.Notifiers == nil {
		status.Notifiers = []string{}
	}
	if h.deps.Subscribers != nil {
		n := h.deps.Subscribers.Len()
		status.Subscribers = &n
	}
	if h.deps.Poller != nil {
		polls, events := h.deps.Poller.Stats()
		status.Feed = &FeedStatus{Polls: polls, Events: events, LastPoll: timePtr(h.deps.Poller.LastPoll())}
	}
	if h.deps.Engine != nil {
		m := h.deps.Engine.Metrics()
		status.Engine = &EngineReport{
			FiltersEvaluated: m.FiltersEvaluated,
			Matches:          m.Matches,
			Notifications:    m.Notifications,
			NotifyErrors:     m.NotifyErrors,
			ConfigErrors:     m.ConfigErrors,
			PredicateErrors:  m.PredicateErrors,
			LastMatchAt:      timePtr(m.LastMatchAt),
		}
	}
	respondJSON(w, r, http.StatusOK, status)
}

// Ready runs every registered check and returns 503 if any fails.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	names := make([]string, 0, len(h.deps.Checks))
	for name := range h.deps.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	result := ReadyStatus{Ready: true, Checks: make(map[string]string, len(names))}
	for _, name := range names {
		if err := h.deps.Checks[name](ctx); err != nil {
			result.Ready = false
			result.Checks[name] = err.Error()
			logging.Ctx(ctx).Warn().Str("check", name).Err(err).Msg("readiness check failed")
			continue
		}
		result.Checks[name] = "ok"
	}

	if !result.Ready {
		respondJSON(w, r, http.StatusServiceUnavailable, result)
		return
	}
	respondJSON(w, r, http.StatusOK, result)
}

// PollerCheck is ready once the poller has completed a poll within staleAfter.
func PollerCheck(p PollStatus, staleAfter time.Duration) Check {
	return func(context.Context) error {
		last := p.LastPoll()
		if last.IsZero() {
			return ErrNoPollYet
		}
		if age := time.Since(last); age > staleAfter {
			return fmt.Errorf("last feed poll %s ago exceeds %s", age.Round(time.Second), staleAfter)
		}
		return nil
	}
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}
