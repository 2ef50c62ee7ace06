// Kverna - EVE Online Killmail Intel Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kverna

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/kverna/internal/config"
	"github.com/tomtom215/kverna/internal/engine"
	"github.com/tomtom215/kverna/internal/metrics"
)

type fakePoller struct {
	polls, events int64
	last          time.Time
}

func (f *fakePoller) Stats() (int64, int64) { return f.polls, f.events }
func (f *fakePoller) LastPoll() time.Time    { return f.last }

type fakeEngine struct{ m engine.EngineMetrics }

func (f *fakeEngine) Metrics() engine.EngineMetrics { return f.m }

type fakeCount int

func (f fakeCount) Len() int { return int(f) }

func newTestRouter(t *testing.T, deps Deps, cfg *config.ServerConfig) http.Handler {
	t.Helper()
	if cfg == nil {
		cfg = &config.ServerConfig{}
	}
	return NewRouter(NewHandler(deps), cfg)
}

func do(t *testing.T, h http.Handler, method, path string) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	req := httptest.NewRequest(method, path, http.NoBody)
	req.RemoteAddr = "192.0.2.10:5000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body Response
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return rec, body
}

func TestHealth(t *testing.T) {
	last := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	deps := Deps{
		Poller:      &fakePoller{polls: 7, events: 3, last: last},
		Engine:      &fakeEngine{m: engine.EngineMetrics{FiltersEvaluated: 12, Matches: 2, Notifications: 1}},
		Subscribers: fakeCount(4),
		Notifiers:   []string{"discord", "webhook"},
		Version:     "test",
	}
	rec, body := do(t, newTestRouter(t, deps, nil), http.MethodGet, "/health")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !body.Success {
		t.Error("success = false, want true")
	}
	if body.Meta.RequestID == "" {
		t.Error("meta.request_id is empty")
	}
	if rec.Header().Get("X-Request-Id") != body.Meta.RequestID {
		t.Errorf("X-Request-Id header %q != meta.request_id %q", rec.Header().Get("X-Request-Id"), body.Meta.RequestID)
	}

	raw, _ := json.Marshal(body.Data)
	var status HealthStatus
	if err := json.Unmarshal(raw, &status); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if status.Status != "healthy" || status.Version != "test" {
		t.Errorf("status = %q version = %q", status.Status, status.Version)
	}
	if status.Subscribers == nil || *status.Subscribers != 4 {
		t.Errorf("subscribers = %v, want 4", status.Subscribers)
	}
	if status.Feed == nil || status.Feed.Polls != 7 || status.Feed.Events != 3 {
		t.Fatalf("feed = %+v", status.Feed)
	}
	if status.Feed.LastPoll == nil || !status.Feed.LastPoll.Equal(last) {
		t.Errorf("feed.last_poll = %v, want %v", status.Feed.LastPoll, last)
	}
	if status.Engine == nil || status.Engine.FiltersEvaluated != 12 || status.Engine.LastMatchAt != nil {
		t.Errorf("engine = %+v", status.Engine)
	}
	if len(status.Notifiers) != 2 {
		t.Errorf("notifiers = %v", status.Notifiers)
	}
}

func TestHealth_MinimalDeps(t *testing.T) {
	rec, body := do(t, newTestRouter(t, Deps{}, nil), http.MethodGet, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	data, ok := body.Data.(map[string]any)
	if !ok {
		t.Fatalf("data = %T", body.Data)
	}
	for _, key := range []string{"feed", "engine", "subscribers"} {
		if _, present := data[key]; present {
			t.Errorf("%s present without a dependency", key)
		}
	}
	if n, ok := data["notifiers"].([]any); !ok || len(n) != 0 {
		t.Errorf("notifiers = %v, want empty list", data["notifiers"])
	}
}

func TestReady(t *testing.T) {
	storeErr := errors.New("store closed")

	tests := []struct {
		name       string
		checks     map[string]Check
		wantStatus int
		wantChecks map[string]string
	}{
		{
			name:       "no checks",
			wantStatus: http.StatusOK,
			wantChecks: map[string]string{},
		},
		{
			name: "all pass",
			checks: map[string]Check{
				"store": func(context.Context) error { return nil },
				"feed":  func(context.Context) error { return nil },
			},
			wantStatus: http.StatusOK,
			wantChecks: map[string]string{"store": "ok", "feed": "ok"},
		},
		{
			name: "one fails",
			checks: map[string]Check{
				"store": func(context.Context) error { return storeErr },
				"feed":  func(context.Context) error { return nil },
			},
			wantStatus: http.StatusServiceUnavailable,
			wantChecks: map[string]string{"store": storeErr.Error(), "feed": "ok"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := do(t, newTestRouter(t, Deps{Checks: tt.checks}, nil), http.MethodGet, "/ready")
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			raw, _ := json.Marshal(body.Data)
			var ready ReadyStatus
			if err := json.Unmarshal(raw, &ready); err != nil {
				t.Fatalf("decode ready: %v", err)
			}
			if ready.Ready != (tt.wantStatus == http.StatusOK) {
				t.Errorf("ready = %v", ready.Ready)
			}
			if len(ready.Checks) != len(tt.wantChecks) {
				t.Fatalf("checks = %v, want %v", ready.Checks, tt.wantChecks)
			}
			for k, v := range tt.wantChecks {
				if ready.Checks[k] != v {
					t.Errorf("checks[%s] = %q, want %q", k, ready.Checks[k], v)
				}
			}
		})
	}
}

func TestReady_CheckSeesDeadline(t *testing.T) {
	var hadDeadline bool
	deps := Deps{Checks: map[string]Check{
		"probe": func(ctx context.Context) error {
			_, hadDeadline = ctx.Deadline()
			return nil
		},
	}}
	do(t, newTestRouter(t, deps, nil), http.MethodGet, "/ready")
	if !hadDeadline {
		t.Error("check context has no deadline")
	}
}

func TestPollerCheck(t *testing.T) {
	tests := []struct {
		name    string
		last    time.Time
		wantErr bool
	}{
		{name: "never polled", wantErr: true},
		{name: "fresh", last: time.Now().Add(-time.Second)},
		{name: "stale", last: time.Now().Add(-time.Hour), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := PollerCheck(&fakePoller{last: tt.last}, time.Minute)(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("PollerCheck() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	if err := PollerCheck(&fakePoller{}, time.Minute)(context.Background()); !errors.Is(err, ErrNoPollYet) {
		t.Errorf("never polled error = %v, want ErrNoPollYet", err)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t, Deps{}, nil)

	before := testutil.ToFloat64(metrics.APIRequestsTotal.WithLabelValues(http.MethodGet, "/health", "200"))
	do(t, router, http.MethodGet, "/health")
	after := testutil.ToFloat64(metrics.APIRequestsTotal.WithLabelValues(http.MethodGet, "/health", "200"))
	if after-before != 1 {
		t.Errorf("api_requests_total{/health,200} grew by %v, want 1", after-before)
	}

	rec, _ := do(t, router, http.MethodGet, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "api_requests_total") {
		t.Error("/metrics output lacks api_requests_total")
	}
}

func TestRouter_Errors(t *testing.T) {
	router := newTestRouter(t, Deps{}, nil)

	rec, body := do(t, router, http.MethodGet, "/nope")
	if rec.Code != http.StatusNotFound || body.Error == nil || body.Error.Code != "NOT_FOUND" {
		t.Errorf("GET /nope = %d %+v", rec.Code, body.Error)
	}

	rec, body = do(t, router, http.MethodPost, "/health")
	if rec.Code != http.StatusMethodNotAllowed || body.Error == nil || body.Error.Code != "METHOD_NOT_ALLOWED" {
		t.Errorf("POST /health = %d %+v", rec.Code, body.Error)
	}
}

func TestRouter_RateLimit(t *testing.T) {
	router := newTestRouter(t, Deps{}, &config.ServerConfig{RateLimitReqs: 2, RateLimitWindow: time.Minute})

	for i := 0; i < 2; i++ {
		if rec, _ := do(t, router, http.MethodGet, "/health"); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i, rec.Code)
		}
	}
	rec, body := do(t, router, http.MethodGet, "/health")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third request status = %d, want 429", rec.Code)
	}
	if body.Error == nil || body.Error.Code != "RATE_LIMITED" {
		t.Errorf("error = %+v, want RATE_LIMITED", body.Error)
	}
}
