// Kverna - EVE Online Killmail Intel Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kverna

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/tomtom215/kverna/internal/logging"
	"github.com/tomtom215/kverna/internal/metrics"
)

// RequestIDWithLogging assigns an X-Request-ID and a correlation ID to the
// request context so handler logs can be traced.
func RequestIDWithLogging() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		withCorrelation := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := logging.ContextWithCorrelationID(r.Context(), chimiddleware.GetReqID(r.Context()))
			w.Header().Set(chimiddleware.RequestIDHeader, chimiddleware.GetReqID(ctx))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
		return chimiddleware.RequestID(withCorrelation)
	}
}

// PrometheusMetrics records request count and latency per route pattern.
// Unmatched paths share the "unmatched" label to keep cardinality bounded.
func PrometheusMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		endpoint := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				endpoint = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.RecordAPIRequest(r.Method, endpoint, strconv.Itoa(status), time.Since(start))
	})
}
