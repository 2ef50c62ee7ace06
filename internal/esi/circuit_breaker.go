// Kverna - EVE Online Killmail Intel Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kverna

package esi

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/kverna/internal/logging"
	"github.com/tomtom215/kverna/internal/metrics"
)

// Ensure CircuitBreakerClient implements Enricher
var _ Enricher = (*CircuitBreakerClient)(nil)

// CircuitBreakerClient wraps an Enricher with a circuit breaker so an ESI
// outage fails lookups fast instead of stalling every filter evaluation.
//
// The breaker uses real time for its interval and timeout. Tests drive
// execute directly rather than waiting on the clock.
type CircuitBreakerClient struct {
	client Enricher
	cb     *gobreaker.CircuitBreaker[interface{}]
	name   string
}

// NewCircuitBreakerClient creates a breaker-protected enricher.
// Circuit breaker configuration:
// - Max 3 concurrent requests in half-open state
// - 1 minute measurement window
// - 2 minute timeout before attempting recovery
// - Opens after 60% failure rate with minimum 10 requests
func NewCircuitBreakerClient(client Enricher) *CircuitBreakerClient {
	cbName := "esi-api"

	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0)
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(cbName).Set(0)

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}

			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6

			if shouldTrip {
				logging.Warn().Uint32("failures", counts.TotalFailures).Float64("failure_rate", failureRatio*100).Msg("[CIRCUIT BREAKER] Opening ESI circuit")
			}

			return shouldTrip
		},

		// A missing entity or a caller that gave up says nothing about ESI health
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled)
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)

			logging.Info().Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()

			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},
	})

	return &CircuitBreakerClient{
		client: client,
		cb:     cb,
		name:   cbName,
	}
}

// ErrCircuitOpen is returned by Healthy while the breaker rejects calls.
var ErrCircuitOpen = errors.New("esi circuit breaker is open")

// State returns the breaker state as closed, half-open or open.
func (cbc *CircuitBreakerClient) State() string {
	return stateToString(cbc.cb.State())
}

// Healthy returns ErrCircuitOpen while the breaker is open.
func (cbc *CircuitBreakerClient) Healthy(context.Context) error {
	if cbc.cb.State() == gobreaker.StateOpen {
		return ErrCircuitOpen
	}
	return nil
}

// execute wraps an ESI call with circuit breaker protection
func (cbc *CircuitBreakerClient) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := cbc.cb.Execute(fn)

	if err != nil {
		switch {
		case errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests):
			metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "rejected").Inc()
			logging.Debug().Err(err).Msg("[CIRCUIT BREAKER] ESI request rejected")
		case errors.Is(err, ErrNotFound):
			metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "success").Inc()
		default:
			metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "failure").Inc()
			counts := cbc.cb.Counts()
			metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(cbc.name).Set(float64(counts.ConsecutiveFailures))
		}
		return nil, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "success").Inc()
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(cbc.name).Set(0)

	return result, nil
}

// castResult safely type-casts the circuit breaker result with error checking
func castResult[T any](result interface{}, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

// stateToFloat converts circuit breaker state to numeric value for metrics
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// stateToString converts circuit breaker state to string for logging
func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// SystemInfo retrieves a solar system with circuit breaker protection
func (cbc *CircuitBreakerClient) SystemInfo(ctx context.Context, systemID int64) (*SystemInfo, error) {
	return castResult[*SystemInfo](cbc.execute(func() (interface{}, error) {
		return cbc.client.SystemInfo(ctx, systemID)
	}))
}

// Constellation retrieves a constellation with circuit breaker protection
func (cbc *CircuitBreakerClient) Constellation(ctx context.Context, constellationID int64) (*Constellation, error) {
	return castResult[*Constellation](cbc.execute(func() (interface{}, error) {
		return cbc.client.Constellation(ctx, constellationID)
	}))
}

// Region retrieves a region with circuit breaker protection
func (cbc *CircuitBreakerClient) Region(ctx context.Context, regionID int64) (*Region, error) {
	return castResult[*Region](cbc.execute(func() (interface{}, error) {
		return cbc.client.Region(ctx, regionID)
	}))
}

// ResolveNames resolves IDs with circuit breaker protection
func (cbc *CircuitBreakerClient) ResolveNames(ctx context.Context, ids []int64) ([]Name, error) {
	return castResult[[]Name](cbc.execute(func() (interface{}, error) {
		return cbc.client.ResolveNames(ctx, ids)
	}))
}

// ResolveIDs resolves names with circuit breaker protection
func (cbc *CircuitBreakerClient) ResolveIDs(ctx context.Context, names []string) (IDs, error) {
	return castResult[IDs](cbc.execute(func() (interface{}, error) {
		return cbc.client.ResolveIDs(ctx, names)
	}))
}

// Search searches with circuit breaker protection
func (cbc *CircuitBreakerClient) Search(ctx context.Context, category, text string) ([]int64, error) {
	return castResult[[]int64](cbc.execute(func() (interface{}, error) {
		return cbc.client.Search(ctx, category, text)
	}))
}
