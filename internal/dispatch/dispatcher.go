// Kverna - EVE Online Killmail Intel Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kverna

package dispatch

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/kverna/internal/config"
	"github.com/tomtom215/kverna/internal/engine"
	"github.com/tomtom215/kverna/internal/logging"
	"github.com/tomtom215/kverna/internal/metrics"
	"github.com/tomtom215/kverna/internal/models"
)

// Subscribers supplies the subscribers a killmail still has to be evaluated
// against.
type Subscribers interface {
	Pending(killmailID int64) []*models.Subscriber
}

// Evaluator processes one (subscriber, filter) pair.
type Evaluator interface {
	Process(ctx context.Context, kill *models.Kill, sub *models.Subscriber, f *models.Filter) (engine.Outcome, error)
}

// Summary counts what one dispatch cycle did.
type Summary struct {
	Subscribers int
	Evaluations int
	Outcomes    map[engine.Outcome]int
	Duration    time.Duration
}

// Dispatcher fans killmails out to subscriber filters.
type Dispatcher struct {
	subscribers    Subscribers
	evaluator      Evaluator
	maxConcurrency int
	evalTimeout    time.Duration
	afterCycle     []func()
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithCycleHook runs fn after every dispatch cycle, e.g. to expire the
// per-cycle enrichment cache.
func WithCycleHook(fn func()) Option {
	return func(d *Dispatcher) {
		d.afterCycle = append(d.afterCycle, fn)
	}
}

// New creates a dispatcher.
func New(subscribers Subscribers, evaluator Evaluator, cfg *config.DispatchConfig, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		subscribers:    subscribers,
		evaluator:      evaluator,
		maxConcurrency: cfg.MaxConcurrency,
		evalTimeout:    cfg.EvaluationTimeout,
	}
	if d.maxConcurrency < 1 {
		d.maxConcurrency = 1
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch implements feed.Handler.
func (d *Dispatcher) Dispatch(ctx context.Context, kill *models.Kill) {
	d.Run(ctx, kill)
}

// Run evaluates kill against every pending subscriber's enabled filters and
// waits for all evaluations to finish.
func (d *Dispatcher) Run(ctx context.Context, kill *models.Kill) Summary {
	start := time.Now()
	killmailID := kill.Killmail.KillmailID

	ctx = logging.ContextWithNewCorrelationID(ctx)
	ctx = logging.ContextWithKillmailID(ctx, killmailID)

	subs := d.subscribers.Pending(killmailID)
	summary := Summary{
		Subscribers: len(subs),
		Outcomes:    make(map[engine.Outcome]int),
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(d.maxConcurrency)

	for _, sub := range subs {
		for _, f := range sub.EnabledFilters() {
			summary.Evaluations++
			g.Go(func() error {
				outcome := d.evaluate(ctx, kill, sub, &f)
				mu.Lock()
				summary.Outcomes[outcome]++
				mu.Unlock()
				return nil
			})
		}
	}
	_ = g.Wait()

	for _, fn := range d.afterCycle {
		fn()
	}

	summary.Duration = time.Since(start)
	metrics.KillmailsDispatched.Inc()
	metrics.DispatchDuration.Observe(summary.Duration.Seconds())

	logging.Ctx(ctx).Debug().
		Int("subscribers", summary.Subscribers).
		Int("evaluations", summary.Evaluations).
		Int("notified", summary.Outcomes[engine.OutcomeNotified]).
		Int("failed", summary.Outcomes[engine.OutcomeFailed]).
		Dur("duration", summary.Duration).
		Msg("dispatched killmail")
	return summary
}

func (d *Dispatcher) evaluate(ctx context.Context, kill *models.Kill, sub *models.Subscriber, f *models.Filter) engine.Outcome {
	metrics.DispatchInFlight.Inc()
	defer metrics.DispatchInFlight.Dec()

	if d.evalTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.evalTimeout)
		defer cancel()
	}

	// Errors are logged by the engine with their class
	outcome, _ := d.evaluator.Process(ctx, kill, sub, f)
	return outcome
}
