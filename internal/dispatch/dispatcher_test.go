// Kverna - EVE Online Killmail Intel Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kverna

package dispatch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/kverna/internal/config"
	"github.com/tomtom215/kverna/internal/engine"
	"github.com/tomtom215/kverna/internal/esi"
	"github.com/tomtom215/kverna/internal/logging"
	"github.com/tomtom215/kverna/internal/models"
	"github.com/tomtom215/kverna/internal/notify"
	"github.com/tomtom215/kverna/internal/store"
)

type staticSubscribers []*models.Subscriber

func (s staticSubscribers) Pending(int64) []*models.Subscriber { return s }

// trackingEvaluator records calls and the peak number running at once.
type trackingEvaluator struct {
	mu       sync.Mutex
	pairs    []string
	running  atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
	ctxCheck func(context.Context)
}

func (e *trackingEvaluator) Process(ctx context.Context, kill *models.Kill, sub *models.Subscriber, f *models.Filter) (engine.Outcome, error) {
	n := e.running.Add(1)
	defer e.running.Add(-1)
	for {
		p := e.peak.Load()
		if n <= p || e.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if e.ctxCheck != nil {
		e.ctxCheck(ctx)
	}
	time.Sleep(e.delay)

	e.mu.Lock()
	e.pairs = append(e.pairs, f.Name)
	e.mu.Unlock()
	return engine.OutcomeNoMatch, nil
}

func subscriberWithFilters(id int64, enabled, disabled int) *models.Subscriber {
	sub := models.NewSubscriber(id)
	for i := 0; i < enabled; i++ {
		sub.Filters = append(sub.Filters, models.Filter{Name: "on", Action: models.ActionKill, Enabled: true})
	}
	for i := 0; i < disabled; i++ {
		sub.Filters = append(sub.Filters, models.Filter{Name: "off", Action: models.ActionKill, Enabled: false})
	}
	return sub
}

func TestDispatcher_FansOutEnabledFilters(t *testing.T) {
	eval := &trackingEvaluator{}
	subs := staticSubscribers{subscriberWithFilters(1, 2, 1), subscriberWithFilters(2, 3, 0)}
	d := New(subs, eval, &config.DispatchConfig{MaxConcurrency: 4})

	summary := d.Run(context.Background(), &models.Kill{Killmail: models.Killmail{KillmailID: 5}})

	if summary.Subscribers != 2 || summary.Evaluations != 5 {
		t.Errorf("summary = %+v, want 2 subscribers and 5 evaluations", summary)
	}
	if len(eval.pairs) != 5 {
		t.Errorf("evaluations run = %d, want 5", len(eval.pairs))
	}
	for _, name := range eval.pairs {
		if name == "off" {
			t.Error("disabled filter was evaluated")
		}
	}
	if summary.Outcomes[engine.OutcomeNoMatch] != 5 {
		t.Errorf("outcomes = %v", summary.Outcomes)
	}
}

func TestDispatcher_BoundsConcurrency(t *testing.T) {
	eval := &trackingEvaluator{delay: 5 * time.Millisecond}
	subs := staticSubscribers{subscriberWithFilters(1, 20, 0)}
	d := New(subs, eval, &config.DispatchConfig{MaxConcurrency: 3})

	d.Run(context.Background(), &models.Kill{})

	if peak := eval.peak.Load(); peak > 3 {
		t.Errorf("peak concurrency = %d, want <= 3", peak)
	}
	if len(eval.pairs) != 20 {
		t.Errorf("evaluations = %d, want all 20 before Run returns", len(eval.pairs))
	}
}

func TestDispatcher_ContextCarriesCycleIDs(t *testing.T) {
	var (
		mu   sync.Mutex
		seen = map[string]bool{}
	)
	eval := &trackingEvaluator{ctxCheck: func(ctx context.Context) {
		if id, ok := logging.KillmailIDFromContext(ctx); !ok || id != 77 {
			t.Errorf("killmail id in context = %d, %v", id, ok)
		}
		if _, ok := ctx.Deadline(); !ok {
			t.Error("evaluation context has no deadline")
		}
		mu.Lock()
		seen[logging.CorrelationIDFromContext(ctx)] = true
		mu.Unlock()
	}}
	d := New(staticSubscribers{subscriberWithFilters(1, 3, 0)}, eval,
		&config.DispatchConfig{MaxConcurrency: 2, EvaluationTimeout: time.Second})

	d.Run(context.Background(), &models.Kill{Killmail: models.Killmail{KillmailID: 77}})

	if len(seen) != 1 {
		t.Errorf("correlation IDs in one cycle = %d, want 1", len(seen))
	}
}

func TestDispatcher_CycleHook(t *testing.T) {
	var calls atomic.Int32
	d := New(staticSubscribers{}, &trackingEvaluator{}, &config.DispatchConfig{},
		WithCycleHook(func() { calls.Add(1) }))

	d.Dispatch(context.Background(), &models.Kill{})
	d.Dispatch(context.Background(), &models.Kill{})

	if calls.Load() != 2 {
		t.Errorf("hook calls = %d, want 2", calls.Load())
	}
}

// End to end through the real store and engine: ten matching filters on one
// subscriber produce one notification and one ledger entry, and a second
// delivery of the same killmail does nothing.
type fixedEnricher struct{}

func (fixedEnricher) SystemInfo(context.Context, int64) (*esi.SystemInfo, error) {
	return &esi.SystemInfo{SecurityStatus: 0.5}, nil
}

func (fixedEnricher) Constellation(context.Context, int64) (*esi.Constellation, error) {
	return &esi.Constellation{}, nil
}

type countingNotifier struct{ sent atomic.Int32 }

func (n *countingNotifier) Name() string  { return "counting" }
func (n *countingNotifier) Enabled() bool { return true }

func (n *countingNotifier) Send(context.Context, *notify.Message) error {
	n.sent.Add(1)
	return nil
}

func TestDispatcher_EndToEndSingleNotification(t *testing.T) {
	ctx := context.Background()
	backend, err := store.NewFileBackend(filepath.Join(t.TempDir(), "config.json"))
	if err != nil {
		t.Fatalf("NewFileBackend() error = %v", err)
	}
	s := store.New(backend, store.Options{})

	sub := models.NewSubscriber(1)
	sub.Channel = 10
	for i := 0; i < 10; i++ {
		sub.Filters = append(sub.Filters, models.Filter{
			Name: fmt.Sprintf("filter %d", i), Action: models.ActionKill, LowestSecurity: new(float64), Enabled: true,
		})
	}
	if err := s.Upsert(ctx, sub); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	notifier := &countingNotifier{}
	eng := engine.New(fixedEnricher{}, s, notifier, &config.EngineConfig{})
	d := New(s, eng, &config.DispatchConfig{MaxConcurrency: 10, EvaluationTimeout: time.Second})

	kill := &models.Kill{Killmail: models.Killmail{KillmailID: 900, SolarSystemID: 30000142}}
	summary := d.Run(ctx, kill)

	if notifier.sent.Load() != 1 {
		t.Errorf("notifications = %d, want 1", notifier.sent.Load())
	}
	if summary.Outcomes[engine.OutcomeNotified] != 1 {
		t.Errorf("outcomes = %v", summary.Outcomes)
	}
	got, _ := s.Get(1)
	if len(got.ReportedKillmails) != 1 || !got.HasReported(900) {
		t.Errorf("ledger = %v", got.ReportedKillmails)
	}

	summary = d.Run(ctx, kill)
	if summary.Subscribers != 0 || notifier.sent.Load() != 1 {
		t.Errorf("redelivery: subscribers = %d, notifications = %d", summary.Subscribers, notifier.sent.Load())
	}
}
