// Kverna - EVE Online Killmail Intel Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kverna

package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/kverna/internal/config"
	"github.com/tomtom215/kverna/internal/esi"
	"github.com/tomtom215/kverna/internal/logging"
	"github.com/tomtom215/kverna/internal/metrics"
	"github.com/tomtom215/kverna/internal/models"
	"github.com/tomtom215/kverna/internal/notify"
)

var (
	// ErrUnknownAction marks a filter whose action is neither kill nor use.
	ErrUnknownAction = errors.New("unknown filter action")

	// ErrMissingList marks a filter that references a list the subscriber
	// does not have.
	ErrMissingList = errors.New("filter references a missing list")
)

// notifyTimeout bounds a send that outlives the evaluation context.
const notifyTimeout = 15 * time.Second

// Enricher is the ESI lookup surface predicates need.
type Enricher interface {
	SystemInfo(ctx context.Context, systemID int64) (*esi.SystemInfo, error)
	Constellation(ctx context.Context, constellationID int64) (*esi.Constellation, error)
}

// Ledger records which killmails each subscriber has been told about.
type Ledger interface {
	HasReported(subscriberID, killmailID int64) bool
	MarkNotified(ctx context.Context, subscriberID, killmailID int64, at time.Time) (bool, error)
}

// Outcome is what Process did with one (subscriber, filter) pair.
type Outcome int

const (
	// OutcomeNoMatch means the filter did not match.
	OutcomeNoMatch Outcome = iota
	// OutcomeSkipped means the killmail was already reported; nothing ran.
	OutcomeSkipped
	// OutcomeDuplicate means the filter matched but a sibling filter
	// recorded the killmail first.
	OutcomeDuplicate
	// OutcomeNotified means this filter recorded and sent the notification.
	OutcomeNotified
	// OutcomeFailed means the ledger write or the send failed.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNoMatch:
		return "no_match"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeNotified:
		return "notified"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// EngineMetrics tracks filter evaluation.
type EngineMetrics struct {
	FiltersEvaluated int64
	Matches          int64
	Notifications    int64
	NotifyErrors     int64
	ConfigErrors     int64
	PredicateErrors  int64
	LastMatchAt      time.Time
}

// Engine evaluates filters and delivers matches.
type Engine struct {
	enricher      Enricher
	ledger        Ledger
	notifier      notify.Notifier
	allowVacuous  bool
	killURLFormat string
	now           func() time.Time

	metricsMu    sync.Mutex
	metricsStore EngineMetrics
}

// New creates an engine. notifier may be nil, in which case matches are
// recorded but not sent.
func New(enricher Enricher, ledger Ledger, notifier notify.Notifier, cfg *config.EngineConfig) *Engine {
	format := cfg.KillURLFormat
	if format == "" {
		format = "https://zkillboard.com/kill/%d/"
	}
	return &Engine{
		enricher:      enricher,
		ledger:        ledger,
		notifier:      notifier,
		allowVacuous:  cfg.AllowVacuousFilters,
		killURLFormat: format,
		now:           time.Now,
	}
}

// KillURL returns the public URL of a killmail.
func (e *Engine) KillURL(killmailID int64) string {
	return fmt.Sprintf(e.killURLFormat, killmailID)
}

// Process evaluates f against kill for sub and, on a match, records the
// killmail in the ledger and sends one notification.
func (e *Engine) Process(ctx context.Context, kill *models.Kill, sub *models.Subscriber, f *models.Filter) (Outcome, error) {
	killmailID := kill.Killmail.KillmailID
	if e.ledger.HasReported(sub.ID, killmailID) {
		return OutcomeSkipped, nil
	}

	matched, err := e.Evaluate(ctx, kill, sub, f)
	if err != nil || !matched {
		return OutcomeNoMatch, err
	}

	at := e.now()
	first, err := e.ledger.MarkNotified(ctx, sub.ID, killmailID, at)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).
			Int64("subscriber_id", sub.ID).
			Str("filter", f.Name).
			Msg("failed to record match, notification suppressed")
		return OutcomeFailed, err
	}
	metrics.RecordMatch(first)

	e.metricsMu.Lock()
	e.metricsStore.Matches++
	e.metricsStore.LastMatchAt = at
	e.metricsMu.Unlock()

	if !first {
		return OutcomeDuplicate, nil
	}

	logging.Ctx(ctx).Info().
		Int64("subscriber_id", sub.ID).
		Str("filter", f.Name).
		Bool("ping", f.Ping).
		Msg("filter matched")

	if e.notifier == nil {
		return OutcomeNotified, nil
	}

	// The ledger already holds the killmail; send even if evaluation was
	// canceled meanwhile.
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	if err := e.notifier.Send(sendCtx, e.Message(kill, sub, f, at)); err != nil {
		e.metricsMu.Lock()
		e.metricsStore.NotifyErrors++
		e.metricsMu.Unlock()
		logging.Ctx(ctx).Error().Err(err).
			Int64("subscriber_id", sub.ID).
			Str("filter", f.Name).
			Msg("failed to send notification")
		return OutcomeFailed, fmt.Errorf("notify subscriber %d: %w", sub.ID, err)
	}

	e.metricsMu.Lock()
	e.metricsStore.Notifications++
	e.metricsMu.Unlock()
	return OutcomeNotified, nil
}

// Message builds the notification for a match.
func (e *Engine) Message(kill *models.Kill, sub *models.Subscriber, f *models.Filter, at time.Time) *notify.Message {
	return &notify.Message{
		SubscriberID: sub.ID,
		ChannelID:    sub.Channel,
		KillmailID:   kill.Killmail.KillmailID,
		URL:          e.KillURL(kill.Killmail.KillmailID),
		FilterName:   f.Name,
		Ping:         f.Ping,
		TotalValue:   kill.Zkb.TotalValue,
		MatchedAt:    at.UTC(),
	}
}

// Metrics returns a copy of the engine metrics.
func (e *Engine) Metrics() EngineMetrics {
	e.metricsMu.Lock()
	defer e.metricsMu.Unlock()
	return e.metricsStore
}

// logConfigError reports a subscriber configuration problem distinctly from
// transient failures so operators can fix it.
func (e *Engine) logConfigError(ctx context.Context, err error, sub *models.Subscriber, f *models.Filter) {
	e.metricsMu.Lock()
	e.metricsStore.ConfigErrors++
	e.metricsMu.Unlock()

	logging.Ctx(ctx).Error().Err(err).
		Str("reason", "config").
		Int64("subscriber_id", sub.ID).
		Str("filter", f.Name).
		Msg("filter configuration error")
}
