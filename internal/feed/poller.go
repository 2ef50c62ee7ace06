// Kverna - EVE Online Killmail Intel Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kverna

package feed

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/tomtom215/kverna/internal/cache"
	"github.com/tomtom215/kverna/internal/config"
	"github.com/tomtom215/kverna/internal/decode"
	"github.com/tomtom215/kverna/internal/logging"
	"github.com/tomtom215/kverna/internal/metrics"
	"github.com/tomtom215/kverna/internal/models"
)

// Source yields killmails one at a time.
type Source interface {
	Poll(ctx context.Context) (*models.Kill, error)
}

// Handler receives each new killmail. Dispatch returns once the killmail has
// been fully processed, so killmails are handled in arrival order.
type Handler interface {
	Dispatch(ctx context.Context, kill *models.Kill)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, kill *models.Kill)

// Dispatch calls f.
func (f HandlerFunc) Dispatch(ctx context.Context, kill *models.Kill) {
	f(ctx, kill)
}

// Poller is the feed loop. It implements suture.Service.
type Poller struct {
	source  Source
	handler Handler
	backoff time.Duration

	// seen drops redeliveries before fan-out
	seen        *cache.LRUCache[int64]
	seenTTL     time.Duration
	lastCleanup time.Time

	polls      atomic.Int64
	events     atomic.Int64
	lastPollAt atomic.Int64 // unix nanos
}

// NewPoller creates a poller over source.
func NewPoller(source Source, handler Handler, cfg *config.FeedConfig) *Poller {
	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = 2 * time.Second
	}
	return &Poller{
		source:  source,
		handler: handler,
		backoff: backoff,
		seen:    cache.NewLRUCache[int64](cfg.SeenCapacity, cfg.SeenTTL),
		seenTTL: cfg.SeenTTL,
	}
}

// Serve runs the loop until ctx is canceled.
func (p *Poller) Serve(ctx context.Context) error {
	logging.Info().Dur("backoff", p.backoff).Msg("starting feed poller")
	p.lastCleanup = time.Now()

	for {
		if ctx.Err() != nil {
			logging.Info().Msg("feed poller stopped")
			return ctx.Err()
		}
		if !p.pollOnce(ctx) {
			p.wait(ctx)
		}
		p.cleanupSeen()
	}
}

// pollOnce performs one poll and reports whether the next poll may start
// immediately.
func (p *Poller) pollOnce(ctx context.Context) bool {
	start := time.Now()
	kill, err := p.source.Poll(ctx)
	p.polls.Add(1)
	p.lastPollAt.Store(time.Now().UnixNano())

	switch {
	case ctx.Err() != nil:
		return true
	case errors.Is(err, ErrNoPackage):
		metrics.RecordFeedPoll("empty", time.Since(start))
		logging.Debug().Msg("feed queue empty")
		return false
	case errors.Is(err, decode.ErrDecode):
		metrics.RecordFeedPoll("decode_error", time.Since(start))
		metrics.DecodeFailures.WithLabelValues("feed").Inc()
		logging.Warn().Err(err).Str("reason", "decode").Msg("discarding malformed feed payload")
		return false
	case err != nil:
		metrics.RecordFeedPoll("error", time.Since(start))
		logging.Warn().Err(err).Msg("feed poll failed")
		return false
	}

	metrics.RecordFeedPoll("killmail", time.Since(start))
	if p.seen.IsDuplicate(kill.Killmail.KillmailID) {
		metrics.FeedDuplicates.Inc()
		logging.Debug().Int64("killmail_id", kill.Killmail.KillmailID).Msg("dropping redelivered killmail")
		return true
	}

	p.events.Add(1)
	p.handler.Dispatch(ctx, kill)
	return true
}

func (p *Poller) wait(ctx context.Context) {
	timer := time.NewTimer(p.backoff)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (p *Poller) cleanupSeen() {
	if p.seenTTL <= 0 || time.Since(p.lastCleanup) < p.seenTTL/2 {
		return
	}
	p.lastCleanup = time.Now()
	p.seen.CleanupExpired()
}

// Stats returns the number of polls and dispatched killmails.
func (p *Poller) Stats() (polls, events int64) {
	return p.polls.Load(), p.events.Load()
}

// LastPoll returns when the last poll completed, zero if none has.
func (p *Poller) LastPoll() time.Time {
	n := p.lastPollAt.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

// String names the service in supervisor logs.
func (p *Poller) String() string {
	return "feed-poller"
}
