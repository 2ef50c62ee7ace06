// Kverna - EVE Online Killmail Intel Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kverna

package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/tomtom215/kverna/internal/logging"
)

// Poller matches feed.Poller's Serve method.
//
// Satisfied by *feed.Poller from internal/feed/poller.go.
type Poller interface {
	// Serve polls until ctx is canceled and returns ctx.Err().
	Serve(ctx context.Context) error
}

// PollerService wraps the killmail feed poller as a supervised service.
//
//	poller := feed.NewPoller(client, dispatcher, &cfg.Feed)
//	tree.AddIngestService(services.NewPollerService(poller))
type PollerService struct {
	poller Poller
	name   string
	starts atomic.Int64
}

// NewPollerService creates a new poller service wrapper.
func NewPollerService(poller Poller) *PollerService {
	return &PollerService{
		poller: poller,
		name:   "feed-poller",
	}
}

// Serve implements suture.Service.
//
// Returns ctx.Err() on shutdown. Any other return, including a nil one,
// is reported as an error so suture restarts the poller.
func (p *PollerService) Serve(ctx context.Context) error {
	n := p.starts.Add(1)
	logger := logging.WithComponent(p.name)
	ctx = logging.ContextWithLogger(ctx, logger)

	if n > 1 {
		logger.Warn().Int64("start", n).Msg("restarting feed poller")
	} else {
		logger.Info().Msg("starting feed poller")
	}

	err := p.poller.Serve(ctx)
	if ctx.Err() != nil {
		logger.Info().Msg("feed poller stopped")
		return ctx.Err()
	}
	if err == nil {
		err = errors.New("returned without cancellation")
	}
	return fmt.Errorf("feed poller: %w", err)
}

// Starts returns how many times Serve has been entered.
func (p *PollerService) Starts() int64 {
	return p.starts.Load()
}

// String implements fmt.Stringer for suture's log messages.
func (p *PollerService) String() string {
	return p.name
}
