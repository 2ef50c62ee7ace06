// Kverna - EVE Online Killmail Intel Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kverna

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/kverna/internal/api"
	"github.com/tomtom215/kverna/internal/config"
	"github.com/tomtom215/kverna/internal/logging"
	"github.com/tomtom215/kverna/internal/notify"
)

// natsConnector opens the NATS notifier; tests substitute a fake.
type natsConnector func(cfg *config.NATSConfig) (*notify.NATSNotifier, error)

// buildNotifiers assembles every enabled notifier behind one Multi. The
// returned cleanup drains the NATS connection if one was opened.
func buildNotifiers(cfg *config.NotifyConfig, connectNATS natsConnector) (*notify.Multi, func(), error) {
	notifiers := []notify.Notifier{
		notify.NewDiscordNotifier(&cfg.Discord),
		notify.NewWebhookNotifier(&cfg.Webhook),
	}
	cleanup := func() {}

	if cfg.NATS.Enabled {
		nn, err := connectNATS(&cfg.NATS)
		if err != nil {
			return nil, cleanup, fmt.Errorf("nats notifier: %w", err)
		}
		notifiers = append(notifiers, nn)
		cleanup = func() {
			if err := nn.Close(); err != nil {
				logging.Warn().Err(err).Msg("failed to drain NATS connection")
			}
		}
	}

	multi := notify.NewMulti(notifiers...)
	if !multi.Enabled() {
		logging.Warn().Msg("no notifier enabled; matches are recorded but nobody is told")
	} else {
		logging.Info().Strs("notifiers", multi.Names()).Msg("notifiers configured")
	}
	return multi, cleanup, nil
}

// healthChecker is satisfied by esi.CircuitBreakerClient.
type healthChecker interface {
	Healthy(ctx context.Context) error
}

// readinessChecks builds the /ready checks. The feed counts as stale after
// two long-poll timeouts plus one backoff without a completed poll.
func readinessChecks(feedCfg *config.FeedConfig, poller api.PollStatus, esiHealth healthChecker) map[string]api.Check {
	staleAfter := 2*feedCfg.RequestTimeout + feedCfg.Backoff
	if staleAfter <= 0 {
		staleAfter = time.Minute
	}
	return map[string]api.Check{
		"feed": api.PollerCheck(poller, staleAfter),
		"esi":  esiHealth.Healthy,
	}
}
