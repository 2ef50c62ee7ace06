// Kverna - EVE Online Killmail Intel Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kverna

// Package main is the kverna daemon.
//
// kverna long-polls the zKillboard RedisQ feed, evaluates every subscriber's
// filters against each killmail and notifies a subscriber at most once per
// killmail.
//
// # Startup order
//
//  1. Configuration (koanf: defaults, optional config.yaml, environment)
//  2. Logging (zerolog)
//  3. Subscriber store: open the configured backend and load the document
//  4. ESI client behind a circuit breaker and a short-lived lookup cache
//  5. Notifiers (Discord, webhook, NATS)
//  6. Engine, dispatcher and feed poller
//  7. Supervisor tree with the poller and the ops HTTP server
//
// # Signal handling
//
// SIGINT and SIGTERM cancel the root context. The poller aborts its
// in-flight request, the ops server drains, and the store is closed last.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/kverna/internal/api"
	"github.com/tomtom215/kverna/internal/config"
	"github.com/tomtom215/kverna/internal/dispatch"
	"github.com/tomtom215/kverna/internal/engine"
	"github.com/tomtom215/kverna/internal/esi"
	"github.com/tomtom215/kverna/internal/feed"
	"github.com/tomtom215/kverna/internal/logging"
	"github.com/tomtom215/kverna/internal/notify"
	"github.com/tomtom215/kverna/internal/store"
	"github.com/tomtom215/kverna/internal/supervisor"
	"github.com/tomtom215/kverna/internal/supervisor/services"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("kverna exited")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Version:   version,
		Output:    os.Stderr,
	})

	logging.Info().
		Str("feed", cfg.Feed.URL).
		Str("store", cfg.Store.Backend).
		Msg("starting kverna")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	backend, err := store.OpenBackend(&cfg.Store)
	if err != nil {
		return err
	}
	subscribers := store.New(backend, store.Options{AllowVacuousFilters: cfg.Engine.AllowVacuousFilters})
	defer func() {
		if err := subscribers.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing subscriber store")
		}
	}()
	if err := subscribers.Load(ctx); err != nil {
		return err
	}
	logging.Info().Int("subscribers", subscribers.Len()).Str("backend", backend.Name()).Msg("subscribers loaded")

	breaker := esi.NewCircuitBreakerClient(esi.NewClient(&cfg.ESI))
	enricher := esi.NewCachingClient(breaker, cfg.ESI.CacheTTL)

	notifier, closeNotifiers, err := buildNotifiers(&cfg.Notify, notify.NewNATSNotifier)
	if err != nil {
		return err
	}
	defer closeNotifiers()

	eng := engine.New(enricher, subscribers, notifier, &cfg.Engine)
	dispatcher := dispatch.New(subscribers, eng, &cfg.Dispatch, dispatch.WithCycleHook(func() {
		if n := enricher.Cleanup(); n > 0 {
			logging.Debug().Int("evicted", n).Msg("esi cache cleanup")
		}
	}))
	poller := feed.NewPoller(feed.NewClient(&cfg.Feed), dispatcher, &cfg.Feed)

	handler := api.NewHandler(api.Deps{
		Poller:      poller,
		Engine:      eng,
		Subscribers: subscribers,
		Notifiers:   notifier.Names(),
		Checks:      readinessChecks(&cfg.Feed, poller, breaker),
		Version:     version,
	})
	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           api.NewRouter(handler, &cfg.Server),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfigFrom(&cfg.Supervisor))
	if err != nil {
		return err
	}
	tree.AddIngestService(services.NewPollerService(poller))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	logging.Info().Str("addr", server.Addr).Msg("starting supervisor tree")
	err = tree.Serve(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("supervisor tree error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("service failed to stop")
	}

	polls, events := poller.Stats()
	logging.Info().Int64("polls", polls).Int64("killmails", events).Msg("kverna stopped")
	return nil
}
