// Kverna - EVE Online Killmail Intel Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kverna

/*
Package supervisor runs kverna's long-lived services under suture v4.

The tree separates the feed poller from the operations server:

	RootSupervisor ("kverna")
	├── IngestSupervisor ("ingest-layer")
	│   └── PollerService (feed-poller)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

A service that returns an error or panics is restarted with backoff once
FailureThreshold is exceeded. Supervisor events are logged through
sutureslog on top of the zerolog slog adapter:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(),
	    supervisor.TreeConfigFrom(&cfg.Supervisor))
	tree.AddIngestService(services.NewPollerService(poller))
	tree.AddAPIService(services.NewHTTPServerService(srv, cfg.Server.ShutdownTimeout))
	err = tree.Serve(ctx)

Service wrappers live in the services subpackage.
*/
package supervisor
