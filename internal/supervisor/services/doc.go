// Kverna - EVE Online Killmail Intel Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kverna

/*
Package services adapts kverna components to suture's Serve(ctx) error model.

HTTPServerService wraps an *http.Server. ListenAndServe runs in a goroutine
and context cancellation triggers Shutdown with a bounded timeout.

PollerService wraps the feed poller. It logs each (re)start and tags the
poller's context with the service name so every log line emitted during a
poll carries it.
*/
package services
