// Kverna - EVE Online Killmail Intel Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kverna

// Package notify delivers matched killmails to subscribers.
//
// A Message names the subscriber, its channel, the killmail URL and the
// filter that matched. Notifiers render it for their sink: the Discord bot
// REST API, a generic JSON webhook, or a NATS subject per subscriber. Multi
// fans one message out to every enabled notifier.
package notify
