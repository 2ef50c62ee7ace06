// Kverna - EVE Online Killmail Intel Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kverna

/*
Package store owns the canonical subscriber collection: filters, named lists,
staging systems and the per-subscriber dedup ledger of reported killmails.

The collection lives in memory behind a single RWMutex and is written in full
to a durable Backend on every mutation. Three backends are available:

  - badger: the document under one key in a BadgerDB directory
  - sqlite: the document in a single-row table (pure-Go modernc.org/sqlite)
  - file: a JSON file replaced atomically, compatible with the legacy
    {"guilds": [...]} state file

MarkNotified is the only writer the pipeline uses. It is a check-and-set:
exactly one caller per (subscriber, killmail) observes first=true, and the
ledger entry is durable before it returns. A failed write rolls the entry
back and returns an error wrapping ErrPersist, so the caller never notifies
for a killmail the store could not record.

Readers receive deep copies; mutating a returned Subscriber has no effect
until it is passed back through Upsert.
*/
package store
