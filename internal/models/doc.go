// Kverna - EVE Online Killmail Intel Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kverna

/*
Package models defines the data structures shared across Kverna.

Key Components:

  - Killmail: one kill event from the feed, with its Victim, Attackers and Items
  - Zkb: the value record paired with every killmail (total value, href locator)
  - Position: solar-system coordinates in metres with light-year distance
  - Subscriber: one tenant with its named lists, filters, staging system and ledger
  - Filter: a named, AND-combined predicate set bound to the victim or attacker side

JSON field names match the killmail feed and the persisted subscriber document,
so a legacy state file decodes directly into these types.

Optional numeric fields are pointers. Absence upstream decodes to nil, never to
zero, so an absent alliance ID can never match a list containing 0.
*/
package models
