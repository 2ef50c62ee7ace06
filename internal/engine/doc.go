// Kverna - EVE Online Killmail Intel Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kverna

/*
Package engine decides whether a killmail matches a subscriber's filter and,
on a match, records it in the ledger and notifies the subscriber.

# Predicates

Each filter field that is set selects one predicate; unset fields add
nothing. The filter matches when every selected predicate holds, and the
predicates run concurrently. The first one to fail cancels the rest.

  - where: the killmail's system is in the list. A list that holds
    constellation or region IDs also matches systems inside them, which
    costs one or two ESI lookups.
  - isk_value: the zKillboard total value is at least the threshold. A
    killmail without a value never matches.
  - range: light-year distance from the subscriber's staging system is at
    most the threshold. Only selected when the subscriber has a staging
    system.
  - items: any of the victim's items is in the list.
  - lowest_security, highest_security: bounds on the system security status.
  - what, who, who_ignore: ship types and identities from the victim (action
    kill) or from every attacker (action use). who_ignore holds when no
    identity is in the list.

A filter with no predicates does not match unless vacuous filters are
allowed. A missing list or an unknown action is a configuration error: it is
logged with reason=config and the affected predicate cannot match. An ESI
failure makes its predicate fail and is logged as a transient error.

# Delivery

Process checks the ledger first, so a killmail already reported to the
subscriber costs no evaluation. On a match it calls MarkNotified, and only
the caller that gets first=true sends the notification. The ledger entry is
durable before the send, so delivery is at most once per subscriber and
killmail.
*/
package engine
