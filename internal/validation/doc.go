// Kverna - EVE Online Killmail Intel Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kverna

/*
Package validation checks subscribers and filters before they reach the store.

It wraps a singleton go-playground/validator v10 instance configured to report
fields by their JSON names and with one custom tag:

  - eve_system: the value is a solar system ID (30,000,000 to 39,999,999)

ValidateStruct runs the tag rules and returns a *RequestValidationError with
one entry per failing field. ValidateSubscriber adds the rules tags cannot
express:

  - filter names are unique within a subscriber
  - every list a filter references exists
  - a filter sets at least one predicate (unless vacuous filters are allowed)
  - lowest_security is not above highest_security
  - range requires a staging system

The ID range helpers IsRegionID, IsConstellationID and IsSolarSystemID are
shared with the filter engine, which uses them to decide whether a where list
needs constellation or region enrichment.
*/
package validation
