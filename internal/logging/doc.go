// Kverna - EVE Online Killmail Intel Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kverna

// Package logging provides centralized zerolog-based structured logging for Kverna.
//
// # Overview
//
// The package provides:
//   - a global zerolog logger with level helpers (Info, Warn, Error, ...)
//   - JSON output for production, console output for development
//   - context-aware logging with correlation ID and killmail ID propagation
//   - an slog adapter so sutureslog can report supervisor events
//
// # Quick Start
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//
//	logging.Info().Int64("killmail_id", id).Msg("Killmail received")
//
//	ctx = logging.ContextWithNewCorrelationID(ctx)
//	ctx = logging.ContextWithKillmailID(ctx, id)
//	logging.Ctx(ctx).Warn().Err(err).Msg("Enrichment failed")
//
// # Error classes
//
// Operators filter on the "reason" field to separate configuration mistakes
// in subscriber filters (reason=config) from feed decode problems
// (reason=decode) and persistence failures (reason=persist).
//
// Always terminate log chains with .Msg() or .Send().
package logging
