// Kverna - EVE Online Killmail Intel Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kverna

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Context keys for logging.
type contextKey string

const (
	// correlationIDKey ties together every log line of one dispatch cycle.
	correlationIDKey contextKey = "correlation_id"

	// killmailIDKey is the killmail being dispatched.
	killmailIDKey contextKey = "killmail_id"

	// loggerKey is the context key for storing a logger instance.
	loggerKey contextKey = "logger"
)

// GenerateCorrelationID creates a new unique correlation ID.
// Returns the first 8 characters of a UUID for readability.
func GenerateCorrelationID() string {
	return uuid.New().String()[:8]
}

// ContextWithCorrelationID returns a new context with the given correlation ID.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// ContextWithNewCorrelationID returns a context with a newly generated correlation ID.
func ContextWithNewCorrelationID(ctx context.Context) context.Context {
	return ContextWithCorrelationID(ctx, GenerateCorrelationID())
}

// CorrelationIDFromContext retrieves the correlation ID from context.
// Returns empty string if not present.
func CorrelationIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithKillmailID returns a new context carrying the killmail ID.
func ContextWithKillmailID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, killmailIDKey, id)
}

// KillmailIDFromContext retrieves the killmail ID from context.
func KillmailIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(killmailIDKey).(int64)
	return id, ok
}

// ContextWithLogger stores a logger in the context.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func ContextWithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// LoggerFromContext retrieves a logger from context.
// Returns the global logger if no logger is stored in context.
func LoggerFromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(loggerKey).(zerolog.Logger); ok {
		return logger
	}
	return Logger()
}

// Ctx returns a logger with context values (correlation_id, killmail_id) added.
//
//	logging.Ctx(ctx).Info().Msg("Filter matched")
//	// {"level":"info","correlation_id":"abc12345","killmail_id":123,"message":"Filter matched"}
func Ctx(ctx context.Context) *zerolog.Logger {
	logger := CtxWith(ctx).Logger()
	return &logger
}

// CtxWith returns a logger context builder with context values pre-populated.
//
//	logger := logging.CtxWith(ctx).Int64("subscriber_id", id).Logger()
func CtxWith(ctx context.Context) zerolog.Context {
	logger := LoggerFromContext(ctx)
	logCtx := logger.With()

	if correlationID := CorrelationIDFromContext(ctx); correlationID != "" {
		logCtx = logCtx.Str("correlation_id", correlationID)
	}
	if killmailID, ok := KillmailIDFromContext(ctx); ok {
		logCtx = logCtx.Int64("killmail_id", killmailID)
	}

	return logCtx
}

// WithComponent creates a child logger with a component field.
//
//	feedLogger := logging.WithComponent("feed")
func WithComponent(component string) zerolog.Logger {
	return With().Str("component", component).Logger()
}
