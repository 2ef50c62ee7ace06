// Kverna - EVE Online Killmail Intel Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kverna

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"

	"github.com/tomtom215/kverna/internal/logging"
)

// Response is the envelope every ops endpoint returns.
type Response struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
	Meta    Meta      `json:"meta"`
}

// APIError is a machine-readable error.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Meta carries request tracing data.
type Meta struct {
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func respondJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	writeJSON(w, status, &Response{
		Success: status < http.StatusBadRequest,
		Data:    data,
		Meta:    newMeta(r),
	})
}

func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, &Response{
		Error: &APIError{Code: code, Message: message},
		Meta:  newMeta(r),
	})
}

func newMeta(r *http.Request) Meta {
	return Meta{
		RequestID: middleware.GetReqID(r.Context()),
		Timestamp: time.Now().UTC(),
	}
}

func writeJSON(w http.ResponseWriter, status int, body *Response) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Error().Err(err).Msg("failed to encode JSON response")
	}
}
