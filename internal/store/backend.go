// Kverna - EVE Online Killmail Intel Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kverna

package store

import (
	"context"
	"fmt"

	"github.com/tomtom215/kverna/internal/config"
)

// Backend names accepted by OpenBackend.
const (
	BackendBadger = "badger"
	BackendSQLite = "sqlite"
	BackendFile   = "file"
)

// Backend durably stores the encoded subscriber document.
type Backend interface {
	// Name identifies the backend in logs and metrics.
	Name() string

	// Load returns the stored document, or nil with no error when nothing
	// has been saved yet.
	Load(ctx context.Context) ([]byte, error)

	// Save replaces the stored document. It returns only after the write is
	// durable.
	Save(ctx context.Context, data []byte) error

	Close() error
}

// OpenBackend opens the backend selected by cfg.
func OpenBackend(cfg *config.StoreConfig) (Backend, error) {
	switch cfg.Backend {
	case BackendBadger:
		return NewBadgerBackend(cfg.Path, WithGCInterval(cfg.GCInterval))
	case BackendSQLite:
		return NewSQLiteBackend(cfg.Path)
	case BackendFile:
		return NewFileBackend(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
