// Kverna - EVE Online Killmail Intel Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kverna

package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/kverna/internal/logging"
)

// documentKey holds the whole subscriber document.
const documentKey = "subscribers"

const (
	// badgerValueLogFileSize caps the document: badger rejects any value
	// larger than one value log file.
	badgerValueLogFileSize = 256 << 20

	// gcDiscardRatio is the share of stale data that makes a value log
	// file worth rewriting.
	gcDiscardRatio = 0.5
)

// BadgerBackend keeps the document in a BadgerDB directory. Every Save
// leaves the previous copy behind in the value log, so the backend runs
// value log GC on an interval until Close.
type BadgerBackend struct {
	db *badger.DB

	gcInterval time.Duration
	stop       chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
}

// BadgerOption configures a BadgerBackend.
type BadgerOption func(*BadgerBackend)

// WithGCInterval sets how often value log GC runs. Zero or negative
// disables the loop.
func WithGCInterval(d time.Duration) BadgerOption {
	return func(b *BadgerBackend) {
		b.gcInterval = d
	}
}

// NewBadgerBackend opens (or creates) a BadgerDB at path.
func NewBadgerBackend(path string, opts ...BadgerOption) (*BadgerBackend, error) {
	if path == "" {
		return nil, errors.New("badger path is required")
	}

	bopts := badger.DefaultOptions(path)
	bopts.Logger = nil // Suppress BadgerDB internal logs
	bopts.ValueLogFileSize = badgerValueLogFileSize
	// The ledger must survive a crash right after a notification
	bopts.SyncWrites = true

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}
	return newBadgerBackend(db, opts...), nil
}

// NewBadgerBackendFromDB wraps an already open BadgerDB.
func NewBadgerBackendFromDB(db *badger.DB, opts ...BadgerOption) *BadgerBackend {
	return newBadgerBackend(db, opts...)
}

func newBadgerBackend(db *badger.DB, opts ...BadgerOption) *BadgerBackend {
	b := &BadgerBackend{db: db, stop: make(chan struct{})}
	for _, opt := range opts {
		opt(b)
	}
	if b.gcInterval > 0 {
		b.wg.Add(1)
		go b.gcLoop()
	}
	return b
}

func (b *BadgerBackend) gcLoop() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.gcInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stop:
			return
		case <-ticker.C:
			if err := b.RunGC(); err != nil {
				logging.Warn().Err(err).Msg("badger value log GC failed")
			}
		}
	}
}

// RunGC rewrites value log files until none is worth rewriting.
func (b *BadgerBackend) RunGC() error {
	for {
		err := b.db.RunValueLogGC(gcDiscardRatio)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrRejected) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// Name returns "badger".
func (b *BadgerBackend) Name() string {
	return BackendBadger
}

// Load reads the document.
func (b *BadgerBackend) Load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var data []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(documentKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get document: %w", err)
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Save writes the document in one transaction.
func (b *BadgerBackend) Save(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return b.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(documentKey), data); err != nil {
			return fmt.Errorf("set document: %w", err)
		}
		return nil
	})
}

// Close stops the GC loop and closes the database.
func (b *BadgerBackend) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	b.stopOnce.Do(func() { close(b.stop) })
	b.wg.Wait()
	return b.db.Close()
}
