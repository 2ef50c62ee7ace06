// Kverna - EVE Online Killmail Intel Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kverna

package store

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/tomtom215/kverna/internal/logging"
	"github.com/tomtom215/kverna/internal/metrics"
	"github.com/tomtom215/kverna/internal/models"
	"github.com/tomtom215/kverna/internal/validation"
)

var (
	// ErrSubscriberNotFound is returned for an unknown subscriber ID.
	ErrSubscriberNotFound = errors.New("subscriber not found")

	// ErrPersist wraps every failed durable write. The mutation that
	// triggered it has been rolled back.
	ErrPersist = errors.New("persist subscribers")
)

// Options configures a Store.
type Options struct {
	// AllowVacuousFilters accepts filters with no predicates on Upsert.
	AllowVacuousFilters bool
}

// Store is the in-memory subscriber collection backed by a durable Backend.
// All mutations hold the write lock across the durable save, so the backend
// always sees saves in the order they were applied.
type Store struct {
	mu          sync.RWMutex
	subscribers map[int64]*models.Subscriber
	backend     Backend
	opts        Options
}

// New creates an empty store over backend. Call Load to read saved state.
func New(backend Backend, opts Options) *Store {
	return &Store{
		subscribers: make(map[int64]*models.Subscriber),
		backend:     backend,
		opts:        opts,
	}
}

// Backend returns the durable backend.
func (s *Store) Backend() Backend {
	return s.backend
}

// Load replaces the in-memory collection with the stored document.
func (s *Store) Load(ctx context.Context) error {
	data, err := s.backend.Load(ctx)
	if err != nil {
		return fmt.Errorf("load subscribers from %s: %w", s.backend.Name(), err)
	}
	subscribers, err := DecodeDocument(data)
	if err != nil {
		return fmt.Errorf("decode subscribers from %s: %w", s.backend.Name(), err)
	}

	s.mu.Lock()
	s.subscribers = subscribers
	s.mu.Unlock()

	metrics.Subscribers.Set(float64(len(subscribers)))
	logging.Info().
		Str("backend", s.backend.Name()).
		Int("subscribers", len(subscribers)).
		Msg("loaded subscribers")
	return nil
}

// Persist writes the full collection to the backend.
func (s *Store) Persist(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked(ctx)
}

// persistLocked requires s.mu held for writing.
func (s *Store) persistLocked(ctx context.Context) error {
	start := time.Now()

	data, err := EncodeDocument(s.subscribers)
	if err == nil {
		err = s.backend.Save(ctx, data)
	}
	metrics.RecordStorePersist(s.backend.Name(), time.Since(start), err)
	if err != nil {
		logging.Error().Err(err).Str("backend", s.backend.Name()).Msg("failed to persist subscribers")
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	metrics.Subscribers.Set(float64(len(s.subscribers)))
	return nil
}

// Get returns a copy of the subscriber.
func (s *Store) Get(id int64) (*models.Subscriber, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subscribers[id]
	if !ok {
		return nil, ErrSubscriberNotFound
	}
	return sub.Clone(), nil
}

// List returns copies of every subscriber in ID order.
func (s *Store) List() []*models.Subscriber {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Subscriber, 0, len(s.subscribers))
	for _, sub := range s.subscribers {
		out = append(out, sub.Clone())
	}
	sortByID(out)
	return out
}

// Len returns the number of subscribers.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscribers)
}

// Upsert validates sub and saves it, replacing any subscriber with the same
// ID. Ledger entries already recorded are kept even when sub omits them.
// A validation failure returns a *validation.RequestValidationError.
func (s *Store) Upsert(ctx context.Context, sub *models.Subscriber) error {
	next := sub.Clone()
	next.Normalize()

	if ve := validation.ValidateSubscriber(next, validation.SubscriberOptions{
		AllowVacuousFilters: s.opts.AllowVacuousFilters,
	}); ve != nil {
		return ve
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.subscribers[next.ID]
	if existed {
		for id, at := range prev.ReportedKillmails {
			if _, ok := next.ReportedKillmails[id]; !ok {
				next.ReportedKillmails[id] = at
			}
		}
	}

	s.subscribers[next.ID] = next
	if err := s.persistLocked(ctx); err != nil {
		if existed {
			s.subscribers[next.ID] = prev
		} else {
			delete(s.subscribers, next.ID)
		}
		return err
	}
	return nil
}

// Ensure returns the subscriber, creating and saving an empty one on first
// contact.
func (s *Store) Ensure(ctx context.Context, id int64) (*models.Subscriber, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sub, ok := s.subscribers[id]; ok {
		return sub.Clone(), nil
	}

	sub := models.NewSubscriber(id)
	s.subscribers[id] = sub
	if err := s.persistLocked(ctx); err != nil {
		delete(s.subscribers, id)
		return nil, err
	}
	logging.Info().Int64("subscriber_id", id).Msg("created subscriber")
	return sub.Clone(), nil
}

// Delete removes the subscriber and its ledger.
func (s *Store) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.subscribers[id]
	if !ok {
		return ErrSubscriberNotFound
	}

	delete(s.subscribers, id)
	if err := s.persistLocked(ctx); err != nil {
		s.subscribers[id] = prev
		return err
	}
	return nil
}

// MarkNotified records killmailID in the subscriber's ledger and saves it.
// It returns first=true only to the caller that added the entry; a killmail
// already present is a no-op returning false. When the save fails the entry
// is removed again and the error wraps ErrPersist.
func (s *Store) MarkNotified(ctx context.Context, subscriberID, killmailID int64, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subscribers[subscriberID]
	if !ok {
		return false, ErrSubscriberNotFound
	}
	if sub.HasReported(killmailID) {
		return false, nil
	}

	sub.ReportedKillmails[killmailID] = at.UTC()
	if err := s.persistLocked(ctx); err != nil {
		delete(sub.ReportedKillmails, killmailID)
		return false, err
	}
	return true, nil
}

// HasReported reports whether killmailID is in the subscriber's ledger.
func (s *Store) HasReported(subscriberID, killmailID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subscribers[subscriberID]
	return ok && sub.HasReported(killmailID)
}

// Pending returns copies of the subscribers that have not reported
// killmailID, in ID order. The copies carry an empty ledger.
func (s *Store) Pending(killmailID int64) []*models.Subscriber {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Subscriber, 0, len(s.subscribers))
	for _, sub := range s.subscribers {
		if sub.HasReported(killmailID) {
			continue
		}
		shallow := *sub
		shallow.ReportedKillmails = nil
		out = append(out, shallow.Clone())
	}
	sortByID(out)
	return out
}

// Close closes the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

func sortByID(subs []*models.Subscriber) {
	slices.SortFunc(subs, func(a, b *models.Subscriber) int {
		return cmp.Compare(a.ID, b.ID)
	})
}
