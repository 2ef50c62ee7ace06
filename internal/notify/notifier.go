// Kverna - EVE Online Killmail Intel Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kverna

package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/kverna/internal/metrics"
)

// ErrRateLimited means a message could not get a send slot before its
// deadline. It is dropped rather than sent late.
var ErrRateLimited = errors.New("rate limit queue full")

// waitTurn waits for a slot on l, failing fast with ErrRateLimited when the
// slot would only open after ctx's deadline.
func waitTurn(ctx context.Context, l *rate.Limiter) error {
	r := l.Reserve()
	if !r.OK() {
		return ErrRateLimited
	}
	delay := r.Delay()
	if delay == 0 {
		return nil
	}
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < delay {
		r.Cancel()
		return fmt.Errorf("%w: next slot in %s", ErrRateLimited, delay.Round(time.Millisecond))
	}

	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	}
}

// Notifier delivers messages to one kind of sink.
type Notifier interface {
	// Send delivers a message.
	Send(ctx context.Context, msg *Message) error

	// Name returns the notifier name (e.g., "discord", "webhook").
	Name() string

	// Enabled returns whether this notifier is enabled.
	Enabled() bool
}

// Message is one matched killmail for one subscriber.
type Message struct {
	SubscriberID int64     `json:"subscriber_id"`
	ChannelID    int64     `json:"channel_id"`
	KillmailID   int64     `json:"killmail_id"`
	URL          string    `json:"url"`
	FilterName   string    `json:"filter"`
	Ping         bool      `json:"ping"`
	TotalValue   *float64  `json:"total_value,omitempty"`
	MatchedAt    time.Time `json:"matched_at"`
}

// Text renders the chat line: "[filter] url", prefixed with mention when the
// filter asked for a ping.
func (m *Message) Text(mention string) string {
	line := m.URL
	if m.FilterName != "" {
		line = "[" + m.FilterName + "] " + line
	}
	if m.Ping && mention != "" {
		return mention + " " + line
	}
	return line
}

// Multi sends every message to each enabled notifier.
type Multi struct {
	notifiers []Notifier
}

// NewMulti returns a notifier over ns. Disabled notifiers are skipped at
// send time.
func NewMulti(ns ...Notifier) *Multi {
	return &Multi{notifiers: ns}
}

// Name returns "multi".
func (m *Multi) Name() string {
	return "multi"
}

// Enabled reports whether any notifier is enabled.
func (m *Multi) Enabled() bool {
	for _, n := range m.notifiers {
		if n.Enabled() {
			return true
		}
	}
	return false
}

// Names lists the enabled notifiers.
func (m *Multi) Names() []string {
	var names []string
	for _, n := range m.notifiers {
		if n.Enabled() {
			names = append(names, n.Name())
		}
	}
	return names
}

// Send delivers msg to each enabled notifier in turn and joins their errors.
func (m *Multi) Send(ctx context.Context, msg *Message) error {
	var errs []error
	for _, n := range m.notifiers {
		if !n.Enabled() {
			continue
		}
		err := n.Send(ctx, msg)
		if errors.Is(err, ErrRateLimited) {
			metrics.RecordNotificationDropped(n.Name())
		} else {
			metrics.RecordNotification(n.Name(), err)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}
	}
	return errors.Join(errs...)
}
