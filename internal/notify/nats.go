// Kverna - EVE Online Killmail Intel Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kverna

package notify

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"

	"github.com/tomtom215/kverna/internal/config"
)

// Publisher is the part of *nats.Conn the notifier uses.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSNotifier publishes each match to <prefix>.<subscriber id>.
type NATSNotifier struct {
	pub    Publisher
	conn   *nats.Conn
	prefix string
}

// NewNATSNotifier connects to the configured server. The connection retries
// in the background if the server is not up yet.
func NewNATSNotifier(cfg *config.NATSConfig) (*NATSNotifier, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.Name("kverna"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	n := NewNATSNotifierWithPublisher(nc, cfg.SubjectPrefix)
	n.conn = nc
	return n, nil
}

// NewNATSNotifierWithPublisher wraps an existing publisher.
func NewNATSNotifierWithPublisher(pub Publisher, prefix string) *NATSNotifier {
	return &NATSNotifier{pub: pub, prefix: prefix}
}

// Name returns the notifier name.
func (n *NATSNotifier) Name() string {
	return "nats"
}

// Enabled returns whether this notifier is enabled.
func (n *NATSNotifier) Enabled() bool {
	return n.pub != nil
}

// Subject returns the subject a subscriber's matches are published on.
func (n *NATSNotifier) Subject(subscriberID int64) string {
	return n.prefix + "." + strconv.FormatInt(subscriberID, 10)
}

// Send publishes the message as JSON.
func (n *NATSNotifier) Send(ctx context.Context, msg *Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal NATS payload: %w", err)
	}
	if err := n.pub.Publish(n.Subject(msg.SubscriberID), data); err != nil {
		return fmt.Errorf("publish to NATS: %w", err)
	}
	return nil
}

// Close drains the connection when the notifier owns it.
func (n *NATSNotifier) Close() error {
	if n.conn == nil {
		return nil
	}
	return n.conn.Drain()
}
