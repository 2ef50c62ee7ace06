// Kverna - EVE Online Killmail Intel Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kverna

package notify

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/kverna/internal/config"
)

// WebhookNotifier posts matches as JSON to a generic endpoint.
type WebhookNotifier struct {
	url     string
	headers map[string]string
	enabled bool
	client  *http.Client
	limiter *rate.Limiter
}

// WebhookPayload is the JSON body sent to the webhook endpoint.
type WebhookPayload struct {
	EventType string    `json:"event_type"` // killmail_match
	Source    string    `json:"source"`     // kverna
	Timestamp time.Time `json:"timestamp"`
	Text      string    `json:"text"`
	Match     *Message  `json:"match"`
}

// NewWebhookNotifier creates a webhook notifier. Headers are "Name: value"
// strings; malformed entries are ignored (config validation rejects them).
func NewWebhookNotifier(cfg *config.WebhookConfig) *WebhookNotifier {
	interval := cfg.MinInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}

	headers := make(map[string]string, len(cfg.Headers))
	for _, h := range cfg.Headers {
		name, value, ok := strings.Cut(h, ":")
		if !ok {
			continue
		}
		headers[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}

	return &WebhookNotifier{
		url:     cfg.URL,
		headers: headers,
		enabled: cfg.Enabled,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Every(interval), 1),
	}
}

// Name returns the notifier name.
func (n *WebhookNotifier) Name() string {
	return "webhook"
}

// Enabled returns whether this notifier is enabled.
func (n *WebhookNotifier) Enabled() bool {
	return n.enabled && n.url != ""
}

// Send delivers the match to the webhook.
func (n *WebhookNotifier) Send(ctx context.Context, msg *Message) error {
	if !n.Enabled() {
		return nil
	}
	if err := waitTurn(ctx, n.limiter); err != nil {
		return err
	}

	body, err := json.Marshal(WebhookPayload{
		EventType: "killmail_match",
		Source:    "kverna",
		Timestamp: time.Now().UTC(),
		Text:      msg.Text(""),
		Match:     msg,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "kverna")
	for k, v := range n.headers {
		req.Header.Set(k, v)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
