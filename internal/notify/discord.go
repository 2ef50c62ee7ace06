// Kverna - EVE Online Killmail Intel Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kverna

package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/kverna/internal/config"
)

// DiscordNotifier posts messages to subscriber channels through the Discord
// bot REST API.
type DiscordNotifier struct {
	apiBase  string
	token    string
	mention  string
	enabled  bool
	client   *http.Client
	interval time.Duration

	// Discord limits message creation per channel, plus a global cap per bot.
	global     *rate.Limiter
	channelsMu sync.Mutex
	channels   map[int64]*rate.Limiter
}

const (
	// discordChannelBurst matches Discord's 5 messages per 5s per channel.
	discordChannelBurst = 5
	discordGlobalRate   = 50
	// pruneChannelsAt is the limiter count above which idle ones are dropped.
	pruneChannelsAt = 1024
)

// NewDiscordNotifier creates a Discord notifier from configuration.
func NewDiscordNotifier(cfg *config.DiscordConfig) *DiscordNotifier {
	interval := cfg.MinInterval
	if interval <= 0 {
		interval = time.Second
	}

	return &DiscordNotifier{
		apiBase: strings.TrimRight(cfg.APIBase, "/"),
		token:   cfg.BotToken,
		mention: cfg.Mention,
		enabled: cfg.Enabled,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		interval: interval,
		global:   rate.NewLimiter(discordGlobalRate, discordGlobalRate),
		channels: make(map[int64]*rate.Limiter),
	}
}

// channelLimiter returns the limiter for channelID, creating it on first use.
func (n *DiscordNotifier) channelLimiter(channelID int64) *rate.Limiter {
	n.channelsMu.Lock()
	defer n.channelsMu.Unlock()

	if l, ok := n.channels[channelID]; ok {
		return l
	}
	if len(n.channels) >= pruneChannelsAt {
		for id, l := range n.channels {
			if l.Tokens() >= discordChannelBurst {
				delete(n.channels, id)
			}
		}
	}
	l := rate.NewLimiter(rate.Every(n.interval), discordChannelBurst)
	n.channels[channelID] = l
	return l
}

// Name returns the notifier name.
func (n *DiscordNotifier) Name() string {
	return "discord"
}

// Enabled returns whether this notifier is enabled.
func (n *DiscordNotifier) Enabled() bool {
	return n.enabled && n.token != "" && n.apiBase != ""
}

// Send posts the message to the subscriber's channel.
func (n *DiscordNotifier) Send(ctx context.Context, msg *Message) error {
	if !n.Enabled() {
		return nil
	}
	if msg.ChannelID == 0 {
		return fmt.Errorf("subscriber %d has no notification channel", msg.SubscriberID)
	}

	if err := waitTurn(ctx, n.channelLimiter(msg.ChannelID)); err != nil {
		return fmt.Errorf("channel %d: %w", msg.ChannelID, err)
	}
	if err := waitTurn(ctx, n.global); err != nil {
		return err
	}

	payload := discordMessage{Content: msg.Text(n.mention)}
	if msg.Ping {
		payload.AllowedMentions = &discordAllowedMentions{Parse: []string{"everyone", "roles"}}
	} else {
		payload.AllowedMentions = &discordAllowedMentions{Parse: []string{}}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal Discord payload: %w", err)
	}

	url := n.apiBase + "/channels/" + strconv.FormatInt(msg.ChannelID, 10) + "/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create Discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bot "+n.token)

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send Discord message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("discord returned status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}
	return nil
}

type discordMessage struct {
	Content         string                  `json:"content"`
	AllowedMentions *discordAllowedMentions `json:"allowed_mentions,omitempty"`
}

type discordAllowedMentions struct {
	Parse []string `json:"parse"`
}
