// Kverna - EVE Online Killmail Intel Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kverna

package main

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/tomtom215/kverna/internal/api"
	"github.com/tomtom215/kverna/internal/config"
	"github.com/tomtom215/kverna/internal/notify"
)

type nopPublisher struct{}

func (nopPublisher) Publish(string, []byte) error { return nil }

func TestBuildNotifiers(t *testing.T) {
	natsOK := func(cfg *config.NATSConfig) (*notify.NATSNotifier, error) {
		return notify.NewNATSNotifierWithPublisher(nopPublisher{}, cfg.SubjectPrefix), nil
	}
	natsDown := func(*config.NATSConfig) (*notify.NATSNotifier, error) {
		return nil, errors.New("connection refused")
	}

	tests := []struct {
		name      string
		cfg       config.NotifyConfig
		connect   natsConnector
		wantNames []string
		wantErr   bool
	}{
		{
			name:      "none enabled",
			connect:   natsOK,
			wantNames: nil,
		},
		{
			name: "discord and nats",
			cfg: config.NotifyConfig{
				Discord: config.DiscordConfig{Enabled: true, BotToken: "t", APIBase: "http://127.0.0.1"},
				NATS:    config.NATSConfig{Enabled: true, URL: "nats://127.0.0.1:4222", SubjectPrefix: "kverna.notify"},
			},
			connect:   natsOK,
			wantNames: []string{"discord", "nats"},
		},
		{
			name:      "webhook only",
			cfg:       config.NotifyConfig{Webhook: config.WebhookConfig{Enabled: true, URL: "http://127.0.0.1/hook"}},
			connect:   natsDown,
			wantNames: []string{"webhook"},
		},
		{
			name:    "nats connect failure",
			cfg:     config.NotifyConfig{NATS: config.NATSConfig{Enabled: true, URL: "nats://127.0.0.1:1"}},
			connect: natsDown,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			multi, cleanup, err := buildNotifiers(&tt.cfg, tt.connect)
			defer cleanup()
			if (err != nil) != tt.wantErr {
				t.Fatalf("buildNotifiers() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got := multi.Names(); !reflect.DeepEqual(got, tt.wantNames) {
				t.Errorf("Names() = %v, want %v", got, tt.wantNames)
			}
			if multi.Enabled() != (len(tt.wantNames) > 0) {
				t.Errorf("Enabled() = %v", multi.Enabled())
			}
		})
	}
}

type stubPoller struct{ last time.Time }

func (s stubPoller) Stats() (int64, int64) { return 1, 0 }
func (s stubPoller) LastPoll() time.Time    { return s.last }

type stubHealth struct{ err error }

func (s stubHealth) Healthy(context.Context) error { return s.err }

func TestReadinessChecks(t *testing.T) {
	feedCfg := &config.FeedConfig{RequestTimeout: 10 * time.Second, Backoff: 2 * time.Second}
	esiDown := errors.New("open")

	checks := readinessChecks(feedCfg, stubPoller{last: time.Now()}, stubHealth{err: esiDown})
	if len(checks) != 2 {
		t.Fatalf("checks = %d, want 2", len(checks))
	}
	if err := checks["feed"](context.Background()); err != nil {
		t.Errorf("feed check = %v, want nil", err)
	}
	if err := checks["esi"](context.Background()); !errors.Is(err, esiDown) {
		t.Errorf("esi check = %v, want %v", err, esiDown)
	}

	stale := readinessChecks(feedCfg, stubPoller{last: time.Now().Add(-23 * time.Second)}, stubHealth{})
	if err := stale["feed"](context.Background()); err == nil {
		t.Error("feed check after 23s = nil, want stale error (limit 22s)")
	}

	never := readinessChecks(&config.FeedConfig{}, stubPoller{}, stubHealth{})
	if err := never["feed"](context.Background()); !errors.Is(err, api.ErrNoPollYet) {
		t.Errorf("feed check before first poll = %v, want ErrNoPollYet", err)
	}
}
