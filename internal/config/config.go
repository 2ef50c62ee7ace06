// Kverna - EVE Online Killmail Intel Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kverna

package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Feed       FeedConfig       `koanf:"feed"`
	ESI        ESIConfig        `koanf:"esi"`
	Store      StoreConfig      `koanf:"store"`
	Dispatch   DispatchConfig   `koanf:"dispatch"`
	Engine     EngineConfig     `koanf:"engine"`
	Notify     NotifyConfig     `koanf:"notify"`
	Server     ServerConfig     `koanf:"server"`
	Supervisor SupervisorConfig `koanf:"supervisor"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// FeedConfig configures the RedisQ killmail feed.
type FeedConfig struct {
	URL            string        `koanf:"url"`
	QueueID        string        `koanf:"queue_id"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
	Backoff        time.Duration `koanf:"backoff"`
	UserAgent      string        `koanf:"user_agent"`

	// SeenCapacity and SeenTTL size the in-memory filter that drops a
	// killmail the feed delivers twice in quick succession.
	SeenCapacity int           `koanf:"seen_capacity"`
	SeenTTL      time.Duration `koanf:"seen_ttl"`
}

// ESIConfig configures the EVE Swagger Interface enrichment client.
type ESIConfig struct {
	BaseURL    string        `koanf:"base_url"`
	Datasource string        `koanf:"datasource"`
	Language   string        `koanf:"language"`
	Timeout    time.Duration `koanf:"timeout"`
	UserAgent  string        `koanf:"user_agent"`

	// RateLimit is requests per second; Burst is the limiter bucket size.
	RateLimit float64 `koanf:"rate_limit"`
	Burst     int     `koanf:"burst"`

	// CacheTTL bounds how long a system or constellation lookup is reused.
	CacheTTL time.Duration `koanf:"cache_ttl"`
}

// StoreConfig selects the durable subscriber backend.
type StoreConfig struct {
	// Backend is badger, sqlite or file.
	Backend string `koanf:"backend"`

	// Path is a directory for badger and a file path for sqlite and file.
	Path string `koanf:"path"`

	// GCInterval is how often badger rewrites its value log. Zero disables
	// the loop.
	GCInterval time.Duration `koanf:"gc_interval"`
}

// DispatchConfig bounds the per-killmail fan-out.
type DispatchConfig struct {
	MaxConcurrency    int           `koanf:"max_concurrency"`
	EvaluationTimeout time.Duration `koanf:"evaluation_timeout"`
}

// EngineConfig tunes filter evaluation.
type EngineConfig struct {
	// AllowVacuousFilters lets a filter with no predicates match every killmail.
	AllowVacuousFilters bool `koanf:"allow_vacuous_filters"`

	// KillURLFormat renders the public URL of a killmail from its ID.
	KillURLFormat string `koanf:"kill_url_format"`
}

// NotifyConfig holds every notifier's settings.
type NotifyConfig struct {
	Discord DiscordConfig `koanf:"discord"`
	Webhook WebhookConfig `koanf:"webhook"`
	NATS    NATSConfig    `koanf:"nats"`
}

// DiscordConfig configures delivery through the Discord bot REST API.
type DiscordConfig struct {
	Enabled     bool          `koanf:"enabled"`
	BotToken    string        `koanf:"bot_token"`
	APIBase     string        `koanf:"api_base"`
	MinInterval time.Duration `koanf:"min_interval"`
	Mention     string        `koanf:"mention"`
}

// WebhookConfig configures delivery to a generic JSON webhook.
type WebhookConfig struct {
	Enabled     bool          `koanf:"enabled"`
	URL         string        `koanf:"url"`
	Headers     []string      `koanf:"headers"`
	MinInterval time.Duration `koanf:"min_interval"`
}

// NATSConfig configures publishing matched killmails to NATS.
type NATSConfig struct {
	Enabled       bool   `koanf:"enabled"`
	URL           string `koanf:"url"`
	SubjectPrefix string `koanf:"subject_prefix"`
}

// ServerConfig configures the operations HTTP server.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// Addr returns host:port for http.Server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SupervisorConfig tunes the suture supervisor tree.
type SupervisorConfig struct {
	FailureThreshold float64       `koanf:"failure_threshold"`
	FailureBackoff   time.Duration `koanf:"failure_backoff"`
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig configures zerolog output.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is json or console.
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	Caller bool `koanf:"caller"`
}

// AnyNotifierEnabled reports whether at least one notifier will deliver.
func (c *Config) AnyNotifierEnabled() bool {
	return c.Notify.Discord.Enabled || c.Notify.Webhook.Enabled || c.Notify.NATS.Enabled
}

// Load loads configuration from defaults, an optional file and the environment.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
