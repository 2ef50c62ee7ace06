// Kverna - EVE Online Killmail Intel Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kverna

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/kverna/config.yaml",
	"/etc/kverna/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Feed: FeedConfig{
			URL:            "https://zkillredisq.stream/listen.php",
			QueueID:        "kverna",
			RequestTimeout: 20 * time.Second,
			Backoff:        2 * time.Second,
			UserAgent:      "kverna",
			SeenCapacity:   10000,
			SeenTTL:        time.Hour,
		},
		ESI: ESIConfig{
			BaseURL:    "https://esi.evetech.net/latest",
			Datasource: "tranquility",
			Language:   "en-us",
			Timeout:    10 * time.Second,
			UserAgent:  "kverna",
			RateLimit:  20,
			Burst:      40,
			CacheTTL:   time.Minute,
		},
		Store: StoreConfig{
			Backend:    "badger",
			Path:       "/data/kverna",
			GCInterval: 5 * time.Minute,
		},
		Dispatch: DispatchConfig{
			MaxConcurrency:    64,
			EvaluationTimeout: 30 * time.Second,
		},
		Engine: EngineConfig{
			AllowVacuousFilters: false,
			KillURLFormat:       "https://zkillboard.com/kill/%d/",
		},
		Notify: NotifyConfig{
			Discord: DiscordConfig{
				Enabled:     false,
				APIBase:     "https://discord.com/api/v10",
				MinInterval: time.Second, // Discord allows ~5 messages per 5s per channel
				Mention:     "@everyone",
			},
			Webhook: WebhookConfig{
				Enabled:     false,
				MinInterval: 500 * time.Millisecond,
			},
			NATS: NATSConfig{
				Enabled:       false,
				URL:           "nats://127.0.0.1:4222",
				SubjectPrefix: "kverna.notify",
			},
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8086,
			ShutdownTimeout: 10 * time.Second,
			RateLimitReqs:   60,
			RateLimitWindow: time.Minute,
		},
		Supervisor: SupervisorConfig{
			FailureThreshold: 5,
			FailureBackoff:   15 * time.Second,
			ShutdownTimeout:  10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any mapped setting
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"notify.webhook.headers",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars come in as strings, but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
// Unmapped variables are ignored so unrelated environment cannot leak in.
var envMappings = map[string]string{
	"feed_url":             "feed.url",
	"feed_queue_id":        "feed.queue_id",
	"feed_request_timeout": "feed.request_timeout",
	"feed_backoff":         "feed.backoff",
	"feed_user_agent":      "feed.user_agent",
	"feed_seen_capacity":   "feed.seen_capacity",
	"feed_seen_ttl":        "feed.seen_ttl",

	"esi_base_url":   "esi.base_url",
	"esi_datasource": "esi.datasource",
	"esi_language":   "esi.language",
	"esi_timeout":    "esi.timeout",
	"esi_user_agent": "esi.user_agent",
	"esi_rate_limit": "esi.rate_limit",
	"esi_burst":      "esi.burst",
	"esi_cache_ttl":  "esi.cache_ttl",

	"store_backend":     "store.backend",
	"store_path":        "store.path",
	"store_gc_interval": "store.gc_interval",

	"dispatch_max_concurrency":    "dispatch.max_concurrency",
	"dispatch_evaluation_timeout": "dispatch.evaluation_timeout",

	"engine_allow_vacuous_filters": "engine.allow_vacuous_filters",
	"engine_kill_url_format":       "engine.kill_url_format",

	"discord_enabled":      "notify.discord.enabled",
	"discord_bot_token":    "notify.discord.bot_token",
	"discord_api_base":     "notify.discord.api_base",
	"discord_min_interval": "notify.discord.min_interval",
	"discord_mention":      "notify.discord.mention",

	"webhook_enabled":      "notify.webhook.enabled",
	"webhook_url":          "notify.webhook.url",
	"webhook_headers":      "notify.webhook.headers",
	"webhook_min_interval": "notify.webhook.min_interval",

	"nats_enabled":        "notify.nats.enabled",
	"nats_url":            "notify.nats.url",
	"nats_subject_prefix": "notify.nats.subject_prefix",

	"http_host":              "server.host",
	"http_port":              "server.port",
	"http_shutdown_timeout":  "server.shutdown_timeout",
	"http_rate_limit_reqs":   "server.rate_limit_reqs",
	"http_rate_limit_window": "server.rate_limit_window",

	"supervisor_failure_threshold": "supervisor.failure_threshold",
	"supervisor_failure_backoff":   "supervisor.failure_backoff",
	"supervisor_shutdown_timeout":  "supervisor.shutdown_timeout",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - FEED_BACKOFF -> feed.backoff
//   - DISCORD_BOT_TOKEN -> notify.discord.bot_token
//   - HTTP_PORT -> server.port
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
