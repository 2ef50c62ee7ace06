// Kverna - EVE Online Killmail Intel Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kverna

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// isolateConfig points the loader at an empty directory so a config.yaml in
// the package directory or /etc cannot leak into the test.
func isolateConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv(ConfigPathEnvVar, filepath.Join(dir, "absent.yaml"))
	return dir
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Feed.RequestTimeout != 20*time.Second {
		t.Errorf("Feed.RequestTimeout = %v, want 20s", cfg.Feed.RequestTimeout)
	}
	if cfg.Feed.Backoff != 2*time.Second {
		t.Errorf("Feed.Backoff = %v, want 2s", cfg.Feed.Backoff)
	}
	if cfg.ESI.Datasource != "tranquility" {
		t.Errorf("ESI.Datasource = %q, want tranquility", cfg.ESI.Datasource)
	}
	if cfg.ESI.Language != "en-us" {
		t.Errorf("ESI.Language = %q, want en-us", cfg.ESI.Language)
	}
	if cfg.Store.Backend != "badger" {
		t.Errorf("Store.Backend = %q, want badger", cfg.Store.Backend)
	}
	if cfg.Engine.AllowVacuousFilters {
		t.Error("Engine.AllowVacuousFilters should be false by default")
	}
	if cfg.AnyNotifierEnabled() {
		t.Error("no notifier should be enabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaultConfig().Validate() = %v, want nil", err)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"FEED_URL", "feed.url"},
		{"FEED_BACKOFF", "feed.backoff"},
		{"ESI_RATE_LIMIT", "esi.rate_limit"},
		{"STORE_BACKEND", "store.backend"},
		{"STORE_GC_INTERVAL", "store.gc_interval"},
		{"DISPATCH_MAX_CONCURRENCY", "dispatch.max_concurrency"},
		{"ENGINE_ALLOW_VACUOUS_FILTERS", "engine.allow_vacuous_filters"},
		{"DISCORD_BOT_TOKEN", "notify.discord.bot_token"},
		{"WEBHOOK_HEADERS", "notify.webhook.headers"},
		{"NATS_SUBJECT_PREFIX", "notify.nats.subject_prefix"},
		{"HTTP_PORT", "server.port"},
		{"LOG_LEVEL", "logging.level"},
		{"log_level", "logging.level"},

		// Unmapped variables are dropped
		{"PATH", ""},
		{"HOME", ""},
		{"FEED_UNKNOWN", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := envTransformFunc(tt.input); got != tt.expected {
				t.Errorf("envTransformFunc(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestFindConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	t.Run("no config file exists", func(t *testing.T) {
		t.Setenv(ConfigPathEnvVar, "")
		if got := findConfigFile(); got != "" && !strings.HasPrefix(got, "/etc/") {
			t.Errorf("findConfigFile() = %q, want empty string", got)
		}
	})

	t.Run("config.yaml in working directory", func(t *testing.T) {
		t.Setenv(ConfigPathEnvVar, "")
		if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("{}"), 0o600); err != nil {
			t.Fatal(err)
		}
		defer os.Remove(filepath.Join(dir, "config.yaml"))

		if got := findConfigFile(); got != "config.yaml" {
			t.Errorf("findConfigFile() = %q, want config.yaml", got)
		}
	})

	t.Run("CONFIG_PATH takes priority", func(t *testing.T) {
		custom := filepath.Join(dir, "custom.yaml")
		if err := os.WriteFile(custom, []byte("{}"), 0o600); err != nil {
			t.Fatal(err)
		}
		t.Setenv(ConfigPathEnvVar, custom)

		if got := findConfigFile(); got != custom {
			t.Errorf("findConfigFile() = %q, want %q", got, custom)
		}
	})
}

func TestLoadWithKoanfEnvVars(t *testing.T) {
	isolateConfig(t)
	t.Setenv("FEED_QUEUE_ID", "intel-1")
	t.Setenv("FEED_BACKOFF", "5s")
	t.Setenv("STORE_BACKEND", "sqlite")
	t.Setenv("STORE_PATH", "/tmp/kverna.db")
	t.Setenv("DISPATCH_MAX_CONCURRENCY", "8")
	t.Setenv("WEBHOOK_ENABLED", "true")
	t.Setenv("WEBHOOK_URL", "https://hooks.example.com/intel")
	t.Setenv("WEBHOOK_HEADERS", "X-Token: abc, X-Env: prod")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Feed.QueueID != "intel-1" {
		t.Errorf("Feed.QueueID = %q, want intel-1", cfg.Feed.QueueID)
	}
	if cfg.Feed.Backoff != 5*time.Second {
		t.Errorf("Feed.Backoff = %v, want 5s", cfg.Feed.Backoff)
	}
	if cfg.Store.Backend != "sqlite" || cfg.Store.Path != "/tmp/kverna.db" {
		t.Errorf("Store = %+v, want sqlite at /tmp/kverna.db", cfg.Store)
	}
	if cfg.Dispatch.MaxConcurrency != 8 {
		t.Errorf("Dispatch.MaxConcurrency = %d, want 8", cfg.Dispatch.MaxConcurrency)
	}
	if !cfg.Notify.Webhook.Enabled {
		t.Error("Notify.Webhook.Enabled = false, want true")
	}
	wantHeaders := []string{"X-Token: abc", "X-Env: prod"}
	if len(cfg.Notify.Webhook.Headers) != len(wantHeaders) {
		t.Fatalf("Webhook.Headers = %v, want %v", cfg.Notify.Webhook.Headers, wantHeaders)
	}
	for i, h := range wantHeaders {
		if cfg.Notify.Webhook.Headers[i] != h {
			t.Errorf("Webhook.Headers[%d] = %q, want %q", i, cfg.Notify.Webhook.Headers[i], h)
		}
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}

	// Defaults still apply to untouched settings
	if cfg.ESI.BaseURL != "https://esi.evetech.net/latest" {
		t.Errorf("ESI.BaseURL = %q, want default", cfg.ESI.BaseURL)
	}
}

func TestLoadWithKoanfConfigFile(t *testing.T) {
	dir := isolateConfig(t)

	configContent := `
feed:
  queue_id: "from-file"
  backoff: 3s
engine:
  allow_vacuous_filters: true
notify:
  nats:
    enabled: true
    url: "nats://nats.local:4222"
    subject_prefix: "intel"
server:
  port: 9100
`
	configPath := filepath.Join(dir, "kverna.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0o600); err != nil {
		t.Fatalf("Failed to create config file: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, configPath)

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Feed.QueueID != "from-file" {
		t.Errorf("Feed.QueueID = %q, want from-file", cfg.Feed.QueueID)
	}
	if cfg.Feed.Backoff != 3*time.Second {
		t.Errorf("Feed.Backoff = %v, want 3s", cfg.Feed.Backoff)
	}
	if !cfg.Engine.AllowVacuousFilters {
		t.Error("Engine.AllowVacuousFilters = false, want true")
	}
	if !cfg.Notify.NATS.Enabled || cfg.Notify.NATS.SubjectPrefix != "intel" {
		t.Errorf("Notify.NATS = %+v", cfg.Notify.NATS)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("Server.Port = %d, want 9100", cfg.Server.Port)
	}
}

func TestLoadWithKoanfEnvOverridesFile(t *testing.T) {
	dir := isolateConfig(t)

	configPath := filepath.Join(dir, "kverna.yaml")
	if err := os.WriteFile(configPath, []byte("feed:\n  queue_id: from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, configPath)
	t.Setenv("FEED_QUEUE_ID", "from-env")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}
	if cfg.Feed.QueueID != "from-env" {
		t.Errorf("Feed.QueueID = %q, want from-env", cfg.Feed.QueueID)
	}
}

func TestLoadWithKoanfValidation(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		errMsg  string
	}{
		{
			name:    "defaults are valid",
			envVars: map[string]string{},
		},
		{
			name:    "unknown store backend",
			envVars: map[string]string{"STORE_BACKEND": "postgres"},
			errMsg:  "STORE_BACKEND must be one of",
		},
		{
			name:    "zero concurrency",
			envVars: map[string]string{"DISPATCH_MAX_CONCURRENCY": "0"},
			errMsg:  "DISPATCH_MAX_CONCURRENCY",
		},
		{
			name:    "discord without token",
			envVars: map[string]string{"DISCORD_ENABLED": "true"},
			errMsg:  "DISCORD_BOT_TOKEN is required",
		},
		{
			name:    "webhook without url",
			envVars: map[string]string{"WEBHOOK_ENABLED": "true"},
			errMsg:  "WEBHOOK_URL is required",
		},
		{
			name:    "webhook header without colon",
			envVars: map[string]string{"WEBHOOK_ENABLED": "true", "WEBHOOK_URL": "https://h.example.com", "WEBHOOK_HEADERS": "broken"},
			errMsg:  "WEBHOOK_HEADERS",
		},
		{
			name:    "nats with http url",
			envVars: map[string]string{"NATS_ENABLED": "true", "NATS_URL": "http://nats.local"},
			errMsg:  "NATS_URL is invalid",
		},
		{
			name:    "kill url without placeholder",
			envVars: map[string]string{"ENGINE_KILL_URL_FORMAT": "https://zkillboard.com/kill/"},
			errMsg:  "ENGINE_KILL_URL_FORMAT",
		},
		{
			name:    "feed url with query",
			envVars: map[string]string{"FEED_URL": "https://zkillredisq.stream/listen.php?queueID=x"},
			errMsg:  "query parameters",
		},
		{
			name:    "bad log level",
			envVars: map[string]string{"LOG_LEVEL": "verbose"},
			errMsg:  "LOG_LEVEL",
		},
		{
			name:    "discord with token",
			envVars: map[string]string{"DISCORD_ENABLED": "true", "DISCORD_BOT_TOKEN": "token"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateConfig(t)
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			_, err := LoadWithKoanf()

			if tt.errMsg == "" {
				if err != nil {
					t.Errorf("LoadWithKoanf() unexpected error = %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("LoadWithKoanf() expected error containing %q, got nil", tt.errMsg)
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("LoadWithKoanf() error = %v, want substring %q", err, tt.errMsg)
			}
		})
	}
}

func TestServerAddr(t *testing.T) {
	s := ServerConfig{Host: "127.0.0.1", Port: 8086}
	if got := s.Addr(); got != "127.0.0.1:8086" {
		t.Errorf("Addr() = %q, want 127.0.0.1:8086", got)
	}
}
