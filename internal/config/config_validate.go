// Kverna - EVE Online Killmail Intel Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kverna

package config

import (
	"fmt"
	"net/url"
	"strings"
)

var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

var validStoreBackends = map[string]bool{
	"badger": true,
	"sqlite": true,
	"file":   true,
}

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validateFeed(); err != nil {
		return err
	}
	if err := c.validateESI(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateDispatch(); err != nil {
		return err
	}
	if err := c.validateEngine(); err != nil {
		return err
	}
	if err := c.validateNotify(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateFeed() error {
	if c.Feed.URL == "" {
		return fmt.Errorf("FEED_URL is required")
	}
	if err := validateHTTPURL(c.Feed.URL, "FEED_URL"); err != nil {
		return fmt.Errorf("FEED_URL is invalid: %w", err)
	}
	if c.Feed.QueueID == "" {
		return fmt.Errorf("FEED_QUEUE_ID is required")
	}
	if c.Feed.RequestTimeout <= 0 {
		return fmt.Errorf("FEED_REQUEST_TIMEOUT must be positive")
	}
	if c.Feed.Backoff < 0 {
		return fmt.Errorf("FEED_BACKOFF must not be negative")
	}
	if c.Feed.SeenCapacity < 1 {
		return fmt.Errorf("FEED_SEEN_CAPACITY must be at least 1")
	}
	return nil
}

func (c *Config) validateESI() error {
	if err := validateHTTPURL(c.ESI.BaseURL, "ESI_BASE_URL"); err != nil {
		return fmt.Errorf("ESI_BASE_URL is invalid: %w", err)
	}
	if c.ESI.Timeout <= 0 {
		return fmt.Errorf("ESI_TIMEOUT must be positive")
	}
	if c.ESI.RateLimit <= 0 {
		return fmt.Errorf("ESI_RATE_LIMIT must be positive")
	}
	if c.ESI.Burst < 1 {
		return fmt.Errorf("ESI_BURST must be at least 1")
	}
	if c.ESI.CacheTTL < 0 {
		return fmt.Errorf("ESI_CACHE_TTL must not be negative")
	}
	return nil
}

func (c *Config) validateStore() error {
	if !validStoreBackends[c.Store.Backend] {
		return fmt.Errorf("STORE_BACKEND must be one of: badger, sqlite, file (got %q)", c.Store.Backend)
	}
	if strings.TrimSpace(c.Store.Path) == "" {
		return fmt.Errorf("STORE_PATH is required")
	}
	if c.Store.GCInterval < 0 {
		return fmt.Errorf("STORE_GC_INTERVAL must not be negative")
	}
	return nil
}

func (c *Config) validateDispatch() error {
	if c.Dispatch.MaxConcurrency < 1 {
		return fmt.Errorf("DISPATCH_MAX_CONCURRENCY must be at least 1")
	}
	if c.Dispatch.EvaluationTimeout <= 0 {
		return fmt.Errorf("DISPATCH_EVALUATION_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateEngine() error {
	if !strings.Contains(c.Engine.KillURLFormat, "%d") {
		return fmt.Errorf("ENGINE_KILL_URL_FORMAT must contain %%d for the killmail ID")
	}
	return nil
}

func (c *Config) validateNotify() error {
	d := c.Notify.Discord
	if d.Enabled {
		if d.BotToken == "" {
			return fmt.Errorf("DISCORD_BOT_TOKEN is required when DISCORD_ENABLED=true")
		}
		if err := validateHTTPURL(d.APIBase, "DISCORD_API_BASE"); err != nil {
			return fmt.Errorf("DISCORD_API_BASE is invalid: %w", err)
		}
	}

	w := c.Notify.Webhook
	if w.Enabled {
		if w.URL == "" {
			return fmt.Errorf("WEBHOOK_URL is required when WEBHOOK_ENABLED=true")
		}
		if err := validateHTTPURL(w.URL, "WEBHOOK_URL"); err != nil {
			return fmt.Errorf("WEBHOOK_URL is invalid: %w", err)
		}
		for _, h := range w.Headers {
			if !strings.Contains(h, ":") {
				return fmt.Errorf("WEBHOOK_HEADERS entry %q must be Name: value", h)
			}
		}
	}

	n := c.Notify.NATS
	if n.Enabled {
		if err := validateNATSURL(n.URL); err != nil {
			return fmt.Errorf("NATS_URL is invalid: %w", err)
		}
		if n.SubjectPrefix == "" || strings.ContainsAny(n.SubjectPrefix, " *>") {
			return fmt.Errorf("NATS_SUBJECT_PREFIX must be a literal subject, got %q", n.SubjectPrefix)
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.RateLimitReqs < 1 {
		return fmt.Errorf("HTTP_RATE_LIMIT_REQS must be at least 1")
	}
	if c.Server.RateLimitWindow <= 0 {
		return fmt.Errorf("HTTP_RATE_LIMIT_WINDOW must be positive")
	}
	return nil
}

// validateLogging validates logging configuration
func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}

// validateHTTPURL validates that a URL is properly formatted for HTTP/HTTPS services.
// Paths are allowed since feed and ESI endpoints carry them; query params are not.
func validateHTTPURL(rawURL, fieldName string) error {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%s failed to parse URL: %w", fieldName, err)
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("%s scheme must be http or https, got: %s", fieldName, parsedURL.Scheme)
	}

	if parsedURL.Host == "" {
		return fmt.Errorf("%s host is required", fieldName)
	}

	if parsedURL.RawQuery != "" {
		return fmt.Errorf("%s should not contain query parameters, remove: ?%s", fieldName, parsedURL.RawQuery)
	}

	return nil
}

// validateNATSURL validates that the NATS URL is properly formatted
// Supports: nats://, tls://, and ws:// schemes with IP addresses/hostnames and optional ports
func validateNATSURL(rawURL string) error {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("failed to parse URL: %w", err)
	}

	validSchemes := map[string]bool{"nats": true, "tls": true, "ws": true, "wss": true}
	if !validSchemes[parsedURL.Scheme] {
		return fmt.Errorf("scheme must be nats, tls, ws, or wss, got: %s", parsedURL.Scheme)
	}

	if parsedURL.Host == "" {
		return fmt.Errorf("host is required (e.g., localhost:4222, nats.example.com)")
	}

	return nil
}
