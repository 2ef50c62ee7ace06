// Kverna - EVE Online Killmail Intel Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kverna

/*
Package config loads Kverna's runtime configuration.

Configuration is layered with Koanf v2 (highest priority wins):

 1. Environment variables (explicit mapping table, see envTransformFunc)
 2. Optional YAML file (config.yaml, /etc/kverna/config.yaml, or CONFIG_PATH)
 3. Built-in defaults (defaultConfig)

Sections:

Feed (FeedConfig):
  - FEED_URL: RedisQ listen endpoint (default: https://zkillredisq.stream/listen.php)
  - FEED_QUEUE_ID: queue identifier sent as queueID (default: kverna)
  - FEED_REQUEST_TIMEOUT: per-poll timeout (default: 20s)
  - FEED_BACKOFF: sleep after an empty or failed poll (default: 2s)

ESI (ESIConfig):
  - ESI_BASE_URL: ESI root (default: https://esi.evetech.net/latest)
  - ESI_RATE_LIMIT / ESI_BURST: client-side request limiter
  - ESI_CACHE_TTL: lifetime of cached system and constellation lookups

Store (StoreConfig):
  - STORE_BACKEND: badger, sqlite or file (default: badger)
  - STORE_PATH: directory (badger) or file path (sqlite, file)
  - STORE_GC_INTERVAL: badger value log GC period, 0 disables (default: 5m)

Notifiers (NotifyConfig):
  - DISCORD_ENABLED, DISCORD_BOT_TOKEN, DISCORD_API_BASE
  - WEBHOOK_ENABLED, WEBHOOK_URL, WEBHOOK_HEADERS (comma-separated "Name: value")
  - NATS_ENABLED, NATS_URL, NATS_SUBJECT_PREFIX

Usage:

	cfg, err := config.Load()
	if err != nil {
	    logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
*/
package config
