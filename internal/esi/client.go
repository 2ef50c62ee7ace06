// Kverna - EVE Online Killmail Intel Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kverna

package esi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/kverna/internal/config"
	"github.com/tomtom215/kverna/internal/metrics"
)

// ErrNotFound is returned when ESI answers 404 for an entity.
var ErrNotFound = errors.New("esi: not found")

// Ensure Client implements Enricher
var _ Enricher = (*Client)(nil)

// Client provides access to the public ESI endpoints Kverna needs.
type Client struct {
	baseURL    string
	datasource string
	language   string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates an ESI client from configuration.
func NewClient(cfg *config.ESIConfig) *Client {
	limit := rate.Limit(cfg.RateLimit)
	if cfg.RateLimit <= 0 {
		limit = rate.Inf
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		datasource: cfg.Datasource,
		language:   cfg.Language,
		userAgent:  cfg.UserAgent,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, burst),
	}
}

// SystemInfo returns position, security status and constellation of a solar system.
func (c *Client) SystemInfo(ctx context.Context, systemID int64) (*SystemInfo, error) {
	var info SystemInfo
	path := "/universe/systems/" + strconv.FormatInt(systemID, 10) + "/"
	if err := c.get(ctx, "systems", path, nil, &info); err != nil {
		return nil, fmt.Errorf("system %d: %w", systemID, err)
	}
	return &info, nil
}

// Constellation returns a constellation and the region it belongs to.
func (c *Client) Constellation(ctx context.Context, constellationID int64) (*Constellation, error) {
	var con Constellation
	path := "/universe/constellations/" + strconv.FormatInt(constellationID, 10) + "/"
	if err := c.get(ctx, "constellations", path, nil, &con); err != nil {
		return nil, fmt.Errorf("constellation %d: %w", constellationID, err)
	}
	return &con, nil
}

// Region returns a region and its constellations.
func (c *Client) Region(ctx context.Context, regionID int64) (*Region, error) {
	var region Region
	path := "/universe/regions/" + strconv.FormatInt(regionID, 10) + "/"
	if err := c.get(ctx, "regions", path, nil, &region); err != nil {
		return nil, fmt.Errorf("region %d: %w", regionID, err)
	}
	return &region, nil
}

// ResolveNames resolves IDs to names and categories.
func (c *Client) ResolveNames(ctx context.Context, ids []int64) ([]Name, error) {
	if len(ids) == 0 {
		return []Name{}, nil
	}
	var names []Name
	if err := c.post(ctx, "names", "/universe/names/", ids, &names); err != nil {
		return nil, fmt.Errorf("resolve names: %w", err)
	}
	return names, nil
}

// ResolveIDs resolves exact names to IDs grouped by category.
func (c *Client) ResolveIDs(ctx context.Context, names []string) (IDs, error) {
	if len(names) == 0 {
		return IDs{}, nil
	}
	var ids IDs
	if err := c.post(ctx, "ids", "/universe/ids/", names, &ids); err != nil {
		return nil, fmt.Errorf("resolve ids: %w", err)
	}
	if ids == nil {
		ids = IDs{}
	}
	return ids, nil
}

// Search returns IDs in category whose names contain text.
func (c *Client) Search(ctx context.Context, category, text string) ([]int64, error) {
	query := url.Values{}
	query.Set("categories", category)
	query.Set("search", text)

	var result map[string][]int64
	if err := c.get(ctx, "search", "/search/", query, &result); err != nil {
		return nil, fmt.Errorf("search %s %q: %w", category, text, err)
	}
	ids := result[category]
	if ids == nil {
		ids = []int64{}
	}
	return ids, nil
}

func (c *Client) get(ctx context.Context, label, path string, query url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path, query), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.doRequest(req, label, out)
}

func (c *Client) post(ctx context.Context, label, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path, nil), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doRequest(req, label, out)
}

// endpoint builds the full URL with the fixed datasource and language parameters.
func (c *Client) endpoint(path string, query url.Values) string {
	if query == nil {
		query = url.Values{}
	}
	if c.datasource != "" {
		query.Set("datasource", c.datasource)
	}
	if c.language != "" {
		query.Set("language", c.language)
	}
	return c.baseURL + path + "?" + query.Encode()
}

// doRequest waits on the limiter, performs the request and decodes a JSON body into out.
func (c *Client) doRequest(req *http.Request, label string, out interface{}) error {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordESIRequest(label, "error", time.Since(start))
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	metrics.RecordESIRequest(label, strconv.Itoa(resp.StatusCode), time.Since(start))

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("esi returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
