// Kverna - EVE Online Killmail Intel Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kverna

package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tomtom215/kverna/internal/config"
	"github.com/tomtom215/kverna/internal/decode"
	"github.com/tomtom215/kverna/internal/models"
)

// ErrNoPackage means the queue had nothing to deliver this poll.
var ErrNoPackage = errors.New("no killmail available")

// maxBodySize caps a feed or killmail response.
const maxBodySize = 4 << 20

// serverWait is the ttw parameter: how long RedisQ holds the request open.
const serverWait = 10

// Client polls RedisQ and fetches killmail bodies.
type Client struct {
	url        string
	queueID    string
	userAgent  string
	httpClient *http.Client
}

// NewClient creates a feed client. cfg.RequestTimeout bounds each request.
func NewClient(cfg *config.FeedConfig) *Client {
	return &Client{
		url:        cfg.URL,
		queueID:    cfg.QueueID,
		userAgent:  cfg.UserAgent,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
	}
}

// envelope is the RedisQ response. Package is null when the queue is empty.
type envelope struct {
	Package *struct {
		KillID int64      `json:"killID"`
		Zkb    models.Zkb `json:"zkb"`
	} `json:"package"`
}

// Poll waits for the next killmail. It returns ErrNoPackage when the queue
// is empty and an error wrapping decode.ErrDecode when either payload is
// malformed.
func (c *Client) Poll(ctx context.Context) (*models.Kill, error) {
	body, err := c.get(ctx, c.pollURL())
	if err != nil {
		return nil, err
	}

	var env envelope
	if err := decode.Decode(body, &env); err != nil {
		return nil, fmt.Errorf("feed envelope: %w", err)
	}
	if env.Package == nil {
		return nil, ErrNoPackage
	}

	zkb := env.Package.Zkb
	if zkb.Href == "" {
		return nil, fmt.Errorf("feed envelope: %w", &decode.FieldError{
			Path: "package.zkb.href", Value: nil, Reason: "missing killmail locator",
		})
	}

	body, err = c.get(ctx, zkb.Href)
	if err != nil {
		return nil, fmt.Errorf("fetch killmail %d: %w", env.Package.KillID, err)
	}

	kill := &models.Kill{Zkb: zkb}
	if err := decode.Decode(body, &kill.Killmail); err != nil {
		return nil, fmt.Errorf("killmail %d: %w", env.Package.KillID, err)
	}
	if kill.Killmail.KillmailID == 0 {
		kill.Killmail.KillmailID = env.Package.KillID
	}
	return kill, nil
}

func (c *Client) pollURL() string {
	q := url.Values{}
	if c.queueID != "" {
		q.Set("queueID", c.queueID)
	}
	q.Set("ttw", fmt.Sprint(serverWait))

	sep := "?"
	if strings.Contains(c.url, "?") {
		sep = "&"
	}
	return c.url + sep + q.Encode()
}

func (c *Client) get(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%s returned status %d", req.URL.Host, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}
