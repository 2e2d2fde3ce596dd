// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

// Package client implements a client for the janus-exporter HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/mattermost/janus-exporter/service/ws"
)

const (
	httpRequestTimeout           = 10 * time.Second
	httpResponseBodyMaxSizeBytes = 1024 * 1024 // 1MB

	eventsPath    = "/event"
	statsPath     = "/stats"
	anomaliesPath = "/anomalies"
	wsPath        = "/ws"
)

var ErrUnauthorized = errors.New("unauthorized")

type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Result is the outcome of posting a batch of events.
type Result struct {
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
}

// Stats holds the live entity counts reported by the exporter.
type Stats struct {
	Sessions        float64 `json:"sessions"`
	Rooms           float64 `json:"rooms"`
	Users           float64 `json:"users"`
	Publishers      float64 `json:"publishers"`
	Subscribers     float64 `json:"subscribers"`
	PeerConnections float64 `json:"peerconnections"`
	WebSockets      float64 `json:"websockets"`
}

// Anomaly is a journaled event the exporter could not apply.
type Anomaly struct {
	ID     string          `json:"id"`
	Time   time.Time       `json:"time"`
	Kind   string          `json:"kind"`
	Reason string          `json:"reason"`
	Key    string          `json:"key,omitempty"`
	Raw    json.RawMessage `json:"raw,omitempty"`
}

type Option func(c *Client) error

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) error {
		if httpClient == nil {
			return fmt.Errorf("invalid nil http client")
		}
		c.httpClient = httpClient
		return nil
	}
}

func New(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Parse(); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	c := &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: httpRequestTimeout,
		},
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	return c, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.URL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.Username != "" {
		req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, httpResponseBodyMaxSizeBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, ErrUnauthorized
	case resp.StatusCode != http.StatusOK:
		var respErr struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(data, &respErr); err == nil && respErr.Error != "" {
			return nil, fmt.Errorf("request failed with status %d: %s", resp.StatusCode, respErr.Error)
		}
		return nil, fmt.Errorf("request failed with status %d", resp.StatusCode)
	}

	return data, nil
}

// SendEvents posts a batch of events. The batch is either pre-encoded JSON
// or any value that encodes to an event object or an array of them.
func (c *Client) SendEvents(ctx context.Context, batch any) (Result, error) {
	var res Result

	var body []byte
	switch b := batch.(type) {
	case []byte:
		body = b
	case json.RawMessage:
		body = b
	default:
		var err error
		body, err = json.Marshal(batch)
		if err != nil {
			return res, fmt.Errorf("failed to encode batch: %w", err)
		}
	}

	data, err := c.doRequest(ctx, http.MethodPost, eventsPath, body)
	if err != nil {
		return res, err
	}

	if err := json.Unmarshal(data, &res); err != nil {
		return res, fmt.Errorf("failed to decode response: %w", err)
	}

	return res, nil
}

func (c *Client) GetStats(ctx context.Context) (Stats, error) {
	var stats Stats

	data, err := c.doRequest(ctx, http.MethodGet, statsPath, nil)
	if err != nil {
		return stats, err
	}

	if err := json.Unmarshal(data, &stats); err != nil {
		return stats, fmt.Errorf("failed to decode response: %w", err)
	}

	return stats, nil
}

// GetAnomalies returns the latest journaled anomalies, newest first. A
// non positive limit leaves it to the server default.
func (c *Client) GetAnomalies(ctx context.Context, limit int) ([]Anomaly, error) {
	path := anomaliesPath
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}

	data, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var anomalies []Anomaly
	if err := json.Unmarshal(data, &anomalies); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return anomalies, nil
}

// Stream opens a WebSocket connection through which event batches can be
// sent as text messages.
func (c *Client) Stream() (*ws.Client, error) {
	return ws.NewClient(ws.ClientConfig{
		URL:      c.cfg.wsURL,
		Username: c.cfg.Username,
		Password: c.cfg.Password,
	})
}
