// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package phoenix provides a client for the Arize Phoenix REST API.
package phoenix

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tombee/postgen/pkg/httpclient"
)

// DefaultBaseURL is the address of a Phoenix server started with `phoenix serve`.
const DefaultBaseURL = "http://localhost:6006"

// spanAnnotationsPath is the span annotation endpoint.
const spanAnnotationsPath = "/v1/span_annotations"

// healthPath answers 200 while the server is up.
const healthPath = "/healthz"

// Client is a Phoenix REST API client.
type Client struct {
	baseURL    string
	apiKey     string
	sync       bool
	httpClient *http.Client
}

// Config contains configuration for the Phoenix client.
type Config struct {
	// BaseURL is the Phoenix server address (default: http://localhost:6006).
	BaseURL string

	// APIKey is sent as a bearer token. Required by Phoenix Cloud, ignored
	// by a local server.
	APIKey string

	// Sync asks Phoenix to commit annotations before responding. When false
	// the request is acknowledged before the write.
	Sync bool

	// Timeout bounds each request (default: 30s). Ignored when HTTPClient is set.
	Timeout time.Duration

	// Logger receives request logs. Ignored when HTTPClient is set.
	Logger *slog.Logger

	// HTTPClient is an optional custom HTTP client.
	HTTPClient *http.Client
}

// New creates a new Phoenix client.
func New(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpCfg := httpclient.DefaultConfig()
		httpCfg.UserAgent = "postgen-phoenix-client/1.0"
		httpCfg.Logger = cfg.Logger
		if cfg.Timeout > 0 {
			httpCfg.Timeout = cfg.Timeout
		}

		client, err := httpclient.New(httpCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create HTTP client: %w", err)
		}
		httpClient = client
	}

	// Success is a 200 from the endpoint itself, so redirects are returned
	// as the final response.
	noRedirect := *httpClient
	noRedirect.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	return &Client{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		sync:       cfg.Sync,
		httpClient: &noRedirect,
	}, nil
}

// BaseURL returns the server address requests are sent to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// PostSpanAnnotations sends annotations in a single request. Anything but
// HTTP 200 is returned as a *StatusError. The request is not retried.
func (c *Client) PostSpanAnnotations(ctx context.Context, annotations []SpanAnnotation) error {
	if len(annotations) == 0 {
		return fmt.Errorf("no annotations to send")
	}

	data := make([]SpanAnnotation, len(annotations))
	for i, a := range annotations {
		if a.Metadata == nil {
			a.Metadata = map[string]any{}
		}
		data[i] = a
	}

	body, err := json.Marshal(SpanAnnotationsRequest{Data: data})
	if err != nil {
		return fmt.Errorf("failed to encode annotations: %w", err)
	}

	url := fmt.Sprintf("%s%s?sync=%t", c.baseURL, spanAnnotationsPath, c.sync)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post span annotations: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Ping checks that the server is up by requesting its health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach Phoenix: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode != http.StatusOK {
		return &StatusError{StatusCode: resp.StatusCode}
	}
	return nil
}
