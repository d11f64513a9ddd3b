// Copyright 2025 Poiesic Systems
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

package providers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/poiesic/findorigin/core"
	"github.com/poiesic/findorigin/search"
)

const (
	// DefaultTimeout bounds a single provider request.
	DefaultTimeout = 20 * time.Second

	userAgent       = "FindOrigin-Bot/1.0"
	maxResponseBody = 4 << 20
	maxDescription  = 300
)

// Option configures a provider adapter.
type Option func(*client)

// WithBaseURL overrides the provider endpoint.
func WithBaseURL(endpoint string) Option {
	return func(c *client) {
		if endpoint != "" {
			c.endpoint = endpoint
		}
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout bounds each request. Non-positive values keep DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// client holds the HTTP plumbing shared by every adapter.
type client struct {
	name     string
	endpoint string
	http     *http.Client
	timeout  time.Duration
	logger   *slog.Logger
}

func newClient(name, endpoint string, opts []Option) client {
	c := client{
		name:     name,
		endpoint: endpoint,
		http:     http.DefaultClient,
		timeout:  DefaultTimeout,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(&c)
	}
	c.logger = c.logger.With("component", "search", "provider", name)
	return c
}

// get performs a GET request bounded by the client timeout and returns the
// body of a 2xx response. Failures are reported as search errors.
func (c *client) get(ctx context.Context, params url.Values, header http.Header) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	target := c.endpoint
	if len(params) > 0 {
		target += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &search.ProviderError{Provider: c.name, Description: "build request", Err: err}
	}
	req.Header.Set("User-Agent", userAgent)
	for k, values := range header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.transportError(ctx, "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, c.transportError(ctx, "read response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &search.ProviderError{
			Provider:    c.name,
			StatusCode:  resp.StatusCode,
			Description: describeFailure(body),
		}
	}
	return body, nil
}

func (c *client) transportError(ctx context.Context, what string, err error) error {
	if isTimeout(ctx, err) {
		return &search.ProviderTimeoutError{Provider: c.name, Timeout: c.timeout, Err: err}
	}
	return &search.ProviderError{Provider: c.name, Description: what, Err: err}
}

func (c *client) decodeJSON(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return &search.ProviderError{Provider: c.name, Description: "malformed response", Err: err}
	}
	return nil
}

// collect converts raw items into results, dropping items whose URL is not
// absolute, and stops at maxResults.
func (c *client) collect(items []rawItem, maxResults int) []*core.SearchResult {
	results := make([]*core.SearchResult, 0, min(len(items), maxResults))
	for _, item := range items {
		if len(results) == maxResults {
			break
		}
		r, err := core.NewSearchResult(strings.TrimSpace(item.title), strings.TrimSpace(item.url), strings.TrimSpace(item.snippet))
		if err != nil {
			c.logger.Debug("dropping result with invalid url", "url", item.url, "err", err)
			continue
		}
		results = append(results, r)
	}
	return results
}

type rawItem struct {
	title, url, snippet string
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// describeFailure extracts a human-readable message from an error body.
// Google and Bing nest it under error.message, SerpAPI uses a bare string.
func describeFailure(body []byte) string {
	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Error) > 0 {
		var s string
		if json.Unmarshal(envelope.Error, &s) == nil && s != "" {
			return s
		}
		var obj struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(envelope.Error, &obj) == nil && obj.Message != "" {
			return obj.Message
		}
	}
	text := strings.TrimSpace(string(body))
	if text == "" {
		return "empty response"
	}
	if len([]rune(text)) > maxDescription {
		text = string([]rune(text)[:maxDescription]) + "..."
	}
	return text
}
