// Package api is the HTTP client for the budget management REST backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Veraticus/yesan/internal/common"
	"github.com/Veraticus/yesan/internal/service"
)

const maxErrorBody = 512

// Client talks to the budget backend and the regulation Q&A service.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string
	qnaBaseURL string
	retry      service.RetryOptions
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithTransport sets the round tripper, e.g. a metrics-instrumented one.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.httpClient.Transport = rt
	}
}

// WithQnABaseURL points the Q&A endpoint at a different service.
func WithQnABaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.qnaBaseURL = u
		}
	}
}

// WithRetry enables retries for idempotent reads.
func WithRetry(opts service.RetryOptions) Option {
	return func(c *Client) {
		c.retry = opts
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// New creates a client for the backend at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		qnaBaseURL: baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		retry:      service.RetryOptions{MaxAttempts: 1},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ service.Backend = (*Client)(nil)

// getJSON performs a GET, retrying per the client's retry options.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	return common.WithRetry(ctx, func() error {
		resp, err := c.do(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()
		return decode(resp, path, out)
	}, c.retry)
}

// postJSON performs a single POST and decodes the reply into out when
// out is non-nil.
func (c *Client) postJSON(ctx context.Context, base, path string, in, out any) error {
	resp, err := c.do(ctx, http.MethodPost, base+path, in)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return decode(resp, path, out)
}

// do sends the request and returns the response only for 2xx statuses.
func (c *Client) do(ctx context.Context, method, url string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s %s: %w", common.ErrBackendUnavailable, method, url, err)
	}

	c.logger.Debug("Backend request",
		"method", method,
		"url", url,
		"status", resp.StatusCode,
		"duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer func() { _ = resp.Body.Close() }()
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		err := fmt.Errorf("%w: %s %s: %d %s", common.ErrBackendStatus, method, url, resp.StatusCode, bytes.TrimSpace(snippet))
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, &common.RetryableError{Err: err, Retryable: true}
		}
		return nil, err
	}

	return resp, nil
}

func decode(resp *http.Response, path string, out any) error {
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s: %w", common.ErrBackendResponse, path, err)
	}
	return nil
}
