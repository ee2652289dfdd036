// Package transport wraps outbound calls to the backend with timeouts,
// bounded retry on network failure, and uniform error classification.
package transport

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
)

// maxErrorBodyLen bounds how much of an error response body is kept.
const maxErrorBodyLen = 4096

// CredentialSource supplies the bearer token attached to every request.
// An empty token means the request goes out anonymous.
type CredentialSource interface {
	Token() string
}

// Config holds transport settings.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
	Logger     *slog.Logger

	// HTTPClient overrides the default client (tests).
	HTTPClient *http.Client
}

// Client issues JSON requests against the backend. Network-level failures
// (no response at all) are retried up to MaxRetries times with a linearly
// increasing backoff; a response, however unhappy, is never retried.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	maxRetries     int
	retryDelay     time.Duration
	creds          CredentialSource
	onUnauthorized func()
	logger         *slog.Logger
}

// New creates a transport client. Zero config fields fall back to
// 30s timeout, 3 retries, 500ms base delay.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	} else if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     logger,
	}
}

// SetCredentials sets the token source consulted before each request.
func (c *Client) SetCredentials(src CredentialSource) {
	c.creds = src
}

// OnUnauthorized registers the hook fired whenever any call receives a 401,
// before the error propagates to the caller. At most one hook is supported;
// its owner is the session layer.
func (c *Client) OnUnauthorized(fn func()) {
	c.onUnauthorized = fn
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// errorBody is the backend's error response shape.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Do issues a request and decodes a JSON response into out (ignored when
// out is nil). body, when non-nil, is sent as JSON.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	start := time.Now()
	resp, err := c.doWithRetry(ctx, method, path, payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	c.logger.Debug("request completed",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.classify(resp)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

// doWithRetry retries network-level failures with a base×attempt backoff.
func (c *Client) doWithRetry(ctx context.Context, method, path string, payload []byte) (*http.Response, error) {
	var lastErr error

	for attempt := 1; attempt <= c.maxRetries+1; attempt++ {
		req, err := c.newRequest(ctx, method, path, payload)
		if err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		// Caller aborted: no point retrying.
		if ctx.Err() != nil {
			return nil, fmt.Errorf("execute request: %w", ctx.Err())
		}
		if attempt > c.maxRetries {
			break
		}

		delay := c.retryDelay * time.Duration(attempt)
		c.logger.Debug("request failed, retrying",
			"method", method, "path", path, "attempt", attempt, "delay", delay, "error", err)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("execute request: %w", ctx.Err())
		}
	}

	return nil, fmt.Errorf("%w after %d attempts: %v", ErrUnreachable, c.maxRetries+1, lastErr)
}

func (c *Client) newRequest(ctx context.Context, method, path string, payload []byte) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.creds != nil {
		if token := c.creds.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	return req, nil
}

// classify turns a non-success response into an *APIError and fires the
// unauthorized hook on 401.
func (c *Client) classify(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLen))

	apiErr := &APIError{
		Status: resp.StatusCode,
		Code:   strings.ToLower(strings.ReplaceAll(http.StatusText(resp.StatusCode), " ", "_")),
		Detail: strings.TrimSpace(string(raw)),
	}
	var parsed errorBody
	if err := json.Unmarshal(raw, &parsed); err == nil {
		if parsed.Code != "" {
			apiErr.Code = parsed.Code
		}
		if parsed.Message != "" {
			apiErr.Detail = parsed.Message
		}
	}

	if resp.StatusCode == http.StatusUnauthorized && c.onUnauthorized != nil {
		c.onUnauthorized()
	}
	return apiErr
}
