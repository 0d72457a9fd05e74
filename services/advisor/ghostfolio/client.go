// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ghostfolio provides a resilient HTTP client for one Ghostfolio
// instance.
//
// # Description
//
// The client owns the full token lifecycle: it exchanges the configured
// security token for a JWT on first use, attaches it to every request, and
// transparently re-authenticates exactly once when the backend answers 401
// (expired token). Transient transport failures are retried with exponential
// backoff up to a bounded attempt count; HTTP error statuses are never
// retried.
//
// # Thread Safety
//
// Safe for concurrent use. The bearer token is guarded by a RWMutex and
// refreshes are collapsed through a singleflight group so that concurrent
// 401s trigger at most one re-authentication.
package ghostfolio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/AleutianAI/AleutianAdvisor/services/advisor/datatypes"
)

// =============================================================================
// Configuration
// =============================================================================

const (
	defaultTimeout       = 30 * time.Second
	defaultMaxAttempts   = 3
	defaultRetryDelay    = 1 * time.Second
	defaultMaxRetryDelay = 10 * time.Second

	// maxErrorBodyBytes caps how much of an error response body is kept
	// for error messages and logs.
	maxErrorBodyBytes = 512
)

// Config holds client configuration.
//
// # Fields
//
//   - BaseURL: Required. Ghostfolio root URL, e.g. "http://localhost:3333".
//   - SecurityToken: Required. The account's security token, exchanged for
//     a JWT via the anonymous auth endpoint.
//   - Timeout: Per-request timeout. Default: 30s.
//   - MaxAttempts: Total attempts per request on transport failure. Default: 3.
//   - RetryDelay: Initial backoff delay. Default: 1s, doubling per attempt.
//   - MaxRetryDelay: Backoff cap. Default: 10s.
//   - OnRetry: Optional hook invoked before each transport retry, with the
//     operation name. Used for metrics.
type Config struct {
	BaseURL       string
	SecurityToken string
	Timeout       time.Duration
	MaxAttempts   int
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
	OnRetry       func(op string)
}

// Client is the resilient Ghostfolio HTTP client.
type Client struct {
	baseURL       string
	securityToken string
	httpClient    *http.Client
	maxAttempts   int
	retryDelay    time.Duration
	maxRetryDelay time.Duration
	onRetry       func(op string)

	mu    sync.RWMutex
	token string

	refreshGroup singleflight.Group
}

// NewClient creates a Client with defaults applied.
//
// # Inputs
//
//   - cfg: Client configuration. BaseURL and SecurityToken are required.
//
// # Outputs
//
//   - *Client: Ready-to-use client. Authentication is lazy.
//   - error: Non-nil if required configuration is missing.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("ghostfolio base URL is required")
	}
	if cfg.SecurityToken == "" {
		return nil, fmt.Errorf("ghostfolio security token is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	if cfg.MaxRetryDelay == 0 {
		cfg.MaxRetryDelay = defaultMaxRetryDelay
	}

	return &Client{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		securityToken: cfg.SecurityToken,
		httpClient:    &http.Client{Timeout: cfg.Timeout},
		maxAttempts:   cfg.MaxAttempts,
		retryDelay:    cfg.RetryDelay,
		maxRetryDelay: cfg.MaxRetryDelay,
		onRetry:       cfg.OnRetry,
	}, nil
}

// =============================================================================
// Authentication
// =============================================================================

// Authenticate exchanges the security token for a JWT bearer token.
//
// # Description
//
// POSTs to /api/v1/auth/anonymous and stores the returned token for
// subsequent requests. Called lazily by request(), but exposed so the
// authenticate tool and health checks can invoke it explicitly.
//
// # Outputs
//
//   - string: The JWT.
//   - error: *AuthError if the token is rejected, *TransportError if the
//     backend is unreachable.
func (c *Client) Authenticate(ctx context.Context) (string, error) {
	body, err := json.Marshal(datatypes.AuthRequest{AccessToken: c.securityToken})
	if err != nil {
		return "", fmt.Errorf("failed to encode auth request: %w", err)
	}

	op := "POST /api/v1/auth/anonymous"
	resp, err := c.doWithRetry(ctx, http.MethodPost, "/api/v1/auth/anonymous", nil, body, "")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := readErrorBody(resp.Body)
		return "", &AuthError{Status: resp.StatusCode, Message: msg}
	}

	var auth datatypes.AuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		return "", fmt.Errorf("failed to decode auth response for %s: %w", op, err)
	}
	if auth.AuthToken == "" {
		return "", &AuthError{Status: resp.StatusCode, Message: "empty authToken in response"}
	}

	c.mu.Lock()
	c.token = auth.AuthToken
	c.mu.Unlock()

	slog.Info("authenticated with ghostfolio", "base_url", c.baseURL)
	return auth.AuthToken, nil
}

// currentToken returns the stored JWT, which may be empty.
func (c *Client) currentToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// clearToken drops the stored JWT so the next request re-authenticates.
func (c *Client) clearToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

// refreshToken re-authenticates, collapsing concurrent callers into a
// single auth round trip.
func (c *Client) refreshToken(ctx context.Context) (string, error) {
	v, err, _ := c.refreshGroup.Do("auth", func() (interface{}, error) {
		return c.Authenticate(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// =============================================================================
// Core Request Path
// =============================================================================

// request performs one authenticated API call and decodes the JSON
// response into out.
//
// # Description
//
// Authenticates lazily on first use. On a 401 response the stored token is
// cleared, a refresh runs (singleflight), and the request is replayed
// exactly once; a second 401 surfaces as *AuthError. Other non-2xx statuses
// surface as *APIError without retry. out may be nil for calls whose body
// is irrelevant.
func (c *Client) request(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	op := method + " " + path

	var encoded []byte
	if body != nil {
		var err error
		encoded, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body for %s: %w", op, err)
		}
	}

	token := c.currentToken()
	if token == "" {
		var err error
		token, err = c.refreshToken(ctx)
		if err != nil {
			return err
		}
	}

	resp, err := c.doWithRetry(ctx, method, path, query, encoded, token)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		// Token expired. Refresh once and replay the original request.
		resp.Body.Close()
		c.clearToken()

		token, err = c.refreshToken(ctx)
		if err != nil {
			return err
		}

		resp, err = c.doWithRetry(ctx, method, path, query, encoded, token)
		if err != nil {
			return err
		}
		if resp.StatusCode == http.StatusUnauthorized {
			msg := readErrorBody(resp.Body)
			resp.Body.Close()
			return &AuthError{Status: http.StatusUnauthorized, Message: msg}
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			Status: resp.StatusCode,
			Op:     op,
			Body:   readErrorBody(resp.Body),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response for %s: %w", op, err)
	}
	return nil
}

// doWithRetry executes one HTTP round trip with bounded retries on
// transport failure.
//
// Only connection-level failures are retried; any HTTP response, success
// or error, is returned to the caller as-is. Backoff doubles per attempt
// from retryDelay up to maxRetryDelay.
func (c *Client) doWithRetry(ctx context.Context, method, path string, query url.Values, body []byte, token string) (*http.Response, error) {
	op := method + " " + path
	delay := c.retryDelay

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		req, err := c.newRequest(ctx, method, path, query, body, token)
		if err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			break
		}
		if attempt < c.maxAttempts {
			if c.onRetry != nil {
				c.onRetry(op)
			}
			slog.Warn("ghostfolio request failed, retrying",
				"op", op,
				"attempt", attempt,
				"delay", delay.String(),
				"error", err)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, &TransportError{Op: op, Attempts: attempt, Err: ctx.Err()}
			}
			delay *= 2
			if delay > c.maxRetryDelay {
				delay = c.maxRetryDelay
			}
		}
	}

	return nil, &TransportError{Op: op, Attempts: c.maxAttempts, Err: lastErr}
}

// newRequest builds one HTTP request with auth and content headers.
func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body []byte, token string) (*http.Request, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request %s %s: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// readErrorBody reads and truncates an error response body.
func readErrorBody(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, maxErrorBodyBytes))
	if err != nil || len(data) == 0 {
		return "(no body)"
	}
	return strings.TrimSpace(string(data))
}
