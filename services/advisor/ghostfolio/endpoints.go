// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ghostfolio

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/AleutianAI/AleutianAdvisor/pkg/validation"
	"github.com/AleutianAI/AleutianAdvisor/services/advisor/datatypes"
)

// =============================================================================
// Typed Endpoint Wrappers
// =============================================================================

// GetHoldings returns all current portfolio positions.
func (c *Client) GetHoldings(ctx context.Context) (*datatypes.HoldingsResponse, error) {
	var out datatypes.HoldingsResponse
	if err := c.request(ctx, http.MethodGet, "/api/v1/portfolio/holdings", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetPerformance returns performance metrics for the given time range.
// rangeValue must already be validated (see validation.ValidateRange).
func (c *Client) GetPerformance(ctx context.Context, rangeValue string) (*datatypes.PerformanceResponse, error) {
	q := url.Values{"range": {rangeValue}}
	var out datatypes.PerformanceResponse
	if err := c.request(ctx, http.MethodGet, "/api/v1/portfolio/performance", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetDetails returns the full portfolio breakdown for the given range.
// The payload shape varies widely across Ghostfolio versions, so this is
// left as a raw JSON map for the caller to summarize.
func (c *Client) GetDetails(ctx context.Context, rangeValue string) (map[string]any, error) {
	q := url.Values{"range": {rangeValue}}
	var out map[string]any
	if err := c.request(ctx, http.MethodGet, "/api/v1/portfolio/details", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetOrders returns the full transaction history.
func (c *Client) GetOrders(ctx context.Context) (*datatypes.OrdersResponse, error) {
	var out datatypes.OrdersResponse
	if err := c.request(ctx, http.MethodGet, "/api/v1/order", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ImportActivities imports a validated list of activities.
func (c *Client) ImportActivities(ctx context.Context, activities []validation.Activity) error {
	body := datatypes.ImportRequest{Activities: activities}
	return c.request(ctx, http.MethodPost, "/api/v1/import", nil, body, nil)
}

// DeleteOrder deletes one activity by id.
func (c *Client) DeleteOrder(ctx context.Context, orderID string) error {
	return c.request(ctx, http.MethodDelete, "/api/v1/order/"+url.PathEscape(orderID), nil, nil, nil)
}

// GetAccounts returns all investment accounts.
func (c *Client) GetAccounts(ctx context.Context) (*datatypes.AccountsResponse, error) {
	var out datatypes.AccountsResponse
	if err := c.request(ctx, http.MethodGet, "/api/v1/account", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LookupSymbol searches instruments by ticker, ISIN, or name.
// query must already be validated (see validation.ValidateSymbolQuery).
func (c *Client) LookupSymbol(ctx context.Context, query string) (*datatypes.LookupResponse, error) {
	q := url.Values{"query": {query}}
	var out datatypes.LookupResponse
	if err := c.request(ctx, http.MethodGet, "/api/v1/symbol/lookup", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetUser returns the user's profile and settings.
func (c *Client) GetUser(ctx context.Context) (*datatypes.UserResponse, error) {
	var out datatypes.UserResponse
	if err := c.request(ctx, http.MethodGet, "/api/v1/user", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// HealthCheck probes the backend health endpoint. No authentication.
func (c *Client) HealthCheck(ctx context.Context) (*datatypes.BackendHealthResponse, error) {
	resp, err := c.doWithRetry(ctx, http.MethodGet, "/api/v1/health", nil, nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{
			Status: resp.StatusCode,
			Op:     "GET /api/v1/health",
			Body:   readErrorBody(resp.Body),
		}
	}

	out := datatypes.BackendHealthResponse{Status: "OK"}
	// Some deployments return an empty body on health. Tolerate it.
	_ = decodeLenient(resp, &out)
	return &out, nil
}

// decodeLenient decodes a JSON body into out, treating an empty body as
// a no-op rather than an error.
func decodeLenient(resp *http.Response, out any) error {
	data, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}
