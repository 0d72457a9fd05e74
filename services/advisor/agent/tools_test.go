// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianAdvisor/services/advisor/ghostfolio"
)

// newTestToolset spins up a fake Ghostfolio backend and a toolset wired
// to it. The handler receives every request except the anonymous auth
// exchange, which is answered internally.
func newTestToolset(t *testing.T, handler http.HandlerFunc) *Toolset {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/auth/anonymous" {
			_ = json.NewEncoder(w).Encode(map[string]string{"authToken": "jwt-test-token"})
			return
		}
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := ghostfolio.NewClient(ghostfolio.Config{
		BaseURL:       srv.URL,
		SecurityToken: "secret",
		Timeout:       2 * time.Second,
		MaxAttempts:   2,
		RetryDelay:    5 * time.Millisecond,
		MaxRetryDelay: 10 * time.Millisecond,
	})
	require.NoError(t, err)

	return NewToolset(client, nil)
}

func callTool(t *testing.T, ts *Toolset, name, input string) (string, error) {
	t.Helper()
	for _, tool := range ts.All() {
		if tool.Name() == name {
			return tool.Call(context.Background(), input)
		}
	}
	t.Fatalf("no such tool: %s", name)
	return "", nil
}

func TestToolset_AllNamesStable(t *testing.T) {
	ts := newTestToolset(t, func(w http.ResponseWriter, r *http.Request) {})
	names := make([]string, 0, 12)
	for _, tool := range ts.All() {
		names = append(names, tool.Name())
		assert.NotEmpty(t, tool.Description(), tool.Name())
	}
	assert.Equal(t, []string{
		"authenticate", "health_check", "get_portfolio_holdings",
		"get_portfolio_performance", "get_portfolio_details", "get_orders",
		"preview_import", "import_activities", "delete_order",
		"get_accounts", "lookup_symbol", "get_user_settings",
	}, names)
}

func TestAuthenticate_ReportsTokenPrefix(t *testing.T) {
	ts := newTestToolset(t, func(w http.ResponseWriter, r *http.Request) {})
	out, err := callTool(t, ts, "authenticate", "")
	require.NoError(t, err)
	assert.Equal(t, "Authenticated successfully. JWT starts with: jwt-test-tok...", out)
}

func TestHealthCheck_ReportsStatus(t *testing.T) {
	ts := newTestToolset(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/health", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "OK"})
	})
	out, err := callTool(t, ts, "health_check", "")
	require.NoError(t, err)
	assert.Equal(t, "Ghostfolio status: OK", out)
}

func TestGetHoldings_FormatsPositions(t *testing.T) {
	ts := newTestToolset(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/portfolio/holdings", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"holdings": []map[string]any{
				{
					"name": "Apple Inc.", "symbol": "AAPL", "quantity": 10.0,
					"marketPrice": 190.5, "valueInBaseCurrency": 1905.0,
					"currency": "USD", "allocationInPercentage": 42.0,
					"assetClass": "EQUITY", "assetSubClass": "STOCK",
					"netPerformancePercent": 0.153,
				},
			},
		})
	})

	out, err := callTool(t, ts, "get_portfolio_holdings", "")
	require.NoError(t, err)
	assert.Contains(t, out, "Portfolio Holdings (1 positions):")
	assert.Contains(t, out, "- Apple Inc. (AAPL): Price: USD 190.5 | Qty: 10 | Value: USD 1905.00")
	assert.Contains(t, out, "Allocation: 42% | Class: EQUITY/STOCK")
	assert.Contains(t, out, "Performance: 15.30%")
}

func TestGetHoldings_Empty(t *testing.T) {
	ts := newTestToolset(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"holdings": []any{}})
	})
	out, err := callTool(t, ts, "get_portfolio_holdings", "")
	require.NoError(t, err)
	assert.Equal(t, "No holdings found in the portfolio.", out)
}

func TestGetPerformance_ValidatesRange(t *testing.T) {
	ts := newTestToolset(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("backend must not be called for an invalid range")
	})
	out, err := callTool(t, ts, "get_portfolio_performance", "6w")
	require.NoError(t, err)
	assert.Contains(t, out, "Error:")
	assert.Contains(t, out, "invalid range")
}

func TestGetPerformance_FormatsMetrics(t *testing.T) {
	ts := newTestToolset(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ytd", r.URL.Query().Get("range"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"performance": map[string]any{
				"currentValue":               12500.0,
				"totalInvestment":            10000.0,
				"netPerformance":             2500.0,
				"netPerformancePercentage":   0.25,
				"grossPerformance":           2600.0,
				"grossPerformancePercentage": 0.26,
			},
		})
	})

	out, err := callTool(t, ts, "get_portfolio_performance", "YTD")
	require.NoError(t, err)
	assert.Contains(t, out, "Portfolio Performance (range: ytd):")
	assert.Contains(t, out, "- Current Value: 12500")
	assert.Contains(t, out, "- Net Performance: 2500 (25.00%)")
	assert.Contains(t, out, "- Gross Performance: 2600 (26.00%)")
}

func TestGetPerformance_DefaultsToMax(t *testing.T) {
	ts := newTestToolset(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "max", r.URL.Query().Get("range"))
		_ = json.NewEncoder(w).Encode(map[string]any{})
	})
	out, err := callTool(t, ts, "get_portfolio_performance", "  ")
	require.NoError(t, err)
	assert.Contains(t, out, "range: max")
	assert.Contains(t, out, "- Current Value: N/A")
}

func TestGetOrders_FormatsAndLimits(t *testing.T) {
	activities := make([]map[string]any, 0, 60)
	for i := 0; i < 60; i++ {
		activities = append(activities, map[string]any{
			"id": "a", "date": "2024-05-01T00:00:00.000Z", "type": "BUY",
			"quantity": 1.0, "unitPrice": 100.0, "fee": 0.5,
			"SymbolProfile": map[string]any{"symbol": "VOO", "currency": "USD"},
		})
	}
	ts := newTestToolset(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"activities": activities})
	})

	out, err := callTool(t, ts, "get_orders", "")
	require.NoError(t, err)
	assert.Contains(t, out, "Transaction History (60 activities):")
	assert.Contains(t, out, "2024-05-01 |      BUY | VOO")
	assert.Contains(t, out, "Qty: 1 @ USD 100 | Fee: 0.5")
	assert.Contains(t, out, "(Showing last 50 of 60)")
}

func TestGetOrders_Empty(t *testing.T) {
	ts := newTestToolset(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"activities": []any{}})
	})
	out, err := callTool(t, ts, "get_orders", "")
	require.NoError(t, err)
	assert.Equal(t, "No transactions found.", out)
}

const sampleActivityJSON = `[{
	"currency": "EUR",
	"dataSource": "YAHOO",
	"date": "2024-05-01",
	"fee": 1.5,
	"quantity": 10,
	"symbol": "AAPL",
	"type": "BUY",
	"unitPrice": 150
}]`

func TestPreviewImport_SummarizesWithoutCallingBackend(t *testing.T) {
	ts := newTestToolset(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("preview must never reach the backend")
	})

	out, err := callTool(t, ts, "preview_import", sampleActivityJSON)
	require.NoError(t, err)
	assert.Contains(t, out, "Import Preview (1 activity):")
	assert.Contains(t, out, "- BUY AAPL: 10 @ EUR 150 (fee 1.5) on 2024-05-01")
	assert.Contains(t, out, "Totals: BUY 1501.50 | SELL 0.00")
	// AAPL trades in USD; the EUR activity should be flagged.
	assert.Contains(t, out, "AAPL trades in USD but the activity is in EUR")
	assert.Contains(t, out, "Nothing was imported.")
}

func TestPreviewImport_InvalidJSON(t *testing.T) {
	ts := newTestToolset(t, func(w http.ResponseWriter, r *http.Request) {})
	out, err := callTool(t, ts, "preview_import", "{not json")
	require.NoError(t, err)
	assert.Contains(t, out, "Error:")
}

func TestImportActivities_RequiresConfirmation(t *testing.T) {
	ts := newTestToolset(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("unconfirmed import must not reach the backend")
	})

	out, err := callTool(t, ts, "import_activities",
		`{"confirmed": false, "activities": `+sampleActivityJSON+`}`)
	require.NoError(t, err)
	assert.Contains(t, out, "NOT executed")
}

func TestImportActivities_Confirmed(t *testing.T) {
	var imported bool
	ts := newTestToolset(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/import", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Len(t, body["activities"], 1)
		imported = true
		w.WriteHeader(http.StatusCreated)
	})

	out, err := callTool(t, ts, "import_activities",
		`{"confirmed": true, "activities": `+sampleActivityJSON+`}`)
	require.NoError(t, err)
	assert.True(t, imported)
	assert.Equal(t, "Successfully imported 1 activity.", out)
}

func TestDeleteOrder(t *testing.T) {
	ts := newTestToolset(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/v1/order/abc-123", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	})
	out, err := callTool(t, ts, "delete_order", "abc-123")
	require.NoError(t, err)
	assert.Equal(t, "Deleted activity abc-123.", out)
}

func TestGetAccounts_Formats(t *testing.T) {
	ts := newTestToolset(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"accounts": []map[string]any{
				{
					"name": "Brokerage", "balance": 500.0, "currency": "USD",
					"value": 10500.0, "isExcluded": false,
					"Platform": map[string]any{"name": "Interactive Brokers"},
				},
			},
		})
	})
	out, err := callTool(t, ts, "get_accounts", "")
	require.NoError(t, err)
	assert.Contains(t, out, "Accounts (1):")
	assert.Contains(t, out,
		"- Brokerage (Interactive Brokers): Balance USD 500 | Value: USD 10500 | Excluded: false")
}

func TestLookupSymbol_ValidatesInput(t *testing.T) {
	ts := newTestToolset(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("invalid queries must not reach the backend")
	})
	out, err := callTool(t, ts, "lookup_symbol", "")
	require.NoError(t, err)
	assert.Contains(t, out, "Invalid symbol query")
}

func TestLookupSymbol_Formats(t *testing.T) {
	ts := newTestToolset(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "apple", r.URL.Query().Get("query"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]any{
				{
					"symbol": "AAPL", "name": "Apple Inc.", "assetClass": "EQUITY",
					"assetSubClass": "STOCK", "dataSource": "YAHOO", "currency": "USD",
				},
			},
		})
	})
	out, err := callTool(t, ts, "lookup_symbol", "apple")
	require.NoError(t, err)
	assert.Contains(t, out, `Symbol lookup results for "apple" (1 found):`)
	assert.Contains(t, out, "- AAPL | Apple Inc. | EQUITY/STOCK | Source: YAHOO | USD")
}

func TestLookupSymbol_NoResults(t *testing.T) {
	ts := newTestToolset(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"items": []any{}})
	})
	out, err := callTool(t, ts, "lookup_symbol", "zzzzzz")
	require.NoError(t, err)
	assert.Equal(t, `No results found for "zzzzzz".`, out)
}

func TestGetUserSettings(t *testing.T) {
	ts := newTestToolset(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"settings": map[string]any{
				"baseCurrency": "CHF", "dateRange": "ytd", "locale": "de-CH",
			},
			"subscription": map[string]any{"type": "Premium"},
		})
	})
	out, err := callTool(t, ts, "get_user_settings", "")
	require.NoError(t, err)
	assert.Equal(t,
		"User Settings:\n- Base Currency: CHF\n- Default Date Range: ytd\n- Locale: de-CH\n- Subscription: Premium",
		out)
}

func TestTools_AbsorbAPIErrors(t *testing.T) {
	ts := newTestToolset(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"internal"}`, http.StatusInternalServerError)
	})
	out, err := callTool(t, ts, "get_portfolio_holdings", "")
	require.NoError(t, err)
	assert.Contains(t, out, "Error:")
}

func TestTools_PropagateTransportErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client, err := ghostfolio.NewClient(ghostfolio.Config{
		BaseURL:       srv.URL,
		SecurityToken: "secret",
		MaxAttempts:   2,
		RetryDelay:    time.Millisecond,
		MaxRetryDelay: 2 * time.Millisecond,
	})
	require.NoError(t, err)
	ts := NewToolset(client, nil)

	_, err = callTool(t, ts, "get_orders", "")
	require.Error(t, err)
	assert.True(t, ghostfolio.IsTransport(err))
}

func TestStaticCurrencyLookup(t *testing.T) {
	lookup := NewStaticCurrencyLookup(map[string]string{"NESN": "CHF"})
	cur, ok := lookup.TradingCurrency("NESN")
	assert.True(t, ok)
	assert.Equal(t, "CHF", cur)

	_, ok = lookup.TradingCurrency("AAPL")
	assert.False(t, ok)
}
