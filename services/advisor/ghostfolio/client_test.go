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
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianAdvisor/services/advisor/datatypes"
)

// =============================================================================
// Test Helpers
// =============================================================================

// newTestClient builds a client against srv with fast retry timings.
func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := NewClient(Config{
		BaseURL:       srv.URL,
		SecurityToken: "secret-token",
		Timeout:       2 * time.Second,
		RetryDelay:    5 * time.Millisecond,
		MaxRetryDelay: 20 * time.Millisecond,
	})
	require.NoError(t, err)
	return c
}

func writeAuthOK(w http.ResponseWriter, token string) {
	_ = json.NewEncoder(w).Encode(datatypes.AuthResponse{AuthToken: token})
}

// =============================================================================
// Constructor Tests
// =============================================================================

func TestNewClient_RequiresBaseURL(t *testing.T) {
	_, err := NewClient(Config{SecurityToken: "x"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "base URL")
}

func TestNewClient_RequiresSecurityToken(t *testing.T) {
	_, err := NewClient(Config{BaseURL: "http://localhost:3333"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "security token")
}

// =============================================================================
// Authentication Tests
// =============================================================================

func TestAuthenticate_StoresToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/auth/anonymous", r.URL.Path)

		var req datatypes.AuthRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "secret-token", req.AccessToken)

		writeAuthOK(w, "jwt-abc")
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	jwt, err := c.Authenticate(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "jwt-abc", jwt)
	assert.Equal(t, "jwt-abc", c.currentToken())
}

func TestAuthenticate_RejectedToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.Authenticate(context.Background())

	require.Error(t, err)
	assert.True(t, IsAuth(err))
}

// =============================================================================
// Request Path Tests
// =============================================================================

func TestRequest_LazyAuthAndBearerHeader(t *testing.T) {
	var sawAuth atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/auth/anonymous":
			sawAuth.Store(true)
			writeAuthOK(w, "jwt-1")
		case "/api/v1/order":
			assert.Equal(t, "Bearer jwt-1", r.Header.Get("Authorization"))
			_ = json.NewEncoder(w).Encode(datatypes.OrdersResponse{})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.GetOrders(context.Background())

	require.NoError(t, err)
	assert.True(t, sawAuth.Load(), "first request should trigger authentication")
}

func TestRequest_Recovers401WithSingleRefresh(t *testing.T) {
	var authCalls, orderCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/auth/anonymous":
			n := authCalls.Add(1)
			writeAuthOK(w, map[int32]string{1: "jwt-old", 2: "jwt-new"}[n])
		case "/api/v1/order":
			orderCalls.Add(1)
			if r.Header.Get("Authorization") == "Bearer jwt-old" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			assert.Equal(t, "Bearer jwt-new", r.Header.Get("Authorization"))
			_ = json.NewEncoder(w).Encode(datatypes.OrdersResponse{
				Activities: []datatypes.Order{{Type: "BUY"}},
			})
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	out, err := c.GetOrders(context.Background())

	require.NoError(t, err)
	require.Len(t, out.Activities, 1)
	assert.Equal(t, int32(2), authCalls.Load(), "expired token should trigger exactly one refresh")
	assert.Equal(t, int32(2), orderCalls.Load(), "original request replayed exactly once")
}

func TestRequest_Persistent401IsAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/auth/anonymous" {
			writeAuthOK(w, "jwt-x")
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.GetHoldings(context.Background())

	require.Error(t, err)
	assert.True(t, IsAuth(err))
}

func TestRequest_HTTPErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/auth/anonymous" {
			writeAuthOK(w, "jwt-x")
			return
		}
		calls.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.GetAccounts(context.Background())

	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, int32(1), calls.Load(), "500 must not be retried")
}

func TestRequest_TransportExhaustion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeAuthOK(w, "jwt-x")
	}))
	srv.Close() // connection refused from here on

	c, err := NewClient(Config{
		BaseURL:       srv.URL,
		SecurityToken: "secret-token",
		Timeout:       time.Second,
		RetryDelay:    time.Millisecond,
		MaxRetryDelay: 2 * time.Millisecond,
	})
	require.NoError(t, err)

	_, err = c.GetHoldings(context.Background())

	require.Error(t, err)
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 3, te.Attempts)
	assert.True(t, IsTransport(err))
}

func TestRefreshToken_Singleflight(t *testing.T) {
	var authCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/auth/anonymous" {
			authCalls.Add(1)
			time.Sleep(20 * time.Millisecond)
			writeAuthOK(w, "jwt-shared")
			return
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok, err := c.refreshToken(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, "jwt-shared", tok)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), authCalls.Load(), "concurrent refreshes must collapse to one")
}

// =============================================================================
// Endpoint Wrapper Tests
// =============================================================================

func TestGetPerformance_PassesRangeQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/auth/anonymous":
			writeAuthOK(w, "jwt-x")
		case "/api/v1/portfolio/performance":
			assert.Equal(t, "ytd", r.URL.Query().Get("range"))
			v := 12345.67
			_ = json.NewEncoder(w).Encode(datatypes.PerformanceResponse{
				Performance: &datatypes.PerformanceMetrics{CurrentValue: &v},
			})
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	out, err := c.GetPerformance(context.Background(), "ytd")

	require.NoError(t, err)
	m := out.Metrics()
	require.NotNil(t, m.CurrentValue)
	assert.InDelta(t, 12345.67, *m.CurrentValue, 0.001)
}

func TestHealthCheck_NoAuthRequired(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/health", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(datatypes.BackendHealthResponse{Status: "OK"})
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	out, err := c.HealthCheck(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "OK", out.Status)
}

func TestDeleteOrder_EscapesID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/auth/anonymous":
			writeAuthOK(w, "jwt-x")
		default:
			assert.Equal(t, http.MethodDelete, r.Method)
			assert.Equal(t, "/api/v1/order/abc-123", r.URL.Path)
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	err := c.DeleteOrder(context.Background(), "abc-123")

	assert.NoError(t, err)
}
