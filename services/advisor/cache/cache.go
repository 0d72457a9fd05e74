// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package cache provides an in-memory TTL cache for agent responses.
//
// # Description
//
// Responses are keyed by (conversation id, normalized query) so that
// repeating the same question within one conversation skips the LLM
// round trip entirely. Entries expire after a configurable TTL and the
// cache is bounded: when full, the single oldest entry is evicted.
//
// # Thread Safety
//
// All methods are safe for concurrent use. Eviction and insertion happen
// under one mutex, so capacity is never exceeded even under contention.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"

	"sync"

	"github.com/AleutianAI/AleutianAdvisor/services/advisor/datatypes"
)

// =============================================================================
// Configuration
// =============================================================================

const (
	// DefaultTTL is how long an entry stays valid.
	DefaultTTL = 5 * time.Minute

	// DefaultMaxSize is the entry cap.
	DefaultMaxSize = 128
)

// =============================================================================
// Response Cache
// =============================================================================

type entry struct {
	storedAt time.Time
	payload  *datatypes.QueryResponse
}

// ResponseCache is a bounded in-memory TTL cache for query responses.
type ResponseCache struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	maxSize int
	now     func() time.Time
}

// Option configures a ResponseCache.
type Option func(*ResponseCache)

// WithTTL overrides the entry TTL.
func WithTTL(ttl time.Duration) Option {
	return func(c *ResponseCache) { c.ttl = ttl }
}

// WithMaxSize overrides the entry cap.
func WithMaxSize(n int) Option {
	return func(c *ResponseCache) { c.maxSize = n }
}

// WithClock injects a time source for tests.
func WithClock(now func() time.Time) Option {
	return func(c *ResponseCache) { c.now = now }
}

// New creates a ResponseCache with defaults applied.
func New(opts ...Option) *ResponseCache {
	c := &ResponseCache{
		entries: make(map[string]entry),
		ttl:     DefaultTTL,
		maxSize: DefaultMaxSize,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// =============================================================================
// Key Generation
// =============================================================================

// Key computes the deterministic cache key for a query within a
// conversation. The query is trimmed and lowercased first, so trivial
// rephrasings of whitespace and case hit the same entry.
func Key(query, conversationID string) string {
	normalized := strings.ToLower(strings.TrimSpace(query))
	sum := sha256.Sum256([]byte(conversationID + ":" + normalized))
	return hex.EncodeToString(sum[:])
}

// =============================================================================
// Public API
// =============================================================================

// Get returns the cached response for (query, conversationID), or nil on
// miss. Expired entries count as misses and are removed on read.
func (c *ResponseCache) Get(query, conversationID string) *datatypes.QueryResponse {
	key := Key(query, conversationID)

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil
	}
	if c.now().Sub(e.storedAt) > c.ttl {
		delete(c.entries, key)
		return nil
	}

	slog.Info("cache hit", "key", key[:8])
	return e.payload
}

// Put stores a response.
//
// Expired entries are swept first; if the cache is still at capacity, the
// single entry with the oldest stored timestamp is evicted (ties broken by
// key so eviction is deterministic).
func (c *ResponseCache) Put(query, conversationID string, payload *datatypes.QueryResponse) {
	key := Key(query, conversationID)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.evictExpiredLocked()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
		c.evictOldestLocked()
	}

	c.entries[key] = entry{storedAt: c.now(), payload: payload}
	slog.Debug("cached response", "key", key[:8], "size", len(c.entries))
}

// Clear flushes all entries.
func (c *ResponseCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}

// Size returns the current entry count, including not-yet-swept expired
// entries.
func (c *ResponseCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// =============================================================================
// Internal
// =============================================================================

func (c *ResponseCache) evictExpiredLocked() {
	now := c.now()
	for k, e := range c.entries {
		if now.Sub(e.storedAt) > c.ttl {
			delete(c.entries, k)
		}
	}
}

func (c *ResponseCache) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	for k, e := range c.entries {
		if oldestKey == "" || e.storedAt.Before(oldest) ||
			(e.storedAt.Equal(oldest) && k < oldestKey) {
			oldestKey = k
			oldest = e.storedAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}
