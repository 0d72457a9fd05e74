// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides metrics and instrumentation for the advisor.
//
// # Description
//
// This package implements Prometheus metrics for monitoring portfolio
// query operations. Metrics include:
//   - Query counters (by status and error kind)
//   - Response cache hit/miss counters
//   - Verification outcome counters
//   - LLM provider fallback counters
//   - Query latency histograms
//
// # Integration
//
// Metrics are exposed via the /metrics endpoint. Use with Prometheus +
// Grafana for dashboards and alerting.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Definitions
// =============================================================================

// Namespace for all metrics
const metricsNamespace = "aleutian"

// Subsystem for advisor metrics
const advisorSubsystem = "advisor"

// AdvisorMetrics holds all Prometheus metrics for portfolio query operations.
//
// # Description
//
// Provides counters and histograms for monitoring query throughput, cache
// effectiveness, verification outcomes, and provider health. Initialize
// once at startup via InitMetrics().
//
// # Thread Safety
//
// All operations are thread-safe.
type AdvisorMetrics struct {
	// QueriesTotal counts queries by final status.
	// Labels: status (success, degraded, error)
	QueriesTotal *prometheus.CounterVec

	// QueryErrorsTotal counts failed queries by error kind.
	// Labels: kind (rate_limited, provider_unavailable, backend_unreachable, canceled, other)
	QueryErrorsTotal *prometheus.CounterVec

	// CacheEventsTotal counts response cache lookups.
	// Labels: event (hit, miss)
	CacheEventsTotal *prometheus.CounterVec

	// VerificationsTotal counts verification runs by outcome.
	// Labels: outcome (passed, warned, failed)
	VerificationsTotal *prometheus.CounterVec

	// ProviderFallbacksTotal counts queries retried on the fallback model.
	ProviderFallbacksTotal prometheus.Counter

	// BackendRetriesTotal counts Ghostfolio transport retries.
	// Labels: op (e.g. "GET /api/v1/order")
	BackendRetriesTotal *prometheus.CounterVec

	// QueryDurationSeconds measures end-to-end query latency.
	// Labels: status (success, degraded, error)
	QueryDurationSeconds *prometheus.HistogramVec

	// ToolInvocationsTotal counts tool calls made by the agent.
	// Labels: tool
	ToolInvocationsTotal *prometheus.CounterVec
}

// DefaultMetrics is the singleton instance of AdvisorMetrics.
// Initialized by InitMetrics().
var DefaultMetrics *AdvisorMetrics

// InitMetrics initializes the default metrics instance.
//
// # Description
//
// Creates and registers all Prometheus metrics. Should be called once
// at application startup, after the Prometheus registry is available.
//
// # Outputs
//
//   - *AdvisorMetrics: The initialized metrics instance.
//
// # Limitations
//
//   - Panics if called twice (duplicate registration).
func InitMetrics() *AdvisorMetrics {
	DefaultMetrics = &AdvisorMetrics{
		QueriesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: advisorSubsystem,
				Name:      "queries_total",
				Help:      "Total portfolio queries by final status",
			},
			[]string{"status"},
		),

		QueryErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: advisorSubsystem,
				Name:      "query_errors_total",
				Help:      "Total failed queries by error kind",
			},
			[]string{"kind"},
		),

		CacheEventsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: advisorSubsystem,
				Name:      "cache_events_total",
				Help:      "Response cache lookups by event",
			},
			[]string{"event"},
		),

		VerificationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: advisorSubsystem,
				Name:      "verifications_total",
				Help:      "Verification runs by outcome",
			},
			[]string{"outcome"},
		),

		ProviderFallbacksTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: advisorSubsystem,
				Name:      "provider_fallbacks_total",
				Help:      "Queries retried on the fallback model after throttling",
			},
		),

		BackendRetriesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: advisorSubsystem,
				Name:      "backend_retries_total",
				Help:      "Ghostfolio transport retries by operation",
			},
			[]string{"op"},
		),

		QueryDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: advisorSubsystem,
				Name:      "query_duration_seconds",
				Help:      "End-to-end query latency in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"status"},
		),

		ToolInvocationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: advisorSubsystem,
				Name:      "tool_invocations_total",
				Help:      "Tool calls made by the agent",
			},
			[]string{"tool"},
		),
	}

	return DefaultMetrics
}

// =============================================================================
// Helper Methods
// =============================================================================

// RecordQuery records a completed query with its latency.
//
// # Inputs
//
//   - status: one of success, degraded, error.
//   - seconds: end-to-end latency.
func (m *AdvisorMetrics) RecordQuery(status string, seconds float64) {
	m.QueriesTotal.WithLabelValues(status).Inc()
	m.QueryDurationSeconds.WithLabelValues(status).Observe(seconds)
}

// RecordQueryError records a failed query by classified kind.
func (m *AdvisorMetrics) RecordQueryError(kind string) {
	m.QueryErrorsTotal.WithLabelValues(kind).Inc()
}

// RecordCacheEvent records a cache hit or miss.
func (m *AdvisorMetrics) RecordCacheEvent(hit bool) {
	event := "miss"
	if hit {
		event = "hit"
	}
	m.CacheEventsTotal.WithLabelValues(event).Inc()
}

// RecordVerification records a verification outcome.
//
// # Inputs
//
//   - passed: whether every check passed.
//   - warned: whether any warnings were attached.
func (m *AdvisorMetrics) RecordVerification(passed, warned bool) {
	outcome := "passed"
	switch {
	case !passed:
		outcome = "failed"
	case warned:
		outcome = "warned"
	}
	m.VerificationsTotal.WithLabelValues(outcome).Inc()
}

// RecordBackendRetry records one Ghostfolio transport retry.
func (m *AdvisorMetrics) RecordBackendRetry(op string) {
	m.BackendRetriesTotal.WithLabelValues(op).Inc()
}

// RecordFallback records a retry on the fallback model.
func (m *AdvisorMetrics) RecordFallback() {
	m.ProviderFallbacksTotal.Inc()
}

// RecordToolInvocations records the tools used while answering a query.
func (m *AdvisorMetrics) RecordToolInvocations(toolNames []string) {
	for _, name := range toolNames {
		m.ToolInvocationsTotal.WithLabelValues(name).Inc()
	}
}
