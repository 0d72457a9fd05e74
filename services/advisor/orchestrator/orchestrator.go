// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package orchestrator runs the portfolio query pipeline.
//
// # Description
//
// One query flows: sanitize -> cache lookup -> agent run -> verification
// -> citation and confidence enrichment -> cache store. Provider outages
// and throttling that survive the agent's own fallback are degraded into
// an apologetic answer rather than an HTTP error; only unreachable
// backends, cancellations, and internal failures surface as errors.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/AleutianAI/AleutianAdvisor/pkg/validation"
	"github.com/AleutianAI/AleutianAdvisor/services/advisor/agent"
	"github.com/AleutianAI/AleutianAdvisor/services/advisor/cache"
	"github.com/AleutianAI/AleutianAdvisor/services/advisor/datatypes"
	"github.com/AleutianAI/AleutianAdvisor/services/advisor/formatter"
	"github.com/AleutianAI/AleutianAdvisor/services/advisor/observability"
	"github.com/AleutianAI/AleutianAdvisor/services/advisor/verification"
)

// =============================================================================
// Errors
// =============================================================================

// ErrInvalidQuery marks a request rejected before any work was done.
// Wrapped with the validation detail.
var ErrInvalidQuery = errors.New("invalid query")

// ErrThrottled means the service-side query limiter rejected the request.
var ErrThrottled = errors.New("too many concurrent queries, retry shortly")

// ErrBackendUnreachable means Ghostfolio could not be reached after
// exhausting transport retries.
var ErrBackendUnreachable = errors.New("portfolio backend unreachable")

// =============================================================================
// Query Orchestrator
// =============================================================================

// degradedResponse is returned when the LLM provider is down or throttled
// beyond what the fallback model can absorb.
const degradedResponse = "I'm temporarily unable to process your question because the " +
	"language model provider is unavailable. Your portfolio data is unaffected. " +
	"Please try again in a moment."

// Agent is the reasoning engine the orchestrator drives. Satisfied by
// agent.Agent.
type Agent interface {
	Run(ctx context.Context, message, conversationID string) (string, []datatypes.ToolInvocationRecord, error)
}

// Config holds orchestrator tuning.
//
// # Fields
//
//   - QueriesPerSecond: Sustained service-wide query rate. Zero disables
//     limiting.
//   - QueryBurst: Burst allowance on top of the sustained rate.
type Config struct {
	QueriesPerSecond float64
	QueryBurst       int
}

// QueryOrchestrator wires the agent, cache, verification, and formatting
// into one pipeline.
type QueryOrchestrator struct {
	agent   Agent
	cache   *cache.ResponseCache
	engine  *verification.Engine
	limiter *rate.Limiter
	metrics *observability.AdvisorMetrics
}

// New creates a QueryOrchestrator.
//
// # Inputs
//
//   - cfg: Rate limiting configuration.
//   - ag: The reasoning agent. Required.
//   - responseCache: The response cache. Required.
//   - engine: The verification engine. Required.
//   - metrics: May be nil; metrics are then skipped.
func New(cfg Config, ag Agent, responseCache *cache.ResponseCache, engine *verification.Engine, metrics *observability.AdvisorMetrics) (*QueryOrchestrator, error) {
	if ag == nil {
		return nil, fmt.Errorf("orchestrator: agent is required")
	}
	if responseCache == nil {
		return nil, fmt.Errorf("orchestrator: cache is required")
	}
	if engine == nil {
		return nil, fmt.Errorf("orchestrator: verification engine is required")
	}

	var limiter *rate.Limiter
	if cfg.QueriesPerSecond > 0 {
		burst := cfg.QueryBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.QueriesPerSecond), burst)
	}

	return &QueryOrchestrator{
		agent:   ag,
		cache:   responseCache,
		engine:  engine,
		limiter: limiter,
		metrics: metrics,
	}, nil
}

// Query answers one portfolio question.
//
// # Description
//
// Runs the full pipeline. Cache hits skip the agent and verification
// entirely and are marked Cached. Degraded provider answers are returned
// as normal responses with low confidence and are never cached.
//
// # Inputs
//
//   - ctx: Cancellation for the whole pipeline.
//   - req: The normalized query request.
//
// # Outputs
//
//   - *datatypes.QueryResponse on success or degradation.
//   - error: ErrInvalidQuery, ErrThrottled, ErrBackendUnreachable, a
//     context error, or an internal failure.
func (o *QueryOrchestrator) Query(ctx context.Context, req *datatypes.QueryRequest) (*datatypes.QueryResponse, error) {
	start := time.Now()

	message, err := validation.SanitizeString(req.Message, validation.MaxQueryLength, "message")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = datatypes.DefaultConversationID
	}

	if cached := o.cache.Get(message, conversationID); cached != nil {
		o.recordCacheEvent(true)
		o.recordQuery("success", start)
		hit := *cached
		hit.Cached = true
		return &hit, nil
	}
	o.recordCacheEvent(false)

	if o.limiter != nil && !o.limiter.Allow() {
		return nil, ErrThrottled
	}

	answer, invocations, err := o.agent.Run(ctx, message, conversationID)
	if err != nil {
		return o.handleAgentError(err, conversationID, start)
	}

	toolNames := make([]string, len(invocations))
	toolResults := make([]string, len(invocations))
	for i, inv := range invocations {
		toolNames[i] = inv.ToolName
		toolResults[i] = inv.ResultPreview
	}

	result := o.engine.Verify(answer, toolResults)
	o.recordVerification(result)
	if !result.Passed {
		slog.Warn("verification flagged response",
			"conversation_id", conversationID,
			"summary", result.Summary())
	}

	resp := &datatypes.QueryResponse{
		Response:       result.CleanedResponse,
		ConversationID: conversationID,
		Citations:      formatter.BuildCitations(toolNames),
		Confidence:     formatter.EstimateConfidence(result.CleanedResponse, toolNames, toolResults),
		ToolsUsed:      toolNames,
		Verification: datatypes.VerificationSummary{
			Passed:   result.Passed,
			Warnings: result.Warnings,
		},
	}

	o.cache.Put(message, conversationID, resp)
	o.recordToolInvocations(toolNames)
	o.recordQuery("success", start)
	return resp, nil
}

// handleAgentError maps a failed agent run to a degraded answer or a
// typed error.
func (o *QueryOrchestrator) handleAgentError(err error, conversationID string, start time.Time) (*datatypes.QueryResponse, error) {
	kind := agent.Classify(err)
	o.recordQueryError(kind.String())

	switch kind {
	case agent.KindRateLimited, agent.KindUnavailable:
		slog.Warn("degrading query after provider failure",
			"conversation_id", conversationID,
			"kind", kind.String(),
			"error", err)
		o.recordQuery("degraded", start)
		return &datatypes.QueryResponse{
			Response:       degradedResponse,
			ConversationID: conversationID,
			Citations:      []string{},
			Confidence:     formatter.ConfidenceLow,
			ToolsUsed:      []string{},
			Verification:   datatypes.VerificationSummary{Passed: true},
		}, nil

	case agent.KindBackendUnreachable:
		o.recordQuery("error", start)
		return nil, fmt.Errorf("%w: %v", ErrBackendUnreachable, err)

	case agent.KindCanceled:
		o.recordQuery("error", start)
		return nil, err

	default:
		o.recordQuery("error", start)
		return nil, fmt.Errorf("agent run failed: %w", err)
	}
}

// =============================================================================
// Metrics Plumbing
// =============================================================================

func (o *QueryOrchestrator) recordQuery(status string, start time.Time) {
	if o.metrics != nil {
		o.metrics.RecordQuery(status, time.Since(start).Seconds())
	}
}

func (o *QueryOrchestrator) recordQueryError(kind string) {
	if o.metrics != nil {
		o.metrics.RecordQueryError(kind)
	}
}

func (o *QueryOrchestrator) recordCacheEvent(hit bool) {
	if o.metrics != nil {
		o.metrics.RecordCacheEvent(hit)
	}
}

func (o *QueryOrchestrator) recordVerification(result *verification.Result) {
	if o.metrics != nil {
		o.metrics.RecordVerification(result.Passed, len(result.Warnings) > 0)
	}
}

func (o *QueryOrchestrator) recordToolInvocations(toolNames []string) {
	if o.metrics != nil {
		o.metrics.RecordToolInvocations(toolNames)
	}
}
