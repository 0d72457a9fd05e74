// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes provides data structures for the advisor service.
//
// This file contains the request and response types for the query endpoint.
// Typed Ghostfolio API payloads live in ghostfolio.go.
package datatypes

// =============================================================================
// Query Request / Response Types
// =============================================================================

// QueryRequest is the body of POST /v1/query.
//
// # Description
//
// A natural-language question for the portfolio agent. ConversationID groups
// turns into one conversation; repeated identical questions within the same
// conversation may be served from cache.
//
// # Fields
//
//   - Message: Required. The user's question.
//   - ConversationID: Optional. Defaults to "default" when empty.
type QueryRequest struct {
	Message        string `json:"message" binding:"required"`
	ConversationID string `json:"conversation_id"`
}

// DefaultConversationID is used when a request omits conversation_id.
const DefaultConversationID = "default"

// Normalize applies request defaults. Call once after binding.
func (r *QueryRequest) Normalize() {
	if r.ConversationID == "" {
		r.ConversationID = DefaultConversationID
	}
}

// VerificationSummary reports the outcome of the response checks.
type VerificationSummary struct {
	Passed   bool     `json:"passed"`
	Warnings []string `json:"warnings"`
}

// QueryResponse is the enriched answer returned to the caller.
//
// # Fields
//
//   - Response: The verified (possibly disclaimer-amended) answer text.
//   - ConversationID: Echo of the request's conversation.
//   - Citations: Human-readable data source labels, first-seen order.
//   - Confidence: One of "high", "medium", "low".
//   - ToolsUsed: Names of backend tools invoked while answering.
//   - Verification: Check outcome and warnings.
//   - Cached: True when served from the response cache.
type QueryResponse struct {
	Response       string              `json:"response"`
	ConversationID string              `json:"conversation_id"`
	Citations      []string            `json:"citations"`
	Confidence     string              `json:"confidence"`
	ToolsUsed      []string            `json:"tools_used"`
	Verification   VerificationSummary `json:"verification"`
	Cached         bool                `json:"cached"`
}

// ToolInvocationRecord captures one backend tool call made while answering.
// Ephemeral; consumed by verification and formatting, never persisted.
type ToolInvocationRecord struct {
	ToolName      string
	ResultPreview string
}

// =============================================================================
// Health
// =============================================================================

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}
