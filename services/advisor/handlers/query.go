// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers contains the Gin HTTP handlers for the advisor service.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/AleutianAdvisor/services/advisor/datatypes"
	"github.com/AleutianAI/AleutianAdvisor/services/advisor/orchestrator"
)

var queryTracer = otel.Tracer("aleutian.advisor.handlers")

// Orchestrator is the query pipeline behind the HTTP surface. Satisfied
// by orchestrator.QueryOrchestrator.
type Orchestrator interface {
	Query(ctx context.Context, req *datatypes.QueryRequest) (*datatypes.QueryResponse, error)
}

// HandleQuery creates the handler for POST /v1/query.
//
// # Description
//
// Binds the query request, runs the full pipeline, and maps pipeline
// errors to HTTP statuses:
//
//   - invalid request body or query: 400
//   - service-side throttling: 429
//   - Ghostfolio unreachable: 502
//   - client cancellation / deadline: 499 (nginx convention)
//   - anything else: 500
//
// # Inputs
//
//   - orch: The query orchestrator. Must not be nil.
//
// # Outputs
//
//   - gin.HandlerFunc: Handler ready for route registration.
func HandleQuery(orch Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := queryTracer.Start(c.Request.Context(), "HandleQuery")
		defer span.End()

		var req datatypes.QueryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "invalid request body")
			c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
			return
		}
		req.Normalize()
		span.SetAttributes(attribute.String("conversation.id", req.ConversationID))

		resp, err := orch.Query(ctx, &req)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			status, message := mapQueryError(err)
			slog.Error("query failed",
				"conversation_id", req.ConversationID,
				"status", status,
				"error", err)
			c.JSON(status, gin.H{"error": message})
			return
		}

		span.SetAttributes(
			attribute.Bool("response.cached", resp.Cached),
			attribute.String("response.confidence", resp.Confidence),
			attribute.Int("response.tools_used", len(resp.ToolsUsed)),
		)
		span.SetStatus(codes.Ok, "query completed")
		c.JSON(http.StatusOK, resp)
	}
}

// statusClientClosedRequest is nginx's non-standard code for a client
// that went away before the response was ready.
const statusClientClosedRequest = 499

func mapQueryError(err error) (int, string) {
	switch {
	case errors.Is(err, orchestrator.ErrInvalidQuery):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, orchestrator.ErrThrottled):
		return http.StatusTooManyRequests, orchestrator.ErrThrottled.Error()
	case errors.Is(err, orchestrator.ErrBackendUnreachable):
		return http.StatusBadGateway, orchestrator.ErrBackendUnreachable.Error()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return statusClientClosedRequest, "request canceled"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
