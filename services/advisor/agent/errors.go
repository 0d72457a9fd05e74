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
	"errors"
	"strings"

	"github.com/AleutianAI/AleutianAdvisor/services/advisor/ghostfolio"
)

// =============================================================================
// Error Classification
// =============================================================================

// ErrorKind is the closed set of failure categories the orchestrator
// branches on. Produced only by Classify so that provider-library error
// shapes never leak past this package.
type ErrorKind int

const (
	// KindNone means no error.
	KindNone ErrorKind = iota

	// KindRateLimited means the LLM provider throttled the request (429,
	// quota exhausted). Eligible for fallback-model retry.
	KindRateLimited

	// KindUnavailable means the LLM provider could not be reached or
	// returned a server error.
	KindUnavailable

	// KindBackendUnreachable means a Ghostfolio call exhausted its
	// transport retries mid-answer.
	KindBackendUnreachable

	// KindCanceled means the caller's context expired.
	KindCanceled

	// KindOther is anything else (prompt rejected, parse failure, bug).
	KindOther
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindRateLimited:
		return "rate_limited"
	case KindUnavailable:
		return "provider_unavailable"
	case KindBackendUnreachable:
		return "backend_unreachable"
	case KindCanceled:
		return "canceled"
	default:
		return "other"
	}
}

// rateLimitMarkers identify provider throttling in error text. Provider
// SDKs surface these as opaque wrapped errors, so string matching is the
// only portable signal.
var rateLimitMarkers = []string{
	"429",
	"rate limit",
	"rate_limit",
	"quota",
	"too many requests",
}

var unavailableMarkers = []string{
	"connection refused",
	"connection reset",
	"no such host",
	"timeout",
	"deadline exceeded",
	"bad gateway",
	"service unavailable",
	"502",
	"503",
	"eof",
}

// Classify maps any error from an agent run to an ErrorKind.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindNone
	}

	var te *ghostfolio.TransportError
	if errors.As(err, &te) {
		return KindBackendUnreachable
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCanceled
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range rateLimitMarkers {
		if strings.Contains(msg, marker) {
			return KindRateLimited
		}
	}
	for _, marker := range unavailableMarkers {
		if strings.Contains(msg, marker) {
			return KindUnavailable
		}
	}

	return KindOther
}
