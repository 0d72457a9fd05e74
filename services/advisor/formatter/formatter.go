// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package formatter enriches agent responses with data source citations
// and a confidence estimate.
package formatter

import (
	"regexp"
	"strings"
)

// =============================================================================
// Tool → Data Source Labels
// =============================================================================

// toolSourceLabels maps tool names to human-readable citation labels.
// Unknown tools pass through under their own name.
var toolSourceLabels = map[string]string{
	"get_portfolio_holdings":    "Portfolio Holdings (Ghostfolio)",
	"get_portfolio_performance": "Performance Metrics (Ghostfolio)",
	"get_portfolio_details":     "Portfolio Details (Ghostfolio)",
	"get_orders":                "Transaction History (Ghostfolio)",
	"get_accounts":              "Account Data (Ghostfolio)",
	"lookup_symbol":             "Market Data Lookup (Ghostfolio/Yahoo Finance)",
	"get_user_settings":         "User Settings (Ghostfolio)",
	"preview_import":            "Import Preview (Validation)",
	"import_activities":         "Activity Import (Ghostfolio)",
	"authenticate":              "Authentication (Ghostfolio)",
	"health_check":              "Health Check (Ghostfolio)",
	"delete_order":              "Order Deletion (Ghostfolio)",
}

// uncitedTools provide no user data and are skipped in citations.
var uncitedTools = map[string]bool{
	"authenticate": true,
	"health_check": true,
}

// =============================================================================
// Confidence Estimation
// =============================================================================

// Confidence levels.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// errorIndicators in a tool result force low confidence.
var errorIndicators = []string{"error", "failed", "unable", "could not", "no data"}

// hedgingPatterns detect uncertain language in the response.
var hedgingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bi'?m not sure\b`),
	regexp.MustCompile(`(?i)\bi don'?t have (enough )?data\b`),
	regexp.MustCompile(`(?i)\bthis (may|might|could) not be\b`),
	regexp.MustCompile(`(?i)\bunable to (determine|calculate)\b`),
	regexp.MustCompile(`(?i)\bapproximate\b`),
	regexp.MustCompile(`(?i)\bestimate\b`),
}

var (
	dollarPattern  = regexp.MustCompile(`\$[\d,]+\.?\d*`)
	percentPattern = regexp.MustCompile(`\d+\.?\d*%`)
)

// EstimateConfidence scores a response as high, medium, or low.
//
// # Description
//
// High: tools were called, the response carries concrete numbers, and no
// hedging language appears. Medium: tools were called or concrete numbers
// appear. Low: no tools were called, or any tool result carries an error
// indicator.
//
// # Inputs
//
//   - response: The agent's final text answer.
//   - toolsCalled: Names of tools invoked while answering.
//   - toolResults: Raw tool output strings. May be nil.
func EstimateConfidence(response string, toolsCalled []string, toolResults []string) string {
	if len(toolsCalled) == 0 {
		return ConfidenceLow
	}

	for _, result := range toolResults {
		lower := strings.ToLower(result)
		for _, ind := range errorIndicators {
			if strings.Contains(lower, ind) {
				return ConfidenceLow
			}
		}
	}

	hedges := 0
	for _, p := range hedgingPatterns {
		if p.MatchString(response) {
			hedges++
		}
	}

	hasSpecificData := dollarPattern.MatchString(response) || percentPattern.MatchString(response)

	switch {
	case hasSpecificData && hedges == 0:
		return ConfidenceHigh
	case hasSpecificData || len(toolsCalled) >= 1:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// =============================================================================
// Citations
// =============================================================================

// BuildCitations maps the tools called to de-duplicated source labels in
// first-seen order. Authentication and health checks are skipped.
func BuildCitations(toolsCalled []string) []string {
	seen := map[string]bool{}
	citations := []string{}

	for _, toolName := range toolsCalled {
		if uncitedTools[toolName] {
			continue
		}
		label, ok := toolSourceLabels[toolName]
		if !ok {
			label = toolName
		}
		if !seen[label] {
			seen[label] = true
			citations = append(citations, label)
		}
	}

	return citations
}
