// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package verification runs domain-specific integrity checks on agent
// responses before they reach the caller.
//
// # Description
//
// Four checks run in a fixed order:
//  1. Prohibited advice language. Violations never block the response;
//     a disclaimer is appended instead.
//  2. Allocation-sum consistency. Percentage breakdowns should sum to ~100%.
//  3. Negative-value sanity. Holdings values and share counts should not
//     be negative.
//  4. Tool-data completeness. The response must not present concrete data
//     when the tools it relied on returned empty or error results.
//
// Checks 2-4 always run against the original response text, never against
// the disclaimer-amended text, so the injected disclaimer can not influence
// pattern matches.
//
// # Thread Safety
//
// Engine is immutable after construction and safe for concurrent use.
package verification

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/dlclark/regexp2"
)

// =============================================================================
// Result
// =============================================================================

// Result is the outcome of running all checks on one response.
//
// # Fields
//
//   - Passed: False when advice violations or a completeness failure
//     occurred. Allocation and negative-value problems are warnings only.
//   - Warnings: Human-readable warning messages, in check order.
//   - AdviceViolations: One entry per matched advice pattern.
//   - CleanedResponse: The response text, disclaimer-amended if needed.
type Result struct {
	Passed           bool
	Warnings         []string
	AdviceViolations []string
	CleanedResponse  string
}

// Summary renders a short log line for the result.
func (r *Result) Summary() string {
	if r.Passed && len(r.Warnings) == 0 {
		return "All verification checks passed."
	}
	parts := []string{}
	if len(r.AdviceViolations) > 0 {
		parts = append(parts, fmt.Sprintf("Advice violations: %d", len(r.AdviceViolations)))
	}
	if len(r.Warnings) > 0 {
		parts = append(parts, fmt.Sprintf("Warnings: %d", len(r.Warnings)))
	}
	return strings.Join(parts, "; ")
}

// =============================================================================
// Engine
// =============================================================================

// numeric extraction patterns, shared by checks 2-4
var (
	percentPattern   = regexp.MustCompile(`(\d+\.?\d*)\s*%`)
	dollarPattern    = regexp.MustCompile(`\$[\d,]+\.?\d*`)
	negValuePattern  = regexp.MustCompile(`(?i)(?:value|worth|balance).*?-\$[\d,]+`)
	negSharesPattern = regexp.MustCompile(`(?i)-\d+\.?\d*\s*shares?`)
)

// Engine runs the verification checks with a fixed set of compiled
// pattern tables.
type Engine struct {
	advicePatterns  []*regexp2.Regexp
	adviceSources   []string
	emptyIndicators []string
}

// NewEngine compiles the default pattern tables, applying any overrides.
//
// # Inputs
//
//   - cfg: Optional pattern overrides. May be nil.
//
// # Outputs
//
//   - *Engine: Ready-to-use engine.
//   - error: Non-nil if an override pattern fails to compile.
func NewEngine(cfg *PatternConfig) (*Engine, error) {
	phrases := defaultAdvicePhrases
	indicators := defaultEmptyDataIndicators
	if cfg != nil {
		if len(cfg.AdvicePhrases) > 0 {
			phrases = cfg.AdvicePhrases
		}
		if len(cfg.EmptyDataIndicators) > 0 {
			indicators = cfg.EmptyDataIndicators
		}
	}

	e := &Engine{
		adviceSources:   phrases,
		emptyIndicators: make([]string, len(indicators)),
	}
	for i, ind := range indicators {
		e.emptyIndicators[i] = strings.ToLower(ind)
	}

	for _, p := range phrases {
		re, err := regexp2.Compile(p, regexp2.IgnoreCase)
		if err != nil {
			return nil, fmt.Errorf("invalid advice pattern %q: %w", p, err)
		}
		e.advicePatterns = append(e.advicePatterns, re)
	}

	return e, nil
}

// Verify runs all checks on a response.
//
// # Inputs
//
//   - response: The agent's final text answer.
//   - toolResults: Raw tool output strings, in invocation order. May be nil.
//
// # Outputs
//
//   - *Result: Check outcome. CleanedResponse always carries the text to
//     return to the caller.
func (e *Engine) Verify(response string, toolResults []string) *Result {
	result := &Result{Passed: true, CleanedResponse: response}

	// 1. Prohibited advice language
	cleaned, violations := e.checkProhibitedAdvice(response)
	result.CleanedResponse = cleaned
	result.AdviceViolations = violations
	if len(violations) > 0 {
		result.Passed = false
	}

	// 2. Allocation-sum consistency (warning only)
	if warn := checkAllocationSum(response); warn != "" {
		result.Warnings = append(result.Warnings, warn)
	}

	// 3. Negative-value sanity (warning only)
	if warn := checkNegativeValues(response); warn != "" {
		result.Warnings = append(result.Warnings, warn)
	}

	// 4. Tool-data completeness
	if warn := e.checkToolDataCompleteness(response, toolResults); warn != "" {
		result.Warnings = append(result.Warnings, warn)
		result.Passed = false
	}

	if result.Passed && len(result.Warnings) == 0 {
		slog.Debug("all verification checks passed")
	} else {
		slog.Info("verification flagged response", "summary", result.Summary())
	}

	return result
}

// =============================================================================
// Check 1: Prohibited Advice
// =============================================================================

// checkProhibitedAdvice scans for advice language. When violations are
// found the response is not blocked; the disclaimer is appended unless the
// text already disclaims.
func (e *Engine) checkProhibitedAdvice(response string) (string, []string) {
	var violations []string

	for i, re := range e.advicePatterns {
		matched, err := re.MatchString(response)
		if err != nil {
			// regexp2 errors only on pathological backtracking; treat
			// as no match rather than failing the whole query.
			slog.Warn("advice pattern match error", "pattern", e.adviceSources[i], "error", err)
			continue
		}
		if matched {
			violations = append(violations, "Prohibited phrase detected: "+e.adviceSources[i])
		}
	}

	if len(violations) > 0 {
		slog.Warn("advice violations found", "count", len(violations))
		if !strings.Contains(strings.ToLower(response), "not investment advice") {
			response += Disclaimer
		}
	}

	return response, violations
}

// =============================================================================
// Check 2: Allocation Sum
// =============================================================================

// checkAllocationSum verifies that percentage values presented as an
// allocation breakdown sum to roughly 100%. Fewer than three plausible
// allocation values, or a sum far outside the allocation band, means the
// numbers were probably not an allocation at all and the check passes.
func checkAllocationSum(response string) string {
	matches := percentPattern.FindAllStringSubmatch(response, -1)
	if len(matches) < 3 {
		return ""
	}

	var allocValues []float64
	for _, m := range matches {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		if v > 0 && v <= 100 {
			allocValues = append(allocValues, v)
		}
	}
	if len(allocValues) < 3 {
		return ""
	}

	total := 0.0
	for _, v := range allocValues {
		total += v
	}

	if total >= 95 && total <= 105 {
		return ""
	}
	if total >= 50 && total <= 200 {
		return fmt.Sprintf("[Verification] Allocation percentages sum to %.1f%% (expected ~100%%). Values: %v",
			total, allocValues)
	}
	return ""
}

// =============================================================================
// Check 3: Negative Values
// =============================================================================

// checkNegativeValues flags negative holdings values and share counts.
func checkNegativeValues(response string) string {
	var issues []string

	if negValuePattern.MatchString(response) {
		issues = append(issues, "Negative portfolio value detected")
	}
	if negSharesPattern.MatchString(response) {
		issues = append(issues, "Negative share quantity detected")
	}

	if len(issues) == 0 {
		return ""
	}
	return "[Verification] Suspicious values: " + strings.Join(issues, ", ")
}

// =============================================================================
// Check 4: Tool-Data Completeness
// =============================================================================

// checkToolDataCompleteness flags responses that present concrete data
// when one or more tool results carried an empty/error indicator.
func (e *Engine) checkToolDataCompleteness(response string, toolResults []string) string {
	if len(toolResults) == 0 {
		return ""
	}

	var emptyTools []int
	for i, result := range toolResults {
		lower := strings.ToLower(result)
		for _, indicator := range e.emptyIndicators {
			if strings.Contains(lower, indicator) {
				emptyTools = append(emptyTools, i)
				break
			}
		}
	}

	if len(emptyTools) > 0 && responseClaimsData(response) {
		return fmt.Sprintf("[Verification] Agent presented data but tool(s) returned empty/error results (tools: %v)",
			emptyTools)
	}
	return ""
}

// responseClaimsData reports whether the response appears to present
// specific financial data: a dollar amount, or percentages together with a
// bulleted breakdown.
func responseClaimsData(response string) bool {
	hasDollar := dollarPattern.MatchString(response)
	hasPct := percentPattern.MatchString(response)
	hasList := strings.Count(response, "\n- ") >= 2

	return hasDollar || (hasPct && hasList)
}
