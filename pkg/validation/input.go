// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation utilities for user-supplied
// tool parameters.
//
// This package contains validators for strings that are forwarded to the
// Ghostfolio API: free-text queries, time ranges, symbol lookups, and JSON
// activity payloads. Using these validators keeps oversized, malformed, or
// control-character-laden input from ever reaching the network.
package validation

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// MaxQueryLength is the default cap for free-text input after cleaning.
	MaxQueryLength = 200

	// MaxSymbolLength is the cap for symbol/ticker lookup queries.
	MaxSymbolLength = 30

	// MaxJSONLength is the cap for JSON string payloads (import activities).
	MaxJSONLength = 10000
)

// validRanges enumerates the time ranges Ghostfolio accepts for
// performance and details queries.
var validRanges = map[string]bool{
	"1d": true, "wtd": true, "1w": true, "mtd": true, "1m": true,
	"3m": true, "ytd": true, "1y": true, "3y": true, "5y": true, "max": true,
}

// controlChars matches C0 and C1 control characters, never valid in user input.
var controlChars = regexp.MustCompile(`[\x00-\x1f\x7f-\x9f]`)

// =============================================================================
// Generic Sanitizer
// =============================================================================

// SanitizeString strips whitespace, removes control characters, and truncates.
//
// # Description
//
// Cleans a raw user-supplied string before it is used as a request parameter.
// The string is trimmed, stripped of control characters, and cut to maxLength
// runes. An empty result after cleaning is an error.
//
// # Inputs
//
//   - value: Raw user input.
//   - maxLength: Maximum allowed length after cleaning.
//   - fieldName: Human-readable name used in error messages.
//
// # Outputs
//
//   - string: The cleaned string.
//   - error: Non-nil if the value is empty after cleaning.
//
// # Examples
//
//	clean, err := validation.SanitizeString("  AAPL\x00  ", 30, "symbol query")
//	// clean == "AAPL"
func SanitizeString(value string, maxLength int, fieldName string) (string, error) {
	cleaned := strings.TrimSpace(value)
	cleaned = controlChars.ReplaceAllString(cleaned, "")

	if cleaned == "" {
		return "", fmt.Errorf("%s cannot be empty", fieldName)
	}

	if len(cleaned) > maxLength {
		cleaned = cleaned[:maxLength]
	}

	return cleaned, nil
}

// =============================================================================
// Domain-Specific Validators
// =============================================================================

// ValidateRange validates a portfolio time-range parameter.
//
// Valid ranges: 1d, wtd, 1w, mtd, 1m, 3m, ytd, 1y, 3y, 5y, max.
// The input is trimmed and lowercased before checking. Returns the
// normalized range or an error listing the valid options.
func ValidateRange(rangeValue string) (string, error) {
	cleaned := strings.ToLower(strings.TrimSpace(rangeValue))
	if !validRanges[cleaned] {
		options := make([]string, 0, len(validRanges))
		for r := range validRanges {
			options = append(options, r)
		}
		sort.Strings(options)
		return "", fmt.Errorf("invalid range %q. Valid options: %s",
			rangeValue, strings.Join(options, ", "))
	}
	return cleaned, nil
}

// ValidateSymbolQuery validates and sanitizes a symbol/ticker lookup query.
//
// Returns the cleaned query or an error if it is empty after cleaning.
func ValidateSymbolQuery(query string) (string, error) {
	return SanitizeString(query, MaxSymbolLength, "symbol query")
}

// ValidateJSONPayload performs a length check on a JSON string payload.
//
// Parse errors are left to the consumer; this only guards size so an
// oversized payload is rejected before any decoding work.
func ValidateJSONPayload(jsonStr string, fieldName string) (string, error) {
	if len(jsonStr) > MaxJSONLength {
		return "", fmt.Errorf("%s is too large (%d chars, max %d)",
			fieldName, len(jsonStr), MaxJSONLength)
	}
	return jsonStr, nil
}
