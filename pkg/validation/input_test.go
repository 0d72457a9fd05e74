// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// SanitizeString Tests
// =============================================================================

func TestSanitizeString_TrimsAndCleans(t *testing.T) {
	clean, err := SanitizeString("  hello\x00world\x1f  ", 200, "input")

	require.NoError(t, err)
	assert.Equal(t, "helloworld", clean)
}

func TestSanitizeString_Truncates(t *testing.T) {
	long := strings.Repeat("a", 300)

	clean, err := SanitizeString(long, 200, "input")

	require.NoError(t, err)
	assert.Len(t, clean, 200)
}

func TestSanitizeString_EmptyAfterCleaning(t *testing.T) {
	_, err := SanitizeString("  \x00\x1f  ", 200, "query")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "query cannot be empty")
}

// =============================================================================
// ValidateRange Tests
// =============================================================================

func TestValidateRange_AcceptsAllKnownRanges(t *testing.T) {
	for _, r := range []string{"1d", "wtd", "1w", "mtd", "1m", "3m", "ytd", "1y", "3y", "5y", "max"} {
		got, err := ValidateRange(r)
		require.NoError(t, err, "range %q should be valid", r)
		assert.Equal(t, r, got)
	}
}

func TestValidateRange_NormalizesCase(t *testing.T) {
	got, err := ValidateRange("  YTD ")

	require.NoError(t, err)
	assert.Equal(t, "ytd", got)
}

func TestValidateRange_RejectsUnknown(t *testing.T) {
	_, err := ValidateRange("2w")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid range")
	assert.Contains(t, err.Error(), "ytd")
}

// =============================================================================
// ValidateSymbolQuery Tests
// =============================================================================

func TestValidateSymbolQuery_CapsLength(t *testing.T) {
	got, err := ValidateSymbolQuery(strings.Repeat("x", 50))

	require.NoError(t, err)
	assert.Len(t, got, MaxSymbolLength)
}

func TestValidateSymbolQuery_Empty(t *testing.T) {
	_, err := ValidateSymbolQuery("   ")

	assert.Error(t, err)
}

// =============================================================================
// ValidateJSONPayload Tests
// =============================================================================

func TestValidateJSONPayload_AcceptsSmall(t *testing.T) {
	got, err := ValidateJSONPayload(`{"a":1}`, "payload")

	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, got)
}

func TestValidateJSONPayload_RejectsOversized(t *testing.T) {
	big := strings.Repeat("x", MaxJSONLength+1)

	_, err := ValidateJSONPayload(big, "payload")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}
