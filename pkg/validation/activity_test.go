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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validActivityJSON = `[{
	"currency": "USD",
	"dataSource": "YAHOO",
	"date": "2024-01-01T00:00:00.000Z",
	"fee": 0,
	"quantity": 10,
	"symbol": "AAPL",
	"type": "BUY",
	"unitPrice": 185.50
}]`

func TestParseActivities_Valid(t *testing.T) {
	acts, err := ParseActivities(validActivityJSON)

	require.NoError(t, err)
	require.Len(t, acts, 1)
	assert.Equal(t, "AAPL", acts[0].Symbol)
	assert.Equal(t, "BUY", acts[0].Type)
	assert.Equal(t, 0.0, *acts[0].Fee)
	assert.Equal(t, 185.50, *acts[0].UnitPrice)
}

func TestParseActivities_SingleObject(t *testing.T) {
	single := `{
		"currency": "EUR",
		"dataSource": "YAHOO",
		"date": "2024-06-01T00:00:00.000Z",
		"fee": 1.5,
		"quantity": 2,
		"symbol": "SAP",
		"type": "SELL",
		"unitPrice": 170.0
	}`

	acts, err := ParseActivities(single)

	require.NoError(t, err)
	require.Len(t, acts, 1)
	assert.Equal(t, "SAP", acts[0].Symbol)
}

func TestParseActivities_InvalidJSON(t *testing.T) {
	_, err := ParseActivities("not json")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid JSON")
}

func TestParseActivities_MissingFields(t *testing.T) {
	_, err := ParseActivities(`[{"symbol": "AAPL", "type": "BUY"}]`)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "activity 0")
	assert.Contains(t, err.Error(), "Currency")
}

func TestParseActivities_ZeroFeeIsValid(t *testing.T) {
	// An explicit zero fee must not be treated as a missing field.
	acts, err := ParseActivities(validActivityJSON)

	require.NoError(t, err)
	assert.NotNil(t, acts[0].Fee)
}

func TestParseActivities_BadType(t *testing.T) {
	bad := `[{
		"currency": "USD",
		"dataSource": "YAHOO",
		"date": "2024-01-01T00:00:00.000Z",
		"fee": 0,
		"quantity": 10,
		"symbol": "AAPL",
		"type": "SHORT",
		"unitPrice": 185.50
	}]`

	_, err := ParseActivities(bad)

	assert.Error(t, err)
}

func TestParseActivities_EmptyList(t *testing.T) {
	_, err := ParseActivities(`[]`)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func TestValidateSymbol_NormalizesAndValidates(t *testing.T) {
	got, err := ValidateSymbol(" brk.a ")

	require.NoError(t, err)
	assert.Equal(t, "BRK.A", got)
}

func TestValidateSymbol_RejectsInjection(t *testing.T) {
	_, err := ValidateSymbol(`AAPL"; drop`)

	assert.Error(t, err)
}
