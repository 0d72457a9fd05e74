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
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// symbolPattern matches valid ticker symbols.
// Allows: uppercase letters, digits, dots (BRK.A), hyphens (BF-B).
// Max length: 10 characters (covers most exchanges).
var symbolPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.\-]{0,9}$`)

// activityValidator is the shared validator instance. validator.Validate is
// safe for concurrent use and caches struct metadata.
var activityValidator = validator.New(validator.WithRequiredStructEnabled())

// =============================================================================
// Activity Payload
// =============================================================================

// Activity is one transaction record in an import payload.
//
// # Description
//
// Mirrors the shape Ghostfolio's import endpoint expects. Numeric fields are
// pointers so that a missing field is distinguishable from an explicit zero
// (a zero fee is valid; an absent fee is not).
//
// # Fields
//
//   - Currency: ISO currency code, e.g. "USD"
//   - DataSource: Quote source, e.g. "YAHOO"
//   - Date: ISO 8601 timestamp, e.g. "2024-01-01T00:00:00.000Z"
//   - Fee: Transaction fee
//   - Quantity: Number of units
//   - Symbol: Ticker symbol, e.g. "AAPL"
//   - Type: One of BUY, SELL, DIVIDEND, INTEREST, FEE, LIABILITY
//   - UnitPrice: Price per unit
type Activity struct {
	Currency   string   `json:"currency" validate:"required,len=3"`
	DataSource string   `json:"dataSource" validate:"required"`
	Date       string   `json:"date" validate:"required"`
	Fee        *float64 `json:"fee" validate:"required"`
	Quantity   *float64 `json:"quantity" validate:"required,gte=0"`
	Symbol     string   `json:"symbol" validate:"required"`
	Type       string   `json:"type" validate:"required,oneof=BUY SELL DIVIDEND INTEREST FEE LIABILITY"`
	UnitPrice  *float64 `json:"unitPrice" validate:"required,gte=0"`
}

// ValidateSymbol validates a ticker symbol for an activity record.
//
// Valid symbols are 1-10 characters of uppercase letters, digits, dots,
// or hyphens. Returns the uppercase symbol or an error.
func ValidateSymbol(symbol string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(symbol))
	if normalized == "" {
		return "", fmt.Errorf("symbol cannot be empty")
	}
	if !symbolPattern.MatchString(normalized) {
		return "", fmt.Errorf("invalid symbol format: %q (must be 1-10 uppercase alphanumeric chars, dots, or hyphens)", symbol)
	}
	return normalized, nil
}

// ParseActivities decodes and validates a JSON activity payload.
//
// # Description
//
// Accepts either a JSON array of activity objects or a single object.
// Each activity is struct-validated; the first invalid activity aborts with
// an error naming its index and the missing or bad fields.
//
// # Inputs
//
//   - jsonStr: Raw JSON string from the user or the LLM.
//
// # Outputs
//
//   - []Activity: The decoded activities.
//   - error: Non-nil on oversized input, malformed JSON, or a failed field
//     validation.
//
// # Examples
//
//	acts, err := validation.ParseActivities(`[{"currency":"USD",...}]`)
//	if err != nil {
//	    return fmt.Sprintf("Error: %v", err)
//	}
func ParseActivities(jsonStr string) ([]Activity, error) {
	if _, err := ValidateJSONPayload(jsonStr, "activities payload"); err != nil {
		return nil, err
	}

	trimmed := strings.TrimSpace(jsonStr)
	var activities []Activity
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal([]byte(trimmed), &activities); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
	} else {
		var single Activity
		if err := json.Unmarshal([]byte(trimmed), &single); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
		activities = []Activity{single}
	}

	if len(activities) == 0 {
		return nil, fmt.Errorf("activities payload is empty")
	}

	for i, act := range activities {
		if err := activityValidator.Struct(act); err != nil {
			var verrs validator.ValidationErrors
			fields := []string{}
			if ok := isValidationErrors(err, &verrs); ok {
				for _, fe := range verrs {
					fields = append(fields, fe.Field())
				}
			}
			if len(fields) > 0 {
				return nil, fmt.Errorf("activity %d is missing required fields or has invalid values: %s",
					i, strings.Join(fields, ", "))
			}
			return nil, fmt.Errorf("activity %d failed validation: %w", i, err)
		}
		if _, err := ValidateSymbol(act.Symbol); err != nil {
			return nil, fmt.Errorf("activity %d: %w", i, err)
		}
	}

	return activities, nil
}

func isValidationErrors(err error, target *validator.ValidationErrors) bool {
	if verrs, ok := err.(validator.ValidationErrors); ok {
		*target = verrs
		return true
	}
	return false
}
