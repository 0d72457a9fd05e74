// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package verification

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// Pattern Tables
// =============================================================================

// defaultAdvicePhrases are the phrases that constitute financial advice,
// matched case-insensitively. The last pattern uses negative lookahead so
// that "financial advice" in a disclaimer context ("...not financial
// advice...") does not trip the check; that is why these compile with
// regexp2 rather than the standard library.
var defaultAdvicePhrases = []string{
	`\bi recommend (buying|selling|investing|holding)\b`,
	`\byou should (buy|sell|invest in|hold|dump|short)\b`,
	`\bmy advice is\b`,
	`\bi advise you to\b`,
	`\byou must (buy|sell|invest)\b`,
	`\bguaranteed returns?\b`,
	`\brisk[- ]free (investment|return)\b`,
	`\bcan'?t lose\b`,
	`\bsure thing\b`,
	`\bfinancial advice\b(?!.*not\b)(?!.*disclaimer\b)`,
}

// defaultEmptyDataIndicators mark a tool result as having returned no
// usable data. Matched as case-insensitive substrings.
var defaultEmptyDataIndicators = []string{
	"no holdings found",
	"no transactions found",
	"no data available",
	"n/a",
	"empty portfolio",
	"no accounts found",
	"could not retrieve",
	"error fetching",
	"unable to fetch",
}

// Disclaimer is appended when advice language is detected and the response
// does not already disclaim.
const Disclaimer = "\n\n*Disclaimer: This is informational only and not investment advice. " +
	"Consult a licensed financial advisor before making investment decisions.*"

// =============================================================================
// Pattern Overrides
// =============================================================================

// PatternConfig is the YAML shape for overriding the built-in tables.
//
// # Examples
//
//	advice_phrases:
//	  - '\byou should (buy|sell)\b'
//	empty_data_indicators:
//	  - "no holdings found"
type PatternConfig struct {
	AdvicePhrases       []string `yaml:"advice_phrases"`
	EmptyDataIndicators []string `yaml:"empty_data_indicators"`
}

// LoadPatternConfig reads a pattern override file.
//
// Empty lists in the file leave the corresponding default table in place.
func LoadPatternConfig(path string) (*PatternConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pattern config %s: %w", path, err)
	}

	var cfg PatternConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse pattern config %s: %w", path, err)
	}
	return &cfg, nil
}
