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

// CurrencyLookup answers what currency an instrument trades in. The
// import preview consults it to flag likely currency mistakes before an
// import is confirmed.
//
// Implementations return ok=false for unknown symbols; unknown symbols
// are never warned about.
type CurrencyLookup interface {
	TradingCurrency(symbol string) (currency string, ok bool)
}

// staticCurrencyLookup is a fixed symbol → currency table.
type staticCurrencyLookup map[string]string

func (s staticCurrencyLookup) TradingCurrency(symbol string) (string, bool) {
	c, ok := s[symbol]
	return c, ok
}

// NewStaticCurrencyLookup builds a CurrencyLookup from a fixed table.
func NewStaticCurrencyLookup(table map[string]string) CurrencyLookup {
	s := make(staticCurrencyLookup, len(table))
	for sym, cur := range table {
		s[sym] = cur
	}
	return s
}

// DefaultCurrencyLookup covers a handful of liquid US-listed symbols that
// trade in USD. Deliberately narrow; anything beyond this table should
// come from a real reference-data source.
func DefaultCurrencyLookup() CurrencyLookup {
	return NewStaticCurrencyLookup(map[string]string{
		"AAPL":  "USD",
		"MSFT":  "USD",
		"GOOGL": "USD",
		"AMZN":  "USD",
		"NVDA":  "USD",
		"META":  "USD",
		"TSLA":  "USD",
		"SPY":   "USD",
		"VOO":   "USD",
		"VTI":   "USD",
		"QQQ":   "USD",
	})
}
