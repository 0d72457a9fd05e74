// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Typed payloads for the Ghostfolio REST API.
//
// Ghostfolio leaves many fields unset depending on data availability and
// has shifted field names across releases (marketValue vs valueInBaseCurrency,
// nested SymbolProfile vs flat symbol). All of that variance is absorbed here:
// optional fields are pointers, and accessor methods centralize the fallback
// chains so the rest of the service never touches raw maps.
package datatypes

import (
	"github.com/AleutianAI/AleutianAdvisor/pkg/validation"
)

// =============================================================================
// Authentication
// =============================================================================

// AuthRequest is the body of POST /api/v1/auth/anonymous.
type AuthRequest struct {
	AccessToken string `json:"accessToken"`
}

// AuthResponse carries the bearer token returned by the auth endpoint.
type AuthResponse struct {
	AuthToken string `json:"authToken"`
}

// =============================================================================
// Holdings
// =============================================================================

// Holding is one position in the portfolio.
type Holding struct {
	Name                   string   `json:"name"`
	Symbol                 string   `json:"symbol"`
	Quantity               *float64 `json:"quantity"`
	MarketPrice            *float64 `json:"marketPrice"`
	ValueInBaseCurrency    *float64 `json:"valueInBaseCurrency"`
	MarketValue            *float64 `json:"marketValue"`
	Value                  *float64 `json:"value"`
	Currency               string   `json:"currency"`
	AllocationInPercentage *float64 `json:"allocationInPercentage"`
	AssetClass             string   `json:"assetClass"`
	AssetSubClass          string   `json:"assetSubClass"`
	NetPerformancePercent  *float64 `json:"netPerformancePercent"`
}

// DisplayName returns the best available label for the position.
func (h *Holding) DisplayName() string {
	if h.Name != "" {
		return h.Name
	}
	if h.Symbol != "" {
		return h.Symbol
	}
	return "Unknown"
}

// CurrentValue returns the position value, preferring base-currency value,
// then market value, then the legacy value field. Second return is false
// when no value field was present at all.
func (h *Holding) CurrentValue() (float64, bool) {
	switch {
	case h.ValueInBaseCurrency != nil:
		return *h.ValueInBaseCurrency, true
	case h.MarketValue != nil:
		return *h.MarketValue, true
	case h.Value != nil:
		return *h.Value, true
	}
	return 0, false
}

// HoldingsResponse is the body of GET /api/v1/portfolio/holdings.
type HoldingsResponse struct {
	Holdings []Holding `json:"holdings"`
}

// =============================================================================
// Performance
// =============================================================================

// PerformanceMetrics are the headline performance numbers for one range.
type PerformanceMetrics struct {
	CurrentValue               *float64 `json:"currentValue"`
	NetPerformance             *float64 `json:"netPerformance"`
	NetPerformancePercentage   *float64 `json:"netPerformancePercentage"`
	GrossPerformance           *float64 `json:"grossPerformance"`
	GrossPerformancePercentage *float64 `json:"grossPerformancePercentage"`
	TotalInvestment            *float64 `json:"totalInvestment"`
}

// PerformanceResponse is the body of GET /api/v1/portfolio/performance.
//
// Newer Ghostfolio releases nest the numbers under "performance"; older ones
// return them flat. Metrics() hides the difference.
type PerformanceResponse struct {
	Performance *PerformanceMetrics `json:"performance"`
	PerformanceMetrics
}

// Metrics returns the nested block when present, otherwise the flat fields.
func (p *PerformanceResponse) Metrics() PerformanceMetrics {
	if p.Performance != nil {
		return *p.Performance
	}
	return p.PerformanceMetrics
}

// =============================================================================
// Orders / Activities
// =============================================================================

// SymbolProfile is the instrument metadata nested in an order.
type SymbolProfile struct {
	Symbol   string `json:"symbol"`
	Currency string `json:"currency"`
	Name     string `json:"name"`
}

// Order is one recorded activity.
type Order struct {
	ID            string         `json:"id"`
	Date          string         `json:"date"`
	Type          string         `json:"type"`
	Quantity      *float64       `json:"quantity"`
	UnitPrice     *float64       `json:"unitPrice"`
	Fee           *float64       `json:"fee"`
	Currency      string         `json:"currency"`
	Symbol        string         `json:"symbol"`
	SymbolProfile *SymbolProfile `json:"SymbolProfile"`
}

// InstrumentSymbol prefers the nested profile symbol over the flat field.
func (o *Order) InstrumentSymbol() string {
	if o.SymbolProfile != nil && o.SymbolProfile.Symbol != "" {
		return o.SymbolProfile.Symbol
	}
	if o.Symbol != "" {
		return o.Symbol
	}
	return "N/A"
}

// InstrumentCurrency prefers the nested profile currency over the flat field.
func (o *Order) InstrumentCurrency() string {
	if o.SymbolProfile != nil && o.SymbolProfile.Currency != "" {
		return o.SymbolProfile.Currency
	}
	return o.Currency
}

// TradeDate returns the date portion of the ISO timestamp.
func (o *Order) TradeDate() string {
	if len(o.Date) >= 10 {
		return o.Date[:10]
	}
	if o.Date == "" {
		return "N/A"
	}
	return o.Date
}

// OrdersResponse is the body of GET /api/v1/order.
type OrdersResponse struct {
	Activities []Order `json:"activities"`
}

// ImportRequest is the body of POST /api/v1/import.
type ImportRequest struct {
	Activities []validation.Activity `json:"activities"`
}

// =============================================================================
// Accounts
// =============================================================================

// Platform is the broker metadata nested in an account.
type Platform struct {
	Name string `json:"name"`
}

// Account is one investment account.
type Account struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Balance    *float64  `json:"balance"`
	Currency   string    `json:"currency"`
	Value      *float64  `json:"value"`
	IsExcluded bool      `json:"isExcluded"`
	PlatformID string    `json:"platformId"`
	Platform   *Platform `json:"Platform"`
}

// PlatformName prefers the nested platform name over the raw platform id.
func (a *Account) PlatformName() string {
	if a.Platform != nil && a.Platform.Name != "" {
		return a.Platform.Name
	}
	if a.PlatformID != "" {
		return a.PlatformID
	}
	return "N/A"
}

// AccountsResponse is the body of GET /api/v1/account.
type AccountsResponse struct {
	Accounts []Account `json:"accounts"`
}

// =============================================================================
// Symbol Lookup
// =============================================================================

// LookupItem is one match from the symbol search.
type LookupItem struct {
	Symbol        string `json:"symbol"`
	Name          string `json:"name"`
	AssetClass    string `json:"assetClass"`
	AssetSubClass string `json:"assetSubClass"`
	DataSource    string `json:"dataSource"`
	Currency      string `json:"currency"`
}

// LookupResponse is the body of GET /api/v1/symbol/lookup.
type LookupResponse struct {
	Items []LookupItem `json:"items"`
}

// =============================================================================
// User
// =============================================================================

// UserSettings are the user's display and analysis preferences.
type UserSettings struct {
	BaseCurrency string `json:"baseCurrency"`
	DateRange    string `json:"dateRange"`
	Locale       string `json:"locale"`
}

// Subscription is the user's plan information.
type Subscription struct {
	Type string `json:"type"`
}

// UserResponse is the body of GET /api/v1/user.
type UserResponse struct {
	ID           string        `json:"id"`
	Role         string        `json:"role"`
	Settings     *UserSettings `json:"settings"`
	Subscription *Subscription `json:"subscription"`
}

// BaseCurrency returns the configured base currency or "N/A".
func (u *UserResponse) BaseCurrency() string {
	if u.Settings != nil && u.Settings.BaseCurrency != "" {
		return u.Settings.BaseCurrency
	}
	return "N/A"
}

// =============================================================================
// Health
// =============================================================================

// BackendHealthResponse is the body of GET /api/v1/health on the
// Ghostfolio side.
type BackendHealthResponse struct {
	Status string `json:"status"`
}
