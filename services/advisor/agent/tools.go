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
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/tools"

	"github.com/AleutianAI/AleutianAdvisor/pkg/validation"
	"github.com/AleutianAI/AleutianAdvisor/services/advisor/ghostfolio"
)

// =============================================================================
// Toolset
// =============================================================================

// maxOrderLines caps the transaction history summary.
const maxOrderLines = 50

// maxLookupResults caps the symbol lookup summary.
const maxLookupResults = 20

// maxDetailsChars caps the raw details dump handed to the LLM.
const maxDetailsChars = 8000

// Toolset builds the Ghostfolio tools exposed to the agent.
//
// # Description
//
// Every tool returns a compact text summary for the LLM. Backend API
// errors (bad parameters, 4xx/5xx) are absorbed into readable tool result
// strings so the agent can explain them and recover; transport exhaustion
// is returned as a Go error so the whole run aborts and the caller can
// report the backend as unreachable.
type Toolset struct {
	client   *ghostfolio.Client
	currency CurrencyLookup
}

// NewToolset creates a Toolset. currency may be nil; the default US-ticker
// table is used then.
func NewToolset(client *ghostfolio.Client, currency CurrencyLookup) *Toolset {
	if currency == nil {
		currency = DefaultCurrencyLookup()
	}
	return &Toolset{client: client, currency: currency}
}

// All returns the full toolset in a stable order.
func (ts *Toolset) All() []tools.Tool {
	return []tools.Tool{
		&funcTool{"authenticate", descAuthenticate, ts.authenticate},
		&funcTool{"health_check", descHealthCheck, ts.healthCheck},
		&funcTool{"get_portfolio_holdings", descHoldings, ts.getHoldings},
		&funcTool{"get_portfolio_performance", descPerformance, ts.getPerformance},
		&funcTool{"get_portfolio_details", descDetails, ts.getDetails},
		&funcTool{"get_orders", descOrders, ts.getOrders},
		&funcTool{"preview_import", descPreviewImport, ts.previewImport},
		&funcTool{"import_activities", descImportActivities, ts.importActivities},
		&funcTool{"delete_order", descDeleteOrder, ts.deleteOrder},
		&funcTool{"get_accounts", descAccounts, ts.getAccounts},
		&funcTool{"lookup_symbol", descLookupSymbol, ts.lookupSymbol},
		&funcTool{"get_user_settings", descUserSettings, ts.getUserSettings},
	}
}

// funcTool adapts a method to the tools.Tool interface.
type funcTool struct {
	name        string
	description string
	fn          func(ctx context.Context, input string) (string, error)
}

func (t *funcTool) Name() string        { return t.name }
func (t *funcTool) Description() string { return t.description }
func (t *funcTool) Call(ctx context.Context, input string) (string, error) {
	return t.fn(ctx, input)
}

// absorb converts recoverable backend failures into tool result strings.
// Transport exhaustion stays an error and aborts the run.
func absorb(err error) (string, error) {
	if ghostfolio.IsTransport(err) {
		return "", err
	}
	return fmt.Sprintf("Error: %v", err), nil
}

// =============================================================================
// Auth / Health
// =============================================================================

const descAuthenticate = `Authenticate with the Ghostfolio instance. ` +
	`Exchanges the configured security token for a JWT bearer token. ` +
	`Input is ignored. Returns a confirmation message.`

func (ts *Toolset) authenticate(ctx context.Context, _ string) (string, error) {
	jwt, err := ts.client.Authenticate(ctx)
	if err != nil {
		return absorb(err)
	}
	preview := jwt
	if len(preview) > 12 {
		preview = preview[:12]
	}
	return fmt.Sprintf("Authenticated successfully. JWT starts with: %s...", preview), nil
}

const descHealthCheck = `Check if the Ghostfolio instance is running and healthy. ` +
	`Does not require authentication. Input is ignored.`

func (ts *Toolset) healthCheck(ctx context.Context, _ string) (string, error) {
	result, err := ts.client.HealthCheck(ctx)
	if err != nil {
		return absorb(err)
	}
	status := result.Status
	if status == "" {
		status = "UNKNOWN"
	}
	return "Ghostfolio status: " + status, nil
}

// =============================================================================
// Portfolio
// =============================================================================

const descHoldings = `Retrieve current portfolio holdings with market values: ` +
	`symbol, name, asset class, quantity, market value, currency, and allocation ` +
	`percentage per position. Use when the user asks what they own or wants a ` +
	`portfolio breakdown. Input is ignored.`

func (ts *Toolset) getHoldings(ctx context.Context, _ string) (string, error) {
	data, err := ts.client.GetHoldings(ctx)
	if err != nil {
		return absorb(err)
	}
	if len(data.Holdings) == 0 {
		return "No holdings found in the portfolio.", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Portfolio Holdings (%d positions):", len(data.Holdings))
	for i := range data.Holdings {
		h := &data.Holdings[i]
		value, _ := h.CurrentValue()
		perf := ""
		if h.NetPerformancePercent != nil {
			perf = fmt.Sprintf(" | Performance: %.2f%%", *h.NetPerformancePercent*100)
		}
		fmt.Fprintf(&b, "\n- %s (%s): Price: %s %s | Qty: %s | Value: %s %.2f | Allocation: %s%% | Class: %s/%s%s",
			h.DisplayName(), h.Symbol,
			h.Currency, fmtFloat(h.MarketPrice),
			fmtFloat(h.Quantity),
			h.Currency, value,
			fmtFloat(h.AllocationInPercentage),
			h.AssetClass, h.AssetSubClass, perf)
	}
	return b.String(), nil
}

const descPerformance = `Get portfolio performance metrics for a time range. ` +
	`Input: the range as plain text, one of 1d, wtd, 1w, mtd, 1m, 3m, ytd, 1y, 3y, 5y, max ` +
	`(empty input means max). Returns current value, total invested, and net/gross performance.`

func (ts *Toolset) getPerformance(ctx context.Context, input string) (string, error) {
	rangeValue := strings.TrimSpace(input)
	if rangeValue == "" {
		rangeValue = "max"
	}
	rangeValue, err := validation.ValidateRange(rangeValue)
	if err != nil {
		return fmt.Sprintf("Error: %v", err), nil
	}

	data, err := ts.client.GetPerformance(ctx, rangeValue)
	if err != nil {
		return absorb(err)
	}
	m := data.Metrics()

	return fmt.Sprintf(
		"Portfolio Performance (range: %s):\n"+
			"- Current Value: %s\n"+
			"- Total Invested: %s\n"+
			"- Net Performance: %s (%s)\n"+
			"- Gross Performance: %s (%s)",
		rangeValue,
		fmtFloat(m.CurrentValue),
		fmtFloat(m.TotalInvestment),
		fmtFloat(m.NetPerformance), fmtPercent(m.NetPerformancePercentage),
		fmtFloat(m.GrossPerformance), fmtPercent(m.GrossPerformancePercentage),
	), nil
}

const descDetails = `Get the detailed portfolio breakdown including allocation by asset ` +
	`class, sector, region, and account. Input: the time range (same options as ` +
	`get_portfolio_performance; empty means max). Use for diversification, sector ` +
	`exposure, or concentration questions.`

func (ts *Toolset) getDetails(ctx context.Context, input string) (string, error) {
	rangeValue := strings.TrimSpace(input)
	if rangeValue == "" {
		rangeValue = "max"
	}
	rangeValue, err := validation.ValidateRange(rangeValue)
	if err != nil {
		return fmt.Sprintf("Error: %v", err), nil
	}

	data, err := ts.client.GetDetails(ctx, rangeValue)
	if err != nil {
		return absorb(err)
	}

	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("Error: could not render details: %v", err), nil
	}
	text := string(raw)
	if len(text) > maxDetailsChars {
		return text[:maxDetailsChars] + "\n\n... (truncated)", nil
	}
	return fmt.Sprintf("Portfolio Details (range: %s):\n%s", rangeValue, text), nil
}

// =============================================================================
// Orders
// =============================================================================

const descOrders = `Retrieve the full transaction history (activities/orders): BUY, SELL, ` +
	`DIVIDEND, INTEREST, FEE, LIABILITY with date, symbol, quantity, unit price, fee, ` +
	`and currency. Use for questions about past trades, dividend income, or fees. ` +
	`Input is ignored.`

func (ts *Toolset) getOrders(ctx context.Context, _ string) (string, error) {
	data, err := ts.client.GetOrders(ctx)
	if err != nil {
		return absorb(err)
	}
	if len(data.Activities) == 0 {
		return "No transactions found.", nil
	}

	lines := make([]string, 0, len(data.Activities))
	for i := range data.Activities {
		o := &data.Activities[i]
		lines = append(lines, fmt.Sprintf("- %s | %8s | %-8s | Qty: %s @ %s %s | Fee: %s",
			o.TradeDate(), o.Type, o.InstrumentSymbol(),
			fmtFloat(o.Quantity), o.InstrumentCurrency(), fmtFloat(o.UnitPrice),
			fmtFloat(o.Fee)))
	}

	shown := lines
	suffix := ""
	if len(lines) > maxOrderLines {
		shown = lines[len(lines)-maxOrderLines:]
		suffix = fmt.Sprintf("\n\n(Showing last %d of %d)", maxOrderLines, len(lines))
	}

	return fmt.Sprintf("Transaction History (%d activities):\n%s%s",
		len(lines), strings.Join(shown, "\n"), suffix), nil
}

const descPreviewImport = `Preview an activity import WITHOUT executing it. ` +
	`Input: a JSON list of activity objects, each with currency, dataSource, date, ` +
	`fee, quantity, symbol, type (BUY/SELL/DIVIDEND/INTEREST/FEE/LIABILITY), and ` +
	`unitPrice. Returns a summary of what would be imported plus validation warnings. ` +
	`ALWAYS call this before import_activities and present the summary to the user.`

func (ts *Toolset) previewImport(_ context.Context, input string) (string, error) {
	activities, err := validation.ParseActivities(input)
	if err != nil {
		return fmt.Sprintf("Error: %v", err), nil
	}

	var buyTotal, sellTotal float64
	var warnings []string
	var b strings.Builder
	fmt.Fprintf(&b, "Import Preview (%d activit%s):", len(activities), plural(len(activities), "y", "ies"))

	for i, act := range activities {
		amount := *act.Quantity**act.UnitPrice + *act.Fee
		switch act.Type {
		case "BUY":
			buyTotal += amount
		case "SELL":
			sellTotal += amount
		}
		fmt.Fprintf(&b, "\n- %s %s: %g @ %s %g (fee %g) on %s",
			act.Type, act.Symbol, *act.Quantity, act.Currency, *act.UnitPrice, *act.Fee, act.Date)

		if known, ok := ts.currency.TradingCurrency(strings.ToUpper(act.Symbol)); ok && known != act.Currency {
			warnings = append(warnings, fmt.Sprintf(
				"activity %d: %s trades in %s but the activity is in %s", i, act.Symbol, known, act.Currency))
		}
	}

	fmt.Fprintf(&b, "\n\nTotals: BUY %.2f | SELL %.2f", buyTotal, sellTotal)
	if len(warnings) > 0 {
		fmt.Fprintf(&b, "\nWarnings:\n- %s", strings.Join(warnings, "\n- "))
	}
	b.WriteString("\n\nNothing was imported. Ask the user to confirm, then call " +
		`import_activities with {"confirmed": true, "activities": [...]}.`)

	return b.String(), nil
}

const descImportActivities = `Import transactions into Ghostfolio. ` +
	`Input: a JSON object {"confirmed": true, "activities": [...]} with the same ` +
	`activity fields as preview_import. Refuses to run unless confirmed is true; ` +
	`the user must have approved a preview first.`

// importEnvelope is the confirmed-import input shape.
type importEnvelope struct {
	Confirmed  bool            `json:"confirmed"`
	Activities json.RawMessage `json:"activities"`
}

func (ts *Toolset) importActivities(ctx context.Context, input string) (string, error) {
	if _, err := validation.ValidateJSONPayload(input, "import payload"); err != nil {
		return fmt.Sprintf("Error: %v", err), nil
	}

	var envelope importEnvelope
	if err := json.Unmarshal([]byte(input), &envelope); err != nil {
		return fmt.Sprintf("Error: Invalid JSON: %v", err), nil
	}
	if !envelope.Confirmed {
		return "Import NOT executed: confirmation required. Call preview_import, " +
			"present the summary, and retry with \"confirmed\": true after the user approves.", nil
	}
	if len(envelope.Activities) == 0 {
		return "Error: activities list is required.", nil
	}

	activities, err := validation.ParseActivities(string(envelope.Activities))
	if err != nil {
		return fmt.Sprintf("Error: %v", err), nil
	}

	if err := ts.client.ImportActivities(ctx, activities); err != nil {
		return absorb(err)
	}
	return fmt.Sprintf("Successfully imported %d activit%s.",
		len(activities), plural(len(activities), "y", "ies")), nil
}

const descDeleteOrder = `Delete one recorded activity by its id. Input: the activity id ` +
	`(from get_orders). Always confirm with the user before deleting.`

func (ts *Toolset) deleteOrder(ctx context.Context, input string) (string, error) {
	orderID, err := validation.SanitizeString(input, validation.MaxQueryLength, "order id")
	if err != nil {
		return fmt.Sprintf("Error: %v", err), nil
	}

	if err := ts.client.DeleteOrder(ctx, orderID); err != nil {
		return absorb(err)
	}
	return fmt.Sprintf("Deleted activity %s.", orderID), nil
}

// =============================================================================
// Accounts / Symbols / User
// =============================================================================

const descAccounts = `Retrieve all investment accounts: name, platform (broker), balance, ` +
	`currency, value, and whether the account is excluded from analysis. Input is ignored.`

func (ts *Toolset) getAccounts(ctx context.Context, _ string) (string, error) {
	data, err := ts.client.GetAccounts(ctx)
	if err != nil {
		return absorb(err)
	}
	if len(data.Accounts) == 0 {
		return "No accounts found.", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Accounts (%d):", len(data.Accounts))
	for i := range data.Accounts {
		a := &data.Accounts[i]
		fmt.Fprintf(&b, "\n- %s (%s): Balance %s %s | Value: %s %s | Excluded: %t",
			a.Name, a.PlatformName(),
			a.Currency, fmtFloat(a.Balance),
			a.Currency, fmtFloat(a.Value),
			a.IsExcluded)
	}
	return b.String(), nil
}

const descLookupSymbol = `Search for a financial instrument by ticker, ISIN, or partial ` +
	`name (e.g. "AAPL" or "Apple"). Input: the search term, max 30 characters. Returns ` +
	`matching symbols with name, asset class, data source, and currency. This does NOT ` +
	`return market prices; use get_portfolio_holdings for prices of held positions.`

func (ts *Toolset) lookupSymbol(ctx context.Context, input string) (string, error) {
	query, err := validation.ValidateSymbolQuery(input)
	if err != nil {
		return fmt.Sprintf("Invalid symbol query: %v", err), nil
	}

	data, err := ts.client.LookupSymbol(ctx, query)
	if err != nil {
		return absorb(err)
	}
	if len(data.Items) == 0 {
		return fmt.Sprintf("No results found for %q.", query), nil
	}

	items := data.Items
	if len(items) > maxLookupResults {
		items = items[:maxLookupResults]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Symbol lookup results for %q (%d found):", query, len(data.Items))
	for _, item := range items {
		fmt.Fprintf(&b, "\n- %s | %s | %s/%s | Source: %s | %s",
			item.Symbol, item.Name, item.AssetClass, item.AssetSubClass,
			item.DataSource, item.Currency)
	}
	return b.String(), nil
}

const descUserSettings = `Retrieve the current user's profile and settings: base currency, ` +
	`default date range, locale, and subscription. Use to learn the base currency before ` +
	`analysis. Input is ignored.`

func (ts *Toolset) getUserSettings(ctx context.Context, _ string) (string, error) {
	data, err := ts.client.GetUser(ctx)
	if err != nil {
		return absorb(err)
	}

	dateRange, locale := "N/A", "N/A"
	if data.Settings != nil {
		if data.Settings.DateRange != "" {
			dateRange = data.Settings.DateRange
		}
		if data.Settings.Locale != "" {
			locale = data.Settings.Locale
		}
	}
	subscription := "N/A"
	if data.Subscription != nil && data.Subscription.Type != "" {
		subscription = data.Subscription.Type
	}

	return fmt.Sprintf(
		"User Settings:\n- Base Currency: %s\n- Default Date Range: %s\n- Locale: %s\n- Subscription: %s",
		data.BaseCurrency(), dateRange, locale, subscription), nil
}

// =============================================================================
// Formatting Helpers
// =============================================================================

// fmtFloat renders an optional number, "N/A" when absent.
func fmtFloat(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%g", *v)
}

// fmtPercent renders an optional ratio as a percentage, "N/A" when absent.
func fmtPercent(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.2f%%", *v*100)
}

func plural(n int, singular, pluralForm string) string {
	if n == 1 {
		return singular
	}
	return pluralForm
}
