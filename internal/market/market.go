// Package market implements the trading-calendar and price-lookup surface
// consumed by Research Agents and the contest subsystem (spec.md §6's
// "Market interface"): isTradingDay, previousTradingDate, getSymbolPrice,
// getTargetSymbolContext, fixSymbolCode.
//
// Grounded on original_source/contest_trade/utils/market_manager.py. The
// original backs these with tushare/akshare/FMP HTTP calls; this repo keeps
// the same surface but makes the actual data feed pluggable through the
// Calendar and PriceSource interfaces, mirroring the predictor's
// RegressionModel pattern (internal/contest) — the wire format of any one
// vendor's market-data API is out of scope.
package market

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"contesttrade/internal/config"
)

// Quote is one trading day's OHLC plus the limit-up/down price used for the
// anomaly filter in internal/contest's return calculations.
type Quote struct {
	Open       float64
	High       float64
	Low        float64
	Close      float64
	LimitPrice float64
}

// Calendar supplies trading-day membership and offsets for a market. The
// original computes this from a cached trade_cal pulled from tushare/akshare;
// a concrete implementation here might be backed by a static JSON calendar
// file or a vendor API — Manager only depends on the interface.
type Calendar interface {
	// IsTradingDay reports whether date (YYYY-MM-DD) is a trading day for
	// marketName.
	IsTradingDay(ctx context.Context, marketName, date string) (bool, error)

	// OffsetTradingDate returns the trading date dateDiff sessions away from
	// date (YYYY-MM-DD). dateDiff == 0 requires date itself to be a trading
	// day. dateDiff > 0 counts forward, < 0 counts backward, matching the
	// original's date_diff semantics in get_symbol_price.
	OffsetTradingDate(ctx context.Context, marketName, date string, dateDiff int) (string, error)
}

// PriceSource resolves a symbol's OHLC quote on a specific trading date.
type PriceSource interface {
	Quote(ctx context.Context, marketName, symbol, tradeDate string) (Quote, error)
}

// SymbolResolver fixes up a (name, code) pair against whatever canonical
// symbol mapping a market exposes — e.g. a CN-Stock name that changed after
// an ST designation. Markets with no such mapping implement this as a no-op.
type SymbolResolver interface {
	Resolve(ctx context.Context, marketName, symbolName, symbolCode string) (name, code string, err error)
}

// noopResolver returns its inputs unchanged — the behavior the original
// applies to every market other than CN-Stock.
type noopResolver struct{}

func (noopResolver) Resolve(_ context.Context, _, name, code string) (string, string, error) {
	return name, code, nil
}

var marketDescriptions = map[string]struct {
	desc     string
	examples []string
}{
	"CN-Stock": {"All symbols in the Chinese mainland stock market (thousands of A-shares).", []string{"000001.SZ", "600519.SH", "000858.SZ"}},
	"CN-ETF":   {"All symbols in the Chinese mainland ETF market.", []string{"510300.SH", "159919.SZ", "512880.SH"}},
	"HK-Stock": {"All symbols in the Hong Kong stock market.", []string{"00700.HK", "09988.HK", "01299.HK"}},
	"US-Stock": {"All symbols in the US stock market.", []string{"AAPL", "MSFT", "GOOGL"}},
	"CSI300":   {"Constituents of the CSI 300 index.", nil},
	"CSI500":   {"Constituents of the CSI 500 index.", nil},
	"CSI1000":  {"Constituents of the CSI 1000 index.", nil},
}

// Manager is the single point of access for market membership, calendars,
// and prices — the Go analog of the original's MarketManager.
type Manager struct {
	cfg       config.MarketConfig
	calendar  Calendar
	prices    PriceSource
	resolvers map[string]SymbolResolver
}

// NewManager builds a Manager over the configured target markets. resolvers
// is keyed by market name; a market absent from the map falls back to a
// no-op resolver.
func NewManager(cfg config.MarketConfig, calendar Calendar, prices PriceSource, resolvers map[string]SymbolResolver) (*Manager, error) {
	for _, m := range cfg.TargetMarkets {
		if _, ok := marketDescriptions[m]; !ok {
			return nil, fmt.Errorf("unknown target market: %s", m)
		}
	}
	return &Manager{cfg: cfg, calendar: calendar, prices: prices, resolvers: resolvers}, nil
}

// IsTradingDay delegates to the configured Calendar for date (YYYY-MM-DD).
func (m *Manager) IsTradingDay(ctx context.Context, marketName, date string) (bool, error) {
	return m.calendar.IsTradingDay(ctx, marketName, date)
}

// PreviousTradingDate returns the trading date immediately before
// triggerTime's calendar date, for marketName's primary/default market (the
// first configured target market).
func (m *Manager) PreviousTradingDate(ctx context.Context, triggerTime string) (string, error) {
	if len(m.cfg.TargetMarkets) == 0 {
		return "", fmt.Errorf("no target markets configured")
	}
	date := dateOnly(triggerTime)
	return m.calendar.OffsetTradingDate(ctx, m.cfg.TargetMarkets[0], date, -1)
}

// PrimaryMarket returns the first configured target market, the market
// FixSymbolCode resolves against when a parsed signal carries no market of
// its own (mirroring the original's hardcoded "CN-Stock" in
// DataFormatConverter._parse_single_signal).
func (m *Manager) PrimaryMarket() (string, bool) {
	if len(m.cfg.TargetMarkets) == 0 {
		return "", false
	}
	return m.cfg.TargetMarkets[0], true
}

// GetSymbolPrice returns symbol's quote on the trading date dateDiff
// sessions away from triggerTime's calendar date (0 = same day, requires a
// trading day).
func (m *Manager) GetSymbolPrice(ctx context.Context, marketName, symbol, triggerTime string, dateDiff int) (Quote, error) {
	date := dateOnly(triggerTime)
	tradeDate, err := m.calendar.OffsetTradingDate(ctx, marketName, date, dateDiff)
	if err != nil {
		return Quote{}, fmt.Errorf("resolve trade date for %s date_diff=%d: %w", symbol, dateDiff, err)
	}
	q, err := m.prices.Quote(ctx, marketName, symbol, tradeDate)
	if err != nil {
		return Quote{}, fmt.Errorf("quote %s/%s on %s: %w", marketName, symbol, tradeDate, err)
	}
	return q, nil
}

// GetTargetSymbolContext renders the prompt block Research Agents are given
// describing which symbols they may act on — verbatim in shape to the
// original's get_target_symbol_context (market_name / available_symbols
// pairs, one block per configured market, custom symbols taking priority
// over the generic description).
func (m *Manager) GetTargetSymbolContext(_ string) string {
	var lines []string
	seen := map[string]bool{}

	for _, name := range m.cfg.TargetMarkets {
		seen[name] = true
		lines = append(lines, fmt.Sprintf("market_name: %s", name))
		if syms, ok := m.cfg.CustomSymbols[name]; ok && len(syms) > 0 {
			lines = append(lines, fmt.Sprintf("available_symbols: [%s]", strings.Join(syms, ", ")))
		} else if desc, ok := marketDescriptions[name]; ok {
			if len(desc.examples) > 0 {
				lines = append(lines, fmt.Sprintf("available_symbols: %s Eg. %s", desc.desc, strings.Join(desc.examples, ", ")))
			} else {
				lines = append(lines, fmt.Sprintf("available_symbols: %s", desc.desc))
			}
		}
		lines = append(lines, "")
	}

	// Custom-symbol-only markets with no matching target-market entry.
	customMarkets := make([]string, 0, len(m.cfg.CustomSymbols))
	for name := range m.cfg.CustomSymbols {
		customMarkets = append(customMarkets, name)
	}
	sort.Strings(customMarkets)
	for _, name := range customMarkets {
		if seen[name] {
			continue
		}
		lines = append(lines, fmt.Sprintf("market_name: %s", name))
		lines = append(lines, fmt.Sprintf("available_symbols: [%s]", strings.Join(m.cfg.CustomSymbols[name], ", ")))
		lines = append(lines, "")
	}

	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	return "You can invest in the following targets:\n\n" + strings.Join(lines, "\n") +
		"\n\nConfirm that for each market you only select from the given available symbols in your investment decisions."
}

// FixSymbolCode resolves (symbolName, symbolCode) against marketName's
// symbol resolver, falling back to a no-op when the market has none
// configured.
func (m *Manager) FixSymbolCode(ctx context.Context, marketName, symbolName, symbolCode string) (string, string, error) {
	r, ok := m.resolvers[marketName]
	if !ok || r == nil {
		r = noopResolver{}
	}
	return r.Resolve(ctx, marketName, symbolName, symbolCode)
}

// IsAvailableSymbol reports whether symbol is one of marketName's custom
// symbols, when custom symbols are configured for that market.
func (m *Manager) IsAvailableSymbol(marketName, symbol string) bool {
	syms, ok := m.cfg.CustomSymbols[marketName]
	if !ok {
		return false
	}
	for _, s := range syms {
		if s == symbol {
			return true
		}
	}
	return false
}

func dateOnly(triggerTime string) string {
	if idx := strings.IndexByte(triggerTime, ' '); idx >= 0 {
		return triggerTime[:idx]
	}
	return triggerTime
}
