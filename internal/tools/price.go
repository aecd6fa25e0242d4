// Package tools implements the concrete, vendor-agnostic Tool
// implementations Research Agents select from (internal/toolkit.Tool).
//
// The original registers a much larger toolset, but most of those tools
// (corp_info_akshare.py, price_info_akshare.py/price_info_us.py,
// stock_symbol_search*.py, search_web.py) are thin wrappers around one
// specific vendor's HTTP API (akshare, tushare, an internal search engine) —
// that vendor wire format is out of scope the same way it is for
// internal/market's Calendar/PriceSource/SymbolResolver pluggability. This
// package ships PriceTool, the one tool whose entire behavior is already
// covered by a vendor-agnostic interface this repo built
// (internal/market.Manager), and leaves the rest to be registered the same
// way at deployment time.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"contesttrade/internal/market"
	"contesttrade/internal/toolkit"
)

// priceArgs is PriceTool's ArgsSchema payload, grounded on
// price_info_akshare.py's PriceInfoInput (market, symbol; trigger_time is
// injected by the caller and never part of the schema).
type priceArgs struct {
	Market string `json:"market"`
	Symbol string `json:"symbol"`
}

// PriceTool looks up a symbol's most recent quote ahead of triggerTime,
// grounded on price_info_akshare.py/price_info_us.py's price_info tool
// generalized across markets via market.Manager instead of one vendor API.
type PriceTool struct {
	market *market.Manager
}

// NewPriceTool builds a PriceTool backed by mgr.
func NewPriceTool(mgr *market.Manager) *PriceTool {
	return &PriceTool{market: mgr}
}

// Spec implements toolkit.Tool.
func (t *PriceTool) Spec() toolkit.Spec {
	return toolkit.Spec{
		Name:        "get_symbol_price",
		Description: "Get the most recent trading day's OHLC price information for a symbol, as of the trigger time.",
		ArgsSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"market": map[string]any{"type": "string", "description": "The market of the symbol, e.g. CN-Stock, US-Stock."},
				"symbol": map[string]any{"type": "string", "description": "The symbol of the company. Only one symbol is allowed."},
			},
			"required": []string{"market", "symbol"},
		},
		MaxOutputLen:   2000,
		TimeoutSeconds: 10,
	}
}

// Call implements toolkit.Tool: it resolves the trading day immediately
// before triggerTime (date_diff=-1, mirroring price_info's "end_date one
// day before trigger" window) and returns that day's quote as JSON.
func (t *PriceTool) Call(ctx context.Context, triggerTime string, args json.RawMessage) (string, error) {
	var a priceArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return "", fmt.Errorf("parse arguments: %w", err)
	}
	if a.Market == "" || a.Symbol == "" {
		return "", fmt.Errorf("market and symbol are required")
	}

	q, err := t.market.GetSymbolPrice(ctx, a.Market, a.Symbol, triggerTime, -1)
	if err != nil {
		return "", fmt.Errorf("get price for %s/%s: %w", a.Market, a.Symbol, err)
	}

	data, err := json.Marshal(q)
	if err != nil {
		return "", fmt.Errorf("marshal quote: %w", err)
	}
	return string(data), nil
}
