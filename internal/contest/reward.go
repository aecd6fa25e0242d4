package contest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"contesttrade/internal/artifact"
	"contesttrade/internal/market"
	"contesttrade/internal/research"
)

// triggerTimeLayout is the canonical trigger-time format used throughout the
// pipeline ("2024-01-02 09:30:00").
const triggerTimeLayout = "2006-01-02 15:04:05"

// DailyReturn computes the one-day return of holding symbolCode from the
// open on signalDate to the open on the next trading session, sign-inverted
// for a sell action. Grounded on
// judger_weight_optimizer.py's _calculate_signal_daily_return.
func DailyReturn(ctx context.Context, mkt *market.Manager, marketName, symbolCode, action, signalDate string) (float64, error) {
	entry, err := mkt.GetSymbolPrice(ctx, marketName, symbolCode, signalDate, 0)
	if err != nil {
		return 0, fmt.Errorf("entry quote for %s on %s: %w", symbolCode, signalDate, err)
	}
	exit, err := mkt.GetSymbolPrice(ctx, marketName, symbolCode, signalDate, 1)
	if err != nil {
		return 0, fmt.Errorf("exit quote for %s on %s: %w", symbolCode, signalDate, err)
	}
	if entry.Open == 0 {
		return 0, fmt.Errorf("zero entry price for %s on %s", symbolCode, signalDate)
	}

	switch strings.ToLower(action) {
	case "buy":
		return (exit.Open - entry.Open) / entry.Open, nil
	case "sell":
		return (entry.Open - exit.Open) / entry.Open, nil
	default:
		return 0, fmt.Errorf("unsupported action %q for daily return", action)
	}
}

// IsAnomalousReturn reports whether ret exceeds the +/-40% limit-up/down
// threshold used to reject suspect daily returns. Applied by PerDayReturns
// (predictor features) but deliberately NOT by CompoundedReturn, matching
// judger_weight_optimizer.py's historical-return walk, which carries no such
// filter, versus research_predictor.py's feature extraction, which does.
func IsAnomalousReturn(ret float64) bool {
	return ret > 0.40 || ret < -0.40
}

func pastDate(triggerTime string, daysBefore int) (string, error) {
	t, err := time.Parse(triggerTimeLayout, triggerTime)
	if err != nil {
		return "", fmt.Errorf("parse trigger time %q: %w", triggerTime, err)
	}
	return t.AddDate(0, 0, -daysBefore).Format(triggerTimeLayout), nil
}

// HistoryReader loads an agent's past signal reports off the artifact store
// to build the two distinct historical-reward views the optimizer and the
// predictor each need. Grounded on
// judger_weight_optimizer.py's get_signal_historical_returns (walks
// reports/<agent>/<date>.json backwards from the trigger date) and
// research_predictor.py's _extract_historical_rewards.
type HistoryReader struct {
	store      *artifact.Store
	market     *market.Manager
	marketName string
	windowDays int
}

// NewHistoryReader builds a HistoryReader. windowDays defaults to 5, the
// original's fixed lookback.
func NewHistoryReader(store *artifact.Store, mkt *market.Manager, marketName string, windowDays int) *HistoryReader {
	if windowDays <= 0 {
		windowDays = 5
	}
	return &HistoryReader{store: store, market: mkt, marketName: marketName, windowDays: windowDays}
}

func (h *HistoryReader) loadSignal(ctx context.Context, agentName, date string) (ParsedSignal, bool, error) {
	var report research.Output
	ok, err := h.store.LoadReport(agentName, date, &report)
	if err != nil || !ok {
		return ParsedSignal{}, false, err
	}
	signals, err := ParseSignals(agentName, report.FinalResult)
	if err != nil || len(signals) == 0 {
		return ParsedSignal{}, false, err
	}
	s := signals[0]
	if !s.HasOpportunity {
		return ParsedSignal{}, false, nil
	}
	return s, true, nil
}

// CompoundedReturn returns agentName's compounded windowDays-day cumulative
// return prior to triggerTime, or ok=false when no usable history exists.
// Grounded on judger_weight_optimizer.py's get_signal_historical_returns:
// cumulative_return *= (1+daily_return) across each day with a signal,
// total_return = cumulative_return - 1.
func (h *HistoryReader) CompoundedReturn(ctx context.Context, agentName, triggerTime string) (float64, bool, error) {
	cumulative := 1.0
	found := false

	for i := 1; i <= h.windowDays; i++ {
		date, err := pastDate(triggerTime, i)
		if err != nil {
			return 0, false, err
		}
		s, ok, err := h.loadSignal(ctx, agentName, date)
		if err != nil {
			return 0, false, err
		}
		if !ok {
			continue
		}
		ret, err := DailyReturn(ctx, h.market, h.marketName, s.SymbolCode, s.Action, date)
		if err != nil {
			continue
		}
		cumulative *= 1 + ret
		found = true
	}

	if !found {
		return 0, false, nil
	}
	return cumulative - 1, true, nil
}

// PerDayReturns returns the windowDays-length, oldest-to-newest per-day
// return vector for agentName prior to triggerTime, with a nil entry for any
// day with no usable signal (to be median-imputed by BuildFeatures) and an
// anomalous (>40%) day's return forced to zero. Grounded on
// research_predictor.py's _extract_historical_rewards.
func (h *HistoryReader) PerDayReturns(ctx context.Context, agentName, triggerTime string) ([]*float64, error) {
	out := make([]*float64, h.windowDays)
	for idx := 0; idx < h.windowDays; idx++ {
		daysBefore := h.windowDays - idx
		date, err := pastDate(triggerTime, daysBefore)
		if err != nil {
			return nil, err
		}
		s, ok, err := h.loadSignal(ctx, agentName, date)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		ret, err := DailyReturn(ctx, h.market, h.marketName, s.SymbolCode, s.Action, date)
		if err != nil {
			continue
		}
		if IsAnomalousReturn(ret) {
			zero := 0.0
			out[idx] = &zero
			continue
		}
		r := ret
		out[idx] = &r
	}
	return out, nil
}
