package market

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contesttrade/internal/config"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	cal := NewStaticCalendar(map[string][]string{
		"CN-Stock": {"2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05"},
	})
	prices := NewStaticPriceSource(map[string]map[string]map[string]Quote{
		"CN-Stock": {
			"600519.SH": {
				"2024-01-02": {Open: 100, High: 105, Low: 99, Close: 103, LimitPrice: 110},
				"2024-01-03": {Open: 103, High: 108, Low: 102, Close: 106, LimitPrice: 113},
			},
		},
	})
	cfg := config.MarketConfig{
		TargetMarkets: []string{"CN-Stock"},
		CustomSymbols: map[string][]string{
			"CN-Stock": {"600519.SH"},
		},
	}
	mgr, err := NewManager(cfg, cal, prices, nil)
	require.NoError(t, err)
	return mgr
}

func TestIsTradingDay(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	ok, err := mgr.IsTradingDay(ctx, "CN-Stock", "2024-01-03")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = mgr.IsTradingDay(ctx, "CN-Stock", "2024-01-06")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPreviousTradingDate(t *testing.T) {
	mgr := newTestManager(t)
	prev, err := mgr.PreviousTradingDate(context.Background(), "2024-01-04 09:30:00")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-03", prev)
}

func TestGetSymbolPrice(t *testing.T) {
	mgr := newTestManager(t)
	q, err := mgr.GetSymbolPrice(context.Background(), "CN-Stock", "600519.SH", "2024-01-02 09:30:00", 0)
	require.NoError(t, err)
	assert.Equal(t, 100.0, q.Open)

	q, err = mgr.GetSymbolPrice(context.Background(), "CN-Stock", "600519.SH", "2024-01-02 09:30:00", 1)
	require.NoError(t, err)
	assert.Equal(t, 103.0, q.Open)
}

func TestGetSymbolPriceRejectsNonTradingDayAtZeroOffset(t *testing.T) {
	mgr := newTestManager(t)
	_, err := mgr.GetSymbolPrice(context.Background(), "CN-Stock", "600519.SH", "2024-01-06 09:30:00", 0)
	assert.Error(t, err)
}

func TestGetTargetSymbolContextListsCustomSymbols(t *testing.T) {
	mgr := newTestManager(t)
	ctx := mgr.GetTargetSymbolContext("2024-01-02 09:30:00")
	assert.Contains(t, ctx, "market_name: CN-Stock")
	assert.Contains(t, ctx, "600519.SH")
}

func TestFixSymbolCodeNoopWithoutResolver(t *testing.T) {
	mgr := newTestManager(t)
	name, code, err := mgr.FixSymbolCode(context.Background(), "CN-Stock", "Kweichow Moutai", "600519.SH")
	require.NoError(t, err)
	assert.Equal(t, "Kweichow Moutai", name)
	assert.Equal(t, "600519.SH", code)
}

func TestIsAvailableSymbol(t *testing.T) {
	mgr := newTestManager(t)
	assert.True(t, mgr.IsAvailableSymbol("CN-Stock", "600519.SH"))
	assert.False(t, mgr.IsAvailableSymbol("CN-Stock", "000001.SZ"))
}
