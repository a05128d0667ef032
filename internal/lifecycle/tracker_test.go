package lifecycle

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"crypto-signal-bot/internal/binance"
	"crypto-signal-bot/internal/market"
	"crypto-signal-bot/internal/signal"
	"crypto-signal-bot/internal/store"
	"crypto-signal-bot/internal/strategy"
)

// trackedSeries pads a quiet prefix up to 100 bars and appends the given
// closes so they form the tail the exit checks scan.
func trackedSeries(symbol, timeframe string, atr float64, lastCloses []float64) *market.Series {
	candles := make([]binance.Kline, 0, 100)
	for i := 0; i < 100-len(lastCloses); i++ {
		candles = append(candles, binance.Kline{Open: 100, High: 100.5, Low: 99.5, Close: 100, Volume: 1000})
	}
	for _, c := range lastCloses {
		candles = append(candles, binance.Kline{Open: c, High: c + 0.5, Low: c - 0.5, Close: c, Volume: 1000})
	}
	return &market.Series{Symbol: symbol, Timeframe: timeframe, Candles: candles, ATR: atr}
}

func longTrade(serial string) signal.Signal {
	return signal.Signal{
		Serial:    serial,
		Symbol:    "BTCUSDT",
		Timeframe: "1h",
		Side:      strategy.Long,
		Entry:     100,
		StopLoss:  90,
		Targets:   []float64{105, 110, 120},
		Strategy:  "RSI Oversold Reversal",
		OpenedAt:  1_700_000_000,
	}
}

func TestCheckExitFarthestTargetFirst(t *testing.T) {
	closes := []float64{101, 102, 103, 104, 102, 108, 121, 119, 118, 117}
	series := trackedSeries("BTCUSDT", "1h", 2, closes)

	exit, ok := CheckExit(longTrade("01"), series)
	if !ok {
		t.Fatal("Expected the trade to close")
	}
	if exit.Reason != "TP3 Hit" {
		t.Errorf("Expected TP3 Hit for a close through the farthest target, got %s", exit.Reason)
	}
	if exit.ExitPrice != 120 {
		t.Errorf("Expected exit at target price 120, got %f", exit.ExitPrice)
	}
	if exit.CandlesToWin != 1 {
		t.Errorf("Expected candles-to-win 1 for the farthest tier, got %d", exit.CandlesToWin)
	}
	if math.Abs(exit.Profit-20) > 1e-9 {
		t.Errorf("Expected profit 20, got %f", exit.Profit)
	}
}

func TestCheckExitNearestTargetOnly(t *testing.T) {
	closes := []float64{101, 102, 103, 104, 105, 106, 104, 103, 104, 103}
	series := trackedSeries("BTCUSDT", "1h", 2, closes)

	exit, ok := CheckExit(longTrade("01"), series)
	if !ok {
		t.Fatal("Expected the trade to close")
	}
	if exit.Reason != "TP1 Hit" {
		t.Errorf("Expected TP1 Hit, got %s", exit.Reason)
	}
	if exit.ExitPrice != 105 {
		t.Errorf("Expected exit at 105, got %f", exit.ExitPrice)
	}
	if exit.CandlesToWin != 3 {
		t.Errorf("Expected candles-to-win 3 for the nearest tier, got %d", exit.CandlesToWin)
	}
}

func TestCheckExitCostToCost(t *testing.T) {
	// favored by at least half an ATR (106 >= 100 + 0.5*10), then back at entry
	closes := []float64{101, 102, 103, 104, 103, 106, 104, 102, 101, 99}
	series := trackedSeries("BTCUSDT", "1h", 10, closes)

	exit, ok := CheckExit(longTrade("01"), series)
	if !ok {
		t.Fatal("Expected the trade to close")
	}
	if exit.Reason != "Cost-to-Cost" {
		t.Errorf("Expected Cost-to-Cost, got %s", exit.Reason)
	}
	if exit.ExitPrice != 99 {
		t.Errorf("Expected exit at the latest close 99, got %f", exit.ExitPrice)
	}
	if math.Abs(exit.Profit-(-1)) > 1e-9 {
		t.Errorf("Expected profit -1, got %f", exit.Profit)
	}
}

func TestCheckExitCostToCostBeatsTargets(t *testing.T) {
	// 106 also clears TP1 at 105, but the reversal to entry wins
	closes := []float64{101, 102, 103, 104, 103, 106, 104, 102, 101, 100}
	series := trackedSeries("BTCUSDT", "1h", 10, closes)

	exit, ok := CheckExit(longTrade("01"), series)
	if !ok {
		t.Fatal("Expected the trade to close")
	}
	if exit.Reason != "Cost-to-Cost" {
		t.Errorf("Expected Cost-to-Cost to take priority over targets, got %s", exit.Reason)
	}
}

func TestCheckExitStopLoss(t *testing.T) {
	closes := []float64{99, 98, 97, 96, 95, 94, 93, 92, 91, 89}
	series := trackedSeries("BTCUSDT", "1h", 2, closes)

	exit, ok := CheckExit(longTrade("01"), series)
	if !ok {
		t.Fatal("Expected the trade to close")
	}
	if exit.Reason != "SL Hit" {
		t.Errorf("Expected SL Hit, got %s", exit.Reason)
	}
	if exit.ExitPrice != 90 {
		t.Errorf("Expected exit at the stop price 90 regardless of overshoot, got %f", exit.ExitPrice)
	}
	if math.Abs(exit.Profit-(-10)) > 1e-9 {
		t.Errorf("Expected profit -10, got %f", exit.Profit)
	}
}

func TestCheckExitShortMirrored(t *testing.T) {
	trade := signal.Signal{
		Serial: "02", Symbol: "ETHUSDT", Timeframe: "1h",
		Side: strategy.Short, Entry: 100, StopLoss: 110,
		Targets:  []float64{95, 90, 80},
		Strategy: "RSI Overbought Reversal",
	}
	closes := []float64{99, 98, 97, 96, 95, 94, 93, 92, 91, 89}
	series := trackedSeries("ETHUSDT", "1h", 2, closes)

	exit, ok := CheckExit(trade, series)
	if !ok {
		t.Fatal("Expected the short trade to close")
	}
	if exit.Reason != "TP2 Hit" {
		t.Errorf("Expected TP2 Hit (89 through 90, not 80), got %s", exit.Reason)
	}
	if math.Abs(exit.Profit-10) > 1e-9 {
		t.Errorf("Expected profit 10 for a short into 90, got %f", exit.Profit)
	}
}

func TestCheckExitStaysOpen(t *testing.T) {
	closes := []float64{100, 101, 100, 101, 100, 101, 100, 101, 100, 101}
	series := trackedSeries("BTCUSDT", "1h", 10, closes)

	if _, ok := CheckExit(longTrade("01"), series); ok {
		t.Error("Expected the trade to stay open inside the range")
	}
}

func TestSweepClosesAndRecords(t *testing.T) {
	dir := t.TempDir()
	trades := store.NewActiveTradeStore(filepath.Join(dir, "active_trades.json"), nil)
	history := store.NewStrategyHistory(filepath.Join(dir, "strategy_history.json"), nil)

	trades.Add(longTrade("01"))

	provider := market.NewMockProvider()
	closes := []float64{101, 102, 103, 104, 102, 108, 121, 119, 118, 117}
	provider.Add(trackedSeries("BTCUSDT", "1h", 2, closes))

	tracker := NewTracker(provider, trades, history, zerolog.Nop())
	closed := tracker.Sweep()

	if len(closed) != 1 {
		t.Fatalf("Expected 1 closed trade, got %d", len(closed))
	}
	if closed[0].Exit.Reason != "TP3 Hit" {
		t.Errorf("Expected TP3 Hit, got %s", closed[0].Exit.Reason)
	}
	if trades.Count() != 0 {
		t.Errorf("Expected trade removed from the store, %d remain", trades.Count())
	}

	records := history.Records("RSI Oversold Reversal")
	if len(records) != 1 {
		t.Fatalf("Expected 1 outcome record, got %d", len(records))
	}
	if records[0].Outcome != "TP3 Hit" || records[0].Serial != "01" {
		t.Errorf("Outcome record not fed back correctly: %+v", records[0])
	}
	if !records[0].Win() {
		t.Error("Expected a TP outcome to count as a win")
	}
}

func TestSweepKeepsTradeWhenDataMissing(t *testing.T) {
	dir := t.TempDir()
	trades := store.NewActiveTradeStore(filepath.Join(dir, "active_trades.json"), nil)
	history := store.NewStrategyHistory(filepath.Join(dir, "strategy_history.json"), nil)

	trades.Add(longTrade("01"))

	tracker := NewTracker(market.NewMockProvider(), trades, history, zerolog.Nop())
	closed := tracker.Sweep()

	if len(closed) != 0 {
		t.Errorf("Expected no closures without market data, got %d", len(closed))
	}
	if trades.Count() != 1 {
		t.Errorf("Expected the trade to stay open, %d remain", trades.Count())
	}
}
