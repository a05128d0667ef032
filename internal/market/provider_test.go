package market

import (
	"errors"
	"testing"

	"crypto-signal-bot/internal/binance"
)

type fakeKlineSource struct {
	klines map[string][]binance.Kline
	err    error
}

func (f *fakeKlineSource) GetKlines(symbol, interval string, limit int) ([]binance.Kline, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.klines[symbol+"/"+interval], nil
}

func makeKlines(n int, base float64) []binance.Kline {
	klines := make([]binance.Kline, n)
	for i := range klines {
		c := base + float64(i%5)
		klines[i] = binance.Kline{Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 100}
	}
	return klines
}

func TestBinanceProviderFetch(t *testing.T) {
	source := &fakeKlineSource{klines: map[string][]binance.Kline{
		"BTCUSDT/1h": makeKlines(150, 100),
	}}
	provider := NewBinanceProvider(source, nil)

	result := provider.Fetch([]string{"BTCUSDT"}, []string{"1h"})

	series, ok := result[Key{Symbol: "BTCUSDT", Timeframe: "1h"}]
	if !ok {
		t.Fatal("Expected a series for BTCUSDT/1h")
	}
	if len(series.Candles) != 150 {
		t.Errorf("Expected 150 candles, got %d", len(series.Candles))
	}
	if series.ATR <= 0 {
		t.Errorf("Expected precomputed ATR above zero, got %f", series.ATR)
	}
}

func TestBinanceProviderSkipsShortHistory(t *testing.T) {
	source := &fakeKlineSource{klines: map[string][]binance.Kline{
		"BTCUSDT/1h": makeKlines(99, 100),
		"ETHUSDT/1h": makeKlines(100, 200),
	}}
	provider := NewBinanceProvider(source, nil)

	result := provider.Fetch([]string{"BTCUSDT", "ETHUSDT"}, []string{"1h"})

	if _, ok := result[Key{Symbol: "BTCUSDT", Timeframe: "1h"}]; ok {
		t.Error("Expected pair with 99 bars to be skipped")
	}
	if _, ok := result[Key{Symbol: "ETHUSDT", Timeframe: "1h"}]; !ok {
		t.Error("Expected pair with exactly 100 bars to be served")
	}
}

func TestBinanceProviderSkipsFetchFailures(t *testing.T) {
	provider := NewBinanceProvider(&fakeKlineSource{err: errors.New("network down")}, nil)

	result := provider.Fetch([]string{"BTCUSDT"}, []string{"1h"})
	if len(result) != 0 {
		t.Errorf("Expected no series on fetch failure, got %d", len(result))
	}
}

func TestSeriesDerivedValues(t *testing.T) {
	s := &Series{
		Candles: []binance.Kline{{Close: 100}, {Close: 200}},
		ATR:     4,
	}
	if s.LastClose() != 200 {
		t.Errorf("Expected last close 200, got %f", s.LastClose())
	}
	if s.ATRPercent() != 2 {
		t.Errorf("Expected ATR%% 2, got %f", s.ATRPercent())
	}
}

func TestMockProviderRespectsMinBars(t *testing.T) {
	mock := NewMockProvider()
	mock.Add(&Series{Symbol: "BTCUSDT", Timeframe: "1h", Candles: makeKlines(50, 100)})

	result := mock.Fetch([]string{"BTCUSDT"}, []string{"1h"})
	if len(result) != 0 {
		t.Errorf("Expected mock provider to skip short series, got %d", len(result))
	}
}

func TestGenerateSeriesDeterministic(t *testing.T) {
	a := GenerateSeries("BTCUSDT", "1h", 150)
	b := GenerateSeries("BTCUSDT", "1h", 150)

	if len(a.Candles) != 150 {
		t.Fatalf("Expected 150 candles, got %d", len(a.Candles))
	}
	for i := range a.Candles {
		if a.Candles[i].Close != b.Candles[i].Close {
			t.Fatalf("Expected deterministic candles, diverged at bar %d", i)
		}
	}
	if a.ATR <= 0 {
		t.Errorf("Expected generated series to carry an ATR, got %f", a.ATR)
	}

	other := GenerateSeries("ETHUSDT", "1h", 150)
	if other.Candles[10].Close == a.Candles[10].Close {
		t.Error("Expected different symbols to produce different series")
	}
}

func TestRefetch(t *testing.T) {
	mock := NewMockProvider()
	mock.Add(&Series{Symbol: "BTCUSDT", Timeframe: "1h", Candles: makeKlines(120, 100)})

	s, err := Refetch(mock, Key{Symbol: "BTCUSDT", Timeframe: "1h"})
	if err != nil {
		t.Fatal(err)
	}
	if s.Symbol != "BTCUSDT" {
		t.Errorf("Unexpected series %s", s.Symbol)
	}

	if _, err := Refetch(mock, Key{Symbol: "NOPE", Timeframe: "1h"}); err == nil {
		t.Error("Expected an error for an unknown pair")
	}
}
