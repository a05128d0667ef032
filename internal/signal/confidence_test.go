package signal

import (
	"math"
	"testing"

	"crypto-signal-bot/internal/binance"
	"crypto-signal-bot/internal/market"
	"crypto-signal-bot/internal/strategy"
)

func flatSeries(close, atr float64) *market.Series {
	// single bar keeps RSI at its neutral 50 default
	return &market.Series{
		Symbol:    "BTCUSDT",
		Timeframe: "1h",
		Candles:   []binance.Kline{{Close: close}},
		ATR:       atr,
	}
}

func risingSeries(atr float64) *market.Series {
	candles := make([]binance.Kline, 20)
	for i := range candles {
		c := 100 + float64(i)
		candles[i] = binance.Kline{Open: c - 1, High: c + 0.5, Low: c - 1.5, Close: c, Volume: 1000}
	}
	return &market.Series{Symbol: "ETHUSDT", Timeframe: "1h", Candles: candles, ATR: atr}
}

func TestConfidenceNeutralBase(t *testing.T) {
	// winrate 0.5, ATR 10% of price, neutral RSI: no bonuses apply
	score := Confidence(flatSeries(100, 10), strategy.Long, 0.5)
	if math.Abs(score-0.5) > 1e-9 {
		t.Errorf("Expected exactly 0.5, got %f", score)
	}
}

func TestConfidenceWinrateAnchoring(t *testing.T) {
	high := Confidence(flatSeries(100, 10), strategy.Long, 0.9)
	low := Confidence(flatSeries(100, 10), strategy.Long, 0.1)

	if math.Abs(high-0.7) > 1e-9 {
		t.Errorf("Expected 0.7 for winrate 0.9, got %f", high)
	}
	if math.Abs(low-0.3) > 1e-9 {
		t.Errorf("Expected 0.3 for winrate 0.1, got %f", low)
	}
}

func TestConfidenceVolatilityBonus(t *testing.T) {
	calm := Confidence(flatSeries(100, 1), strategy.Long, 0.5)     // ATR% = 1.0
	moderate := Confidence(flatSeries(100, 2), strategy.Long, 0.5) // ATR% = 2.0
	wild := Confidence(flatSeries(100, 5), strategy.Long, 0.5)     // ATR% = 5.0

	if math.Abs(calm-0.6) > 1e-9 {
		t.Errorf("Expected +0.10 bonus below 1.5%% ATR, got %f", calm)
	}
	if math.Abs(moderate-0.55) > 1e-9 {
		t.Errorf("Expected +0.05 bonus below 2.5%% ATR, got %f", moderate)
	}
	if math.Abs(wild-0.5) > 1e-9 {
		t.Errorf("Expected no bonus at 5%% ATR, got %f", wild)
	}
}

func TestConfidenceRSIAgreement(t *testing.T) {
	series := risingSeries(10) // RSI well above 50, ATR% too high for a vol bonus

	long := Confidence(series, strategy.Long, 0.5)
	short := Confidence(series, strategy.Short, 0.5)

	if math.Abs(long-0.55) > 1e-9 {
		t.Errorf("Expected RSI agreement bonus for LONG in an uptrend, got %f", long)
	}
	if math.Abs(short-0.5) > 1e-9 {
		t.Errorf("Expected no agreement bonus for SHORT in an uptrend, got %f", short)
	}
}

func TestConfidenceClamped(t *testing.T) {
	for _, winrate := range []float64{-5, 0, 0.5, 1, 5} {
		for _, atr := range []float64{0.1, 1, 10} {
			score := Confidence(risingSeries(atr), strategy.Long, winrate)
			if score < 0 || score > 1 {
				t.Errorf("Confidence out of [0,1]: winrate=%f atr=%f score=%f", winrate, atr, score)
			}
		}
	}
}
