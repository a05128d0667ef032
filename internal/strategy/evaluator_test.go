package strategy

import (
	"errors"
	"testing"

	"crypto-signal-bot/internal/binance"
)

// oversoldSeries declines steadily, then prints one green candle. RSI sits
// deep below 30, so "RSI Oversold Reversal" should fire.
func oversoldSeries(bars int) []binance.Kline {
	klines := make([]binance.Kline, bars)
	price := 500.0
	for i := 0; i < bars-1; i++ {
		price -= 2
		klines[i] = binance.Kline{
			Open: price + 2, High: price + 2.5, Low: price - 0.5,
			Close: price, Volume: 1000,
		}
	}
	klines[bars-1] = binance.Kline{
		Open: price, High: price + 1.5, Low: price - 0.5,
		Close: price + 1, Volume: 1000,
	}
	return klines
}

func TestEvaluateOversoldReversal(t *testing.T) {
	evaluator := NewEvaluator(DefaultRules(), nil)
	matches := evaluator.Evaluate(oversoldSeries(120))

	found := false
	for _, m := range matches {
		if m.Strategy == "RSI Oversold Reversal" {
			found = true
			if m.Side != Long {
				t.Errorf("Expected LONG side, got %s", m.Side)
			}
			if m.Base.Stop != 1.2 {
				t.Errorf("Expected base stop 1.2, got %f", m.Base.Stop)
			}
			if len(m.Base.Targets) != 3 || m.Base.Targets[0] != 1.0 {
				t.Errorf("Unexpected base targets %v", m.Base.Targets)
			}
		}
	}
	if !found {
		t.Error("Expected RSI Oversold Reversal to fire on a deep decline with a green last candle")
	}
}

func TestEvaluateShortSeriesYieldsNoMatches(t *testing.T) {
	evaluator := NewEvaluator(DefaultRules(), nil)
	matches := evaluator.Evaluate(oversoldSeries(120)[:5])
	if len(matches) != 0 {
		t.Errorf("Expected no matches on a 5-bar series, got %d", len(matches))
	}
}

func TestEvaluatePanickingRuleIsolated(t *testing.T) {
	rules := []Rule{
		{
			Name: "Panicking Rule",
			Side: Long,
			Base: Multipliers{Stop: 1.0, Targets: []float64{1.0}},
			Condition: func(klines []binance.Kline) (bool, error) {
				panic("indicator blew up")
			},
		},
		{
			Name: "Always Fires",
			Side: Short,
			Base: Multipliers{Stop: 1.0, Targets: []float64{1.0}},
			Condition: func(klines []binance.Kline) (bool, error) {
				return true, nil
			},
		},
	}

	evaluator := NewEvaluator(rules, nil)
	matches := evaluator.Evaluate(oversoldSeries(120))

	if len(matches) != 1 {
		t.Fatalf("Expected exactly 1 match despite sibling panic, got %d", len(matches))
	}
	if matches[0].Strategy != "Always Fires" {
		t.Errorf("Expected the surviving rule to match, got %s", matches[0].Strategy)
	}
}

func TestEvaluateErroringRuleIsolated(t *testing.T) {
	rules := []Rule{
		{
			Name: "Erroring Rule",
			Side: Long,
			Base: Multipliers{Stop: 1.0, Targets: []float64{1.0}},
			Condition: func(klines []binance.Kline) (bool, error) {
				return false, errors.New("bad indicator input")
			},
		},
		{
			Name: "Always Fires",
			Side: Long,
			Base: Multipliers{Stop: 1.0, Targets: []float64{1.0}},
			Condition: func(klines []binance.Kline) (bool, error) {
				return true, nil
			},
		},
	}

	evaluator := NewEvaluator(rules, nil)
	matches := evaluator.Evaluate(oversoldSeries(120))
	if len(matches) != 1 || matches[0].Strategy != "Always Fires" {
		t.Errorf("Expected only the healthy rule to match, got %v", matches)
	}
}

func TestDefaultRulesRegistry(t *testing.T) {
	rules := DefaultRules()
	if len(rules) != 14 {
		t.Fatalf("Expected 14 rules in the registry, got %d", len(rules))
	}

	longs, shorts := 0, 0
	for _, r := range rules {
		if r.Name == "" || r.Condition == nil {
			t.Errorf("Rule missing name or condition: %+v", r)
		}
		if len(r.Base.Targets) != 3 {
			t.Errorf("Rule %s should carry 3 target multipliers, got %d", r.Name, len(r.Base.Targets))
		}
		switch r.Side {
		case Long:
			longs++
		case Short:
			shorts++
		}
	}
	if longs != 7 || shorts != 7 {
		t.Errorf("Expected 7 LONG and 7 SHORT rules, got %d/%d", longs, shorts)
	}
}
