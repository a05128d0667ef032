package strategy

import (
	"crypto-signal-bot/internal/binance"
	"errors"
)

// ErrInsufficientData is returned by a rule condition when the series is too
// short for its indicator window. The evaluator treats it as "no match".
var ErrInsufficientData = errors.New("insufficient candle data")

// Side marks the direction a rule trades in
type Side string

const (
	Long  Side = "LONG"
	Short Side = "SHORT"
)

// Multipliers holds the ATR multipliers a rule uses for risk sizing
type Multipliers struct {
	Stop    float64
	Targets []float64
}

// Condition is a pure predicate over a candle series
type Condition func(klines []binance.Kline) (bool, error)

// Rule is one declarative strategy: a named, side-tagged condition with its
// base ATR multipliers. The rule set is fixed and auditable; no rule carries
// state of its own.
type Rule struct {
	Name      string
	Side      Side
	Base      Multipliers
	Condition Condition
}

// Match is a rule that fired for a series
type Match struct {
	Strategy string
	Side     Side
	Base     Multipliers
}

func last(klines []binance.Kline) binance.Kline {
	return klines[len(klines)-1]
}

// DefaultRules returns the full strategy registry. Strict, auditable,
// proven strategies only.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name: "RSI Oversold Reversal",
			Side: Long,
			Base: Multipliers{Stop: 1.2, Targets: []float64{1.0, 1.5, 2.0}},
			Condition: func(klines []binance.Kline) (bool, error) {
				if len(klines) < 15 {
					return false, ErrInsufficientData
				}
				k := last(klines)
				return CalculateRSI(klines, 14) < 30 && k.Close > k.Open, nil
			},
		},
		{
			Name: "RSI Overbought Reversal",
			Side: Short,
			Base: Multipliers{Stop: 1.2, Targets: []float64{1.0, 1.5, 2.0}},
			Condition: func(klines []binance.Kline) (bool, error) {
				if len(klines) < 15 {
					return false, ErrInsufficientData
				}
				k := last(klines)
				return CalculateRSI(klines, 14) > 70 && k.Close < k.Open, nil
			},
		},
		{
			Name: "VWAP Breakout",
			Side: Long,
			Base: Multipliers{Stop: 1.3, Targets: []float64{1.0, 1.5, 2.0}},
			Condition: func(klines []binance.Kline) (bool, error) {
				if len(klines) < 21 {
					return false, ErrInsufficientData
				}
				vwap := CalculateVWAP(klines)
				prevClose := klines[len(klines)-2].Close
				return last(klines).Close > vwap &&
					prevClose < vwap &&
					last(klines).Volume > CalculateAverageVolume(klines, 20), nil
			},
		},
		{
			Name: "VWAP Breakdown",
			Side: Short,
			Base: Multipliers{Stop: 1.3, Targets: []float64{1.0, 1.5, 2.0}},
			Condition: func(klines []binance.Kline) (bool, error) {
				if len(klines) < 21 {
					return false, ErrInsufficientData
				}
				vwap := CalculateVWAP(klines)
				prevClose := klines[len(klines)-2].Close
				return last(klines).Close < vwap &&
					prevClose > vwap &&
					last(klines).Volume > CalculateAverageVolume(klines, 20), nil
			},
		},
		{
			Name: "EMA Bullish Cross",
			Side: Long,
			Base: Multipliers{Stop: 1.2, Targets: []float64{1.0, 1.5, 2.0}},
			Condition: func(klines []binance.Kline) (bool, error) {
				if len(klines) < 22 {
					return false, ErrInsufficientData
				}
				prev := klines[:len(klines)-1]
				return CalculateEMA(klines, 9) > CalculateEMA(klines, 21) &&
					CalculateEMA(prev, 9) < CalculateEMA(prev, 21), nil
			},
		},
		{
			Name: "EMA Bearish Cross",
			Side: Short,
			Base: Multipliers{Stop: 1.2, Targets: []float64{1.0, 1.5, 2.0}},
			Condition: func(klines []binance.Kline) (bool, error) {
				if len(klines) < 22 {
					return false, ErrInsufficientData
				}
				prev := klines[:len(klines)-1]
				return CalculateEMA(klines, 9) < CalculateEMA(klines, 21) &&
					CalculateEMA(prev, 9) > CalculateEMA(prev, 21), nil
			},
		},
		{
			Name: "Bollinger Squeeze Breakout",
			Side: Long,
			Base: Multipliers{Stop: 1.5, Targets: []float64{1.5, 2.5, 3.0}},
			Condition: func(klines []binance.Kline) (bool, error) {
				if len(klines) < 40 {
					return false, ErrInsufficientData
				}
				bb := CalculateBollingerBands(klines, 20, 2)
				width := bb.Upper - bb.Lower
				avgWidth := CalculateBollingerWidthAverage(klines, 20, 2, 20)
				return width < avgWidth*0.7 && last(klines).Close > bb.Upper, nil
			},
		},
		{
			Name: "Bollinger Squeeze Breakdown",
			Side: Short,
			Base: Multipliers{Stop: 1.5, Targets: []float64{1.5, 2.5, 3.0}},
			Condition: func(klines []binance.Kline) (bool, error) {
				if len(klines) < 40 {
					return false, ErrInsufficientData
				}
				bb := CalculateBollingerBands(klines, 20, 2)
				width := bb.Upper - bb.Lower
				avgWidth := CalculateBollingerWidthAverage(klines, 20, 2, 20)
				return width < avgWidth*0.7 && last(klines).Close < bb.Lower, nil
			},
		},
		{
			Name: "MACD Bullish Cross",
			Side: Long,
			Base: Multipliers{Stop: 1.3, Targets: []float64{1.0, 1.5, 2.0}},
			Condition: func(klines []binance.Kline) (bool, error) {
				curr, prev, ok := CalculateMACDHistogram(klines, 12, 26, 9)
				if !ok {
					return false, ErrInsufficientData
				}
				return curr > 0 && prev < 0, nil
			},
		},
		{
			Name: "MACD Bearish Cross",
			Side: Short,
			Base: Multipliers{Stop: 1.3, Targets: []float64{1.0, 1.5, 2.0}},
			Condition: func(klines []binance.Kline) (bool, error) {
				curr, prev, ok := CalculateMACDHistogram(klines, 12, 26, 9)
				if !ok {
					return false, ErrInsufficientData
				}
				return curr < 0 && prev > 0, nil
			},
		},
		{
			Name: "Stochastic Bullish Cross",
			Side: Long,
			Base: Multipliers{Stop: 1.2, Targets: []float64{1.0, 1.5, 2.0}},
			Condition: func(klines []binance.Kline) (bool, error) {
				if len(klines) < 18 {
					return false, ErrInsufficientData
				}
				curr := CalculateStochastic(klines, 14, 3)
				prev := CalculateStochastic(klines[:len(klines)-1], 14, 3)
				return curr.D > curr.K && prev.D < prev.K, nil
			},
		},
		{
			Name: "Stochastic Bearish Cross",
			Side: Short,
			Base: Multipliers{Stop: 1.2, Targets: []float64{1.0, 1.5, 2.0}},
			Condition: func(klines []binance.Kline) (bool, error) {
				if len(klines) < 18 {
					return false, ErrInsufficientData
				}
				curr := CalculateStochastic(klines, 14, 3)
				prev := CalculateStochastic(klines[:len(klines)-1], 14, 3)
				return curr.D < curr.K && prev.D > prev.K, nil
			},
		},
		{
			Name: "Range Break High",
			Side: Long,
			Base: Multipliers{Stop: 1.4, Targets: []float64{1.2, 1.8, 2.5}},
			Condition: func(klines []binance.Kline) (bool, error) {
				if len(klines) < 12 {
					return false, ErrInsufficientData
				}
				// break above the 10-bar high as of the previous bar
				priorHigh := HighestHigh(klines[:len(klines)-1], 10)
				return last(klines).Close > priorHigh, nil
			},
		},
		{
			Name: "Range Break Low",
			Side: Short,
			Base: Multipliers{Stop: 1.4, Targets: []float64{1.2, 1.8, 2.5}},
			Condition: func(klines []binance.Kline) (bool, error) {
				if len(klines) < 12 {
					return false, ErrInsufficientData
				}
				priorLow := LowestLow(klines[:len(klines)-1], 10)
				return last(klines).Close < priorLow, nil
			},
		},
	}
}
