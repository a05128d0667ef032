package strategy

import (
	"crypto-signal-bot/internal/binance"
	"math"
)

// ============================================================================
// MOVING AVERAGES
// ============================================================================

// CalculateSMA calculates Simple Moving Average of closes
func CalculateSMA(klines []binance.Kline, period int) float64 {
	if len(klines) < period || period <= 0 {
		return 0
	}

	sum := 0.0
	startIdx := len(klines) - period

	for i := startIdx; i < len(klines); i++ {
		sum += klines[i].Close
	}

	return sum / float64(period)
}

// CalculateEMA calculates Exponential Moving Average of closes
func CalculateEMA(klines []binance.Kline, period int) float64 {
	if len(klines) < period || period <= 0 {
		return 0
	}

	sma := CalculateSMA(klines[:period], period)
	multiplier := 2.0 / float64(period+1)

	ema := sma
	for i := period; i < len(klines); i++ {
		ema = (klines[i].Close * multiplier) + (ema * (1 - multiplier))
	}

	return ema
}

func emaSeries(values []float64, period int) []float64 {
	if len(values) < period || period <= 0 {
		return nil
	}

	out := make([]float64, len(values))
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += values[i]
	}
	out[period-1] = sum / float64(period)

	multiplier := 2.0 / float64(period+1)
	for i := period; i < len(values); i++ {
		out[i] = (values[i]-out[i-1])*multiplier + out[i-1]
	}

	return out
}

// ============================================================================
// RSI (Relative Strength Index)
// ============================================================================

// CalculateRSI calculates the Relative Strength Index
func CalculateRSI(klines []binance.Kline, period int) float64 {
	if len(klines) < period+1 {
		return 50.0 // Neutral RSI
	}

	gains := 0.0
	losses := 0.0

	for i := len(klines) - period; i < len(klines); i++ {
		change := klines[i].Close - klines[i-1].Close
		if change > 0 {
			gains += change
		} else {
			losses += -change
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	if avgLoss == 0 {
		return 100.0
	}

	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// ============================================================================
// MACD (Moving Average Convergence Divergence)
// ============================================================================

// CalculateMACDHistogram returns the MACD histogram (MACD line minus signal
// line) for the latest bar and the bar before it. Returns ok=false when the
// series is too short to hold a full slow EMA plus signal EMA window.
func CalculateMACDHistogram(klines []binance.Kline, fastPeriod, slowPeriod, signalPeriod int) (curr, prev float64, ok bool) {
	if len(klines) < slowPeriod+signalPeriod+1 {
		return 0, 0, false
	}

	closes := make([]float64, len(klines))
	for i, k := range klines {
		closes[i] = k.Close
	}

	fastEMA := emaSeries(closes, fastPeriod)
	slowEMA := emaSeries(closes, slowPeriod)

	// MACD line is only defined once the slow EMA has seeded
	macd := make([]float64, 0, len(closes)-slowPeriod+1)
	for i := slowPeriod - 1; i < len(closes); i++ {
		macd = append(macd, fastEMA[i]-slowEMA[i])
	}

	signal := emaSeries(macd, signalPeriod)
	if signal == nil {
		return 0, 0, false
	}

	last := len(macd) - 1
	curr = macd[last] - signal[last]
	prev = macd[last-1] - signal[last-1]
	return curr, prev, true
}

// ============================================================================
// BOLLINGER BANDS
// ============================================================================

// BollingerBandsResult holds Bollinger Bands values
type BollingerBandsResult struct {
	Upper  float64
	Middle float64
	Lower  float64
}

// CalculateBollingerBands calculates Bollinger Bands on the latest bar
func CalculateBollingerBands(klines []binance.Kline, period int, stdDevMultiplier float64) BollingerBandsResult {
	if len(klines) < period {
		return BollingerBandsResult{}
	}

	middle := CalculateSMA(klines, period)

	variance := 0.0
	startIdx := len(klines) - period
	for i := startIdx; i < len(klines); i++ {
		diff := klines[i].Close - middle
		variance += diff * diff
	}
	stdDev := math.Sqrt(variance / float64(period))

	return BollingerBandsResult{
		Upper:  middle + (stdDev * stdDevMultiplier),
		Middle: middle,
		Lower:  middle - (stdDev * stdDevMultiplier),
	}
}

// CalculateBollingerWidthAverage returns the average band width (upper minus
// lower) over the trailing lookback positions, used to detect squeezes.
func CalculateBollingerWidthAverage(klines []binance.Kline, period int, stdDevMultiplier float64, lookback int) float64 {
	if len(klines) < period+lookback-1 || lookback <= 0 {
		return 0
	}

	sum := 0.0
	for offset := 0; offset < lookback; offset++ {
		window := klines[:len(klines)-offset]
		bb := CalculateBollingerBands(window, period, stdDevMultiplier)
		sum += bb.Upper - bb.Lower
	}

	return sum / float64(lookback)
}

// ============================================================================
// ATR (Average True Range)
// ============================================================================

// CalculateATR calculates Average True Range
func CalculateATR(klines []binance.Kline, period int) float64 {
	if len(klines) < period+1 {
		return 0
	}

	trSum := 0.0
	startIdx := len(klines) - period

	for i := startIdx; i < len(klines); i++ {
		high := klines[i].High
		low := klines[i].Low
		prevClose := klines[i-1].Close

		tr := math.Max(
			high-low,
			math.Max(
				math.Abs(high-prevClose),
				math.Abs(low-prevClose),
			),
		)

		trSum += tr
	}

	return trSum / float64(period)
}

// ============================================================================
// STOCHASTIC OSCILLATOR
// ============================================================================

// StochasticResult holds Stochastic Oscillator values for one bar
type StochasticResult struct {
	K float64
	D float64
}

func stochasticK(klines []binance.Kline, kPeriod int) float64 {
	startIdx := len(klines) - kPeriod
	highestHigh := klines[startIdx].High
	lowestLow := klines[startIdx].Low

	for i := startIdx; i < len(klines); i++ {
		if klines[i].High > highestHigh {
			highestHigh = klines[i].High
		}
		if klines[i].Low < lowestLow {
			lowestLow = klines[i].Low
		}
	}

	currentClose := klines[len(klines)-1].Close
	if highestHigh == lowestLow {
		return 50
	}
	return ((currentClose - lowestLow) / (highestHigh - lowestLow)) * 100
}

// CalculateStochastic calculates the Stochastic Oscillator. %D is the
// dPeriod-bar simple average of %K.
func CalculateStochastic(klines []binance.Kline, kPeriod, dPeriod int) StochasticResult {
	if len(klines) < kPeriod+dPeriod-1 {
		return StochasticResult{K: 50, D: 50}
	}

	k := stochasticK(klines, kPeriod)

	dSum := 0.0
	for offset := 0; offset < dPeriod; offset++ {
		dSum += stochasticK(klines[:len(klines)-offset], kPeriod)
	}

	return StochasticResult{K: k, D: dSum / float64(dPeriod)}
}

// ============================================================================
// VWAP
// ============================================================================

// CalculateVWAP calculates the volume weighted average price over the whole
// series. Falls back to the latest close when no volume traded.
func CalculateVWAP(klines []binance.Kline) float64 {
	if len(klines) == 0 {
		return 0
	}

	pv := 0.0
	vol := 0.0
	for _, k := range klines {
		pv += k.Close * k.Volume
		vol += k.Volume
	}

	if vol == 0 {
		return klines[len(klines)-1].Close
	}
	return pv / vol
}

// ============================================================================
// VOLUME ANALYSIS
// ============================================================================

// CalculateAverageVolume calculates average volume over a period
func CalculateAverageVolume(klines []binance.Kline, period int) float64 {
	if len(klines) == 0 {
		return 0
	}
	if len(klines) < period {
		period = len(klines)
	}

	sum := 0.0
	startIdx := len(klines) - period

	for i := startIdx; i < len(klines); i++ {
		sum += klines[i].Volume
	}

	return sum / float64(period)
}

// ============================================================================
// ROLLING HIGH / LOW
// ============================================================================

// HighestHigh returns the highest high over the trailing period
func HighestHigh(klines []binance.Kline, period int) float64 {
	if len(klines) == 0 {
		return 0
	}
	if len(klines) < period {
		period = len(klines)
	}

	startIdx := len(klines) - period
	high := klines[startIdx].High
	for i := startIdx; i < len(klines); i++ {
		if klines[i].High > high {
			high = klines[i].High
		}
	}
	return high
}

// LowestLow returns the lowest low over the trailing period
func LowestLow(klines []binance.Kline, period int) float64 {
	if len(klines) == 0 {
		return 0
	}
	if len(klines) < period {
		period = len(klines)
	}

	startIdx := len(klines) - period
	low := klines[startIdx].Low
	for i := startIdx; i < len(klines); i++ {
		if klines[i].Low < low {
			low = klines[i].Low
		}
	}
	return low
}

// ============================================================================
// MOMENTUM INDICATORS
// ============================================================================

// CalculateROC calculates the Rate of Change in percent over a period
func CalculateROC(klines []binance.Kline, period int) float64 {
	if len(klines) < period+1 {
		return 0
	}

	currentPrice := klines[len(klines)-1].Close
	pastPrice := klines[len(klines)-period-1].Close
	if pastPrice == 0 {
		return 0
	}

	return ((currentPrice - pastPrice) / pastPrice) * 100
}
