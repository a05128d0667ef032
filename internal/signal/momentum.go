package signal

import (
	"crypto-signal-bot/internal/binance"
	"crypto-signal-bot/internal/strategy"
)

// Momentum category boundaries, lowest first
const (
	veryWeakCeiling = 25.0
	weakCeiling     = 40.0
	neutralCeiling  = 60.0
	strongCeiling   = 80.0
)

// Momentum blends RSI, stochastic %K and rate-of-change into a single
// 0-100 strength score. ROC contributes through a clamped linear mapping so
// one outsized move cannot dominate the blend.
func Momentum(klines []binance.Kline) float64 {
	rsi := strategy.CalculateRSI(klines, 14)
	stochK := strategy.CalculateStochastic(klines, 14, 3).K
	roc := strategy.CalculateROC(klines, 10)

	rocScore := 50 + clamp(5*roc, -50, 50)

	return 0.5*rsi + 0.3*stochK + 0.2*rocScore
}

// MomentumCategory maps a momentum score to its label
func MomentumCategory(momentum float64) string {
	switch {
	case momentum < veryWeakCeiling:
		return "Very Weak"
	case momentum < weakCeiling:
		return "Weak"
	case momentum < neutralCeiling:
		return "Neutral"
	case momentum < strongCeiling:
		return "Strong"
	default:
		return "Very Strong"
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
