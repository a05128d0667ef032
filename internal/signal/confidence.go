package signal

import (
	"crypto-signal-bot/internal/market"
	"crypto-signal-bot/internal/strategy"
)

// Confidence scores a prospective signal in [0, 1].
//
// The base anchors on the strategy's historical winrate, centered on 0.5 so
// an unproven strategy starts at exactly 0.5. Low volatility (ATR as a
// percent of price) and RSI agreement with the trade side each add a bonus.
func Confidence(series *market.Series, side strategy.Side, winrate float64) float64 {
	score := 0.5 + (winrate-0.5)*0.5

	atrPct := series.ATRPercent()
	if atrPct < 1.5 {
		score += 0.10
	} else if atrPct < 2.5 {
		score += 0.05
	}

	rsi := strategy.CalculateRSI(series.Candles, 14)
	if (side == strategy.Long && rsi > 50) || (side == strategy.Short && rsi < 50) {
		score += 0.05
	}

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
