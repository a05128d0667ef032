package signal

import (
	"fmt"
	"math"
	"time"

	"crypto-signal-bot/internal/market"
	"crypto-signal-bot/internal/strategy"
)

// Signal is a fully-built trade signal. The JSON layout matches the
// persisted cache documents, so a Signal round-trips through the stores
// unchanged.
type Signal struct {
	Serial        string        `json:"slno"`
	Symbol        string        `json:"symbol"`
	Timeframe     string        `json:"timeframe"`
	Side          strategy.Side `json:"side"`
	Entry         float64       `json:"entry"`
	StopLoss      float64       `json:"sl"`
	SLMultiplier  float64       `json:"sl_multiplier"`
	Targets       []float64     `json:"tp"`
	TPMultipliers []float64     `json:"tp_multipliers"`
	Strategy      string        `json:"strategy"`
	Confidence    float64       `json:"confidence"`
	Momentum      float64       `json:"momentum"`
	MomentumCat   string        `json:"momentum_cat"`
	OpenedAt      int64         `json:"opened_at"`
}

// Identity returns the stable deduplication key of the setup that produced
// the signal. Serials advance per trade, so re-alert suppression keys on
// what fired, not on which trade it opened.
func (s *Signal) Identity() string {
	return fmt.Sprintf("%s|%s|%s|%s", s.Symbol, s.Timeframe, s.Strategy, s.Side)
}

// Build constructs a signal for a matched strategy using the pair's ATR and
// the (possibly adapted) multipliers. Returns nil when the ATR is degenerate:
// no risk distances can be derived from a zero, negative, or NaN ATR.
func Build(series *market.Series, match strategy.Match, mult strategy.Multipliers) *Signal {
	atr := series.ATR
	if atr <= 0 || math.IsNaN(atr) {
		return nil
	}

	entry := series.LastClose()

	var stop float64
	targets := make([]float64, len(mult.Targets))

	switch match.Side {
	case strategy.Long:
		stop = entry - atr*mult.Stop
		for i, m := range mult.Targets {
			targets[i] = round2(entry + atr*m)
		}
	default:
		stop = entry + atr*mult.Stop
		for i, m := range mult.Targets {
			targets[i] = round2(entry - atr*m)
		}
	}

	return &Signal{
		Symbol:        series.Symbol,
		Timeframe:     series.Timeframe,
		Side:          match.Side,
		Entry:         round2(entry),
		StopLoss:      round2(stop),
		SLMultiplier:  mult.Stop,
		Targets:       targets,
		TPMultipliers: mult.Targets,
		Strategy:      match.Strategy,
		OpenedAt:      time.Now().Unix(),
	}
}

// round2 rounds a price to two decimals. Multipliers are never rounded.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
