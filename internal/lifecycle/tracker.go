package lifecycle

import (
	"github.com/rs/zerolog"

	"crypto-signal-bot/internal/market"
	"crypto-signal-bot/internal/signal"
	"crypto-signal-bot/internal/store"
	"crypto-signal-bot/internal/strategy"
)

// exitLookback is how many recent closes the exit checks scan
const exitLookback = 10

// costToCostATRFactor is the favorable excursion (in ATRs) that arms the
// cost-to-cost exit.
const costToCostATRFactor = 0.5

// ExitResult describes how a trade closed
type ExitResult struct {
	Reason       string
	ExitPrice    float64
	Profit       float64
	CandlesToWin int
}

// ClosedTrade pairs a trade with its exit for downstream reporting
type ClosedTrade struct {
	Trade signal.Signal
	Exit  ExitResult
}

// Tracker re-evaluates every open trade against fresh candles and, on
// close, feeds the outcome back into the strategy history.
type Tracker struct {
	provider market.Provider
	trades   *store.ActiveTradeStore
	history  *store.StrategyHistory
	logger   zerolog.Logger
}

func NewTracker(provider market.Provider, trades *store.ActiveTradeStore, history *store.StrategyHistory, logger zerolog.Logger) *Tracker {
	return &Tracker{
		provider: provider,
		trades:   trades,
		history:  history,
		logger:   logger.With().Str("component", "lifecycle").Logger(),
	}
}

// Sweep checks every open trade once. Closed trades are removed from the
// store, recorded into the strategy history, and returned for reporting.
// A trade whose market data cannot be fetched stays open for the next run.
func (t *Tracker) Sweep() []ClosedTrade {
	closed := make([]ClosedTrade, 0)

	for _, trade := range t.trades.Trades() {
		key := market.Key{Symbol: trade.Symbol, Timeframe: trade.Timeframe}
		series, err := market.Refetch(t.provider, key)
		if err != nil {
			t.logger.Warn().
				Str("serial", trade.Serial).
				Str("pair", key.String()).
				Err(err).
				Msg("exit check skipped, no fresh series")
			continue
		}

		exit, ok := CheckExit(trade, series)
		if !ok {
			continue
		}

		t.logger.Info().
			Str("serial", trade.Serial).
			Str("symbol", trade.Symbol).
			Str("strategy", trade.Strategy).
			Str("reason", exit.Reason).
			Float64("exit", exit.ExitPrice).
			Float64("profit", exit.Profit).
			Msg("trade closed")

		rec := store.OutcomeRecord{
			Serial:       trade.Serial,
			Entry:        trade.Entry,
			StopLoss:     trade.StopLoss,
			Targets:      trade.Targets,
			Outcome:      exit.Reason,
			Profit:       exit.Profit,
			CandlesToWin: exit.CandlesToWin,
		}
		if err := t.history.Record(trade.Strategy, rec); err != nil {
			t.logger.Error().Err(err).Str("serial", trade.Serial).Msg("outcome record failed")
		}
		if err := t.trades.Remove(trade.Serial); err != nil {
			t.logger.Error().Err(err).Str("serial", trade.Serial).Msg("trade removal failed")
		}

		closed = append(closed, ClosedTrade{Trade: trade, Exit: exit})
	}

	return closed
}

// CheckExit runs the exit state machine over the last closes of a fresh
// series. Checks run in priority order and the first match wins:
// cost-to-cost reversal, then stop, then targets farthest-first. Returns
// ok=false while the trade stays open.
func CheckExit(trade signal.Signal, series *market.Series) (ExitResult, bool) {
	candles := series.Candles
	if len(candles) == 0 {
		return ExitResult{}, false
	}

	start := len(candles) - exitLookback
	if start < 0 {
		start = 0
	}
	closes := make([]float64, 0, exitLookback)
	for _, k := range candles[start:] {
		closes = append(closes, k.Close)
	}
	latest := closes[len(closes)-1]

	long := trade.Side == strategy.Long

	// 1. cost-to-cost: price favored the trade by half an ATR and then
	// came all the way back to entry
	if series.ATR > 0 {
		threshold := series.ATR * costToCostATRFactor
		favored := false
		for _, c := range closes {
			if (long && c >= trade.Entry+threshold) || (!long && c <= trade.Entry-threshold) {
				favored = true
				break
			}
		}
		reverted := (long && latest <= trade.Entry) || (!long && latest >= trade.Entry)
		if favored && reverted {
			return ExitResult{
				Reason:    "Cost-to-Cost",
				ExitPrice: latest,
				Profit:    profit(trade, latest),
			}, true
		}
	}

	// 2. stop loss, closed at the stop price regardless of overshoot
	for _, c := range closes {
		if (long && c <= trade.StopLoss) || (!long && c >= trade.StopLoss) {
			return ExitResult{
				Reason:    "SL Hit",
				ExitPrice: trade.StopLoss,
				Profit:    profit(trade, trade.StopLoss),
			}, true
		}
	}

	// 3. targets, farthest tier first
	for i := len(trade.Targets) - 1; i >= 0; i-- {
		tp := trade.Targets[i]
		hit := false
		for _, c := range closes {
			if (long && c >= tp) || (!long && c <= tp) {
				hit = true
				break
			}
		}
		if hit {
			return ExitResult{
				Reason:       tpReason(i + 1),
				ExitPrice:    tp,
				Profit:       profit(trade, tp),
				CandlesToWin: len(trade.Targets) - i,
			}, true
		}
	}

	return ExitResult{}, false
}

func profit(trade signal.Signal, exit float64) float64 {
	if trade.Side == strategy.Long {
		return exit - trade.Entry
	}
	return trade.Entry - exit
}

func tpReason(tier int) string {
	switch tier {
	case 1:
		return "TP1 Hit"
	case 2:
		return "TP2 Hit"
	case 3:
		return "TP3 Hit"
	default:
		return "TP Hit"
	}
}
