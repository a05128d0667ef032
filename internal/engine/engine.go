package engine

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"crypto-signal-bot/internal/binance"
	"crypto-signal-bot/internal/events"
	"crypto-signal-bot/internal/lifecycle"
	"crypto-signal-bot/internal/logging"
	"crypto-signal-bot/internal/market"
	"crypto-signal-bot/internal/notification"
	"crypto-signal-bot/internal/signal"
	"crypto-signal-bot/internal/store"
	"crypto-signal-bot/internal/strategy"
)

// Config is the per-run configuration
type Config struct {
	Symbols             []string `json:"symbols"`
	Timeframes          []string `json:"timeframes"`
	ConfidenceThreshold float64  `json:"confidence_threshold"`
	MomentumFloor       float64  `json:"momentum_floor"`
	MaxSignalsPerRun    int      `json:"max_signals_per_run"`
}

// DefaultConfig returns the standard run configuration
func DefaultConfig() Config {
	return Config{
		Symbols:             []string{"BTCUSDT", "ETHUSDT"},
		Timeframes:          []string{"15m", "1h"},
		ConfidenceThreshold: 0.7,
		MomentumFloor:       40,
		MaxSignalsPerRun:    3,
	}
}

// RunStats summarizes one completed pass
type RunStats struct {
	RunID          string    `json:"run_id"`
	StartedAt      time.Time `json:"started_at"`
	Duration       string    `json:"duration"`
	PairsEvaluated int       `json:"pairs_evaluated"`
	Candidates     int       `json:"candidates"`
	SignalsEmitted int       `json:"signals_emitted"`
	TradesClosed   int       `json:"trades_closed"`
}

// Engine runs one full pass: sweep open trades for exits, evaluate every
// pair against the rule registry, build and score signals, filter, dedup,
// cap, and emit. A single Engine expects to be the sole writer of its
// stores; Run is serialized with a mutex so loop mode can never overlap
// passes.
type Engine struct {
	cfg       Config
	provider  market.Provider
	evaluator StrategyEvaluator
	history   *store.StrategyHistory
	trades    *store.ActiveTradeStore
	deduper   store.Deduper
	tracker   *lifecycle.Tracker
	notifier  *notification.Manager
	bus       *events.EventBus
	logger    *logging.Logger

	mu       sync.Mutex
	lastStat RunStats
	runCount int
}

// StrategyEvaluator yields strategy matches for a pair's candles
type StrategyEvaluator interface {
	Evaluate(klines []binance.Kline) []strategy.Match
}

func New(cfg Config, provider market.Provider, evaluator StrategyEvaluator, history *store.StrategyHistory, trades *store.ActiveTradeStore, deduper store.Deduper, tracker *lifecycle.Tracker, notifier *notification.Manager, bus *events.EventBus, logger *logging.Logger) *Engine {
	if logger == nil {
		logger = logging.WithComponent("engine")
	}
	return &Engine{
		cfg:       cfg,
		provider:  provider,
		evaluator: evaluator,
		history:   history,
		trades:    trades,
		deduper:   deduper,
		tracker:   tracker,
		notifier:  notifier,
		bus:       bus,
		logger:    logger,
	}
}

// Run executes one sequential pass. Per-rule failures, degenerate ATRs,
// short histories, and notification failures are contained along the way;
// anything else (including a panic) surfaces as the returned error, which
// the caller treats as fatal.
func (e *Engine) Run() (err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("run panicked: %v", r)
		}
	}()

	runID := uuid.NewString()[:8]
	started := time.Now()
	log := e.logger.WithField("run_id", runID)
	log.Info("run started",
		"symbols", len(e.cfg.Symbols),
		"timeframes", len(e.cfg.Timeframes))

	// 1. sweep open trades for exits; closures feed the strategy history
	closed := e.tracker.Sweep()
	for _, c := range closed {
		e.notifier.SendTradeClose(c.Trade, c.Exit.Reason, c.Exit.ExitPrice, c.Exit.Profit)
		e.bus.PublishTradeClosed(c.Trade.Serial, c.Trade.Symbol, c.Exit.Reason,
			c.Trade.Entry, c.Exit.ExitPrice, c.Exit.Profit)
	}

	// 2. evaluate every pair and build scored candidates
	seriesMap := e.provider.Fetch(e.cfg.Symbols, e.cfg.Timeframes)
	thresholds := signal.Thresholds{
		MinConfidence: e.cfg.ConfidenceThreshold,
		MinMomentum:   e.cfg.MomentumFloor,
	}

	candidates := make([]*signal.Signal, 0)
	for key, series := range seriesMap {
		matches := e.evaluator.Evaluate(series.Candles)
		for _, match := range matches {
			mult := e.history.Adjust(match.Strategy, match.Base)

			sig := signal.Build(series, match, mult)
			if sig == nil {
				log.Warn("degenerate ATR, signal skipped",
					"pair", key.String(),
					"strategy", match.Strategy)
				continue
			}

			sig.Confidence = signal.Confidence(series, match.Side, e.history.Winrate(match.Strategy))
			sig.Momentum = signal.Momentum(series.Candles)
			sig.MomentumCat = signal.MomentumCategory(sig.Momentum)

			if !thresholds.Accept(sig) {
				log.Debug("signal below thresholds",
					"pair", key.String(),
					"strategy", match.Strategy,
					"confidence", sig.Confidence,
					"momentum", sig.Momentum)
				continue
			}

			candidates = append(candidates, sig)
		}
	}

	// 3. highest confidence first, dedup, cap, emit
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})

	emitted := 0
	now := time.Now().Unix()
	for _, sig := range candidates {
		if emitted >= e.cfg.MaxSignalsPerRun {
			break
		}

		// dedup on the setup identity before spending a serial: a
		// condition persisting across runs must not re-alert or reopen
		key := sig.Identity()
		if e.deduper.IsDuplicate(key, now) {
			log.Info("duplicate signal suppressed",
				"key", key,
				"symbol", sig.Symbol,
				"strategy", sig.Strategy)
			continue
		}

		sig.Serial = e.history.NextSerial(e.trades.Serials())
		if err := e.deduper.Remember(key, sig.Serial, sig.OpenedAt); err != nil {
			return fmt.Errorf("recording dedup entry: %w", err)
		}
		if err := e.trades.Add(*sig); err != nil {
			return fmt.Errorf("persisting trade: %w", err)
		}

		e.notifier.SendSignal(sig)
		e.bus.PublishSignal(sig.Serial, sig.Strategy, sig.Symbol, sig.Timeframe,
			string(sig.Side), sig.Entry, sig.Confidence)
		e.bus.PublishTradeOpened(sig.Serial, sig.Symbol, string(sig.Side), sig.Entry)

		log.Info("signal emitted",
			"slno", sig.Serial,
			"symbol", sig.Symbol,
			"side", string(sig.Side),
			"strategy", sig.Strategy,
			"entry", sig.Entry,
			"confidence", sig.Confidence)
		emitted++
	}

	e.lastStat = RunStats{
		RunID:          runID,
		StartedAt:      started,
		Duration:       time.Since(started).String(),
		PairsEvaluated: len(seriesMap),
		Candidates:     len(candidates),
		SignalsEmitted: emitted,
		TradesClosed:   len(closed),
	}
	e.runCount++

	e.bus.PublishRunCompleted(runID, emitted, len(closed), len(seriesMap))
	log.Info("run completed",
		"pairs", len(seriesMap),
		"candidates", len(candidates),
		"emitted", emitted,
		"closed", len(closed),
		"duration", e.lastStat.Duration)

	return nil
}

// Status returns a snapshot for the API
func (e *Engine) Status() map[string]interface{} {
	e.mu.Lock()
	defer e.mu.Unlock()

	return map[string]interface{}{
		"symbols":    e.cfg.Symbols,
		"timeframes": e.cfg.Timeframes,
		"runs":       e.runCount,
		"last_run":   e.lastStat,
	}
}
