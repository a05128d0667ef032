package store

import (
	"fmt"
	"strconv"
	"strings"

	"crypto-signal-bot/internal/logging"
	"crypto-signal-bot/internal/strategy"
)

// historyWindow bounds the outcome records kept per strategy
const historyWindow = 50

// maxSerial is the largest serial before wrapping back to 01
const maxSerial = 99

// OutcomeRecord is one closed trade's result, kept under its strategy name
type OutcomeRecord struct {
	Serial       string    `json:"slno"`
	Entry        float64   `json:"entry"`
	StopLoss     float64   `json:"sl"`
	Targets      []float64 `json:"tp"`
	Outcome      string    `json:"outcome"`
	Profit       float64   `json:"profit"`
	CandlesToWin int       `json:"candles_to_win,omitempty"`
}

// Win reports whether the outcome reached a take-profit level
func (r OutcomeRecord) Win() bool {
	return strings.Contains(r.Outcome, "TP")
}

// StrategyHistory is the adaptive parameter store: it persists bounded
// per-strategy outcome history, derives winrates from it, and adapts
// stop/target multipliers before each signal is built.
type StrategyHistory struct {
	path    string
	logger  *logging.Logger
	records map[string][]OutcomeRecord
}

// NewStrategyHistory loads the history document, resetting to an empty
// mapping when absent or unparsable.
func NewStrategyHistory(path string, logger *logging.Logger) *StrategyHistory {
	if logger == nil {
		logger = logging.WithComponent("store")
	}
	h := &StrategyHistory{path: path, logger: logger}

	if err := loadJSON(path, &h.records); err != nil {
		h.logger.Warn("strategy history unreadable, resetting", "error", err)
		h.records = map[string][]OutcomeRecord{}
		if werr := writeJSON(path, h.records); werr != nil {
			h.logger.Error("strategy history reset failed", "error", werr)
		}
	}
	if h.records == nil {
		h.records = map[string][]OutcomeRecord{}
	}
	return h
}

// Winrate returns the fraction of wins in the strategy's recent history.
// An unproven strategy gets the neutral 0.5.
func (h *StrategyHistory) Winrate(strategyName string) float64 {
	records := h.records[strategyName]
	if len(records) == 0 {
		return 0.5
	}

	wins := 0
	for _, r := range records {
		if r.Win() {
			wins++
		}
	}
	return float64(wins) / float64(len(records))
}

// Adjust adapts base multipliers from the strategy's winrate: a proven
// strategy gets more room (wider stop, farther targets), a losing one gets
// tightened with floors that keep the geometry sane.
func (h *StrategyHistory) Adjust(strategyName string, base strategy.Multipliers) strategy.Multipliers {
	winrate := h.Winrate(strategyName)

	adjusted := strategy.Multipliers{
		Stop:    base.Stop,
		Targets: make([]float64, len(base.Targets)),
	}
	copy(adjusted.Targets, base.Targets)

	switch {
	case winrate > 0.6:
		adjusted.Stop += 0.2
		for i := range adjusted.Targets {
			adjusted.Targets[i] += 0.2
		}
	case winrate < 0.4:
		adjusted.Stop -= 0.2
		if adjusted.Stop < 1.0 {
			adjusted.Stop = 1.0
		}
		for i := range adjusted.Targets {
			adjusted.Targets[i] -= 0.2
			if adjusted.Targets[i] < 0.8 {
				adjusted.Targets[i] = 0.8
			}
		}
	}

	return adjusted
}

// Record appends an outcome under the strategy, trims to the window, and
// flushes the document.
func (h *StrategyHistory) Record(strategyName string, rec OutcomeRecord) error {
	records := append(h.records[strategyName], rec)
	if len(records) > historyWindow {
		records = records[len(records)-historyWindow:]
	}
	h.records[strategyName] = records
	return writeJSON(h.path, h.records)
}

// Records returns a copy of the strategy's outcome history
func (h *StrategyHistory) Records(strategyName string) []OutcomeRecord {
	records := h.records[strategyName]
	out := make([]OutcomeRecord, len(records))
	copy(out, records)
	return out
}

// Strategies returns the names of all strategies with recorded history
func (h *StrategyHistory) Strategies() []string {
	names := make([]string, 0, len(h.records))
	for name := range h.records {
		names = append(names, name)
	}
	return names
}

// NextSerial returns the next free two-digit serial. It scans both the
// persisted outcome serials and the serials of currently-open trades, so a
// fresh serial never collides with an active trade. Wraps past 99 to 01.
func (h *StrategyHistory) NextSerial(openSerials []string) string {
	max := 0
	consider := func(s string) {
		if n, err := strconv.Atoi(s); err == nil && n > max {
			max = n
		}
	}

	for _, records := range h.records {
		for _, r := range records {
			consider(r.Serial)
		}
	}
	for _, s := range openSerials {
		consider(s)
	}

	next := max + 1
	if next > maxSerial {
		next = 1
	}
	return fmt.Sprintf("%02d", next)
}
