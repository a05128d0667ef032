package store

import (
	"crypto-signal-bot/internal/logging"
	"crypto-signal-bot/internal/signal"
)

// ActiveTradeStore owns the open-trade list. Trades enter when a signal is
// emitted and leave when the lifecycle tracker closes them; nothing else
// mutates the collection.
type ActiveTradeStore struct {
	path   string
	logger *logging.Logger
	trades []signal.Signal
}

// NewActiveTradeStore loads the trade document, resetting to an empty list
// when absent or unparsable.
func NewActiveTradeStore(path string, logger *logging.Logger) *ActiveTradeStore {
	if logger == nil {
		logger = logging.WithComponent("store")
	}
	s := &ActiveTradeStore{path: path, logger: logger}

	if err := loadJSON(path, &s.trades); err != nil {
		s.logger.Warn("active trade store unreadable, resetting", "error", err)
		s.trades = []signal.Signal{}
		if werr := writeJSON(path, s.trades); werr != nil {
			s.logger.Error("active trade store reset failed", "error", werr)
		}
	}
	return s
}

// Trades returns a copy of the open trades in insertion order
func (s *ActiveTradeStore) Trades() []signal.Signal {
	out := make([]signal.Signal, len(s.trades))
	copy(out, s.trades)
	return out
}

// Serials returns the serials of all open trades
func (s *ActiveTradeStore) Serials() []string {
	serials := make([]string, len(s.trades))
	for i, t := range s.trades {
		serials[i] = t.Serial
	}
	return serials
}

// Add appends a trade and flushes the document
func (s *ActiveTradeStore) Add(trade signal.Signal) error {
	s.trades = append(s.trades, trade)
	return writeJSON(s.path, s.trades)
}

// Remove drops the trade with the given serial and flushes. Removing an
// unknown serial is a no-op.
func (s *ActiveTradeStore) Remove(serial string) error {
	kept := s.trades[:0]
	for _, t := range s.trades {
		if t.Serial != serial {
			kept = append(kept, t)
		}
	}
	s.trades = kept
	return writeJSON(s.path, s.trades)
}

// Count returns the number of open trades
func (s *ActiveTradeStore) Count() int {
	return len(s.trades)
}
