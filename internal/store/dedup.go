package store

import (
	"crypto-signal-bot/internal/logging"
)

// DedupWindowSeconds is how long a signal identity suppresses re-alerting
const DedupWindowSeconds = 7200

// Deduper suppresses re-alerting the same signal identity inside the
// cool-down window. The key is the stable identity of the setup
// (symbol, timeframe, strategy, side), not the per-trade serial: a
// condition that persists across runs keeps producing the same key and
// stays suppressed. Implemented by the JSON file cache and the Redis cache.
type Deduper interface {
	IsDuplicate(key string, now int64) bool
	Remember(key, serial string, openedAt int64) error
}

// DedupEntry is one remembered signal identity
type DedupEntry struct {
	Key      string `json:"key"`
	Serial   string `json:"slno"`
	OpenedAt int64  `json:"opened_at"`
}

// SignalCache is the file-backed Deduper. The whole document is held in
// memory and rewritten atomically on every mutation.
type SignalCache struct {
	path    string
	logger  *logging.Logger
	entries []DedupEntry
}

// NewSignalCache loads the cache document, resetting it to an empty list
// when the file is absent or unparsable.
func NewSignalCache(path string, logger *logging.Logger) *SignalCache {
	if logger == nil {
		logger = logging.WithComponent("store")
	}
	c := &SignalCache{path: path, logger: logger}

	if err := loadJSON(path, &c.entries); err != nil {
		c.logger.Warn("signal cache unreadable, resetting", "error", err)
		c.entries = []DedupEntry{}
		if werr := writeJSON(path, c.entries); werr != nil {
			c.logger.Error("signal cache reset failed", "error", werr)
		}
	}
	return c
}

// IsDuplicate reports whether the identity was remembered less than the
// dedup window ago.
func (c *SignalCache) IsDuplicate(key string, now int64) bool {
	for _, e := range c.entries {
		if e.Key == key && now-e.OpenedAt < DedupWindowSeconds {
			return true
		}
	}
	return false
}

// Remember records a signal identity, dropping entries that have aged out
// of the window, and flushes the document.
func (c *SignalCache) Remember(key, serial string, openedAt int64) error {
	kept := c.entries[:0]
	for _, e := range c.entries {
		if openedAt-e.OpenedAt < DedupWindowSeconds {
			kept = append(kept, e)
		}
	}
	c.entries = append(kept, DedupEntry{Key: key, Serial: serial, OpenedAt: openedAt})
	return writeJSON(c.path, c.entries)
}
