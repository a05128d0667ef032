package market

import (
	"fmt"
	"math"

	"crypto-signal-bot/internal/binance"
	"crypto-signal-bot/internal/logging"
	"crypto-signal-bot/internal/strategy"
)

// MinBars is the minimum candle history a pair needs before any strategy
// evaluation happens. Pairs with fewer bars are skipped for the run.
const MinBars = 100

// fetchLimit is how many klines the Binance provider requests per pair
const fetchLimit = 200

const atrPeriod = 14

// Key identifies one (symbol, timeframe) pair
type Key struct {
	Symbol    string
	Timeframe string
}

func (k Key) String() string {
	return k.Symbol + "/" + k.Timeframe
}

// Series is one pair's candle history with the derived ATR of the latest bar
type Series struct {
	Symbol    string
	Timeframe string
	Candles   []binance.Kline
	ATR       float64
}

// LastClose returns the close of the latest candle
func (s *Series) LastClose() float64 {
	if len(s.Candles) == 0 {
		return 0
	}
	return s.Candles[len(s.Candles)-1].Close
}

// ATRPercent returns ATR as a percentage of the latest close
func (s *Series) ATRPercent() float64 {
	close := s.LastClose()
	if close == 0 || math.IsNaN(s.ATR) {
		return 0
	}
	return s.ATR / close * 100
}

// Provider fetches candle series for a set of pairs. Pairs that cannot be
// served (fetch failure, short history) are simply absent from the result.
type Provider interface {
	Fetch(symbols, timeframes []string) map[Key]*Series
}

// KlineSource is the slice of the Binance client the provider needs
type KlineSource interface {
	GetKlines(symbol, interval string, limit int) ([]binance.Kline, error)
}

// BinanceProvider fetches live candles from the Binance REST API
type BinanceProvider struct {
	client KlineSource
	logger *logging.Logger
}

func NewBinanceProvider(client KlineSource, logger *logging.Logger) *BinanceProvider {
	if logger == nil {
		logger = logging.WithComponent("market")
	}
	return &BinanceProvider{client: client, logger: logger}
}

// Fetch pulls candles for every (symbol, timeframe) pair and precomputes
// the 14-period ATR. Failures and short histories skip the pair, never the run.
func (p *BinanceProvider) Fetch(symbols, timeframes []string) map[Key]*Series {
	result := make(map[Key]*Series, len(symbols)*len(timeframes))

	for _, symbol := range symbols {
		for _, tf := range timeframes {
			key := Key{Symbol: symbol, Timeframe: tf}

			klines, err := p.client.GetKlines(symbol, tf, fetchLimit)
			if err != nil {
				p.logger.Warn("kline fetch failed",
					"pair", key.String(),
					"error", err)
				continue
			}
			if len(klines) < MinBars {
				p.logger.Warn("insufficient candle history, skipping pair",
					"pair", key.String(),
					"bars", len(klines))
				continue
			}

			result[key] = &Series{
				Symbol:    symbol,
				Timeframe: tf,
				Candles:   klines,
				ATR:       strategy.CalculateATR(klines, atrPeriod),
			}
		}
	}

	return result
}

// MockProvider serves pre-built series, for tests and dry runs
type MockProvider struct {
	Series map[Key]*Series
}

func NewMockProvider() *MockProvider {
	return &MockProvider{Series: make(map[Key]*Series)}
}

// Add registers a series under its pair key, computing ATR if unset
func (m *MockProvider) Add(s *Series) {
	if s.ATR == 0 {
		s.ATR = strategy.CalculateATR(s.Candles, atrPeriod)
	}
	m.Series[Key{Symbol: s.Symbol, Timeframe: s.Timeframe}] = s
}

func (m *MockProvider) Fetch(symbols, timeframes []string) map[Key]*Series {
	result := make(map[Key]*Series)
	for _, symbol := range symbols {
		for _, tf := range timeframes {
			key := Key{Symbol: symbol, Timeframe: tf}
			if s, ok := m.Series[key]; ok && len(s.Candles) >= MinBars {
				result[key] = s
			}
		}
	}
	return result
}

// Refetch fetches a single pair, used by the lifecycle tracker to get a
// fresh series for exit checks.
func Refetch(p Provider, key Key) (*Series, error) {
	series := p.Fetch([]string{key.Symbol}, []string{key.Timeframe})
	s, ok := series[key]
	if !ok {
		return nil, fmt.Errorf("no series for %s", key.String())
	}
	return s, nil
}
