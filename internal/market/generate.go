package market

import (
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"crypto-signal-bot/internal/binance"
	"crypto-signal-bot/internal/strategy"
)

// GenerateSeries builds a deterministic simulated candle series for mock
// mode and tests. The same (symbol, timeframe) always produces the same
// candles: a slow sine drift with seeded noise around a base price derived
// from the symbol.
func GenerateSeries(symbol, timeframe string, bars int) *Series {
	h := fnv.New64a()
	h.Write([]byte(symbol + "/" + timeframe))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	base := 100 + float64(h.Sum64()%900)
	step := intervalDuration(timeframe)
	start := time.Now().Add(-time.Duration(bars) * step).Truncate(step)

	candles := make([]binance.Kline, bars)
	price := base
	for i := 0; i < bars; i++ {
		drift := math.Sin(float64(i)/20) * base * 0.01
		noise := (rng.Float64() - 0.5) * base * 0.01
		open := price
		close := base + drift + noise
		high := math.Max(open, close) * (1 + rng.Float64()*0.003)
		low := math.Min(open, close) * (1 - rng.Float64()*0.003)

		openTime := start.Add(time.Duration(i) * step)
		candles[i] = binance.Kline{
			OpenTime:  openTime.UnixMilli(),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     close,
			Volume:    1000 + rng.Float64()*500,
			CloseTime: openTime.Add(step).UnixMilli() - 1,
		}
		price = close
	}

	return &Series{
		Symbol:    symbol,
		Timeframe: timeframe,
		Candles:   candles,
		ATR:       strategy.CalculateATR(candles, atrPeriod),
	}
}

func intervalDuration(timeframe string) time.Duration {
	switch timeframe {
	case "1m":
		return time.Minute
	case "5m":
		return 5 * time.Minute
	case "15m":
		return 15 * time.Minute
	case "30m":
		return 30 * time.Minute
	case "1h":
		return time.Hour
	case "4h":
		return 4 * time.Hour
	case "1d":
		return 24 * time.Hour
	default:
		return 15 * time.Minute
	}
}
