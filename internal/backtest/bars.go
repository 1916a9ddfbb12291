package backtest

import (
	"fmt"
	"hash/fnv"
	"math/rand"
	"strconv"
	"strings"
	"time"
)

// Bar is one synthetic OHLC candle.
type Bar struct {
	OpenTime time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
}

// ParseInterval parses bar intervals like "15m", "1h" or "1d".
func ParseInterval(s string) (time.Duration, error) {
	if strings.HasSuffix(s, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil || days <= 0 {
			return 0, fmt.Errorf("invalid interval %q", s)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid interval %q", s)
	}
	return d, nil
}

// seedFor derives the PRNG seed from the request inputs, so identical
// requests synthesize identical bars.
func seedFor(req Request) int64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%d|%d|%s|%f|%+v",
		req.Symbol, req.Start.UnixNano(), req.End.UnixNano(), req.Interval,
		req.InitialCapital, req.Parameters)
	return int64(h.Sum64())
}

// generateBars synthesizes a random-walk OHLC series from startPrice with
// the given per-bar volatility.
func generateBars(rng *rand.Rand, startPrice, sigma float64, start, end time.Time, interval time.Duration) []Bar {
	var bars []Bar
	price := startPrice
	for t := start; t.Before(end); t = t.Add(interval) {
		open := price
		close := open * (1 + (rng.Float64()*2-1)*sigma)

		high := open
		if close > high {
			high = close
		}
		low := open
		if close < low {
			low = close
		}
		// Wicks: jitter beyond the body by up to half a sigma.
		high *= 1 + rng.Float64()*sigma/2
		low *= 1 - rng.Float64()*sigma/2

		bars = append(bars, Bar{
			OpenTime: t,
			Open:     open,
			High:     high,
			Low:      low,
			Close:    close,
			Volume:   100_000 + rng.Float64()*1_000_000,
		})
		price = close
	}
	return bars
}
