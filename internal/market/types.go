package market

import (
	"fmt"
	"time"
)

// Side is the direction of a trade.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Sign returns +1 for BUY and -1 for SELL.
func (s Side) Sign() float64 {
	if s == SideBuy {
		return 1
	}
	return -1
}

// Tick is a single bid/ask quote for one symbol.
// Seq is assigned by the tick bus and is strictly increasing per symbol.
type Tick struct {
	Symbol    string    `json:"symbol"`
	Bid       float64   `json:"bid"`
	Ask       float64   `json:"ask"`
	Volume    float64   `json:"volume"`
	EventTime time.Time `json:"event_time"`
	Seq       uint64    `json:"seq"`
}

// Mid returns the mid price (bid+ask)/2.
func (t Tick) Mid() float64 {
	return (t.Bid + t.Ask) / 2
}

// Spread returns ask-bid.
func (t Tick) Spread() float64 {
	return t.Ask - t.Bid
}

// Validate checks the tick invariants: bid>0, ask>=bid, spread>0.
func (t Tick) Validate() error {
	if t.Symbol == "" {
		return fmt.Errorf("%w: empty symbol", ErrBadTick)
	}
	if t.Bid <= 0 {
		return fmt.Errorf("%w: bid %.6f must be positive", ErrBadTick, t.Bid)
	}
	if t.Ask < t.Bid {
		return fmt.Errorf("%w: ask %.6f below bid %.6f", ErrBadTick, t.Ask, t.Bid)
	}
	if t.Ask == t.Bid {
		return fmt.Errorf("%w: zero spread", ErrBadTick)
	}
	return nil
}

// HistoryPoint is the per-tick record kept in the rolling history ring.
type HistoryPoint struct {
	EventTime time.Time `json:"event_time"`
	Mid       float64   `json:"mid"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Volume    float64   `json:"volume"`
	Seq       uint64    `json:"seq"`
}

// Mids extracts the mid prices of a history slice, oldest first.
func Mids(points []HistoryPoint) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Mid
	}
	return out
}
