package market

import "time"

// TradeStatus marks whether an execution attempt went through.
type TradeStatus string

const (
	TradeExecuted TradeStatus = "EXECUTED"
	TradeRejected TradeStatus = "REJECTED"
)

// Trade is an append-only execution record.
type Trade struct {
	ID           string      `json:"id"`
	Symbol       string      `json:"symbol"`
	Side         Side        `json:"side"`
	Quantity     float64     `json:"quantity"`
	Price        float64     `json:"price"`
	Notional     float64     `json:"notional"`
	Slippage     float64     `json:"slippage"` // |price - mid| at execution
	StrategyTag  string      `json:"strategy_tag"`
	Status       TradeStatus `json:"status"`
	RejectReason string      `json:"reject_reason,omitempty"`
	EventTime    time.Time   `json:"event_time"`
	Seq          uint64      `json:"seq"`
}

// Position is the per-symbol net position. Quantity is signed: positive
// long, negative short.
type Position struct {
	Symbol        string    `json:"symbol"`
	Quantity      float64   `json:"quantity"`
	AvgPrice      float64   `json:"avg_price"`
	RealizedPnL   float64   `json:"realized_pnl"`
	UnrealizedPnL float64   `json:"unrealized_pnl"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Exposure returns the absolute open notional at average price.
func (p Position) Exposure() float64 {
	n := p.Quantity * p.AvgPrice
	if n < 0 {
		return -n
	}
	return n
}

// DailyStats aggregates trading activity for one UTC date.
type DailyStats struct {
	Date            time.Time `json:"date"` // midnight UTC
	TotalNotional   float64   `json:"total_notional"`
	TradeCount      int       `json:"trade_count"`
	RealizedPnL     float64   `json:"realized_pnl"`
	ActivePositions int       `json:"active_positions"`
}

// DateKey truncates t to its UTC date.
func DateKey(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
