// Package store defines the persistence contract for trades, positions and
// daily stats, plus the in-memory and Redis implementations. The Postgres
// implementation lives in internal/database.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/Anubothu-Aravind/alpha-fx-trader/internal/market"
)

// ErrPersistence wraps any storage failure surfaced to the trading engine.
var ErrPersistence = errors.New("persistence failed")

// Execution bundles the writes of a single trade execution. Stores must
// commit all three or none.
type Execution struct {
	Trade    *market.Trade
	Position market.Position
	Stats    market.DailyStats
}

// Store is the durable backend for the trading engine.
type Store interface {
	// AppendTrade records a trade. Idempotent by trade ID.
	AppendTrade(ctx context.Context, trade *market.Trade) error
	// UpsertPosition writes the position keyed by symbol.
	UpsertPosition(ctx context.Context, pos market.Position) error
	// UpsertDailyStats writes the stats row keyed by UTC date.
	UpsertDailyStats(ctx context.Context, stats market.DailyStats) error
	// CommitExecution atomically applies all writes of one execution.
	CommitExecution(ctx context.Context, exec Execution) error
	// LoadTodayNotional returns the executed notional recorded for the date.
	LoadTodayNotional(ctx context.Context, date time.Time) (float64, error)
	// LoadPositions returns all persisted positions.
	LoadPositions(ctx context.Context) ([]market.Position, error)
	// ListTrades returns trades, newest first by (event_time, seq). An empty
	// symbol matches all symbols.
	ListTrades(ctx context.Context, symbol string, limit, offset int) ([]market.Trade, error)
	// Close releases the backend.
	Close()
}
