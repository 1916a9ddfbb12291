package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Anubothu-Aravind/alpha-fx-trader/internal/market"
)

// Memory is an in-process Store used for dry runs and tests. FailNext
// injects a one-shot fault into the named operation so suites can verify
// the engine's rollback behavior.
type Memory struct {
	mu        sync.Mutex
	trades    []market.Trade
	tradeIDs  map[string]struct{}
	positions map[string]market.Position
	stats     map[time.Time]market.DailyStats
	failOps   map[string]int
}

func NewMemory() *Memory {
	return &Memory{
		tradeIDs:  make(map[string]struct{}),
		positions: make(map[string]market.Position),
		stats:     make(map[time.Time]market.DailyStats),
		failOps:   make(map[string]int),
	}
}

// FailNext arms n failures for op: "append_trade", "upsert_position",
// "upsert_daily_stats" or "commit".
func (m *Memory) FailNext(op string, n int) {
	m.mu.Lock()
	m.failOps[op] = n
	m.mu.Unlock()
}

func (m *Memory) shouldFail(op string) bool {
	if n := m.failOps[op]; n > 0 {
		m.failOps[op] = n - 1
		return true
	}
	return false
}

func (m *Memory) AppendTrade(ctx context.Context, trade *market.Trade) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shouldFail("append_trade") {
		return fmt.Errorf("%w: injected append_trade fault", ErrPersistence)
	}
	m.appendLocked(trade)
	return nil
}

func (m *Memory) appendLocked(trade *market.Trade) {
	if _, dup := m.tradeIDs[trade.ID]; dup {
		return
	}
	m.tradeIDs[trade.ID] = struct{}{}
	m.trades = append(m.trades, *trade)
}

func (m *Memory) UpsertPosition(ctx context.Context, pos market.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shouldFail("upsert_position") {
		return fmt.Errorf("%w: injected upsert_position fault", ErrPersistence)
	}
	m.positions[pos.Symbol] = pos
	return nil
}

func (m *Memory) UpsertDailyStats(ctx context.Context, stats market.DailyStats) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shouldFail("upsert_daily_stats") {
		return fmt.Errorf("%w: injected upsert_daily_stats fault", ErrPersistence)
	}
	m.stats[market.DateKey(stats.Date)] = stats
	return nil
}

// CommitExecution applies all three writes under one lock; an injected
// fault on any step leaves the store untouched.
func (m *Memory) CommitExecution(ctx context.Context, exec Execution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shouldFail("commit") || m.shouldFail("append_trade") ||
		m.shouldFail("upsert_position") || m.shouldFail("upsert_daily_stats") {
		return fmt.Errorf("%w: injected commit fault", ErrPersistence)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	m.appendLocked(exec.Trade)
	m.positions[exec.Position.Symbol] = exec.Position
	m.stats[market.DateKey(exec.Stats.Date)] = exec.Stats
	return nil
}

func (m *Memory) LoadTodayNotional(ctx context.Context, date time.Time) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if stats, ok := m.stats[market.DateKey(date)]; ok {
		return stats.TotalNotional, nil
	}
	return 0, nil
}

func (m *Memory) LoadPositions(ctx context.Context) ([]market.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]market.Position, 0, len(m.positions))
	for _, pos := range m.positions {
		out = append(out, pos)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

func (m *Memory) ListTrades(ctx context.Context, symbol string, limit, offset int) ([]market.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	matched := make([]market.Trade, 0, len(m.trades))
	for _, t := range m.trades {
		if symbol == "" || t.Symbol == symbol {
			matched = append(matched, t)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].EventTime.Equal(matched[j].EventTime) {
			return matched[i].EventTime.After(matched[j].EventTime)
		}
		return matched[i].Seq > matched[j].Seq
	})

	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

// DailyStats returns the stats row for the date, if present. Test helper.
func (m *Memory) DailyStats(date time.Time) (market.DailyStats, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats, ok := m.stats[market.DateKey(date)]
	return stats, ok
}

func (m *Memory) Close() {}
