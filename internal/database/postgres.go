package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Anubothu-Aravind/alpha-fx-trader/internal/market"
	"github.com/Anubothu-Aravind/alpha-fx-trader/internal/store"
)

// Postgres implements store.Store on top of the pgx pool.
type Postgres struct {
	db *DB
}

// NewPostgres wraps an open DB as a Store.
func NewPostgres(db *DB) *Postgres {
	return &Postgres{db: db}
}

const insertTradeSQL = `
	INSERT INTO trades (id, symbol, side, quantity, price, notional, slippage,
	                    strategy_tag, status, reject_reason, event_time, seq)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (id) DO NOTHING
`

const upsertPositionSQL = `
	INSERT INTO positions (symbol, quantity, avg_price, realized_pnl, unrealized_pnl, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (symbol) DO UPDATE SET
		quantity = EXCLUDED.quantity,
		avg_price = EXCLUDED.avg_price,
		realized_pnl = EXCLUDED.realized_pnl,
		unrealized_pnl = EXCLUDED.unrealized_pnl,
		updated_at = EXCLUDED.updated_at
`

const upsertDailyStatsSQL = `
	INSERT INTO daily_stats (date, total_notional, trade_count, realized_pnl, active_positions)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (date) DO UPDATE SET
		total_notional = EXCLUDED.total_notional,
		trade_count = EXCLUDED.trade_count,
		realized_pnl = EXCLUDED.realized_pnl,
		active_positions = EXCLUDED.active_positions
`

func (p *Postgres) AppendTrade(ctx context.Context, trade *market.Trade) error {
	_, err := p.db.Pool.Exec(ctx, insertTradeSQL,
		trade.ID, trade.Symbol, trade.Side, trade.Quantity, trade.Price,
		trade.Notional, trade.Slippage, trade.StrategyTag, trade.Status,
		nullable(trade.RejectReason), trade.EventTime, int64(trade.Seq),
	)
	if err != nil {
		return fmt.Errorf("%w: append trade: %v", store.ErrPersistence, err)
	}
	return nil
}

func (p *Postgres) UpsertPosition(ctx context.Context, pos market.Position) error {
	_, err := p.db.Pool.Exec(ctx, upsertPositionSQL,
		pos.Symbol, pos.Quantity, pos.AvgPrice, pos.RealizedPnL, pos.UnrealizedPnL, pos.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: upsert position: %v", store.ErrPersistence, err)
	}
	return nil
}

func (p *Postgres) UpsertDailyStats(ctx context.Context, stats market.DailyStats) error {
	_, err := p.db.Pool.Exec(ctx, upsertDailyStatsSQL,
		market.DateKey(stats.Date), stats.TotalNotional, stats.TradeCount,
		stats.RealizedPnL, stats.ActivePositions,
	)
	if err != nil {
		return fmt.Errorf("%w: upsert daily stats: %v", store.ErrPersistence, err)
	}
	return nil
}

// CommitExecution writes the trade, position and daily stats rows of one
// execution inside a single transaction.
func (p *Postgres) CommitExecution(ctx context.Context, exec store.Execution) error {
	err := pgx.BeginFunc(ctx, p.db.Pool, func(tx pgx.Tx) error {
		trade := exec.Trade
		if _, err := tx.Exec(ctx, insertTradeSQL,
			trade.ID, trade.Symbol, trade.Side, trade.Quantity, trade.Price,
			trade.Notional, trade.Slippage, trade.StrategyTag, trade.Status,
			nullable(trade.RejectReason), trade.EventTime, int64(trade.Seq),
		); err != nil {
			return fmt.Errorf("append trade: %w", err)
		}
		pos := exec.Position
		if _, err := tx.Exec(ctx, upsertPositionSQL,
			pos.Symbol, pos.Quantity, pos.AvgPrice, pos.RealizedPnL, pos.UnrealizedPnL, pos.UpdatedAt,
		); err != nil {
			return fmt.Errorf("upsert position: %w", err)
		}
		stats := exec.Stats
		if _, err := tx.Exec(ctx, upsertDailyStatsSQL,
			market.DateKey(stats.Date), stats.TotalNotional, stats.TradeCount,
			stats.RealizedPnL, stats.ActivePositions,
		); err != nil {
			return fmt.Errorf("upsert daily stats: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrPersistence, err)
	}
	return nil
}

func (p *Postgres) LoadTodayNotional(ctx context.Context, date time.Time) (float64, error) {
	var notional float64
	err := p.db.Pool.QueryRow(ctx,
		`SELECT total_notional FROM daily_stats WHERE date = $1`,
		market.DateKey(date),
	).Scan(&notional)
	if err == pgx.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: load today notional: %v", store.ErrPersistence, err)
	}
	return notional, nil
}

func (p *Postgres) LoadPositions(ctx context.Context) ([]market.Position, error) {
	rows, err := p.db.Pool.Query(ctx, `
		SELECT symbol, quantity, avg_price, realized_pnl, unrealized_pnl, updated_at
		FROM positions
		ORDER BY symbol
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: load positions: %v", store.ErrPersistence, err)
	}
	defer rows.Close()

	var out []market.Position
	for rows.Next() {
		var pos market.Position
		if err := rows.Scan(&pos.Symbol, &pos.Quantity, &pos.AvgPrice,
			&pos.RealizedPnL, &pos.UnrealizedPnL, &pos.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan position: %v", store.ErrPersistence, err)
		}
		out = append(out, pos)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: load positions: %v", store.ErrPersistence, err)
	}
	return out, nil
}

func (p *Postgres) ListTrades(ctx context.Context, symbol string, limit, offset int) ([]market.Trade, error) {
	query := `
		SELECT id, symbol, side, quantity, price, notional, slippage,
		       strategy_tag, status, COALESCE(reject_reason, ''), event_time, seq
		FROM trades
	`
	args := []any{}
	if symbol != "" {
		query += ` WHERE symbol = $1`
		args = append(args, symbol)
	}
	query += fmt.Sprintf(` ORDER BY event_time DESC, seq DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit, offset)

	rows, err := p.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list trades: %v", store.ErrPersistence, err)
	}
	defer rows.Close()

	var out []market.Trade
	for rows.Next() {
		var t market.Trade
		var seq int64
		if err := rows.Scan(&t.ID, &t.Symbol, &t.Side, &t.Quantity, &t.Price,
			&t.Notional, &t.Slippage, &t.StrategyTag, &t.Status, &t.RejectReason,
			&t.EventTime, &seq); err != nil {
			return nil, fmt.Errorf("%w: scan trade: %v", store.ErrPersistence, err)
		}
		t.Seq = uint64(seq)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list trades: %v", store.ErrPersistence, err)
	}
	return out, nil
}

func (p *Postgres) Close() {
	p.db.Close()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
