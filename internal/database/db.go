// Package database is the PostgreSQL implementation of the store.Store
// contract.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// DB wraps the PostgreSQL connection pool.
type DB struct {
	Pool *pgxpool.Pool
	log  zerolog.Logger
}

// Config holds database connection settings.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// NewDB creates the connection pool and verifies connectivity.
func NewDB(ctx context.Context, cfg Config, log zerolog.Logger) (*DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	log.Info().Str("database", cfg.Database).Msg("connected to PostgreSQL")
	return &DB{Pool: pool, log: log}, nil
}

// Close closes the connection pool.
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
		db.log.Info().Msg("database connection closed")
	}
}

// RunMigrations creates the schema if needed.
func (db *DB) RunMigrations(ctx context.Context) error {
	db.log.Info().Msg("running database migrations")

	migrations := []string{
		`CREATE TABLE IF NOT EXISTS trades (
			id UUID PRIMARY KEY,
			symbol VARCHAR(12) NOT NULL,
			side VARCHAR(4) NOT NULL,
			quantity DECIMAL(20, 8) NOT NULL,
			price DECIMAL(20, 8) NOT NULL,
			notional DECIMAL(20, 8) NOT NULL,
			slippage DECIMAL(20, 8) NOT NULL DEFAULT 0,
			strategy_tag VARCHAR(64),
			status VARCHAR(12) NOT NULL,
			reject_reason VARCHAR(64),
			event_time TIMESTAMPTZ NOT NULL,
			seq BIGINT NOT NULL,
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_symbol_event_time ON trades(symbol, event_time DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_event_time ON trades(event_time DESC)`,

		`CREATE TABLE IF NOT EXISTS positions (
			symbol VARCHAR(12) PRIMARY KEY,
			quantity DECIMAL(20, 8) NOT NULL,
			avg_price DECIMAL(20, 8) NOT NULL,
			realized_pnl DECIMAL(20, 8) NOT NULL DEFAULT 0,
			unrealized_pnl DECIMAL(20, 8) NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS daily_stats (
			date DATE PRIMARY KEY,
			total_notional DECIMAL(24, 8) NOT NULL DEFAULT 0,
			trade_count INTEGER NOT NULL DEFAULT 0,
			realized_pnl DECIMAL(20, 8) NOT NULL DEFAULT 0,
			active_positions INTEGER NOT NULL DEFAULT 0
		)`,
	}

	for i, migration := range migrations {
		if _, err := db.Pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}

	db.log.Info().Int("count", len(migrations)).Msg("migrations complete")
	return nil
}
