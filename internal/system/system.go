// Package system wires the components together: registry, bus, feed,
// strategies, risk gate, ledger, store and engine. One System is built at
// process start and torn down in reverse order on stop.
package system

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Anubothu-Aravind/alpha-fx-trader/config"
	"github.com/Anubothu-Aravind/alpha-fx-trader/internal/backtest"
	"github.com/Anubothu-Aravind/alpha-fx-trader/internal/bus"
	"github.com/Anubothu-Aravind/alpha-fx-trader/internal/clock"
	"github.com/Anubothu-Aravind/alpha-fx-trader/internal/database"
	"github.com/Anubothu-Aravind/alpha-fx-trader/internal/engine"
	"github.com/Anubothu-Aravind/alpha-fx-trader/internal/feed"
	"github.com/Anubothu-Aravind/alpha-fx-trader/internal/ledger"
	"github.com/Anubothu-Aravind/alpha-fx-trader/internal/logging"
	"github.com/Anubothu-Aravind/alpha-fx-trader/internal/market"
	"github.com/Anubothu-Aravind/alpha-fx-trader/internal/metrics"
	"github.com/Anubothu-Aravind/alpha-fx-trader/internal/risk"
	"github.com/Anubothu-Aravind/alpha-fx-trader/internal/store"
	"github.com/Anubothu-Aravind/alpha-fx-trader/internal/strategy"
)

// System is the assembled trading backend.
type System struct {
	Registry *market.Registry
	Bus      *bus.Bus
	Ledger   *ledger.Ledger
	Store    store.Store
	Engine   *engine.Engine
	Feed     feed.Source
	Backtest *backtest.Runner
	Metrics  *metrics.Metrics
	Clock    clock.Clock
}

// Build constructs a System from configuration. The store backend is
// chosen by config: Postgres when the database is enabled, otherwise Redis
// when enabled, otherwise in-memory.
func Build(ctx context.Context, cfg *config.Config) (*System, error) {
	clk := clock.NewReal()
	m := metrics.New(prometheus.DefaultRegisterer)

	registry, err := market.NewRegistry(market.DefaultSymbols())
	if err != nil {
		return nil, fmt.Errorf("build registry: %w", err)
	}

	b := bus.New(registry, cfg.BusConfig.HistoryCapacity, cfg.BusConfig.SubscriberBuffer,
		m, logging.Component("bus"))

	st, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var source feed.Source
	if cfg.FeedConfig.LiveEnabled {
		source = feed.NewLiveFeed(cfg.FeedConfig.LiveURL, b, clk, logging.Component("feed"))
	} else {
		source = feed.NewSimulator(feed.SimConfig{
			MinInterval: time.Duration(cfg.FeedConfig.TickIntervalMinMS) * time.Millisecond,
			MaxInterval: time.Duration(cfg.FeedConfig.TickIntervalMaxMS) * time.Millisecond,
			Sigma:       cfg.FeedConfig.VolatilitySigma,
			SeedHistory: cfg.FeedConfig.SeedHistory,
		}, registry, b, clk, logging.Component("feed"))
	}

	params := strategy.Params{
		SMAShort:      cfg.StrategyConfig.SMAShort,
		SMALong:       cfg.StrategyConfig.SMALong,
		RSIPeriod:     cfg.StrategyConfig.RSIPeriod,
		RSIOverbought: cfg.StrategyConfig.RSIOverbought,
		RSIOversold:   cfg.StrategyConfig.RSIOversold,
		BBPeriod:      cfg.StrategyConfig.BBPeriod,
		BBStd:         cfg.StrategyConfig.BBStd,
	}
	consensus := strategy.NewDefaultConsensus(params)

	gate := risk.NewGate(risk.Limits{
		DailyCap:             cfg.TradingConfig.DailyCapNotional,
		PerTradeCapFraction:  cfg.TradingConfig.PerTradeCapFraction,
		PerSymbolCapFraction: cfg.TradingConfig.PerSymbolCapFraction,
		MinNotional:          cfg.TradingConfig.MinNotional,
		BasePositionNotional: cfg.TradingConfig.BasePositionNotional,
	})

	led := ledger.New()

	window := params.SMALong + 1
	if window < params.BBPeriod+1 {
		window = params.BBPeriod + 1
	}
	eng := engine.New(engine.Config{
		EvaluationInterval: time.Duration(cfg.TradingConfig.EvaluationIntervalMS) * time.Millisecond,
		PersistTimeout:     time.Duration(cfg.TradingConfig.PersistTimeoutMS) * time.Millisecond,
		MinConfidence:      cfg.TradingConfig.MinConfidence,
		SnapshotWindow:     window,
	}, registry, b, led, gate, st, consensus, clk, clock.NewIDGen(), m, logging.Component("engine"))

	return &System{
		Registry: registry,
		Bus:      b,
		Ledger:   led,
		Store:    st,
		Engine:   eng,
		Feed:     source,
		Backtest: backtest.NewRunner(registry),
		Metrics:  m,
		Clock:    clk,
	}, nil
}

func buildStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch {
	case cfg.DatabaseConfig.Enabled:
		db, err := database.NewDB(ctx, database.Config{
			Host:     cfg.DatabaseConfig.Host,
			Port:     cfg.DatabaseConfig.Port,
			User:     cfg.DatabaseConfig.User,
			Password: cfg.DatabaseConfig.Password,
			Database: cfg.DatabaseConfig.Database,
			SSLMode:  cfg.DatabaseConfig.SSLMode,
		}, logging.Component("database"))
		if err != nil {
			return nil, err
		}
		if err := db.RunMigrations(ctx); err != nil {
			db.Close()
			return nil, err
		}
		return database.NewPostgres(db), nil
	case cfg.RedisConfig.Enabled:
		return store.NewRedis(ctx, store.RedisOptions{
			Address:  cfg.RedisConfig.Address,
			Password: cfg.RedisConfig.Password,
			DB:       cfg.RedisConfig.DB,
			PoolSize: cfg.RedisConfig.PoolSize,
		})
	default:
		return store.NewMemory(), nil
	}
}

// Start brings the feed and engine up.
func (s *System) Start() error {
	if err := s.Feed.Start(); err != nil {
		return fmt.Errorf("start feed: %w", err)
	}
	if err := s.Engine.Start(); err != nil {
		s.Feed.Stop()
		return fmt.Errorf("start engine: %w", err)
	}
	return nil
}

// Stop drains in reverse construction order.
func (s *System) Stop() {
	s.Engine.Stop()
	s.Feed.Stop()
	s.Store.Close()
}
