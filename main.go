package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/Anubothu-Aravind/alpha-fx-trader/config"
	"github.com/Anubothu-Aravind/alpha-fx-trader/internal/logging"
	"github.com/Anubothu-Aravind/alpha-fx-trader/internal/system"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize structured logging
	logging.Setup(cfg.LoggingConfig.Level, cfg.LoggingConfig.JSONFormat)
	logger := logging.Component("main")
	logger.Info().Msg("Structured logging initialized")

	// Assemble the trading backend
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	sys, err := system.Build(ctx, cfg)
	cancel()
	if err != nil {
		log.Fatalf("Failed to build system: %v", err)
	}

	if err := sys.Start(); err != nil {
		log.Fatalf("Failed to start system: %v", err)
	}
	logger.Info().
		Strs("symbols", sys.Registry.Symbols()).
		Bool("live_feed", cfg.FeedConfig.LiveEnabled).
		Msg("FX trading backend started")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info().Str("signal", sig.String()).Msg("Shutting down...")

	sys.Stop()
	logStatus(logger, sys)
	logger.Info().Msg("Shutdown complete")
}

func logStatus(logger zerolog.Logger, sys *system.System) {
	stats := sys.Ledger.Portfolio()
	status := sys.Engine.Status()
	logger.Info().
		Int("trades_today", status.TradeCount).
		Float64("daily_notional", status.DailyNotional).
		Float64("realized_pnl", stats.RealizedPnL).
		Float64("unrealized_pnl", stats.UnrealizedPnL).
		Int("open_positions", stats.OpenPositions).
		Msg("Final portfolio state")
}
