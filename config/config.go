package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	TradingConfig  TradingConfig  `json:"trading"`
	StrategyConfig StrategyConfig `json:"strategy"`
	FeedConfig     FeedConfig     `json:"feed"`
	BusConfig      BusConfig      `json:"bus"`
	DatabaseConfig DatabaseConfig `json:"database"`
	RedisConfig    RedisConfig    `json:"redis"`
	LoggingConfig  LoggingConfig  `json:"logging"`
}

// TradingConfig holds risk limits and sizing for the trading engine.
type TradingConfig struct {
	DailyCapNotional     float64 `json:"daily_cap_notional"`      // absolute ceiling per UTC day
	BasePositionNotional float64 `json:"base_position_notional"`  // sizing base before confidence scaling
	MinNotional          float64 `json:"min_notional"`            // floor; smaller orders are sized up
	MinConfidence        float64 `json:"min_confidence"`          // consensus threshold to trade
	PerTradeCapFraction  float64 `json:"per_trade_cap_fraction"`  // of daily cap
	PerSymbolCapFraction float64 `json:"per_symbol_cap_fraction"` // of daily cap
	EvaluationIntervalMS int     `json:"evaluation_interval_ms"`
	PersistTimeoutMS     int     `json:"persist_timeout_ms"`
}

// StrategyConfig holds indicator and strategy parameters.
type StrategyConfig struct {
	SMAShort      int     `json:"sma_short"`
	SMALong       int     `json:"sma_long"`
	RSIPeriod     int     `json:"rsi_period"`
	RSIOverbought float64 `json:"rsi_overbought"`
	RSIOversold   float64 `json:"rsi_oversold"`
	BBPeriod      int     `json:"bb_period"`
	BBStd         float64 `json:"bb_std"`
}

// FeedConfig holds the tick source configuration.
type FeedConfig struct {
	TickIntervalMinMS int     `json:"tick_interval_min_ms"`
	TickIntervalMaxMS int     `json:"tick_interval_max_ms"`
	VolatilitySigma   float64 `json:"volatility_sigma"`
	SeedHistory       bool    `json:"seed_history"` // pre-fill rings with a back-dated walk
	LiveEnabled       bool    `json:"live_enabled"` // use websocket feed instead of simulator
	LiveURL           string  `json:"live_url"`
}

// BusConfig holds tick bus limits.
type BusConfig struct {
	HistoryCapacity  int `json:"history_capacity"`
	SubscriberBuffer int `json:"subscriber_buffer"`
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"ssl_mode"`
}

// RedisConfig holds Redis store configuration.
type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`
}

type LoggingConfig struct {
	Level      string `json:"level"`       // debug, info, warn, error
	JSONFormat bool   `json:"json_format"` // JSON vs console output
}

// Load reads config.json if present and applies environment overrides.
func Load() (*Config, error) {
	cfg, err := loadFromFile("config.json")
	if err != nil {
		cfg = Default()
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the standard configuration.
func Default() *Config {
	return &Config{
		TradingConfig: TradingConfig{
			DailyCapNotional:     10_000_000,
			BasePositionNotional: 10_000,
			MinNotional:          1_000,
			MinConfidence:        0.6,
			PerTradeCapFraction:  0.10,
			PerSymbolCapFraction: 0.20,
			EvaluationIntervalMS: 5000,
			PersistTimeoutMS:     2000,
		},
		StrategyConfig: StrategyConfig{
			SMAShort:      10,
			SMALong:       50,
			RSIPeriod:     14,
			RSIOverbought: 70,
			RSIOversold:   30,
			BBPeriod:      20,
			BBStd:         2,
		},
		FeedConfig: FeedConfig{
			TickIntervalMinMS: 1000,
			TickIntervalMaxMS: 3000,
			VolatilitySigma:   0.001,
			SeedHistory:       true,
		},
		BusConfig: BusConfig{
			HistoryCapacity:  200,
			SubscriberBuffer: 64,
		},
		DatabaseConfig: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "fxtrader",
			Database: "fxtrader",
			SSLMode:  "disable",
		},
		RedisConfig: RedisConfig{
			Address:  "localhost:6379",
			PoolSize: 10,
		},
		LoggingConfig: LoggingConfig{
			Level:      "info",
			JSONFormat: true,
		},
	}
}

// Validate checks construction-time invariants. Misconfiguration is fatal.
func (c *Config) Validate() error {
	t := c.TradingConfig
	if t.DailyCapNotional <= 0 {
		return fmt.Errorf("daily_cap_notional must be positive, got %f", t.DailyCapNotional)
	}
	if t.MinNotional <= 0 || t.MinNotional > t.DailyCapNotional {
		return fmt.Errorf("min_notional %f out of range", t.MinNotional)
	}
	if t.MinConfidence < 0 || t.MinConfidence > 1 {
		return fmt.Errorf("min_confidence %f must be in [0,1]", t.MinConfidence)
	}
	if t.PerTradeCapFraction <= 0 || t.PerTradeCapFraction > 1 {
		return fmt.Errorf("per_trade_cap_fraction %f must be in (0,1]", t.PerTradeCapFraction)
	}
	if t.PerSymbolCapFraction <= 0 || t.PerSymbolCapFraction > 1 {
		return fmt.Errorf("per_symbol_cap_fraction %f must be in (0,1]", t.PerSymbolCapFraction)
	}
	s := c.StrategyConfig
	if s.SMAShort <= 0 || s.SMALong <= s.SMAShort {
		return fmt.Errorf("sma periods invalid: short=%d long=%d", s.SMAShort, s.SMALong)
	}
	if s.RSIPeriod <= 0 || s.BBPeriod <= 0 || s.BBStd <= 0 {
		return fmt.Errorf("indicator periods must be positive")
	}
	f := c.FeedConfig
	if f.TickIntervalMinMS <= 0 || f.TickIntervalMaxMS < f.TickIntervalMinMS {
		return fmt.Errorf("tick interval range invalid: [%d,%d]", f.TickIntervalMinMS, f.TickIntervalMaxMS)
	}
	if f.LiveEnabled && f.LiveURL == "" {
		return fmt.Errorf("live feed enabled but live_url is empty")
	}
	if c.BusConfig.HistoryCapacity <= 0 {
		return fmt.Errorf("history_capacity must be positive")
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	cfg.TradingConfig.DailyCapNotional = getEnvFloatOrDefault("FX_DAILY_CAP_NOTIONAL", cfg.TradingConfig.DailyCapNotional)
	cfg.TradingConfig.BasePositionNotional = getEnvFloatOrDefault("FX_BASE_POSITION_NOTIONAL", cfg.TradingConfig.BasePositionNotional)
	cfg.TradingConfig.MinNotional = getEnvFloatOrDefault("FX_MIN_NOTIONAL", cfg.TradingConfig.MinNotional)
	cfg.TradingConfig.MinConfidence = getEnvFloatOrDefault("FX_MIN_CONFIDENCE", cfg.TradingConfig.MinConfidence)
	cfg.TradingConfig.EvaluationIntervalMS = getEnvIntOrDefault("FX_EVALUATION_INTERVAL_MS", cfg.TradingConfig.EvaluationIntervalMS)

	cfg.FeedConfig.LiveEnabled = getEnvOrDefault("FX_FEED_LIVE", boolStr(cfg.FeedConfig.LiveEnabled)) == "true"
	cfg.FeedConfig.LiveURL = getEnvOrDefault("FX_FEED_LIVE_URL", cfg.FeedConfig.LiveURL)

	cfg.DatabaseConfig.Enabled = getEnvOrDefault("DB_ENABLED", boolStr(cfg.DatabaseConfig.Enabled)) == "true"
	cfg.DatabaseConfig.Host = getEnvOrDefault("DB_HOST", cfg.DatabaseConfig.Host)
	cfg.DatabaseConfig.Port = getEnvIntOrDefault("DB_PORT", cfg.DatabaseConfig.Port)
	cfg.DatabaseConfig.User = getEnvOrDefault("DB_USER", cfg.DatabaseConfig.User)
	cfg.DatabaseConfig.Password = getEnvOrDefault("DB_PASSWORD", cfg.DatabaseConfig.Password)
	cfg.DatabaseConfig.Database = getEnvOrDefault("DB_NAME", cfg.DatabaseConfig.Database)
	cfg.DatabaseConfig.SSLMode = getEnvOrDefault("DB_SSLMODE", cfg.DatabaseConfig.SSLMode)

	cfg.RedisConfig.Enabled = getEnvOrDefault("REDIS_ENABLED", boolStr(cfg.RedisConfig.Enabled)) == "true"
	cfg.RedisConfig.Address = getEnvOrDefault("REDIS_ADDRESS", cfg.RedisConfig.Address)
	cfg.RedisConfig.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.RedisConfig.Password)

	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", cfg.LoggingConfig.Level)
	cfg.LoggingConfig.JSONFormat = getEnvOrDefault("LOG_JSON", boolStr(cfg.LoggingConfig.JSONFormat)) == "true"
}

func loadFromFile(filename string) (*Config, error) {
	file, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(file, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	return cfg, nil
}

func boolStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
