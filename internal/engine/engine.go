// Package engine runs the trading loop: it subscribes to the tick bus,
// marks open positions on every tick, evaluates the consensus strategy on
// a fixed cadence and executes accepted trades against the current bid/ask
// under the risk gate's limits. The engine exclusively owns its state and
// the daily notional counter.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Anubothu-Aravind/alpha-fx-trader/internal/bus"
	"github.com/Anubothu-Aravind/alpha-fx-trader/internal/clock"
	"github.com/Anubothu-Aravind/alpha-fx-trader/internal/ledger"
	"github.com/Anubothu-Aravind/alpha-fx-trader/internal/market"
	"github.com/Anubothu-Aravind/alpha-fx-trader/internal/metrics"
	"github.com/Anubothu-Aravind/alpha-fx-trader/internal/risk"
	"github.com/Anubothu-Aravind/alpha-fx-trader/internal/store"
	"github.com/Anubothu-Aravind/alpha-fx-trader/internal/strategy"
)

// State is the engine lifecycle state.
type State string

const (
	StateStopped State = "STOPPED"
	StateRunning State = "RUNNING"
	StateHalted  State = "HALTED"
)

// Status is a read-only snapshot of the engine state.
type Status struct {
	State         State     `json:"state"`
	Running       bool      `json:"running"`
	HaltReason    string    `json:"halt_reason,omitempty"`
	CurrentDate   time.Time `json:"current_date"`
	DailyNotional float64   `json:"daily_notional"`
	TradeCount    int       `json:"trade_count"`
}

// Config holds engine timing and thresholds.
type Config struct {
	EvaluationInterval time.Duration
	PersistTimeout     time.Duration
	MinConfidence      float64
	SnapshotWindow     int // price points per evaluation; 0 derives from strategy params
}

// Engine coordinates strategies, risk, ledger and persistence.
type Engine struct {
	cfg       Config
	registry  *market.Registry
	bus       *bus.Bus
	ledger    *ledger.Ledger
	gate      *risk.Gate
	store     store.Store
	consensus strategy.Strategy
	clk       clock.Clock
	ids       *clock.IDGen
	metrics   *metrics.Metrics
	log       zerolog.Logger

	mu         sync.Mutex
	state      State
	haltReason risk.Code
	daily      market.DailyStats

	sub      *bus.Subscription
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// New constructs a stopped engine.
func New(cfg Config, registry *market.Registry, b *bus.Bus, l *ledger.Ledger,
	gate *risk.Gate, st store.Store, consensus strategy.Strategy,
	clk clock.Clock, ids *clock.IDGen, m *metrics.Metrics, log zerolog.Logger) *Engine {
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = 2 * time.Second
	}
	return &Engine{
		cfg:       cfg,
		registry:  registry,
		bus:       b,
		ledger:    l,
		gate:      gate,
		store:     st,
		consensus: consensus,
		clk:       clk,
		ids:       ids,
		metrics:   m,
		log:       log,
		state:     StateStopped,
	}
}

// Start transitions Stopped -> Running: recovers today's notional and the
// persisted positions, subscribes to the bus and launches the mark and
// evaluation loops.
func (e *Engine) Start() error {
	e.mu.Lock()
	if e.state != StateStopped {
		state := e.state
		e.mu.Unlock()
		return fmt.Errorf("cannot start engine from state %s", state)
	}

	now := e.clk.Now()
	today := market.DateKey(now)

	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.PersistTimeout)
	notional, err := e.store.LoadTodayNotional(ctx, today)
	cancel()
	if err != nil {
		e.mu.Unlock()
		return fmt.Errorf("load today notional: %w", err)
	}

	ctx, cancel = context.WithTimeout(context.Background(), e.cfg.PersistTimeout)
	positions, err := e.store.LoadPositions(ctx)
	cancel()
	if err != nil {
		e.mu.Unlock()
		return fmt.Errorf("load positions: %w", err)
	}
	e.ledger.Load(positions)

	e.daily = market.DailyStats{Date: today, TotalNotional: notional}
	e.state = StateRunning
	e.haltReason = ""
	e.stopChan = make(chan struct{})
	e.sub = e.bus.Subscribe("engine")
	e.mu.Unlock()

	e.wg.Add(2)
	go e.markLoop()
	go e.evaluationLoop()

	e.log.Info().Float64("daily_notional", notional).Int("positions", len(positions)).Msg("engine started")
	return nil
}

// Halt transitions Running -> Halted. Evaluation stops; marking continues.
func (e *Engine) Halt(reason risk.Code) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.haltLocked(reason)
}

func (e *Engine) haltLocked(reason risk.Code) error {
	if e.state != StateRunning {
		return fmt.Errorf("cannot halt engine from state %s", e.state)
	}
	e.state = StateHalted
	e.haltReason = reason
	e.log.Warn().Str("reason", string(reason)).Msg("engine halted")
	return nil
}

// Stop transitions to Stopped from any state, waits for the loops to drain
// and releases the bus subscription.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.state == StateStopped {
		e.mu.Unlock()
		return
	}
	e.state = StateStopped
	e.haltReason = ""
	stopChan := e.stopChan
	e.mu.Unlock()

	if stopChan != nil {
		close(stopChan)
	}
	e.wg.Wait()
	if e.sub != nil {
		e.bus.Unsubscribe(e.sub)
		e.sub = nil
	}
	e.log.Info().Msg("engine stopped")
}

// Status returns a snapshot of the engine state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Status{
		State:         e.state,
		Running:       e.state == StateRunning,
		HaltReason:    string(e.haltReason),
		CurrentDate:   e.daily.Date,
		DailyNotional: e.daily.TotalNotional,
		TradeCount:    e.daily.TradeCount,
	}
}

// markLoop updates unrealized PnL for held symbols on every tick. It keeps
// running while the engine is halted so marks stay current.
func (e *Engine) markLoop() {
	defer e.wg.Done()
	for {
		select {
		case <-e.stopChan:
			return
		case ev, ok := <-e.sub.C:
			if !ok {
				return
			}
			if ev.Kind != bus.EventTick {
				continue
			}
			if pos, held := e.ledger.Get(ev.Tick.Symbol); held && pos.Quantity != 0 {
				e.ledger.Mark(ev.Tick.Symbol, ev.Tick.Mid(), e.clk.Now())
			}
		}
	}
}

// evaluationLoop runs the strategy cadence. Errors never abort the loop.
func (e *Engine) evaluationLoop() {
	defer e.wg.Done()
	ticker := time.NewTicker(e.cfg.EvaluationInterval)
	defer ticker.Stop()
	for {
		select {
		case <-e.stopChan:
			return
		case <-ticker.C:
			e.EvaluateOnce()
		}
	}
}

// EvaluateOnce performs one evaluation pass over all symbols. Exposed for
// deterministic tests and the backtest-free dry-run tooling.
func (e *Engine) EvaluateOnce() {
	e.maybeRollover()

	e.mu.Lock()
	running := e.state == StateRunning
	e.mu.Unlock()
	if !running {
		return
	}

	for _, sym := range e.registry.Symbols() {
		if err := e.evaluateSymbol(sym); err != nil {
			e.log.Error().Err(err).Str("symbol", sym).Msg("evaluation failed")
		}
	}
}

// maybeRollover resets daily counters at UTC midnight. A halt caused by
// the daily volume cap clears with the new day.
func (e *Engine) maybeRollover() {
	now := e.clk.Now()
	today := market.DateKey(now)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateStopped || e.daily.Date.Equal(today) {
		return
	}
	e.log.Info().Time("date", today).Msg("daily rollover")
	e.daily = market.DailyStats{Date: today}
	if e.state == StateHalted && e.haltReason == risk.CodeDailyVolumeExceeded {
		e.state = StateRunning
		e.haltReason = ""
		e.log.Info().Msg("engine resumed after daily rollover")
	}
}
