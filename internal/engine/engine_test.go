package engine

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Anubothu-Aravind/alpha-fx-trader/internal/bus"
	"github.com/Anubothu-Aravind/alpha-fx-trader/internal/clock"
	"github.com/Anubothu-Aravind/alpha-fx-trader/internal/ledger"
	"github.com/Anubothu-Aravind/alpha-fx-trader/internal/market"
	"github.com/Anubothu-Aravind/alpha-fx-trader/internal/metrics"
	"github.com/Anubothu-Aravind/alpha-fx-trader/internal/risk"
	"github.com/Anubothu-Aravind/alpha-fx-trader/internal/store"
	"github.com/Anubothu-Aravind/alpha-fx-trader/internal/strategy"
)

// stubStrategy returns a fixed signal per symbol and HOLD otherwise.
type stubStrategy struct {
	signals map[string]strategy.Signal
}

func (s *stubStrategy) Name() string { return "stub" }

func (s *stubStrategy) Evaluate(symbol string, prices []float64) strategy.Signal {
	if sig, ok := s.signals[symbol]; ok {
		return sig
	}
	return strategy.Signal{Symbol: symbol, Kind: strategy.SignalHold}
}

type fixture struct {
	engine *Engine
	bus    *bus.Bus
	ledger *ledger.Ledger
	store  *store.Memory
	clock  *clock.Simulated
	stub   *stubStrategy
}

var t0 = time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)

func newFixture(t *testing.T, limits risk.Limits) *fixture {
	t.Helper()

	registry, err := market.NewRegistry(market.DefaultSymbols())
	require.NoError(t, err)

	m := metrics.NewForTest()
	b := bus.New(registry, 200, 64, m, zerolog.Nop())
	led := ledger.New()
	mem := store.NewMemory()
	clk := clock.NewSimulated(t0)
	stub := &stubStrategy{signals: make(map[string]strategy.Signal)}

	eng := New(Config{
		EvaluationInterval: time.Hour, // tests drive EvaluateOnce directly
		PersistTimeout:     time.Second,
		MinConfidence:      0.6,
		SnapshotWindow:     5,
	}, registry, b, led, risk.NewGate(limits), mem, stub, clk, clock.NewIDGen(), m, zerolog.Nop())

	return &fixture{engine: eng, bus: b, ledger: led, store: mem, clock: clk, stub: stub}
}

func defaultLimits() risk.Limits {
	return risk.Limits{
		DailyCap:             10_000_000,
		PerTradeCapFraction:  0.10,
		PerSymbolCapFraction: 0.20,
		MinNotional:          1_000,
		BasePositionNotional: 10_000,
	}
}

func (f *fixture) publish(t *testing.T, symbol string, bid, ask float64) market.Tick {
	t.Helper()
	tick, err := f.bus.Publish(market.Tick{
		Symbol:    symbol,
		Bid:       bid,
		Ask:       ask,
		Volume:    500_000,
		EventTime: f.clock.Now(),
	})
	require.NoError(t, err)
	return tick
}

func buySignal(symbol string, confidence float64) strategy.Signal {
	return strategy.Signal{Symbol: symbol, Kind: strategy.SignalBuy, Confidence: confidence, Source: strategy.SourceCombined}
}

func sellSignal(symbol string, confidence float64) strategy.Signal {
	return strategy.Signal{Symbol: symbol, Kind: strategy.SignalSell, Confidence: confidence, Source: strategy.SourceCombined}
}

func TestLifecycle(t *testing.T) {
	f := newFixture(t, defaultLimits())

	require.Equal(t, StateStopped, f.engine.Status().State)
	require.NoError(t, f.engine.Start())
	require.Equal(t, StateRunning, f.engine.Status().State)

	// Start is only legal from Stopped.
	require.Error(t, f.engine.Start())

	f.engine.Stop()
	require.Equal(t, StateStopped, f.engine.Status().State)

	// Stop is idempotent and a stopped engine can start again.
	f.engine.Stop()
	require.NoError(t, f.engine.Start())
	f.engine.Stop()
}

func TestExecuteBuyFillsAtAsk(t *testing.T) {
	f := newFixture(t, defaultLimits())
	require.NoError(t, f.engine.Start())
	defer f.engine.Stop()

	tick := f.publish(t, "EURUSD", 1.0848, 1.0852)

	trade, err := f.engine.Execute(buySignal("EURUSD", 1.0), tick)
	require.NoError(t, err)

	require.Equal(t, market.SideBuy, trade.Side)
	require.Equal(t, 1.0852, trade.Price, "BUY must fill at the ask")
	require.InDelta(t, 0.0002, trade.Slippage, 1e-9)
	require.Equal(t, market.TradeExecuted, trade.Status)
	require.NotEmpty(t, trade.ID)

	pos, ok := f.ledger.Get("EURUSD")
	require.True(t, ok)
	require.Equal(t, trade.Quantity, pos.Quantity)
	require.Equal(t, trade.Price, pos.AvgPrice)

	status := f.engine.Status()
	require.Equal(t, 1, status.TradeCount)
	require.InDelta(t, trade.Notional, status.DailyNotional, 1e-9)

	trades, err := f.store.ListTrades(context.Background(), "EURUSD", 0, 0)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	require.Equal(t, trade.ID, trades[0].ID)
}

func TestExecuteSellFromFlatOpensShort(t *testing.T) {
	f := newFixture(t, defaultLimits())
	require.NoError(t, f.engine.Start())
	defer f.engine.Stop()

	tick := f.publish(t, "EURUSD", 1.0848, 1.0852)

	trade, err := f.engine.Execute(sellSignal("EURUSD", 0.8), tick)
	require.NoError(t, err)
	require.Equal(t, market.SideSell, trade.Side)
	require.Equal(t, 1.0848, trade.Price, "SELL must fill at the bid")

	pos, _ := f.ledger.Get("EURUSD")
	require.Negative(t, pos.Quantity, "selling from flat opens a short")
	require.Equal(t, 1.0848, pos.AvgPrice)
}

func TestEvaluateOncePlacesAndThenSkips(t *testing.T) {
	f := newFixture(t, defaultLimits())
	require.NoError(t, f.engine.Start())
	defer f.engine.Stop()

	f.publish(t, "EURUSD", 1.0848, 1.0852)
	f.stub.signals["EURUSD"] = buySignal("EURUSD", 0.9)

	f.engine.EvaluateOnce()

	pos, ok := f.ledger.Get("EURUSD")
	require.True(t, ok)
	require.Positive(t, pos.Quantity)

	// A BUY signal with an existing long is not acted on again.
	f.engine.EvaluateOnce()
	require.Equal(t, 1, f.engine.Status().TradeCount)
}

func TestEvaluateOnceRespectsConfidenceThreshold(t *testing.T) {
	f := newFixture(t, defaultLimits())
	require.NoError(t, f.engine.Start())
	defer f.engine.Stop()

	f.publish(t, "EURUSD", 1.0848, 1.0852)
	f.stub.signals["EURUSD"] = buySignal("EURUSD", 0.59)

	f.engine.EvaluateOnce()
	require.Equal(t, 0, f.engine.Status().TradeCount)
}

func TestDailyCapBreachHaltsEngine(t *testing.T) {
	limits := defaultLimits()
	limits.DailyCap = 5_000 // one default-sized trade breaches it
	f := newFixture(t, limits)
	require.NoError(t, f.engine.Start())
	defer f.engine.Stop()

	tick := f.publish(t, "EURUSD", 1.0848, 1.0852)

	_, err := f.engine.Execute(buySignal("EURUSD", 1.0), tick)
	rej, ok := risk.As(err)
	require.True(t, ok)
	require.Equal(t, risk.CodeDailyVolumeExceeded, rej.Code)

	status := f.engine.Status()
	require.Equal(t, StateHalted, status.State)
	require.Equal(t, string(risk.CodeDailyVolumeExceeded), status.HaltReason)

	// Once halted, everything is rejected with EngineHalted.
	_, err = f.engine.Execute(buySignal("EURUSD", 1.0), tick)
	rej, ok = risk.As(err)
	require.True(t, ok)
	require.Equal(t, risk.CodeEngineHalted, rej.Code)

	pos, _ := f.ledger.Get("EURUSD")
	require.Zero(t, pos.Quantity, "rejected trades must not touch the ledger")

	// Both rejections were recorded for the audit trail.
	trades, err := f.store.ListTrades(context.Background(), "EURUSD", 0, 0)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	for _, tr := range trades {
		require.Equal(t, market.TradeRejected, tr.Status)
		require.NotEmpty(t, tr.RejectReason)
	}
}

func TestHaltIsMonotonicWithinTheDay(t *testing.T) {
	f := newFixture(t, defaultLimits())
	require.NoError(t, f.engine.Start())
	defer f.engine.Stop()

	require.NoError(t, f.engine.Halt(risk.CodeDailyVolumeExceeded))
	require.Error(t, f.engine.Halt(risk.CodeDailyVolumeExceeded), "halting a halted engine is invalid")

	// Evaluation passes do nothing while halted on the same day.
	f.publish(t, "EURUSD", 1.0848, 1.0852)
	f.stub.signals["EURUSD"] = buySignal("EURUSD", 1.0)
	f.engine.EvaluateOnce()
	require.Equal(t, StateHalted, f.engine.Status().State)
	require.Equal(t, 0, f.engine.Status().TradeCount)
}

func TestDailyRolloverClearsCapHalt(t *testing.T) {
	f := newFixture(t, defaultLimits())
	require.NoError(t, f.engine.Start())
	defer f.engine.Stop()

	require.NoError(t, f.engine.Halt(risk.CodeDailyVolumeExceeded))

	// Cross UTC midnight and evaluate: the halt clears, counters reset.
	f.clock.Advance(15 * time.Hour)
	f.engine.EvaluateOnce()

	status := f.engine.Status()
	require.Equal(t, StateRunning, status.State)
	require.Empty(t, status.HaltReason)
	require.Zero(t, status.DailyNotional)
	require.True(t, status.CurrentDate.Equal(market.DateKey(f.clock.Now())))
}

func TestRolloverDoesNotClearOtherHalts(t *testing.T) {
	f := newFixture(t, defaultLimits())
	require.NoError(t, f.engine.Start())
	defer f.engine.Stop()

	require.NoError(t, f.engine.Halt(risk.CodePersistenceFailed))
	f.clock.Advance(15 * time.Hour)
	f.engine.EvaluateOnce()

	require.Equal(t, StateHalted, f.engine.Status().State)
}

func TestPersistenceFailureRollsBackEverything(t *testing.T) {
	f := newFixture(t, defaultLimits())
	require.NoError(t, f.engine.Start())
	defer f.engine.Stop()

	tick := f.publish(t, "EURUSD", 1.0848, 1.0852)
	f.store.FailNext("commit", 1)

	_, err := f.engine.Execute(buySignal("EURUSD", 1.0), tick)
	rej, ok := risk.As(err)
	require.True(t, ok)
	require.Equal(t, risk.CodePersistenceFailed, rej.Code)

	pos, _ := f.ledger.Get("EURUSD")
	require.Zero(t, pos.Quantity, "position must roll back")
	require.Zero(t, pos.AvgPrice)

	status := f.engine.Status()
	require.Zero(t, status.DailyNotional, "daily counters must roll back")
	require.Equal(t, 0, status.TradeCount)
	require.Equal(t, StateRunning, status.State, "a persistence failure rejects the trade, not the engine")

	trades, err := f.store.ListTrades(context.Background(), "", 0, 0)
	require.NoError(t, err)
	require.Empty(t, trades, "nothing may be visible after a failed commit")

	// The engine keeps trading afterwards.
	trade, err := f.engine.Execute(buySignal("EURUSD", 1.0), tick)
	require.NoError(t, err)
	require.NotNil(t, trade)
}

func TestStartRecoversPersistedState(t *testing.T) {
	f := newFixture(t, defaultLimits())
	ctx := context.Background()

	today := market.DateKey(t0)
	require.NoError(t, f.store.UpsertDailyStats(ctx, market.DailyStats{
		Date: today, TotalNotional: 123_456, TradeCount: 7,
	}))
	require.NoError(t, f.store.UpsertPosition(ctx, market.Position{
		Symbol: "GBPUSD", Quantity: 2_000, AvgPrice: 1.2650,
	}))

	require.NoError(t, f.engine.Start())
	defer f.engine.Stop()

	require.InDelta(t, 123_456, f.engine.Status().DailyNotional, 1e-9)

	pos, ok := f.ledger.Get("GBPUSD")
	require.True(t, ok)
	require.Equal(t, 2_000.0, pos.Quantity)
	require.Equal(t, 1.2650, pos.AvgPrice)
}

func TestMarkLoopTracksTicks(t *testing.T) {
	f := newFixture(t, defaultLimits())
	require.NoError(t, f.engine.Start())
	defer f.engine.Stop()

	tick := f.publish(t, "EURUSD", 1.0848, 1.0852)
	_, err := f.engine.Execute(buySignal("EURUSD", 1.0), tick)
	require.NoError(t, err)

	// Marks flow through the bus subscription asynchronously.
	f.publish(t, "EURUSD", 1.0948, 1.0952)
	require.Eventually(t, func() bool {
		pos, _ := f.ledger.Get("EURUSD")
		return pos.UnrealizedPnL > 0
	}, 2*time.Second, 10*time.Millisecond, "a rising mid must lift unrealized PnL on a long")
}

func TestExposureCapRejects(t *testing.T) {
	limits := defaultLimits()
	limits.PerSymbolCapFraction = 0.001 // 10k cap: the second default trade breaches it
	f := newFixture(t, limits)
	require.NoError(t, f.engine.Start())
	defer f.engine.Stop()

	tick := f.publish(t, "EURUSD", 1.0848, 1.0852)
	_, err := f.engine.Execute(buySignal("EURUSD", 0.9), tick)
	require.NoError(t, err)

	_, err = f.engine.Execute(buySignal("EURUSD", 0.9), tick)
	rej, ok := risk.As(err)
	require.True(t, ok)
	require.Equal(t, risk.CodeSymbolExposureExceeded, rej.Code)
	require.Equal(t, StateRunning, f.engine.Status().State, "exposure rejections do not halt")
}
