package ledger

import (
	"math"
	"testing"
	"time"

	"github.com/Anubothu-Aravind/alpha-fx-trader/internal/market"
)

var now = time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestApplyOpensAndAverages(t *testing.T) {
	l := New()

	_, pos, realized, err := l.Apply("EURUSD", market.SideBuy, 100, 10, 10, now)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if realized != 0 {
		t.Errorf("realized = %f, want 0 on open", realized)
	}
	if pos.Quantity != 100 || pos.AvgPrice != 10 {
		t.Errorf("position = %f @ %f, want 100 @ 10", pos.Quantity, pos.AvgPrice)
	}

	// Adding at a different price re-averages.
	_, pos, realized, err = l.Apply("EURUSD", market.SideBuy, 100, 12, 12, now)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if realized != 0 {
		t.Errorf("realized = %f, want 0 when adding", realized)
	}
	if pos.Quantity != 200 || !almostEqual(pos.AvgPrice, 11) {
		t.Errorf("position = %f @ %f, want 200 @ 11", pos.Quantity, pos.AvgPrice)
	}
}

func TestApplyReduceKeepsAvgAndRealizes(t *testing.T) {
	l := New()
	mustApply(t, l, market.SideBuy, 200, 10)

	_, pos, realized, err := l.Apply("EURUSD", market.SideSell, 100, 11, 11, now)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !almostEqual(realized, 100) {
		t.Errorf("realized = %f, want (11-10)*100 = 100", realized)
	}
	if pos.Quantity != 100 || pos.AvgPrice != 10 {
		t.Errorf("position = %f @ %f, want 100 @ 10 (avg unchanged on reduce)", pos.Quantity, pos.AvgPrice)
	}
	if !almostEqual(pos.RealizedPnL, 100) {
		t.Errorf("cumulative realized = %f, want 100", pos.RealizedPnL)
	}
}

func TestApplyFullCloseZeroesAvg(t *testing.T) {
	l := New()
	mustApply(t, l, market.SideBuy, 100, 10)

	_, pos, realized, err := l.Apply("EURUSD", market.SideSell, 100, 9, 9, now)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !almostEqual(realized, -100) {
		t.Errorf("realized = %f, want -100", realized)
	}
	if pos.Quantity != 0 || pos.AvgPrice != 0 {
		t.Errorf("flat position = %f @ %f, want 0 @ 0", pos.Quantity, pos.AvgPrice)
	}
	if pos.UnrealizedPnL != 0 {
		t.Errorf("flat unrealized = %f, want 0", pos.UnrealizedPnL)
	}
}

func TestApplyFlipThroughZero(t *testing.T) {
	l := New()
	// Long 10000 @ 1.0800, then sell 15000 @ 1.0900.
	mustApply(t, l, market.SideBuy, 10000, 1.0800)

	_, pos, realized, err := l.Apply("EURUSD", market.SideSell, 15000, 1.0900, 1.0900, now)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !almostEqual(realized, 100) {
		t.Errorf("realized = %f, want (1.09-1.08)*10000 = 100", realized)
	}
	if !almostEqual(pos.Quantity, -5000) {
		t.Errorf("quantity = %f, want -5000 after the flip", pos.Quantity)
	}
	if !almostEqual(pos.AvgPrice, 1.0900) {
		t.Errorf("avg = %f, want the flip price 1.0900", pos.AvgPrice)
	}
}

func TestApplyShortSide(t *testing.T) {
	l := New()
	// Open short, then buy back cheaper: profit.
	mustApply(t, l, market.SideSell, 100, 10)

	pos, _ := l.Get("EURUSD")
	if pos.Quantity != -100 || pos.AvgPrice != 10 {
		t.Fatalf("short position = %f @ %f, want -100 @ 10", pos.Quantity, pos.AvgPrice)
	}

	_, pos, realized, err := l.Apply("EURUSD", market.SideBuy, 100, 9, 9, now)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !almostEqual(realized, 100) {
		t.Errorf("realized = %f, want 100 covering a short 10 -> 9", realized)
	}
	if pos.Quantity != 0 {
		t.Errorf("quantity = %f, want flat", pos.Quantity)
	}
}

func TestApplyRejectsInvalidExecution(t *testing.T) {
	l := New()
	if _, _, _, err := l.Apply("EURUSD", market.SideBuy, 0, 10, 10, now); err == nil {
		t.Error("zero quantity should be rejected")
	}
	if _, _, _, err := l.Apply("EURUSD", market.SideBuy, 100, -1, 10, now); err == nil {
		t.Error("negative price should be rejected")
	}
}

func TestRestoreUndoesApply(t *testing.T) {
	l := New()
	mustApply(t, l, market.SideBuy, 100, 10)

	prev, _, _, err := l.Apply("EURUSD", market.SideBuy, 100, 12, 12, now)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	l.Restore(prev)

	pos, _ := l.Get("EURUSD")
	if pos.Quantity != 100 || pos.AvgPrice != 10 {
		t.Errorf("restored position = %f @ %f, want 100 @ 10", pos.Quantity, pos.AvgPrice)
	}
}

func TestMark(t *testing.T) {
	l := New()
	mustApply(t, l, market.SideBuy, 100, 10)

	pos, ok := l.Mark("EURUSD", 10.5, now)
	if !ok {
		t.Fatal("Mark on a held symbol should report true")
	}
	if !almostEqual(pos.UnrealizedPnL, 50) {
		t.Errorf("unrealized = %f, want 50", pos.UnrealizedPnL)
	}

	if _, ok := l.Mark("GBPUSD", 1.26, now); ok {
		t.Error("Mark on an untracked symbol should report false")
	}
}

func TestLoadAndPortfolio(t *testing.T) {
	l := New()
	l.Load([]market.Position{
		{Symbol: "EURUSD", Quantity: 100, AvgPrice: 1.08, RealizedPnL: 25, UnrealizedPnL: 5},
		{Symbol: "GBPUSD", Quantity: 0, AvgPrice: 0, RealizedPnL: -10},
		{Symbol: "USDJPY", Quantity: -50, AvgPrice: 150.25, UnrealizedPnL: -3},
	})

	stats := l.Portfolio()
	if !almostEqual(stats.RealizedPnL, 15) {
		t.Errorf("realized = %f, want 15", stats.RealizedPnL)
	}
	if !almostEqual(stats.UnrealizedPnL, 2) {
		t.Errorf("unrealized = %f, want 2", stats.UnrealizedPnL)
	}
	if stats.OpenPositions != 2 {
		t.Errorf("open positions = %d, want 2 (flat GBPUSD excluded)", stats.OpenPositions)
	}
	if len(l.All()) != 3 {
		t.Errorf("All() = %d entries, want 3", len(l.All()))
	}
}

func TestQuantityAvgInvariantHolds(t *testing.T) {
	l := New()
	steps := []struct {
		side market.Side
		qty  float64
		px   float64
	}{
		{market.SideBuy, 100, 10},
		{market.SideBuy, 50, 11},
		{market.SideSell, 120, 10.5},
		{market.SideSell, 80, 10.2}, // flips short
		{market.SideBuy, 50, 10.1},
	}
	for i, s := range steps {
		_, pos, _, err := l.Apply("EURUSD", s.side, s.qty, s.px, s.px, now)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if (pos.Quantity == 0) != (pos.AvgPrice == 0) {
			t.Fatalf("step %d: invariant violated: qty=%f avg=%f", i, pos.Quantity, pos.AvgPrice)
		}
		if pos.AvgPrice < 0 {
			t.Fatalf("step %d: negative avg price %f", i, pos.AvgPrice)
		}
	}
}

func mustApply(t *testing.T, l *Ledger, side market.Side, qty, px float64) {
	t.Helper()
	if _, _, _, err := l.Apply("EURUSD", side, qty, px, px, now); err != nil {
		t.Fatalf("Apply: %v", err)
	}
}
