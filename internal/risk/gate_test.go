package risk

import (
	"math"
	"testing"
)

func testLimits() Limits {
	return Limits{
		DailyCap:             10_000_000,
		PerTradeCapFraction:  0.10,
		PerSymbolCapFraction: 0.20,
		MinNotional:          1_000,
		BasePositionNotional: 10_000,
	}
}

func TestSizeScalesWithConfidence(t *testing.T) {
	g := NewGate(testLimits())

	// Full confidence: 10000 notional at mid 1.0850.
	qty := g.Size(1.0, 1.0850, 1)
	if qty != math.Ceil(10_000/1.0850) {
		t.Errorf("qty = %f, want ceil(10000/1.0850)", qty)
	}

	// Half confidence halves the notional.
	half := g.Size(0.5, 1.0850, 1)
	if half >= qty {
		t.Errorf("half-confidence qty %f should be below full-confidence %f", half, qty)
	}
}

func TestSizeAppliesMinNotionalFloor(t *testing.T) {
	g := NewGate(testLimits())

	// Tiny confidence would put the notional below the floor; it is sized
	// up to MinNotional instead.
	qty := g.Size(0.01, 1.0850, 1)
	if notional := qty * 1.0850; notional < 1_000 {
		t.Errorf("notional %f below the 1000 floor", notional)
	}
}

func TestSizeRoundsUpToLotStep(t *testing.T) {
	g := NewGate(testLimits())

	qty := g.Size(1.0, 1.0850, 100)
	if math.Mod(qty, 100) != 0 {
		t.Errorf("qty %f not on the 100 lot step", qty)
	}
	if qty*1.0850 < 10_000 {
		t.Errorf("lot rounding must never round below the target notional, got %f", qty*1.0850)
	}
}

func TestSizeZeroMid(t *testing.T) {
	g := NewGate(testLimits())
	if qty := g.Size(1.0, 0, 1); qty != 0 {
		t.Errorf("qty = %f, want 0 on a degenerate mid", qty)
	}
}

func TestCheckRejectsWhenNotRunning(t *testing.T) {
	g := NewGate(testLimits())

	_, err := g.Check(Request{Symbol: "EURUSD", Quantity: 100, Price: 1.0850, Running: false})
	rej, ok := As(err)
	if !ok || rej.Code != CodeEngineHalted {
		t.Errorf("err = %v, want EngineHalted rejection", err)
	}
}

func TestCheckSizesUpBelowMinNotional(t *testing.T) {
	g := NewGate(testLimits())

	// 100 * 1.0850 = 108.50, well under the 1000 floor.
	approved, err := g.Check(Request{Symbol: "EURUSD", Quantity: 100, Price: 1.0850, Running: true})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if approved <= 100 {
		t.Errorf("approved = %f, want the quantity sized up", approved)
	}
	if notional := approved * 1.0850; notional < 1_000 {
		t.Errorf("approved notional %f still below the floor", notional)
	}
}

func TestCheckDailyCap(t *testing.T) {
	g := NewGate(testLimits())

	// 9.999M already done today; a 10k order breaches the 10M cap.
	_, err := g.Check(Request{
		Symbol:        "EURUSD",
		Quantity:      10_000,
		Price:         1.0,
		Running:       true,
		DailyNotional: 9_999_000,
	})
	rej, ok := As(err)
	if !ok || rej.Code != CodeDailyVolumeExceeded {
		t.Errorf("err = %v, want DailyVolumeExceeded rejection", err)
	}
}

func TestCheckPerTradeCap(t *testing.T) {
	g := NewGate(testLimits())

	// Per-trade cap is 10% of 10M = 1M.
	_, err := g.Check(Request{Symbol: "EURUSD", Quantity: 1_500_000, Price: 1.0, Running: true})
	rej, ok := As(err)
	if !ok || rej.Code != CodeTradeTooLarge {
		t.Errorf("err = %v, want TradeTooLarge rejection", err)
	}

	// Exactly at the cap passes.
	if _, err := g.Check(Request{Symbol: "EURUSD", Quantity: 1_000_000, Price: 1.0, Running: true}); err != nil {
		t.Errorf("at-cap trade rejected: %v", err)
	}
}

func TestCheckSymbolExposureCap(t *testing.T) {
	g := NewGate(testLimits())

	// Exposure cap is 20% of 10M = 2M; existing 1.95M exposure plus a
	// 100k order breaches it.
	_, err := g.Check(Request{
		Symbol:         "EURUSD",
		Quantity:       100_000,
		Price:          1.0,
		Running:        true,
		SymbolExposure: 1_950_000,
	})
	rej, ok := As(err)
	if !ok || rej.Code != CodeSymbolExposureExceeded {
		t.Errorf("err = %v, want SymbolExposureExceeded rejection", err)
	}
}

func TestCheckOrderOfGates(t *testing.T) {
	g := NewGate(testLimits())

	// A request that violates everything reports the daily cap first.
	_, err := g.Check(Request{
		Symbol:         "EURUSD",
		Quantity:       5_000_000,
		Price:          1.0,
		Running:        true,
		DailyNotional:  9_000_000,
		SymbolExposure: 3_000_000,
	})
	rej, ok := As(err)
	if !ok || rej.Code != CodeDailyVolumeExceeded {
		t.Errorf("err = %v, want the daily cap checked before the others", err)
	}
}

func TestCheckApprovesCleanRequest(t *testing.T) {
	g := NewGate(testLimits())

	approved, err := g.Check(Request{
		Symbol:        "EURUSD",
		Quantity:      9_217,
		Price:         1.0850,
		Running:       true,
		DailyNotional: 500_000,
	})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if approved != 9_217 {
		t.Errorf("approved = %f, want the request quantity unchanged", approved)
	}
}

func TestRejectionError(t *testing.T) {
	err := Reject(CodeTradeTooLarge, "notional %.2f", 123.45)
	if err.Error() != "trade rejected (TradeTooLarge): notional 123.45" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if _, ok := As(err); !ok {
		t.Error("As should recognize a Rejection")
	}
	if _, ok := As(nil); ok {
		t.Error("As(nil) should report false")
	}
}
