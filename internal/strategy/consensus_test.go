package strategy

import (
	"reflect"
	"testing"
)

func TestCombineMajorityBuy(t *testing.T) {
	sig := Combine("EURUSD", []Signal{
		{Kind: SignalBuy, Confidence: 0.8},
		{Kind: SignalBuy, Confidence: 0.6},
		{Kind: SignalSell, Confidence: 0.9},
	})
	if sig.Kind != SignalBuy {
		t.Fatalf("kind = %s, want BUY", sig.Kind)
	}
	if !almostEqual(sig.Confidence, 0.7) {
		t.Errorf("confidence = %f, want mean of winning side 0.7", sig.Confidence)
	}
	if sig.Source != SourceCombined {
		t.Errorf("source = %s, want %s", sig.Source, SourceCombined)
	}
	if len(sig.Components) != 3 {
		t.Errorf("components = %d, want 3", len(sig.Components))
	}
}

func TestCombineTieIsHold(t *testing.T) {
	sig := Combine("EURUSD", []Signal{
		{Kind: SignalBuy, Confidence: 0.9},
		{Kind: SignalSell, Confidence: 0.2},
		{Kind: SignalHold},
	})
	if sig.Kind != SignalHold {
		t.Errorf("kind = %s, want HOLD on a tie", sig.Kind)
	}
	if sig.Confidence != 0 {
		t.Errorf("confidence = %f, want 0", sig.Confidence)
	}
}

func TestCombineAllHold(t *testing.T) {
	sig := Combine("EURUSD", []Signal{
		{Kind: SignalHold}, {Kind: SignalHold}, {Kind: SignalHold},
	})
	if sig.Kind != SignalHold {
		t.Errorf("kind = %s, want HOLD", sig.Kind)
	}
}

func TestCombineIgnoresZeroConfidenceVotes(t *testing.T) {
	// A directional signal without confidence carries no vote.
	sig := Combine("EURUSD", []Signal{
		{Kind: SignalBuy, Confidence: 0},
		{Kind: SignalSell, Confidence: 0.5},
	})
	if sig.Kind != SignalSell {
		t.Errorf("kind = %s, want SELL once the zero-confidence BUY is discarded", sig.Kind)
	}
	if !almostEqual(sig.Confidence, 0.5) {
		t.Errorf("confidence = %f, want 0.5", sig.Confidence)
	}
}

func TestConsensusDeterministic(t *testing.T) {
	c := NewDefaultConsensus(DefaultParams())

	prices := make([]float64, 60)
	v := 1.08
	for i := range prices {
		if i%3 == 0 {
			v += 0.0004
		} else {
			v -= 0.0001
		}
		prices[i] = v
	}

	first := c.Evaluate("EURUSD", prices)
	for i := 0; i < 5; i++ {
		again := c.Evaluate("EURUSD", prices)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("consensus not deterministic: run %d differs\nfirst: %+v\nagain: %+v", i, first, again)
		}
	}
}

func TestConsensusInsufficientHistory(t *testing.T) {
	c := NewDefaultConsensus(DefaultParams())

	sig := c.Evaluate("EURUSD", []float64{1.08, 1.081})
	if sig.Kind != SignalHold {
		t.Errorf("kind = %s, want HOLD with no history", sig.Kind)
	}
	for _, comp := range sig.Components {
		if comp.Reason != ReasonInsufficientHistory {
			t.Errorf("component %s reason = %s, want %s", comp.Source, comp.Reason, ReasonInsufficientHistory)
		}
	}
}
