// Package strategy contains the indicator functions, the three trading
// strategies and the consensus combiner. Strategies are pure: a price
// slice in, a signal out. Insufficient history is never an error, it is a
// HOLD.
package strategy

// SignalKind is the direction of a signal.
type SignalKind string

const (
	SignalBuy  SignalKind = "BUY"
	SignalSell SignalKind = "SELL"
	SignalHold SignalKind = "HOLD"
)

// Source identifies which strategy produced a signal.
type Source string

const (
	SourceSMA      Source = "SMA"
	SourceRSI      Source = "RSI"
	SourceBB       Source = "BB"
	SourceCombined Source = "COMBINED"
)

// Reason codes attached to signals.
const (
	ReasonGoldenCross         = "golden_cross"
	ReasonDeathCross          = "death_cross"
	ReasonOverbought          = "overbought"
	ReasonOversold            = "oversold"
	ReasonAboveUpperBand      = "above_upper_band"
	ReasonBelowLowerBand      = "below_lower_band"
	ReasonNeutral             = "neutral"
	ReasonInsufficientHistory = "insufficient_history"
	ReasonCombinedAnalysis    = "combined_analysis"
)

// Signal is a strategy recommendation with a confidence in [0,1].
type Signal struct {
	Symbol     string             `json:"symbol"`
	Kind       SignalKind         `json:"kind"`
	Confidence float64            `json:"confidence"`
	Reason     string             `json:"reason"`
	Source     Source             `json:"source"`
	Inputs     map[string]float64 `json:"inputs,omitempty"`
	Components []Signal           `json:"components,omitempty"` // consensus breakdown
}

// Strategy evaluates a price window (oldest first) into a signal.
type Strategy interface {
	Name() string
	Evaluate(symbol string, prices []float64) Signal
}

// Params collects the indicator parameters shared by the strategies.
type Params struct {
	SMAShort      int
	SMALong       int
	RSIPeriod     int
	RSIOverbought float64
	RSIOversold   float64
	BBPeriod      int
	BBStd         float64
}

// DefaultParams returns the standard parameter set.
func DefaultParams() Params {
	return Params{
		SMAShort:      10,
		SMALong:       50,
		RSIPeriod:     14,
		RSIOverbought: 70,
		RSIOversold:   30,
		BBPeriod:      20,
		BBStd:         2,
	}
}

func hold(symbol string, source Source, reason string) Signal {
	return Signal{Symbol: symbol, Kind: SignalHold, Reason: reason, Source: source}
}

func capConfidence(c float64) float64 {
	if c > 1 {
		return 1
	}
	if c < 0 {
		return 0
	}
	return c
}
