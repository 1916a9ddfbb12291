package strategy

import "math"

// Indicator functions are pure: they take a price slice ordered oldest to
// newest and report ok=false when there is not enough history. All math is
// IEEE-754 double precision.

// SMA calculates the simple moving average of the last period prices.
func SMA(prices []float64, period int) (float64, bool) {
	if period <= 0 || len(prices) < period {
		return 0, false
	}

	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), true
}

// RSI calculates the Relative Strength Index over the last period diffs.
// Requires period+1 points. When there are no losses in the window the
// index saturates at 100.
func RSI(prices []float64, period int) (float64, bool) {
	if period <= 0 || len(prices) < period+1 {
		return 0, false
	}

	gains := 0.0
	losses := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			gains += change
		} else {
			losses += -change
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	if avgLoss == 0 {
		return 100, true
	}

	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs)), true
}

// Bollinger holds the three Bollinger Band values.
type Bollinger struct {
	Middle float64
	Upper  float64
	Lower  float64
}

// BollingerBands calculates bands at stdDev population standard deviations
// around the period SMA.
func BollingerBands(prices []float64, period int, stdDev float64) (Bollinger, bool) {
	middle, ok := SMA(prices, period)
	if !ok {
		return Bollinger{}, false
	}

	variance := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		d := prices[i] - middle
		variance += d * d
	}
	variance /= float64(period)
	sigma := math.Sqrt(variance)

	return Bollinger{
		Middle: middle,
		Upper:  middle + stdDev*sigma,
		Lower:  middle - stdDev*sigma,
	}, true
}

// IndicatorSnapshot carries the on-demand indicator values for one symbol.
// Nil fields mean insufficient history.
type IndicatorSnapshot struct {
	SMAShort *float64 `json:"sma_short,omitempty"`
	SMALong  *float64 `json:"sma_long,omitempty"`
	RSI      *float64 `json:"rsi,omitempty"`
	BBMiddle *float64 `json:"bb_middle,omitempty"`
	BBUpper  *float64 `json:"bb_upper,omitempty"`
	BBLower  *float64 `json:"bb_lower,omitempty"`
}

// ComputeSnapshot evaluates all indicators over prices with the given
// parameters.
func ComputeSnapshot(prices []float64, p Params) IndicatorSnapshot {
	var snap IndicatorSnapshot
	if v, ok := SMA(prices, p.SMAShort); ok {
		snap.SMAShort = &v
	}
	if v, ok := SMA(prices, p.SMALong); ok {
		snap.SMALong = &v
	}
	if v, ok := RSI(prices, p.RSIPeriod); ok {
		snap.RSI = &v
	}
	if bb, ok := BollingerBands(prices, p.BBPeriod, p.BBStd); ok {
		snap.BBMiddle = &bb.Middle
		snap.BBUpper = &bb.Upper
		snap.BBLower = &bb.Lower
	}
	return snap
}
