package strategy

// BollingerStrategy fades band breaks: price above the upper band is a
// SELL, below the lower band a BUY, scaled by how far outside the band the
// price sits relative to the band half-width.
type BollingerStrategy struct {
	period int
	stdDev float64
}

// NewBollingerStrategy creates the Bollinger band strategy.
func NewBollingerStrategy(period int, stdDev float64) *BollingerStrategy {
	return &BollingerStrategy{period: period, stdDev: stdDev}
}

func (s *BollingerStrategy) Name() string { return "bollinger" }

func (s *BollingerStrategy) Evaluate(symbol string, prices []float64) Signal {
	bb, ok := BollingerBands(prices, s.period, s.stdDev)
	if !ok {
		return hold(symbol, SourceBB, ReasonInsufficientHistory)
	}

	price := prices[len(prices)-1]
	inputs := map[string]float64{
		"price":     price,
		"bb_middle": bb.Middle,
		"bb_upper":  bb.Upper,
		"bb_lower":  bb.Lower,
	}

	switch {
	case price > bb.Upper:
		return Signal{
			Symbol:     symbol,
			Kind:       SignalSell,
			Confidence: bandConfidence(price-bb.Upper, bb.Upper-bb.Middle),
			Reason:     ReasonAboveUpperBand,
			Source:     SourceBB,
			Inputs:     inputs,
		}
	case price < bb.Lower:
		return Signal{
			Symbol:     symbol,
			Kind:       SignalBuy,
			Confidence: bandConfidence(bb.Lower-price, bb.Middle-bb.Lower),
			Reason:     ReasonBelowLowerBand,
			Source:     SourceBB,
			Inputs:     inputs,
		}
	}
	sig := hold(symbol, SourceBB, ReasonNeutral)
	sig.Inputs = inputs
	return sig
}

// bandConfidence is the breach distance over the band half-width, capped
// at 1. A degenerate zero-width band counts as a full-confidence breach.
func bandConfidence(breach, halfWidth float64) float64 {
	if halfWidth <= 0 {
		return 1
	}
	return capConfidence(breach / halfWidth)
}
