package strategy

// RSIStrategy sells overbought and buys oversold conditions.
type RSIStrategy struct {
	period     int
	overbought float64
	oversold   float64
}

// NewRSIStrategy creates the RSI strategy.
func NewRSIStrategy(period int, overbought, oversold float64) *RSIStrategy {
	return &RSIStrategy{period: period, overbought: overbought, oversold: oversold}
}

func (s *RSIStrategy) Name() string { return "rsi" }

func (s *RSIStrategy) Evaluate(symbol string, prices []float64) Signal {
	rsi, ok := RSI(prices, s.period)
	if !ok {
		return hold(symbol, SourceRSI, ReasonInsufficientHistory)
	}

	inputs := map[string]float64{"rsi": rsi}

	switch {
	case rsi > s.overbought:
		return Signal{
			Symbol:     symbol,
			Kind:       SignalSell,
			Confidence: capConfidence((rsi - s.overbought) / (100 - s.overbought)),
			Reason:     ReasonOverbought,
			Source:     SourceRSI,
			Inputs:     inputs,
		}
	case rsi < s.oversold:
		return Signal{
			Symbol:     symbol,
			Kind:       SignalBuy,
			Confidence: capConfidence((s.oversold - rsi) / s.oversold),
			Reason:     ReasonOversold,
			Source:     SourceRSI,
			Inputs:     inputs,
		}
	}
	sig := hold(symbol, SourceRSI, ReasonNeutral)
	sig.Inputs = inputs
	return sig
}
