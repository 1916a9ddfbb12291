package strategy

// SMACrossover signals on the short SMA crossing the long SMA: a golden
// cross (short rising through long) is a BUY, a death cross a SELL.
type SMACrossover struct {
	short int
	long  int
}

// NewSMACrossover creates the crossover strategy with the given periods.
func NewSMACrossover(short, long int) *SMACrossover {
	return &SMACrossover{short: short, long: long}
}

func (s *SMACrossover) Name() string { return "sma_crossover" }

func (s *SMACrossover) Evaluate(symbol string, prices []float64) Signal {
	// One extra point so the previous bar's SMAs are defined too.
	if len(prices) < s.long+1 {
		return hold(symbol, SourceSMA, ReasonInsufficientHistory)
	}

	prev := prices[:len(prices)-1]
	shortNow, _ := SMA(prices, s.short)
	longNow, _ := SMA(prices, s.long)
	shortPrev, _ := SMA(prev, s.short)
	longPrev, _ := SMA(prev, s.long)

	inputs := map[string]float64{
		"sma_short":      shortNow,
		"sma_long":       longNow,
		"sma_short_prev": shortPrev,
		"sma_long_prev":  longPrev,
	}

	switch {
	case shortPrev <= longPrev && shortNow > longNow:
		return Signal{
			Symbol:     symbol,
			Kind:       SignalBuy,
			Confidence: capConfidence((shortNow - longNow) / longNow * 100),
			Reason:     ReasonGoldenCross,
			Source:     SourceSMA,
			Inputs:     inputs,
		}
	case shortPrev >= longPrev && shortNow < longNow:
		return Signal{
			Symbol:     symbol,
			Kind:       SignalSell,
			Confidence: capConfidence((longNow - shortNow) / longNow * 100),
			Reason:     ReasonDeathCross,
			Source:     SourceSMA,
			Inputs:     inputs,
		}
	}
	sig := hold(symbol, SourceSMA, ReasonNeutral)
	sig.Inputs = inputs
	return sig
}
