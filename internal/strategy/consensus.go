package strategy

// Consensus combines the component strategies by majority vote among the
// signals that carry positive confidence. The combined confidence is the
// mean of the winning side's confidences. Ties and all-HOLD yield HOLD.
type Consensus struct {
	strategies []Strategy
}

// NewConsensus builds the combiner over the given strategies.
func NewConsensus(strategies ...Strategy) *Consensus {
	return &Consensus{strategies: strategies}
}

// NewDefaultConsensus wires the three standard strategies from params.
func NewDefaultConsensus(p Params) *Consensus {
	return NewConsensus(
		NewSMACrossover(p.SMAShort, p.SMALong),
		NewRSIStrategy(p.RSIPeriod, p.RSIOverbought, p.RSIOversold),
		NewBollingerStrategy(p.BBPeriod, p.BBStd),
	)
}

func (c *Consensus) Name() string { return "consensus" }

// Evaluate runs every component strategy and combines their votes. The
// result embeds the component signals for auditability and is a pure
// function of them.
func (c *Consensus) Evaluate(symbol string, prices []float64) Signal {
	components := make([]Signal, 0, len(c.strategies))
	for _, s := range c.strategies {
		components = append(components, s.Evaluate(symbol, prices))
	}
	return Combine(symbol, components)
}

// Combine applies the voting rule to already computed component signals.
func Combine(symbol string, components []Signal) Signal {
	var buys, sells int
	var buyConf, sellConf float64
	for _, sig := range components {
		if sig.Confidence <= 0 {
			continue
		}
		switch sig.Kind {
		case SignalBuy:
			buys++
			buyConf += sig.Confidence
		case SignalSell:
			sells++
			sellConf += sig.Confidence
		}
	}

	out := Signal{
		Symbol:     symbol,
		Kind:       SignalHold,
		Reason:     ReasonCombinedAnalysis,
		Source:     SourceCombined,
		Components: components,
	}
	switch {
	case buys > sells:
		out.Kind = SignalBuy
		out.Confidence = capConfidence(buyConf / float64(buys))
	case sells > buys:
		out.Kind = SignalSell
		out.Confidence = capConfidence(sellConf / float64(sells))
	}
	return out
}
