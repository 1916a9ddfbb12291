package engine

import (
	"context"
	"math"

	"github.com/Anubothu-Aravind/alpha-fx-trader/internal/market"
	"github.com/Anubothu-Aravind/alpha-fx-trader/internal/risk"
	"github.com/Anubothu-Aravind/alpha-fx-trader/internal/store"
	"github.com/Anubothu-Aravind/alpha-fx-trader/internal/strategy"
)

// evaluateSymbol computes the consensus signal for one symbol and attempts
// execution when it clears the confidence threshold and is compatible with
// the existing position.
func (e *Engine) evaluateSymbol(symbol string) error {
	window := e.cfg.SnapshotWindow
	if window <= 0 {
		window = 51 // long SMA + 1 at default parameters
	}
	points, err := e.bus.Snapshot(symbol, window)
	if err != nil {
		return err
	}

	signal := e.consensus.Evaluate(symbol, market.Mids(points))
	if signal.Kind == strategy.SignalHold || signal.Confidence < e.cfg.MinConfidence {
		return nil
	}

	// Direction gate: BUY only adds to flat or short, SELL to flat or long.
	pos, _ := e.ledger.Get(symbol)
	if signal.Kind == strategy.SignalBuy && pos.Quantity > 0 {
		return nil
	}
	if signal.Kind == strategy.SignalSell && pos.Quantity < 0 {
		return nil
	}

	tick, ok := e.bus.Latest(symbol)
	if !ok {
		return nil
	}

	_, err = e.Execute(signal, tick)
	if err != nil {
		if rej, isRejection := risk.As(err); isRejection {
			e.log.Info().
				Str("symbol", symbol).
				Str("code", string(rej.Code)).
				Str("detail", rej.Detail).
				Msg("trade rejected")
			return nil
		}
		return err
	}
	return nil
}

// Execute sizes, gates and books a trade for the signal at the given tick.
// BUY fills at the ask, SELL at the bid. The trade, position and daily
// stats writes commit in one transaction; on persistence failure all
// in-memory state rolls back and the attempt surfaces as a
// PersistenceFailed rejection.
func (e *Engine) Execute(signal strategy.Signal, tick market.Tick) (*market.Trade, error) {
	info, err := e.registry.Lookup(signal.Symbol)
	if err != nil {
		return nil, err
	}

	side := market.SideBuy
	price := tick.Ask
	if signal.Kind == strategy.SignalSell {
		side = market.SideSell
		price = tick.Bid
	}
	mid := tick.Mid()

	quantity := e.gate.Size(signal.Confidence, mid, info.LotStep)

	pos, _ := e.ledger.Get(signal.Symbol)

	e.mu.Lock()
	req := risk.Request{
		Symbol:         signal.Symbol,
		Quantity:       quantity,
		Price:          price,
		Running:        e.state == StateRunning,
		DailyNotional:  e.daily.TotalNotional,
		SymbolExposure: pos.Exposure(),
	}
	approved, gateErr := e.gate.Check(req)
	if gateErr != nil {
		rej, _ := risk.As(gateErr)
		e.metrics.TradeRejections.WithLabelValues(string(rej.Code)).Inc()
		if rej.Code == risk.CodeDailyVolumeExceeded {
			// Breaching the daily cap halts the engine for the rest of the
			// UTC day.
			if err := e.haltLocked(risk.CodeDailyVolumeExceeded); err != nil {
				e.log.Error().Err(err).Msg("halt after daily cap breach failed")
			}
		}
		e.mu.Unlock()
		e.recordRejection(signal, side, quantity, price, rej)
		return nil, gateErr
	}
	e.mu.Unlock()

	now := e.clk.Now()
	id, seq := e.ids.Next()
	trade := &market.Trade{
		ID:          id,
		Symbol:      signal.Symbol,
		Side:        side,
		Quantity:    approved,
		Price:       price,
		Notional:    approved * price,
		Slippage:    math.Abs(price - mid),
		StrategyTag: string(signal.Source),
		Status:      market.TradeExecuted,
		EventTime:   now,
		Seq:         seq,
	}

	prev, updated, realized, err := e.ledger.Apply(signal.Symbol, side, approved, price, mid, now)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	prevDaily := e.daily
	e.daily.TotalNotional += trade.Notional
	e.daily.TradeCount++
	e.daily.RealizedPnL += realized
	e.daily.ActivePositions = e.ledger.Portfolio().OpenPositions
	daily := e.daily
	e.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.PersistTimeout)
	commitErr := e.store.CommitExecution(ctx, store.Execution{Trade: trade, Position: updated, Stats: daily})
	cancel()
	if commitErr != nil {
		// Roll back: the trade must not be visible anywhere.
		e.ledger.Restore(prev)
		e.mu.Lock()
		e.daily = prevDaily
		e.mu.Unlock()
		e.metrics.PersistFailures.Inc()
		e.metrics.TradeRejections.WithLabelValues(string(risk.CodePersistenceFailed)).Inc()
		e.log.Error().Err(commitErr).Str("symbol", trade.Symbol).Msg("execution commit failed, rolled back")
		return nil, risk.Reject(risk.CodePersistenceFailed, "commit failed: %v", commitErr)
	}

	e.metrics.TradesExecuted.Inc()
	e.bus.PublishTrade(trade)
	e.log.Info().
		Str("symbol", trade.Symbol).
		Str("side", string(side)).
		Float64("quantity", trade.Quantity).
		Float64("price", trade.Price).
		Float64("notional", trade.Notional).
		Float64("realized_pnl", realized).
		Msg("trade executed")
	return trade, nil
}

// recordRejection appends a REJECTED trade row best-effort, outside the
// execution transaction.
func (e *Engine) recordRejection(signal strategy.Signal, side market.Side, quantity, price float64, rej *risk.Rejection) {
	id, seq := e.ids.Next()
	trade := &market.Trade{
		ID:           id,
		Symbol:       signal.Symbol,
		Side:         side,
		Quantity:     quantity,
		Price:        price,
		Notional:     quantity * price,
		StrategyTag:  string(signal.Source),
		Status:       market.TradeRejected,
		RejectReason: string(rej.Code),
		EventTime:    e.clk.Now(),
		Seq:          seq,
	}
	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.PersistTimeout)
	defer cancel()
	if err := e.store.AppendTrade(ctx, trade); err != nil {
		e.log.Warn().Err(err).Str("symbol", trade.Symbol).Msg("rejection record not persisted")
	}
}
