// Package risk sizes proposed trades and enforces the notional limits:
// the daily cap, the per-trade cap, the per-symbol exposure cap and the
// minimum notional floor.
package risk

import (
	"fmt"
	"math"
)

// Code is a machine-readable rejection reason.
type Code string

const (
	CodeEngineHalted           Code = "EngineHalted"
	CodeDailyVolumeExceeded    Code = "DailyVolumeExceeded"
	CodeTradeTooLarge          Code = "TradeTooLarge"
	CodeSymbolExposureExceeded Code = "SymbolExposureExceeded"
	CodePersistenceFailed      Code = "PersistenceFailed"
)

// Rejection is a trade rejection with a machine code and human reason.
type Rejection struct {
	Code   Code
	Detail string
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("trade rejected (%s): %s", r.Code, r.Detail)
}

// Reject builds a rejection error.
func Reject(code Code, format string, args ...any) *Rejection {
	return &Rejection{Code: code, Detail: fmt.Sprintf(format, args...)}
}

// As extracts a Rejection from an error, if it is one.
func As(err error) (*Rejection, bool) {
	r, ok := err.(*Rejection)
	return r, ok
}

// Limits holds the gate's configuration.
type Limits struct {
	DailyCap             float64 // total notional ceiling per UTC day
	PerTradeCapFraction  float64 // of DailyCap
	PerSymbolCapFraction float64 // of DailyCap
	MinNotional          float64
	BasePositionNotional float64
}

// Gate applies sizing and the risk checks. It is stateless: the engine
// supplies the current daily notional and position exposure.
type Gate struct {
	limits Limits
}

func NewGate(limits Limits) *Gate {
	return &Gate{limits: limits}
}

// Limits returns the configured limits.
func (g *Gate) Limits() Limits { return g.limits }

// Size converts a signal confidence into a quantity at the given mid,
// scaling the base position notional and applying the minimum notional
// floor, then rounding up to the symbol's lot step.
func (g *Gate) Size(confidence, mid, lotStep float64) float64 {
	if mid <= 0 {
		return 0
	}
	notional := math.Max(g.limits.MinNotional, g.limits.BasePositionNotional*confidence)
	quantity := notional / mid
	if lotStep > 0 {
		quantity = math.Ceil(quantity/lotStep) * lotStep
	}
	return quantity
}

// Request is a proposed execution presented to the gate.
type Request struct {
	Symbol         string
	Quantity       float64
	Price          float64
	Running        bool    // engine state
	DailyNotional  float64 // executed so far this UTC day
	SymbolExposure float64 // |position.quantity * avg_price|
}

// Check validates the request against the limits and returns the approved
// quantity, which may have been sized up to the minimum notional floor.
// A DailyVolumeExceeded rejection additionally obliges the engine to halt.
func (g *Gate) Check(req Request) (float64, error) {
	if !req.Running {
		return 0, Reject(CodeEngineHalted, "engine is not running")
	}

	quantity := req.Quantity
	notional := quantity * req.Price
	// Orders below the floor are sized up, not rejected.
	if notional < g.limits.MinNotional && req.Price > 0 {
		quantity = math.Ceil(g.limits.MinNotional / req.Price)
		notional = quantity * req.Price
	}

	if req.DailyNotional+notional > g.limits.DailyCap {
		return 0, Reject(CodeDailyVolumeExceeded,
			"daily notional %.2f + %.2f exceeds cap %.2f", req.DailyNotional, notional, g.limits.DailyCap)
	}

	perTradeCap := g.limits.DailyCap * g.limits.PerTradeCapFraction
	if notional > perTradeCap {
		return 0, Reject(CodeTradeTooLarge,
			"notional %.2f exceeds per-trade cap %.2f", notional, perTradeCap)
	}

	perSymbolCap := g.limits.DailyCap * g.limits.PerSymbolCapFraction
	if req.SymbolExposure+notional > perSymbolCap {
		return 0, Reject(CodeSymbolExposureExceeded,
			"%s exposure %.2f + %.2f exceeds cap %.2f", req.Symbol, req.SymbolExposure, notional, perSymbolCap)
	}

	return quantity, nil
}
