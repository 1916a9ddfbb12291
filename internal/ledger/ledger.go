// Package ledger owns the in-memory per-symbol net positions. Each symbol
// has its own lock so distinct symbols update in parallel while a given
// symbol's trade-apply and mark operations stay mutually exclusive.
package ledger

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/Anubothu-Aravind/alpha-fx-trader/internal/market"
)

// quantities below this are float dust from a full close and snap to zero
const zeroEps = 1e-9

type entry struct {
	mu  sync.Mutex
	pos market.Position
}

// Ledger tracks one position per symbol.
type Ledger struct {
	mu        sync.RWMutex
	positions map[string]*entry
}

func New() *Ledger {
	return &Ledger{positions: make(map[string]*entry)}
}

func (l *Ledger) entryFor(symbol string) *entry {
	l.mu.RLock()
	e, ok := l.positions[symbol]
	l.mu.RUnlock()
	if ok {
		return e
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok = l.positions[symbol]; ok {
		return e
	}
	e = &entry{pos: market.Position{Symbol: symbol}}
	l.positions[symbol] = e
	return e
}

// Apply books an execution against the symbol's position using weighted
// average pricing. It returns the position before and after the update and
// the realized PnL delta. markPrice is the current mid used to recompute
// unrealized PnL.
func (l *Ledger) Apply(symbol string, side market.Side, quantity, price, markPrice float64, now time.Time) (prev, updated market.Position, realized float64, err error) {
	if quantity <= 0 || price <= 0 {
		return market.Position{}, market.Position{}, 0, fmt.Errorf("invalid execution: quantity=%f price=%f", quantity, price)
	}

	e := l.entryFor(symbol)
	e.mu.Lock()
	defer e.mu.Unlock()

	prev = e.pos
	q0 := prev.Quantity
	a0 := prev.AvgPrice
	signed := side.Sign() * quantity

	var q1, a1 float64
	switch {
	case q0 == 0 || sameSign(q0, signed):
		// Adding to the position (or opening): weighted average price.
		q1 = q0 + signed
		a1 = (math.Abs(q0)*a0 + quantity*price) / math.Abs(q1)
	default:
		// Reducing, closing or flipping.
		reduce := math.Min(math.Abs(q0), quantity)
		realized = (price - a0) * reduce * sign(q0)
		q1 = q0 + signed
		if math.Abs(q1) < zeroEps {
			q1 = 0
			a1 = 0
		} else if sameSign(q1, q0) {
			a1 = a0
		} else {
			// Flipped through zero: the residual opened at this price.
			a1 = price
		}
	}

	if err := checkInvariants(q1, a1); err != nil {
		return prev, prev, 0, err
	}

	e.pos.Quantity = q1
	e.pos.AvgPrice = a1
	e.pos.RealizedPnL += realized
	e.pos.UnrealizedPnL = (markPrice - a1) * q1
	e.pos.UpdatedAt = now
	return prev, e.pos, realized, nil
}

// Restore overwrites the symbol's position, undoing a failed execution.
func (l *Ledger) Restore(pos market.Position) {
	e := l.entryFor(pos.Symbol)
	e.mu.Lock()
	e.pos = pos
	e.mu.Unlock()
}

// Mark recomputes unrealized PnL against the given mid. Reports false when
// the symbol has no position.
func (l *Ledger) Mark(symbol string, mid float64, now time.Time) (market.Position, bool) {
	l.mu.RLock()
	e, ok := l.positions[symbol]
	l.mu.RUnlock()
	if !ok {
		return market.Position{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pos.UnrealizedPnL = (mid - e.pos.AvgPrice) * e.pos.Quantity
	e.pos.UpdatedAt = now
	return e.pos, true
}

// Get returns a snapshot of the symbol's position.
func (l *Ledger) Get(symbol string) (market.Position, bool) {
	l.mu.RLock()
	e, ok := l.positions[symbol]
	l.mu.RUnlock()
	if !ok {
		return market.Position{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pos, true
}

// All returns snapshots of every tracked position.
func (l *Ledger) All() []market.Position {
	l.mu.RLock()
	entries := make([]*entry, 0, len(l.positions))
	for _, e := range l.positions {
		entries = append(entries, e)
	}
	l.mu.RUnlock()

	out := make([]market.Position, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, e.pos)
		e.mu.Unlock()
	}
	return out
}

// Load seeds the ledger from persisted positions, e.g. on engine start.
func (l *Ledger) Load(positions []market.Position) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, pos := range positions {
		l.positions[pos.Symbol] = &entry{pos: pos}
	}
}

// PortfolioStats aggregates PnL and open position count across symbols.
type PortfolioStats struct {
	RealizedPnL   float64
	UnrealizedPnL float64
	OpenPositions int
}

func (l *Ledger) Portfolio() PortfolioStats {
	var stats PortfolioStats
	for _, pos := range l.All() {
		stats.RealizedPnL += pos.RealizedPnL
		stats.UnrealizedPnL += pos.UnrealizedPnL
		if pos.Quantity != 0 {
			stats.OpenPositions++
		}
	}
	return stats
}

func checkInvariants(q, avg float64) error {
	if avg < 0 {
		return fmt.Errorf("ledger invariant violated: avg_price %f < 0", avg)
	}
	if (q == 0) != (avg == 0) {
		return fmt.Errorf("ledger invariant violated: quantity=%f avg_price=%f", q, avg)
	}
	return nil
}

func sign(x float64) float64 {
	if x < 0 {
		return -1
	}
	return 1
}

func sameSign(a, b float64) bool {
	return (a > 0 && b > 0) || (a < 0 && b < 0)
}
