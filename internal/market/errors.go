package market

import "errors"

var (
	// ErrUnknownSymbol is returned when a symbol is not in the registry.
	ErrUnknownSymbol = errors.New("unknown symbol")

	// ErrBadTick is returned when a published tick violates its invariants.
	ErrBadTick = errors.New("bad tick")
)
