package market

import "fmt"

// SymbolInfo describes a tradeable currency pair.
type SymbolInfo struct {
	Symbol        string  `json:"symbol"`         // compact form, e.g. "EURUSD"
	BasePrice     float64 `json:"base_price"`     // starting mid for simulation
	TypicalSpread float64 `json:"typical_spread"` // fraction of price
	Decimals      int     `json:"decimals"`       // quote precision
	LotStep       float64 `json:"lot_step"`       // minimum quantity increment
}

// Pair returns the conventional slash form, e.g. "EUR/USD".
func (s SymbolInfo) Pair() string {
	if len(s.Symbol) != 6 {
		return s.Symbol
	}
	return s.Symbol[:3] + "/" + s.Symbol[3:]
}

// Registry is the fixed set of supported symbols, loaded once at start.
type Registry struct {
	symbols map[string]SymbolInfo
	order   []string
}

// NewRegistry builds a registry from the given symbol set.
func NewRegistry(infos []SymbolInfo) (*Registry, error) {
	r := &Registry{symbols: make(map[string]SymbolInfo, len(infos))}
	for _, info := range infos {
		if info.Symbol == "" || info.BasePrice <= 0 {
			return nil, fmt.Errorf("invalid symbol definition %q", info.Symbol)
		}
		if _, dup := r.symbols[info.Symbol]; dup {
			return nil, fmt.Errorf("duplicate symbol %q", info.Symbol)
		}
		if info.LotStep <= 0 {
			info.LotStep = 1
		}
		r.symbols[info.Symbol] = info
		r.order = append(r.order, info.Symbol)
	}
	return r, nil
}

// Lookup returns the info for a symbol or ErrUnknownSymbol.
func (r *Registry) Lookup(symbol string) (SymbolInfo, error) {
	info, ok := r.symbols[symbol]
	if !ok {
		return SymbolInfo{}, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}
	return info, nil
}

// Has reports whether the symbol is registered.
func (r *Registry) Has(symbol string) bool {
	_, ok := r.symbols[symbol]
	return ok
}

// Symbols returns all registered symbols in definition order.
func (r *Registry) Symbols() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// DefaultSymbols is the standard FX universe with indicative base rates.
func DefaultSymbols() []SymbolInfo {
	return []SymbolInfo{
		{Symbol: "EURUSD", BasePrice: 1.0850, TypicalSpread: 0.0002, Decimals: 5, LotStep: 1},
		{Symbol: "GBPUSD", BasePrice: 1.2650, TypicalSpread: 0.0002, Decimals: 5, LotStep: 1},
		{Symbol: "USDJPY", BasePrice: 150.25, TypicalSpread: 0.0002, Decimals: 3, LotStep: 1},
		{Symbol: "AUDUSD", BasePrice: 0.6420, TypicalSpread: 0.0002, Decimals: 5, LotStep: 1},
		{Symbol: "USDCAD", BasePrice: 1.3750, TypicalSpread: 0.0002, Decimals: 5, LotStep: 1},
		{Symbol: "USDCHF", BasePrice: 0.8890, TypicalSpread: 0.0002, Decimals: 5, LotStep: 1},
		{Symbol: "NZDUSD", BasePrice: 0.5980, TypicalSpread: 0.0002, Decimals: 5, LotStep: 1},
		{Symbol: "EURGBP", BasePrice: 0.8580, TypicalSpread: 0.0002, Decimals: 5, LotStep: 1},
		{Symbol: "EURJPY", BasePrice: 163.15, TypicalSpread: 0.0002, Decimals: 3, LotStep: 1},
		{Symbol: "GBPJPY", BasePrice: 190.25, TypicalSpread: 0.0002, Decimals: 3, LotStep: 1},
	}
}
