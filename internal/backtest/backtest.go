// Package backtest replays synthetic historical bars through a sandboxed
// indicator and strategy stack. Runs are fully isolated from the live bus,
// store and engine, and are deterministic: identical requests produce
// identical results.
package backtest

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/Anubothu-Aravind/alpha-fx-trader/internal/market"
	"github.com/Anubothu-Aravind/alpha-fx-trader/internal/strategy"
)

// warmup is the minimum history length before strategies are consulted.
const warmup = 30

// minConfidence is the consensus threshold for backtest entries and exits.
const minConfidence = 0.6

// positionFraction is the share of cash committed per entry.
const positionFraction = 0.10

// Request describes one backtest run.
type Request struct {
	Symbol         string
	Start          time.Time
	End            time.Time
	Interval       string
	InitialCapital float64
	Parameters     strategy.Params
	Sigma          float64 // per-bar volatility; 0 uses the default 0.001
}

// ClosedTrade is one completed round trip.
type ClosedTrade struct {
	EntryTime  time.Time `json:"entry_time"`
	ExitTime   time.Time `json:"exit_time"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	Quantity   float64   `json:"quantity"`
	PnL        float64   `json:"pnl"`
}

// EquityPoint is the account value after one bar.
type EquityPoint struct {
	Time   time.Time `json:"time"`
	Equity float64   `json:"equity"`
}

// Result holds the performance metrics of a run.
type Result struct {
	Symbol         string        `json:"symbol"`
	Bars           int           `json:"bars"`
	TotalTrades    int           `json:"total_trades"`
	WinningTrades  int           `json:"winning_trades"`
	WinRate        float64       `json:"win_rate"`
	TotalPnL       float64       `json:"total_pnl"`
	FinalEquity    float64       `json:"final_equity"`
	ReturnPct      float64       `json:"return_pct"`
	MaxDrawdownPct float64       `json:"max_drawdown_pct"`
	Trades         []ClosedTrade `json:"trades"`
	EquityCurve    []EquityPoint `json:"equity_curve"`
}

// Runner executes backtests against the symbol registry.
type Runner struct {
	registry *market.Registry
}

func NewRunner(registry *market.Registry) *Runner {
	return &Runner{registry: registry}
}

// Run synthesizes bars for the request and replays them through a fresh
// consensus stack, going long on BUY signals and flat on SELL signals.
func (r *Runner) Run(req Request) (*Result, error) {
	info, err := r.registry.Lookup(req.Symbol)
	if err != nil {
		return nil, err
	}
	interval, err := ParseInterval(req.Interval)
	if err != nil {
		return nil, err
	}
	if !req.End.After(req.Start) {
		return nil, fmt.Errorf("backtest range is empty: %s .. %s", req.Start, req.End)
	}
	if req.InitialCapital <= 0 {
		return nil, fmt.Errorf("initial capital must be positive, got %f", req.InitialCapital)
	}

	sigma := req.Sigma
	if sigma == 0 {
		sigma = 0.001
	}
	rng := rand.New(rand.NewSource(seedFor(req)))
	bars := generateBars(rng, info.BasePrice, sigma, req.Start.UTC(), req.End.UTC(), interval)

	consensus := strategy.NewDefaultConsensus(req.Parameters)

	result := &Result{Symbol: req.Symbol}
	cash := req.InitialCapital

	var (
		history    []float64
		openQty    float64
		entryPrice float64
		entryTime  time.Time
	)

	for _, bar := range bars {
		// Strategies only ever see bars up to and including the current one.
		history = append(history, bar.Close)

		if len(history) >= warmup {
			signal := consensus.Evaluate(req.Symbol, history)
			if signal.Confidence >= minConfidence {
				switch signal.Kind {
				case strategy.SignalBuy:
					if openQty == 0 {
						qty := math.Floor(cash * positionFraction / bar.Close)
						if qty > 0 {
							openQty = qty
							entryPrice = bar.Close
							entryTime = bar.OpenTime
							cash -= qty * bar.Close
						}
					}
				case strategy.SignalSell:
					if openQty > 0 {
						cash += openQty * bar.Close
						result.Trades = append(result.Trades, ClosedTrade{
							EntryTime:  entryTime,
							ExitTime:   bar.OpenTime,
							EntryPrice: entryPrice,
							ExitPrice:  bar.Close,
							Quantity:   openQty,
							PnL:        (bar.Close - entryPrice) * openQty,
						})
						openQty = 0
					}
				}
			}
		}

		result.EquityCurve = append(result.EquityCurve, EquityPoint{
			Time:   bar.OpenTime,
			Equity: cash + openQty*bar.Close,
		})
	}

	result.Bars = len(bars)
	finalEquity := cash
	if openQty > 0 && len(bars) > 0 {
		// Residual position marks at the final close.
		finalEquity += openQty * bars[len(bars)-1].Close
	}

	result.TotalTrades = len(result.Trades)
	for _, t := range result.Trades {
		if t.PnL > 0 {
			result.WinningTrades++
		}
	}
	if result.TotalTrades > 0 {
		result.WinRate = float64(result.WinningTrades) / float64(result.TotalTrades)
	}
	result.FinalEquity = finalEquity
	result.TotalPnL = finalEquity - req.InitialCapital
	result.ReturnPct = result.TotalPnL / req.InitialCapital * 100
	result.MaxDrawdownPct = maxDrawdownPct(result.EquityCurve)
	return result, nil
}

// maxDrawdownPct is the largest peak-to-trough decline on the equity
// curve, in percent.
func maxDrawdownPct(curve []EquityPoint) float64 {
	var peak, maxDD float64
	for _, p := range curve {
		if p.Equity > peak {
			peak = p.Equity
		}
		if peak > 0 {
			dd := (peak - p.Equity) / peak * 100
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}
