package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/Anubothu-Aravind/alpha-fx-trader/internal/backtest"
	"github.com/Anubothu-Aravind/alpha-fx-trader/internal/market"
	"github.com/Anubothu-Aravind/alpha-fx-trader/internal/strategy"
)

func main() {
	var (
		symbol   = flag.String("symbol", "EURUSD", "symbol to backtest")
		start    = flag.String("start", "", "range start, RFC3339 or YYYY-MM-DD (default: 30 days ago)")
		end      = flag.String("end", "", "range end, RFC3339 or YYYY-MM-DD (default: now)")
		interval = flag.String("interval", "1h", "bar interval (e.g. 15m, 1h, 1d)")
		capital  = flag.Float64("capital", 100_000, "initial capital")
		sigma    = flag.Float64("sigma", 0, "per-bar volatility (0 = default)")
		asJSON   = flag.Bool("json", false, "emit the full result as JSON")
	)
	flag.Parse()

	endTime := time.Now().UTC().Truncate(time.Hour)
	if *end != "" {
		endTime = mustParseTime(*end)
	}
	startTime := endTime.AddDate(0, 0, -30)
	if *start != "" {
		startTime = mustParseTime(*start)
	}

	registry, err := market.NewRegistry(market.DefaultSymbols())
	if err != nil {
		fmt.Fprintf(os.Stderr, "registry: %v\n", err)
		os.Exit(1)
	}

	runner := backtest.NewRunner(registry)
	result, err := runner.Run(backtest.Request{
		Symbol:         *symbol,
		Start:          startTime,
		End:            endTime,
		Interval:       *interval,
		InitialCapital: *capital,
		Parameters:     strategy.DefaultParams(),
		Sigma:          *sigma,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "backtest: %v\n", err)
		os.Exit(1)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			fmt.Fprintf(os.Stderr, "encode: %v\n", err)
			os.Exit(1)
		}
		return
	}

	fmt.Println("================================================================")
	fmt.Printf("BACKTEST  %s  %s .. %s @ %s\n", result.Symbol,
		startTime.Format("2006-01-02"), endTime.Format("2006-01-02"), *interval)
	fmt.Println("================================================================")
	fmt.Printf("Bars:           %d\n", result.Bars)
	fmt.Printf("Trades:         %d (%d winning, %.1f%% win rate)\n",
		result.TotalTrades, result.WinningTrades, result.WinRate*100)
	fmt.Printf("Total PnL:      %.2f\n", result.TotalPnL)
	fmt.Printf("Final equity:   %.2f (%.2f%% return)\n", result.FinalEquity, result.ReturnPct)
	fmt.Printf("Max drawdown:   %.2f%%\n", result.MaxDrawdownPct)

	if len(result.Trades) > 0 {
		fmt.Println("----------------------------------------------------------------")
		for i, t := range result.Trades {
			fmt.Printf("%3d  %s -> %s  qty %.0f  %.5f -> %.5f  pnl %.2f\n",
				i+1, t.EntryTime.Format("01-02 15:04"), t.ExitTime.Format("01-02 15:04"),
				t.Quantity, t.EntryPrice, t.ExitPrice, t.PnL)
		}
	}
}

func mustParseTime(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC()
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid time %q (want RFC3339 or YYYY-MM-DD)\n", s)
		os.Exit(1)
	}
	return t.UTC()
}
