// Package metrics holds the counters the trading system exposes for
// observability: rejected ticks, dropped subscriber events, trade
// rejections and persistence failures. The registry is injectable so test
// suites can assert on counter values in isolation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the system counters.
type Metrics struct {
	BadTicks        prometheus.Counter
	DroppedEvents   *prometheus.CounterVec // by subscriber
	TradeRejections *prometheus.CounterVec // by reason
	PersistFailures prometheus.Counter
	TradesExecuted  prometheus.Counter
}

// New registers the counters on reg. Pass a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		BadTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fx_bad_ticks_total",
			Help: "Ticks rejected for invariant violations",
		}),
		DroppedEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fx_dropped_events_total",
			Help: "Events dropped on slow subscriber channels",
		}, []string{"subscriber"}),
		TradeRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fx_trade_rejections_total",
			Help: "Trades rejected by the risk gate or persistence",
		}, []string{"reason"}),
		PersistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fx_persistence_failures_total",
			Help: "Failed persistence transactions",
		}),
		TradesExecuted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fx_trades_executed_total",
			Help: "Successfully executed trades",
		}),
	}
	reg.MustRegister(m.BadTicks, m.DroppedEvents, m.TradeRejections, m.PersistFailures, m.TradesExecuted)
	return m
}

// NewForTest returns metrics on a private registry.
func NewForTest() *Metrics {
	return New(prometheus.NewRegistry())
}
