// Package bus is the tick bus: the single writer for every symbol's rolling
// history ring and the fan-out point for tick and trade events. Producers
// publish ticks; the bus validates them, assigns per-symbol sequence
// numbers, appends to the bounded ring and delivers to subscribers in seq
// order. Delivery never blocks: a slow subscriber's buffer drops its oldest
// event and the drop is counted.
package bus

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Anubothu-Aravind/alpha-fx-trader/internal/market"
	"github.com/Anubothu-Aravind/alpha-fx-trader/internal/metrics"
)

// EventKind discriminates bus event payloads.
type EventKind string

const (
	EventTick  EventKind = "TICK"
	EventTrade EventKind = "TRADE"
)

// Event is a tagged record delivered to subscribers.
type Event struct {
	Kind  EventKind
	Tick  market.Tick
	Trade *market.Trade
}

// Subscription is a push channel of events. Receive from C; call
// Unsubscribe when done.
type Subscription struct {
	C <-chan Event

	name    string
	ch      chan Event
	symbols map[string]struct{} // nil means all symbols
}

// Matches reports whether the subscription wants events for symbol.
func (s *Subscription) Matches(symbol string) bool {
	if s.symbols == nil {
		return true
	}
	_, ok := s.symbols[symbol]
	return ok
}

type symbolState struct {
	mu     sync.Mutex
	seq    uint64
	ring   []market.HistoryPoint
	head   int // index of oldest entry
	size   int
	latest market.Tick
	has    bool
}

// Bus owns the history rings and the subscriber list.
type Bus struct {
	registry *market.Registry
	capacity int
	bufSize  int
	metrics  *metrics.Metrics
	log      zerolog.Logger

	subMu   sync.RWMutex
	subs    map[*Subscription]struct{}
	symbols map[string]*symbolState
}

// New creates a bus for the registry's symbols. capacity bounds each
// symbol's history ring; bufSize is the per-subscriber channel buffer.
func New(registry *market.Registry, capacity, bufSize int, m *metrics.Metrics, log zerolog.Logger) *Bus {
	b := &Bus{
		registry: registry,
		capacity: capacity,
		bufSize:  bufSize,
		metrics:  m,
		log:      log,
		subs:     make(map[*Subscription]struct{}),
		symbols:  make(map[string]*symbolState, len(registry.Symbols())),
	}
	for _, sym := range registry.Symbols() {
		b.symbols[sym] = &symbolState{ring: make([]market.HistoryPoint, capacity)}
	}
	return b
}

// Publish validates the tick, assigns its sequence number, appends it to
// the symbol's history ring and fans it out. Returns the tick as published.
func (b *Bus) Publish(tick market.Tick) (market.Tick, error) {
	if err := tick.Validate(); err != nil {
		b.metrics.BadTicks.Inc()
		return market.Tick{}, err
	}
	state, ok := b.symbols[tick.Symbol]
	if !ok {
		b.metrics.BadTicks.Inc()
		return market.Tick{}, fmt.Errorf("%w: %s", market.ErrUnknownSymbol, tick.Symbol)
	}

	// The symbol lock serializes seq assignment, the ring append and the
	// fan-out, so every subscriber observes this symbol in seq order.
	state.mu.Lock()
	defer state.mu.Unlock()

	state.seq++
	tick.Seq = state.seq

	mid := tick.Mid()
	point := market.HistoryPoint{
		EventTime: tick.EventTime,
		Mid:       mid,
		High:      tick.Ask,
		Low:       tick.Bid,
		Volume:    tick.Volume,
		Seq:       tick.Seq,
	}
	b.append(state, point)
	state.latest = tick
	state.has = true

	b.deliver(tick.Symbol, Event{Kind: EventTick, Tick: tick})
	return tick, nil
}

// PublishTrade fans a trade event out to subscribers of its symbol.
func (b *Bus) PublishTrade(trade *market.Trade) {
	b.deliver(trade.Symbol, Event{Kind: EventTrade, Trade: trade})
}

func (b *Bus) append(state *symbolState, p market.HistoryPoint) {
	if state.size < b.capacity {
		state.ring[(state.head+state.size)%b.capacity] = p
		state.size++
		return
	}
	// Full: overwrite the oldest slot.
	state.ring[state.head] = p
	state.head = (state.head + 1) % b.capacity
}

func (b *Bus) deliver(symbol string, ev Event) {
	b.subMu.RLock()
	defer b.subMu.RUnlock()
	for sub := range b.subs {
		if !sub.Matches(symbol) {
			continue
		}
		select {
		case sub.ch <- ev:
			continue
		default:
		}
		// Buffer full: drop the oldest queued event, then retry once.
		select {
		case <-sub.ch:
		default:
		}
		select {
		case sub.ch <- ev:
		default:
		}
		b.metrics.DroppedEvents.WithLabelValues(sub.name).Inc()
	}
}

// Subscribe registers a named subscriber for the given symbols (none means
// all). The returned channel never blocks the bus.
func (b *Bus) Subscribe(name string, symbols ...string) *Subscription {
	sub := &Subscription{
		name: name,
		ch:   make(chan Event, b.bufSize),
	}
	sub.C = sub.ch
	if len(symbols) > 0 {
		sub.symbols = make(map[string]struct{}, len(symbols))
		for _, s := range symbols {
			sub.symbols[s] = struct{}{}
		}
	}
	b.subMu.Lock()
	b.subs[sub] = struct{}{}
	b.subMu.Unlock()
	b.log.Debug().Str("subscriber", name).Int("symbols", len(symbols)).Msg("subscriber registered")
	return sub
}

// Unsubscribe removes the subscription and closes its channel.
func (b *Bus) Unsubscribe(sub *Subscription) {
	b.subMu.Lock()
	if _, ok := b.subs[sub]; ok {
		delete(b.subs, sub)
		close(sub.ch)
	}
	b.subMu.Unlock()
}

// Snapshot returns an immutable copy of the last n history points for the
// symbol, oldest first. n<=0 or n>len returns the full history.
func (b *Bus) Snapshot(symbol string, n int) ([]market.HistoryPoint, error) {
	state, ok := b.symbols[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: %s", market.ErrUnknownSymbol, symbol)
	}
	state.mu.Lock()
	defer state.mu.Unlock()

	count := state.size
	if n > 0 && n < count {
		count = n
	}
	out := make([]market.HistoryPoint, count)
	start := state.size - count
	for i := 0; i < count; i++ {
		out[i] = state.ring[(state.head+start+i)%b.capacity]
	}
	return out, nil
}

// Latest returns the most recent tick for the symbol, if any.
func (b *Bus) Latest(symbol string) (market.Tick, bool) {
	state, ok := b.symbols[symbol]
	if !ok {
		return market.Tick{}, false
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	return state.latest, state.has
}

// HistoryLen returns the current history length for the symbol.
func (b *Bus) HistoryLen(symbol string) int {
	state, ok := b.symbols[symbol]
	if !ok {
		return 0
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	return state.size
}
