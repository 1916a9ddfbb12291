// Package feed produces ticks for the tick bus. The default source is a
// per-symbol random-walk simulator; a websocket client can replace it when
// an upstream rate feed is available.
package feed

import (
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Anubothu-Aravind/alpha-fx-trader/internal/bus"
	"github.com/Anubothu-Aravind/alpha-fx-trader/internal/clock"
	"github.com/Anubothu-Aravind/alpha-fx-trader/internal/market"
)

// Source is a tick producer feeding the bus.
type Source interface {
	Start() error
	Stop()
}

// NewsImpact grades a news shock.
type NewsImpact string

const (
	NewsLow  NewsImpact = "LOW"
	NewsMed  NewsImpact = "MED"
	NewsHigh NewsImpact = "HIGH"
)

func (n NewsImpact) magnitude() float64 {
	switch n {
	case NewsHigh:
		return 0.01
	case NewsMed:
		return 0.005
	default:
		return 0.002
	}
}

// SimConfig holds simulator parameters.
type SimConfig struct {
	MinInterval time.Duration // lower bound of the jittered tick interval
	MaxInterval time.Duration
	Sigma       float64 // per-tick volatility
	SeedHistory bool    // pre-fill history rings with a back-dated walk
	Seed        int64   // 0 means seed from wall clock
}

// Simulator drives one random-walk goroutine per symbol.
type Simulator struct {
	cfg      SimConfig
	registry *market.Registry
	bus      *bus.Bus
	clk      clock.Clock
	log      zerolog.Logger

	mu   sync.Mutex
	mids map[string]float64
	news map[string]NewsImpact // pending one-shot shocks

	stopChan chan struct{}
	wg       sync.WaitGroup
	started  bool
}

// NewSimulator creates a simulator with every symbol at its base price.
func NewSimulator(cfg SimConfig, registry *market.Registry, b *bus.Bus, clk clock.Clock, log zerolog.Logger) *Simulator {
	mids := make(map[string]float64)
	for _, sym := range registry.Symbols() {
		info, _ := registry.Lookup(sym)
		mids[sym] = info.BasePrice
	}
	return &Simulator{
		cfg:      cfg,
		registry: registry,
		bus:      b,
		clk:      clk,
		log:      log,
		mids:     mids,
		news:     make(map[string]NewsImpact),
		stopChan: make(chan struct{}),
	}
}

// Start seeds history if configured and launches the per-symbol walkers.
func (s *Simulator) Start() error {
	if s.started {
		return nil
	}
	s.started = true

	seed := s.cfg.Seed
	if seed == 0 {
		seed = s.clk.Now().UnixNano()
	}

	if s.cfg.SeedHistory {
		s.seedHistory(rand.New(rand.NewSource(seed)))
	}

	for i, sym := range s.registry.Symbols() {
		s.wg.Add(1)
		go s.run(sym, rand.New(rand.NewSource(seed+int64(i)+1)))
	}
	s.log.Info().Int("symbols", len(s.mids)).Msg("feed simulator started")
	return nil
}

// Stop halts all walkers and waits for them to exit.
func (s *Simulator) Stop() {
	if !s.started {
		return
	}
	s.started = false
	close(s.stopChan)
	s.wg.Wait()
	s.stopChan = make(chan struct{})
	s.log.Info().Msg("feed simulator stopped")
}

// InjectNews applies a one-shot shock to the symbol's next tick: price moves
// by the impact magnitude in a random direction, the spread widens and
// volume is elevated.
func (s *Simulator) InjectNews(symbol string, impact NewsImpact) error {
	if !s.registry.Has(symbol) {
		return market.ErrUnknownSymbol
	}
	s.mu.Lock()
	s.news[symbol] = impact
	s.mu.Unlock()
	s.log.Info().Str("symbol", symbol).Str("impact", string(impact)).Msg("news shock queued")
	return nil
}

func (s *Simulator) run(symbol string, rng *rand.Rand) {
	defer s.wg.Done()
	for {
		wait := s.cfg.MinInterval + time.Duration(rng.Float64()*float64(s.cfg.MaxInterval-s.cfg.MinInterval))
		timer := time.NewTimer(wait)
		select {
		case <-s.stopChan:
			timer.Stop()
			return
		case <-timer.C:
		}

		tick := s.nextTick(symbol, rng)
		if _, err := s.bus.Publish(tick); err != nil {
			s.log.Warn().Err(err).Str("symbol", symbol).Msg("tick rejected")
		}
	}
}

func (s *Simulator) nextTick(symbol string, rng *rand.Rand) market.Tick {
	s.mu.Lock()
	mid := s.mids[symbol]
	impact, shocked := s.news[symbol]
	if shocked {
		delete(s.news, symbol)
	}

	volume := 100_000 + rng.Float64()*1_000_000
	var spread float64
	if shocked {
		direction := 1.0
		if rng.Float64() < 0.5 {
			direction = -1
		}
		mid *= 1 + direction*impact.magnitude()
		spread = mid * 0.0003
		volume *= 5
	} else {
		mid *= 1 + (rng.Float64()*2-1)*s.cfg.Sigma
		spread = mid * (0.0001 + rng.Float64()*0.0003)
	}
	s.mids[symbol] = mid
	s.mu.Unlock()

	return market.Tick{
		Symbol:    symbol,
		Bid:       mid - spread/2,
		Ask:       mid + spread/2,
		Volume:    volume,
		EventTime: s.clk.Now(),
	}
}

// seedHistory publishes a back-dated walk per symbol so strategies have
// context from the first evaluation cycle.
func (s *Simulator) seedHistory(rng *rand.Rand) {
	const points = 100
	now := s.clk.Now()
	for _, sym := range s.registry.Symbols() {
		s.mu.Lock()
		mid := s.mids[sym]
		s.mu.Unlock()
		for i := points; i > 0; i-- {
			mid *= 1 + (rng.Float64()*2-1)*s.cfg.Sigma
			spread := mid * (0.0001 + rng.Float64()*0.0003)
			tick := market.Tick{
				Symbol:    sym,
				Bid:       mid - spread/2,
				Ask:       mid + spread/2,
				Volume:    100_000 + rng.Float64()*1_000_000,
				EventTime: now.Add(-time.Duration(i) * time.Minute),
			}
			if _, err := s.bus.Publish(tick); err != nil {
				s.log.Warn().Err(err).Str("symbol", sym).Msg("seed tick rejected")
			}
		}
		s.mu.Lock()
		s.mids[sym] = mid
		s.mu.Unlock()
	}
}
