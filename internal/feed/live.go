package feed

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Anubothu-Aravind/alpha-fx-trader/internal/bus"
	"github.com/Anubothu-Aravind/alpha-fx-trader/internal/clock"
	"github.com/Anubothu-Aravind/alpha-fx-trader/internal/market"
)

// wireTick is the upstream rate message format.
type wireTick struct {
	Symbol    string  `json:"symbol"`
	Bid       float64 `json:"bid"`
	Ask       float64 `json:"ask"`
	Volume    float64 `json:"volume"`
	EventTime int64   `json:"event_time"` // unix millis; 0 means receive time
}

// LiveFeed consumes ticks from an upstream websocket rate source and
// publishes them to the bus. Unknown symbols and malformed quotes are
// rejected by the bus and counted there.
type LiveFeed struct {
	url string
	bus *bus.Bus
	clk clock.Clock
	log zerolog.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	isRunning bool
	wg        sync.WaitGroup
}

// NewLiveFeed creates a live feed for the given websocket URL.
func NewLiveFeed(url string, b *bus.Bus, clk clock.Clock, log zerolog.Logger) *LiveFeed {
	return &LiveFeed{url: url, bus: b, clk: clk, log: log}
}

// Start launches the connect/read loop.
func (f *LiveFeed) Start() error {
	f.mu.Lock()
	if f.isRunning {
		f.mu.Unlock()
		return nil
	}
	f.isRunning = true
	f.mu.Unlock()

	f.wg.Add(1)
	go f.connect()
	return nil
}

// Stop closes the connection and waits for the read loop to exit.
func (f *LiveFeed) Stop() {
	f.mu.Lock()
	f.isRunning = false
	if f.conn != nil {
		f.conn.Close()
	}
	f.mu.Unlock()
	f.wg.Wait()
}

func (f *LiveFeed) running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.isRunning
}

func (f *LiveFeed) connect() {
	defer f.wg.Done()
	for f.running() {
		conn, _, err := websocket.DefaultDialer.Dial(f.url, nil)
		if err != nil {
			f.log.Warn().Err(err).Str("url", f.url).Msg("feed connection failed, retrying in 5s")
			time.Sleep(5 * time.Second)
			continue
		}

		f.mu.Lock()
		f.conn = conn
		f.mu.Unlock()
		f.log.Info().Str("url", f.url).Msg("live feed connected")

		f.readLoop(conn)

		if !f.running() {
			return
		}
		f.log.Warn().Msg("feed connection lost, reconnecting in 3s")
		time.Sleep(3 * time.Second)
	}
}

func (f *LiveFeed) readLoop(conn *websocket.Conn) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && f.running() {
				f.log.Warn().Err(err).Msg("feed read error")
			}
			return
		}

		var wt wireTick
		if err := json.Unmarshal(message, &wt); err != nil {
			f.log.Warn().Err(err).Msg("malformed feed message")
			continue
		}

		eventTime := f.clk.Now()
		if wt.EventTime > 0 {
			eventTime = time.UnixMilli(wt.EventTime).UTC()
		}
		tick := market.Tick{
			Symbol:    wt.Symbol,
			Bid:       wt.Bid,
			Ask:       wt.Ask,
			Volume:    wt.Volume,
			EventTime: eventTime,
		}
		if _, err := f.bus.Publish(tick); err != nil {
			f.log.Debug().Err(err).Str("symbol", wt.Symbol).Msg("feed tick rejected")
		}
	}
}
