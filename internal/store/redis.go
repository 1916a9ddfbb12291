package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Anubothu-Aravind/alpha-fx-trader/internal/market"
)

// Redis key layout:
//   fx:trade:{id}        JSON trade
//   fx:trades:{symbol}   zset of trade IDs scored by event time (micros)
//   fx:trades:all        zset across symbols
//   fx:position:{symbol} JSON position
//   fx:positions         set of symbols with a persisted position
//   fx:stats:{date}      JSON daily stats, date formatted 2006-01-02
const (
	tradeKeyPrefix    = "fx:trade:"
	tradesZSetPrefix  = "fx:trades:"
	tradesAllKey      = "fx:trades:all"
	positionKeyPrefix = "fx:position:"
	positionSetKey    = "fx:positions"
	statsKeyPrefix    = "fx:stats:"
)

// Redis is a Store backed by a Redis instance. Execution commits use a
// MULTI/EXEC pipeline so the three writes land atomically.
type Redis struct {
	client *redis.Client
}

// RedisOptions configures the Redis store.
type RedisOptions struct {
	Address  string
	Password string
	DB       int
	PoolSize int
}

// NewRedis connects and pings the Redis backend.
func NewRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Address,
		Password: opts.Password,
		DB:       opts.DB,
		PoolSize: opts.PoolSize,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Redis{client: client}, nil
}

func statsKey(date time.Time) string {
	return statsKeyPrefix + market.DateKey(date).Format("2006-01-02")
}

func tradeScore(t *market.Trade) float64 {
	return float64(t.EventTime.UnixMicro())
}

func (r *Redis) AppendTrade(ctx context.Context, trade *market.Trade) error {
	payload, err := json.Marshal(trade)
	if err != nil {
		return fmt.Errorf("%w: marshal trade: %v", ErrPersistence, err)
	}
	// SETNX keeps the append idempotent by trade ID.
	set, err := r.client.SetNX(ctx, tradeKeyPrefix+trade.ID, payload, 0).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !set {
		return nil
	}
	pipe := r.client.TxPipeline()
	member := redis.Z{Score: tradeScore(trade), Member: trade.ID}
	pipe.ZAdd(ctx, tradesZSetPrefix+trade.Symbol, member)
	pipe.ZAdd(ctx, tradesAllKey, member)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

func (r *Redis) UpsertPosition(ctx context.Context, pos market.Position) error {
	payload, err := json.Marshal(pos)
	if err != nil {
		return fmt.Errorf("%w: marshal position: %v", ErrPersistence, err)
	}
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, positionKeyPrefix+pos.Symbol, payload, 0)
	pipe.SAdd(ctx, positionSetKey, pos.Symbol)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

func (r *Redis) UpsertDailyStats(ctx context.Context, stats market.DailyStats) error {
	payload, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("%w: marshal stats: %v", ErrPersistence, err)
	}
	if err := r.client.Set(ctx, statsKey(stats.Date), payload, 0).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

func (r *Redis) CommitExecution(ctx context.Context, exec Execution) error {
	tradeJSON, err := json.Marshal(exec.Trade)
	if err != nil {
		return fmt.Errorf("%w: marshal trade: %v", ErrPersistence, err)
	}
	posJSON, err := json.Marshal(exec.Position)
	if err != nil {
		return fmt.Errorf("%w: marshal position: %v", ErrPersistence, err)
	}
	statsJSON, err := json.Marshal(exec.Stats)
	if err != nil {
		return fmt.Errorf("%w: marshal stats: %v", ErrPersistence, err)
	}

	pipe := r.client.TxPipeline()
	member := redis.Z{Score: tradeScore(exec.Trade), Member: exec.Trade.ID}
	pipe.SetNX(ctx, tradeKeyPrefix+exec.Trade.ID, tradeJSON, 0)
	pipe.ZAdd(ctx, tradesZSetPrefix+exec.Trade.Symbol, member)
	pipe.ZAdd(ctx, tradesAllKey, member)
	pipe.Set(ctx, positionKeyPrefix+exec.Position.Symbol, posJSON, 0)
	pipe.SAdd(ctx, positionSetKey, exec.Position.Symbol)
	pipe.Set(ctx, statsKey(exec.Stats.Date), statsJSON, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

func (r *Redis) LoadTodayNotional(ctx context.Context, date time.Time) (float64, error) {
	payload, err := r.client.Get(ctx, statsKey(date)).Bytes()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	var stats market.DailyStats
	if err := json.Unmarshal(payload, &stats); err != nil {
		return 0, fmt.Errorf("%w: decode stats: %v", ErrPersistence, err)
	}
	return stats.TotalNotional, nil
}

func (r *Redis) LoadPositions(ctx context.Context) ([]market.Position, error) {
	symbols, err := r.client.SMembers(ctx, positionSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	sort.Strings(symbols)
	out := make([]market.Position, 0, len(symbols))
	for _, sym := range symbols {
		payload, err := r.client.Get(ctx, positionKeyPrefix+sym).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		var pos market.Position
		if err := json.Unmarshal(payload, &pos); err != nil {
			return nil, fmt.Errorf("%w: decode position %s: %v", ErrPersistence, sym, err)
		}
		out = append(out, pos)
	}
	return out, nil
}

func (r *Redis) ListTrades(ctx context.Context, symbol string, limit, offset int) ([]market.Trade, error) {
	key := tradesAllKey
	if symbol != "" {
		key = tradesZSetPrefix + symbol
	}
	stop := int64(-1)
	if limit > 0 {
		stop = int64(offset+limit) - 1
	}
	ids, err := r.client.ZRevRange(ctx, key, int64(offset), stop).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	out := make([]market.Trade, 0, len(ids))
	for _, id := range ids {
		payload, err := r.client.Get(ctx, tradeKeyPrefix+id).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		var trade market.Trade
		if err := json.Unmarshal(payload, &trade); err != nil {
			return nil, fmt.Errorf("%w: decode trade %s: %v", ErrPersistence, id, err)
		}
		out = append(out, trade)
	}
	// Equal scores come back in lexical order; restore (event_time, seq) desc.
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].EventTime.Equal(out[j].EventTime) {
			return out[i].EventTime.After(out[j].EventTime)
		}
		return out[i].Seq > out[j].Seq
	})
	return out, nil
}

func (r *Redis) Close() {
	_ = r.client.Close()
}
