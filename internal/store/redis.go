package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"pairbot-go/internal/market"
)

// RedisStore persists each instrument's series in a sorted set scored by
// unix-milli timestamp, so range loads map directly onto ZRANGEBYSCORE.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore parses url, verifies connectivity, and returns a store whose
// keys are namespaced under prefix (default "pairbot").
func NewRedisStore(ctx context.Context, url, prefix string) (*RedisStore, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	if prefix == "" {
		prefix = "pairbot"
	}
	return &RedisStore{client: client, prefix: prefix}, nil
}

func (s *RedisStore) seriesKey(key market.InstrumentKey) string {
	return fmt.Sprintf("%s:series:%s", s.prefix, key)
}

// Save writes each bar as a JSON member scored by its timestamp. Re-saving a
// timestamp adds a fresh member; loads keep the latest per timestamp.
func (s *RedisStore) Save(ctx context.Context, key market.InstrumentKey, series market.Series) error {
	if len(series) == 0 {
		return nil
	}
	members := make([]redis.Z, 0, len(series))
	for _, bar := range series {
		data, err := json.Marshal(bar)
		if err != nil {
			return fmt.Errorf("marshal bar: %w", err)
		}
		members = append(members, redis.Z{
			Score:  float64(bar.Ts.UnixMilli()),
			Member: string(data),
		})
	}
	if err := s.client.ZAdd(ctx, s.seriesKey(key), members...).Err(); err != nil {
		return fmt.Errorf("zadd %s: %w", key, err)
	}
	return nil
}

// Load reads bars with start <= Ts < end. An absent key is ErrNotFound so
// callers can distinguish missing instruments from empty ranges.
func (s *RedisStore) Load(ctx context.Context, key market.InstrumentKey, start, end time.Time) (market.Series, error) {
	redisKey := s.seriesKey(key)

	exists, err := s.client.Exists(ctx, redisKey).Result()
	if err != nil {
		return nil, fmt.Errorf("exists %s: %w", key, err)
	}
	if exists == 0 {
		return nil, ErrNotFound
	}

	min, max := "-inf", "+inf"
	if !start.IsZero() {
		min = fmt.Sprintf("%d", start.UnixMilli())
	}
	if !end.IsZero() {
		max = fmt.Sprintf("(%d", end.UnixMilli())
	}
	raw, err := s.client.ZRangeByScore(ctx, redisKey, &redis.ZRangeBy{Min: min, Max: max}).Result()
	if err != nil {
		return nil, fmt.Errorf("zrangebyscore %s: %w", key, err)
	}

	series := make(market.Series, 0, len(raw))
	var lastTs time.Time
	for _, member := range raw {
		var bar market.Bar
		if err := json.Unmarshal([]byte(member), &bar); err != nil {
			return nil, fmt.Errorf("unmarshal bar: %w", err)
		}
		if !lastTs.IsZero() && bar.Ts.Equal(lastTs) {
			series[len(series)-1] = bar
			continue
		}
		series = append(series, bar)
		lastTs = bar.Ts
	}
	return series, nil
}

// Close releases the underlying client.
func (s *RedisStore) Close() error { return s.client.Close() }
