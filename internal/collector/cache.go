package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"TrendSentinel/internal/model"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// ErrCacheMiss is returned by a KV store for absent keys.
var ErrCacheMiss = errors.New("cache miss")

// KV is the byte store behind CachedProvider.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RedisKV adapts a Redis client to KV.
type RedisKV struct {
	client *redis.Client
}

// NewRedisKV connects to Redis at addr.
func NewRedisKV(addr, password string, db int) *RedisKV {
	return &RedisKV{client: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

// Ping checks the connection.
func (k *RedisKV) Ping(ctx context.Context) error {
	return k.client.Ping(ctx).Err()
}

func (k *RedisKV) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := k.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	return b, err
}

func (k *RedisKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return k.client.Set(ctx, key, value, ttl).Err()
}

// Close closes the client.
func (k *RedisKV) Close() error { return k.client.Close() }

// CachedProvider keeps fetched bars and fundamentals in a KV store across
// runs. Keys carry the calendar date, so a new trading day always misses.
// Cache failures are logged and fall through to the inner provider.
type CachedProvider struct {
	inner  Provider
	kv     KV
	prefix string
	ttl    time.Duration
	now    func() time.Time
	log    zerolog.Logger
}

// NewCachedProvider wraps inner with kv.
func NewCachedProvider(inner Provider, kv KV, prefix string, ttl time.Duration, log zerolog.Logger) *CachedProvider {
	return &CachedProvider{inner: inner, kv: kv, prefix: prefix, ttl: ttl, now: time.Now, log: log}
}

func (c *CachedProvider) Name() string { return c.inner.Name() }

func (c *CachedProvider) key(kind, symbol string, n int) string {
	return fmt.Sprintf("%s%s:%s:%s:%d:%s", c.prefix, c.inner.Name(), kind, symbol, n, model.DateKey(c.now()))
}

func cached[T any](ctx context.Context, c *CachedProvider, key string, fetch func() (T, error)) (T, error) {
	var v T
	if b, err := c.kv.Get(ctx, key); err == nil {
		if err := msgpack.Unmarshal(b, &v); err == nil {
			if bars, ok := any(v).([]model.PriceBar); ok {
				toUTC(bars)
			}
			return v, nil
		}
		c.log.Warn().Str("key", key).Msg("discarding undecodable cache entry")
	} else if !errors.Is(err, ErrCacheMiss) {
		c.log.Warn().Err(err).Str("key", key).Msg("cache read failed")
	}

	v, err := fetch()
	if err != nil {
		return v, err
	}
	b, err := msgpack.Marshal(v)
	if err == nil {
		err = c.kv.Set(ctx, key, b, c.ttl)
	}
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
	return v, nil
}

// toUTC undoes msgpack decoding times into the local zone.
func toUTC(bars []model.PriceBar) {
	for i := range bars {
		bars[i].Time = bars[i].Time.UTC()
	}
}

func (c *CachedProvider) FetchDailyBars(ctx context.Context, symbol string, days int) ([]model.PriceBar, error) {
	return cached(ctx, c, c.key("daily", symbol, days), func() ([]model.PriceBar, error) {
		return c.inner.FetchDailyBars(ctx, symbol, days)
	})
}

func (c *CachedProvider) FetchWeeklyBars(ctx context.Context, symbol string, weeks int) ([]model.PriceBar, error) {
	return cached(ctx, c, c.key("weekly", symbol, weeks), func() ([]model.PriceBar, error) {
		return c.inner.FetchWeeklyBars(ctx, symbol, weeks)
	})
}

func (c *CachedProvider) FetchFundamentals(ctx context.Context, symbol string) (*model.Fundamentals, error) {
	return cached(ctx, c, c.key("fundamentals", symbol, 0), func() (*model.Fundamentals, error) {
		return c.inner.FetchFundamentals(ctx, symbol)
	})
}

// FetchDailyBatch serves cached symbols from the store and batches the rest.
func (c *CachedProvider) FetchDailyBatch(ctx context.Context, symbols []string, days int) (map[string][]model.PriceBar, error) {
	bp, ok := c.inner.(BatchProvider)
	if !ok {
		return nil, ErrNoBatch
	}
	out := make(map[string][]model.PriceBar, len(symbols))
	var missing []string
	for _, s := range symbols {
		b, err := c.kv.Get(ctx, c.key("daily", s, days))
		var bars []model.PriceBar
		if err == nil && msgpack.Unmarshal(b, &bars) == nil {
			toUTC(bars)
			out[s] = bars
			continue
		}
		missing = append(missing, s)
	}
	if len(missing) == 0 {
		return out, nil
	}
	fetched, err := bp.FetchDailyBatch(ctx, missing, days)
	if err != nil {
		return nil, err
	}
	for s, bars := range fetched {
		out[s] = bars
		if b, err := msgpack.Marshal(bars); err == nil {
			if err := c.kv.Set(ctx, c.key("daily", s, days), b, c.ttl); err != nil {
				c.log.Warn().Err(err).Str("symbol", s).Msg("cache write failed")
			}
		}
	}
	return out, nil
}
