package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/amirasaad/fxengine/pkg/provider"
	"github.com/amirasaad/fxengine/pkg/provider/exchange"
	"github.com/redis/go-redis/v9"
)

// RedisCache shares quotes between engine instances. Keys expire with the
// quote they hold; size is bounded by the server's maxmemory policy.
type RedisCache struct {
	client redis.UniversalClient
	prefix string
	logger *slog.Logger
	now    func() time.Time
}

// NewRedisCache creates a new RedisCache from redis.Options.
func NewRedisCache(opt *redis.Options, prefix string, logger *slog.Logger) *RedisCache {
	return NewRedisCacheWithClient(redis.NewClient(opt), prefix, logger)
}

// NewRedisCacheWithClient wraps an existing client.
func NewRedisCacheWithClient(client redis.UniversalClient, prefix string, logger *slog.Logger) *RedisCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisCache{
		client: client,
		prefix: prefix,
		logger: logger.With("cache", "redis"),
		now:    time.Now,
	}
}

func (r *RedisCache) key(p provider.Pair) string {
	return r.prefix + exchange.CacheKey(p)
}

// Get returns the cached quote, or nil on a miss.
func (r *RedisCache) Get(ctx context.Context, p provider.Pair) (*provider.RateQuote, error) {
	val, err := r.client.Get(ctx, r.key(p)).Bytes()
	if errors.Is(err, redis.Nil) {
		r.logger.Debug("Redis cache miss", "pair", p.String())
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis cache get %s: %w", p, err)
	}
	var q provider.RateQuote
	if err := json.Unmarshal(val, &q); err != nil {
		return nil, fmt.Errorf("redis cache decode %s: %w", p, err)
	}
	return &q, nil
}

// Set stores q until it expires. Already expired quotes are not written.
func (r *RedisCache) Set(ctx context.Context, q *provider.RateQuote) error {
	if q == nil {
		return nil
	}
	ttl := q.ExpiresAt().Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("redis cache encode %s: %w", q.Pair(), err)
	}
	if err := r.client.Set(ctx, r.key(q.Pair()), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis cache set %s: %w", q.Pair(), err)
	}
	r.logger.Debug("Redis cache set", "pair", q.Pair().String(), "ttl", ttl)
	return nil
}

// Clear deletes every key under the cache prefix.
func (r *RedisCache) Clear(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, r.prefix+"fx:rate:*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis cache scan: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}

// Ping checks connectivity.
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

var _ exchange.Cache = (*RedisCache)(nil)

// Close closes the underlying client.
func (r *RedisCache) Close() error {
	return r.client.Close()
}
