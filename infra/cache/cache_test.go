package cache_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/amirasaad/fxengine/infra/cache"
	"github.com/amirasaad/fxengine/pkg/money"
	"github.com/amirasaad/fxengine/pkg/provider"
	"github.com/amirasaad/fxengine/pkg/provider/exchange"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func quote(from, to money.Code, rate string, ttl time.Duration) *provider.RateQuote {
	return &provider.RateQuote{
		From:       from,
		To:         to,
		Rate:       decimal.RequireFromString(rate),
		SourceID:   "primary",
		ObservedAt: time.Now().UTC().Truncate(time.Millisecond),
		TTL:        ttl,
	}
}

func newRedisCache(t *testing.T) (*cache.RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return cache.NewRedisCacheWithClient(client, "test:", testLogger()), mr
}

func TestCaches_Contract(t *testing.T) {
	lruCache, err := cache.NewLRUCache(16, testLogger())
	require.NoError(t, err)
	redisCache, _ := newRedisCache(t)

	for name, c := range map[string]exchange.Cache{"lru": lruCache, "redis": redisCache} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			pair := provider.NewPair("USD", "EUR")

			got, err := c.Get(ctx, pair)
			require.NoError(t, err)
			assert.Nil(t, got)

			q := quote(money.USD, money.EUR, "0.85", time.Minute)
			require.NoError(t, c.Set(ctx, q))

			got, err = c.Get(ctx, pair)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.True(t, got.Rate.Equal(q.Rate))
			assert.Equal(t, "primary", got.SourceID)
			assert.Equal(t, time.Minute, got.TTL)
			assert.True(t, got.ObservedAt.Equal(q.ObservedAt))

			inv := q.Inverse()
			require.NoError(t, c.Set(ctx, inv))
			got, err = c.Get(ctx, pair.Reverse())
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.True(t, got.Derived)

			require.NoError(t, c.Clear(ctx))
			got, err = c.Get(ctx, pair)
			require.NoError(t, err)
			assert.Nil(t, got)
		})
	}
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c, err := cache.NewLRUCache(2, testLogger())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, quote(money.USD, money.EUR, "0.85", time.Minute)))
	require.NoError(t, c.Set(ctx, quote(money.USD, money.JPY, "150", time.Minute)))
	_, _ = c.Get(ctx, provider.NewPair("USD", "EUR"))
	require.NoError(t, c.Set(ctx, quote(money.USD, money.GBP, "0.79", time.Minute)))

	assert.Equal(t, 2, c.Len())
	got, _ := c.Get(ctx, provider.NewPair("USD", "JPY"))
	assert.Nil(t, got)
	got, _ = c.Get(ctx, provider.NewPair("USD", "EUR"))
	assert.NotNil(t, got)
}

func TestRedisCache_ExpiresWithQuote(t *testing.T) {
	c, mr := newRedisCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, quote(money.USD, money.EUR, "0.85", time.Minute)))
	assert.True(t, mr.Exists("test:fx:rate:USD:EUR"))
	assert.InDelta(t, time.Minute.Seconds(), mr.TTL("test:fx:rate:USD:EUR").Seconds(), 2)

	mr.FastForward(2 * time.Minute)
	got, err := c.Get(ctx, provider.NewPair("USD", "EUR"))
	require.NoError(t, err)
	assert.Nil(t, got)

	expired := quote(money.USD, money.GBP, "0.79", time.Minute)
	expired.ObservedAt = time.Now().Add(-time.Hour)
	require.NoError(t, c.Set(ctx, expired))
	assert.False(t, mr.Exists("test:fx:rate:USD:GBP"))
}

func TestRedisCache_Errors(t *testing.T) {
	c, mr := newRedisCache(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("test:fx:rate:USD:EUR", "{not json"))
	_, err := c.Get(ctx, provider.NewPair("USD", "EUR"))
	assert.Error(t, err)

	require.NoError(t, c.Ping(ctx))

	down, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: down.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	down.Close()

	broken := cache.NewRedisCacheWithClient(client, "test:", testLogger())
	_, err = broken.Get(ctx, provider.NewPair("USD", "EUR"))
	assert.Error(t, err)
	assert.Error(t, broken.Set(ctx, quote(money.USD, money.EUR, "0.85", time.Minute)))
	assert.Error(t, broken.Ping(ctx))
}
