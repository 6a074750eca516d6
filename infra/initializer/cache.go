package initializer

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/amirasaad/fxengine/infra/cache"
	"github.com/amirasaad/fxengine/pkg/config"
	"github.com/amirasaad/fxengine/pkg/domain"
	"github.com/amirasaad/fxengine/pkg/provider/exchange"
	"github.com/redis/go-redis/v9"
)

// initCache builds the rate cache. The returned closer is nil for the LRU
// cache. An unreachable Redis falls back to the LRU cache.
func initCache(cfg *config.App, logger *slog.Logger) (exchange.Cache, io.Closer, error) {
	lru := func() (exchange.Cache, io.Closer, error) {
		c, err := cache.NewLRUCache(cfg.Exchange.CacheSize, logger)
		if err != nil {
			return nil, nil, domain.Wrap(domain.KindInvalidConfig, err, "lru cache")
		}
		return c, nil, nil
	}
	if cfg.Exchange.CacheDriver != config.CacheRedis {
		return lru()
	}

	opt, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, nil, domain.Wrap(domain.KindInvalidConfig, err, "redis url")
	}
	if cfg.Redis.PoolSize > 0 {
		opt.PoolSize = cfg.Redis.PoolSize
	}
	opt.DialTimeout = cfg.Redis.DialTimeout
	opt.ReadTimeout = cfg.Redis.ReadTimeout
	opt.WriteTimeout = cfg.Redis.WriteTimeout

	rc := cache.NewRedisCache(opt, cfg.Redis.KeyPrefix, logger)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx); err != nil {
		_ = rc.Close()
		logger.Warn("Redis rate cache unavailable, falling back to LRU", "error", err)
		return lru()
	}
	logger.Info("Using Redis rate cache", "redis_url", opt.Addr, "key_prefix", cfg.Redis.KeyPrefix)
	return rc, rc, nil
}
