package cache

import (
	"context"
	"log/slog"

	"github.com/amirasaad/fxengine/pkg/provider"
	"github.com/amirasaad/fxengine/pkg/provider/exchange"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultLRUSize bounds the in-memory cache when no size is configured.
const DefaultLRUSize = 4096

// LRUCache is a size-bounded in-memory quote cache. Least recently used
// pairs are evicted first; expired quotes are left for the provider to skip
// and are overwritten on refresh.
type LRUCache struct {
	entries *lru.Cache[string, provider.RateQuote]
	logger  *slog.Logger
}

// NewLRUCache creates an LRU cache holding at most size quotes.
func NewLRUCache(size int, logger *slog.Logger) (*LRUCache, error) {
	if size <= 0 {
		size = DefaultLRUSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &LRUCache{logger: logger.With("cache", "lru")}
	entries, err := lru.NewWithEvict(size, func(key string, _ provider.RateQuote) {
		c.logger.Debug("quote evicted", "key", key)
	})
	if err != nil {
		return nil, err
	}
	c.entries = entries
	return c, nil
}

// Get returns a copy of the cached quote, or nil on a miss.
func (c *LRUCache) Get(_ context.Context, p provider.Pair) (*provider.RateQuote, error) {
	q, ok := c.entries.Get(exchange.CacheKey(p))
	if !ok {
		return nil, nil
	}
	return &q, nil
}

// Set stores a copy of q.
func (c *LRUCache) Set(_ context.Context, q *provider.RateQuote) error {
	if q == nil {
		return nil
	}
	c.entries.Add(exchange.CacheKey(q.Pair()), *q)
	return nil
}

// Clear removes every entry.
func (c *LRUCache) Clear(context.Context) error {
	c.entries.Purge()
	return nil
}

// Len returns the number of cached quotes.
func (c *LRUCache) Len() int { return c.entries.Len() }

var _ exchange.Cache = (*LRUCache)(nil)
