package exchange

import (
	"context"

	"github.com/amirasaad/fxengine/pkg/provider"
)

// Cache stores quotes keyed by pair. Get returns (nil, nil) on a miss.
// Implementations may keep expired quotes; the provider checks validity itself.
type Cache interface {
	Get(ctx context.Context, p provider.Pair) (*provider.RateQuote, error)
	Set(ctx context.Context, q *provider.RateQuote) error
	Clear(ctx context.Context) error
}

// CacheKey generates a consistent cache key for a currency pair
func CacheKey(p provider.Pair) string {
	return "fx:rate:" + p.String()
}
