package provider

import (
	"context"
	"sync"
)

// HealthCheckAll checks every source that implements HealthChecker
// concurrently. Sources without a health check are reported healthy.
func HealthCheckAll(ctx context.Context, sources []RateSource) map[string]error {
	results := make(map[string]error, len(sources))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, s := range sources {
		hc, ok := s.(HealthChecker)
		if !ok {
			mu.Lock()
			results[s.Name()] = nil
			mu.Unlock()
			continue
		}

		wg.Add(1)
		go func(name string, hc HealthChecker) {
			defer wg.Done()

			err := hc.CheckHealth(ctx)
			mu.Lock()
			results[name] = err
			mu.Unlock()
		}(s.Name(), hc)
	}

	wg.Wait()
	return results
}
