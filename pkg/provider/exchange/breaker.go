package exchange

import (
	"sync"
	"time"

	"github.com/amirasaad/fxengine/pkg/provider"
	"golang.org/x/sync/semaphore"
)

// sourceState is one configured source with its concurrency limit and
// consecutive-failure breaker.
type sourceState struct {
	cfg SourceConfig
	sem *semaphore.Weighted

	mu        sync.Mutex
	failures  int
	openUntil time.Time
}

func newSourceState(cfg SourceConfig) *sourceState {
	return &sourceState{cfg: cfg, sem: semaphore.NewWeighted(cfg.MaxConcurrent)}
}

func (s *sourceState) name() string { return s.cfg.Source.Name() }

func (s *sourceState) source() provider.RateSource { return s.cfg.Source }

// allow reports whether the breaker lets a call through at now.
func (s *sourceState) allow(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !now.Before(s.openUntil)
}

func (s *sourceState) success() {
	s.mu.Lock()
	s.failures = 0
	s.openUntil = time.Time{}
	s.mu.Unlock()
}

// failure records a failed attempt and reports whether the breaker opened.
func (s *sourceState) failure(now time.Time, threshold int, cooldown time.Duration) bool {
	if threshold <= 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures++
	if s.failures >= threshold {
		s.openUntil = now.Add(cooldown)
		s.failures = 0
		return true
	}
	return false
}
