// Package metrics records engine counters as Prometheus collectors and keeps
// an in-process snapshot of the same numbers for the JSON metrics endpoint.
package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "fxengine"

// Snapshot is a point-in-time view of the engine counters.
type Snapshot struct {
	ConversionCount            int64              `json:"conversion_count"`
	CacheHitRate               float64            `json:"cache_hit_rate"`
	PerSourceSuccessRate       map[string]float64 `json:"per_source_success_rate"`
	OpenArbitrageOpportunities int64              `json:"open_arbitrage_opportunities"`
}

type sourceCounts struct {
	attempts  int64
	successes int64
}

// Metrics holds the collectors. Safe for concurrent use.
type Metrics struct {
	conversionsTotal *prometheus.CounterVec
	cacheLookups     *prometheus.CounterVec
	sourceAttempts   *prometheus.CounterVec
	sourceDuration   *prometheus.HistogramVec
	arbitrageOpen    prometheus.Gauge
	arbitrageScans   prometheus.Counter
	taxCalculations  *prometheus.CounterVec

	conversions atomic.Int64
	hits        atomic.Int64
	misses      atomic.Int64
	open        atomic.Int64

	mu      sync.Mutex
	sources map[string]*sourceCounts
}

// New registers the collectors on reg. A nil reg uses a private registry, which
// keeps repeated construction in tests from colliding.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &Metrics{
		conversionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "conversions_total",
				Help:      "Completed currency conversions",
			},
			[]string{"from", "to"},
		),
		cacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_cache_lookups_total",
				Help:      "Rate cache lookups by result",
			},
			[]string{"result"},
		),
		sourceAttempts: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_source_attempts_total",
				Help:      "Upstream rate source attempts by outcome",
			},
			[]string{"source", "outcome"},
		),
		sourceDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "rate_source_duration_seconds",
				Help:      "Upstream rate source latency",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms .. ~10s
			},
			[]string{"source"},
		),
		arbitrageOpen: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "arbitrage_open_opportunities",
				Help:      "High-risk opportunities found by the latest arbitrage scan",
			},
		),
		arbitrageScans: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "arbitrage_scans_total",
				Help:      "Arbitrage scans performed",
			},
		),
		taxCalculations: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tax_calculations_total",
				Help:      "Tax calculations by jurisdiction",
			},
			[]string{"jurisdiction"},
		),
		sources: make(map[string]*sourceCounts),
	}
}

// CacheHit records a rate cache hit.
func (m *Metrics) CacheHit() {
	m.hits.Add(1)
	m.cacheLookups.WithLabelValues("hit").Inc()
}

// CacheMiss records a rate cache miss.
func (m *Metrics) CacheMiss() {
	m.misses.Add(1)
	m.cacheLookups.WithLabelValues("miss").Inc()
}

// SourceAttempt records one upstream fetch.
func (m *Metrics) SourceAttempt(source string, ok bool, elapsed time.Duration) {
	outcome := "failure"
	if ok {
		outcome = "success"
	}
	m.sourceAttempts.WithLabelValues(source, outcome).Inc()
	m.sourceDuration.WithLabelValues(source).Observe(elapsed.Seconds())

	m.mu.Lock()
	c, found := m.sources[source]
	if !found {
		c = &sourceCounts{}
		m.sources[source] = c
	}
	c.attempts++
	if ok {
		c.successes++
	}
	m.mu.Unlock()
}

// ConversionRecorded counts a completed conversion.
func (m *Metrics) ConversionRecorded(from, to string) {
	m.conversions.Add(1)
	m.conversionsTotal.WithLabelValues(from, to).Inc()
}

// TaxCalculated counts a completed tax calculation.
func (m *Metrics) TaxCalculated(jurisdiction string) {
	m.taxCalculations.WithLabelValues(jurisdiction).Inc()
}

// SetOpenArbitrageOpportunities sets the gauge to the high-risk count of the
// latest scan.
func (m *Metrics) SetOpenArbitrageOpportunities(n int) {
	m.open.Store(int64(n))
	m.arbitrageScans.Inc()
	m.arbitrageOpen.Set(float64(n))
}

// Snapshot returns the current counters. Rates are 0 when nothing was recorded.
func (m *Metrics) Snapshot() Snapshot {
	s := Snapshot{
		ConversionCount:            m.conversions.Load(),
		OpenArbitrageOpportunities: m.open.Load(),
		PerSourceSuccessRate:       make(map[string]float64),
	}
	hits, misses := m.hits.Load(), m.misses.Load()
	if total := hits + misses; total > 0 {
		s.CacheHitRate = float64(hits) / float64(total)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for name, c := range m.sources {
		if c.attempts > 0 {
			s.PerSourceSuccessRate[name] = float64(c.successes) / float64(c.attempts)
		}
	}
	return s
}

// SourceNames returns the sources seen so far, sorted.
func (m *Metrics) SourceNames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.sources))
	for name := range m.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
