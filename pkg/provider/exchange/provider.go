// Package exchange resolves exchange-rate quotes from an ordered chain of
// sources, with caching, request coalescing and triangulation through a base
// currency.
package exchange

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/amirasaad/fxengine/pkg/domain"
	"github.com/amirasaad/fxengine/pkg/eventbus"
	"github.com/amirasaad/fxengine/pkg/money"
	"github.com/amirasaad/fxengine/pkg/provider"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	// IdentitySource is the source ID of same-currency quotes.
	IdentitySource = "identity"

	DefaultTimeout       = 5 * time.Second
	DefaultMaxConcurrent = 10
	DefaultTTL           = 15 * time.Minute
	identityTTL          = 24 * time.Hour
)

// SourceConfig configures one source in the chain.
type SourceConfig struct {
	Source        provider.RateSource
	Timeout       time.Duration
	MaxConcurrent int64
}

// Config configures a Provider. Sources are tried in order.
type Config struct {
	Base             money.Code
	Sources          []SourceConfig
	DefaultTTL       time.Duration
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

// Recorder receives cache and source metrics.
type Recorder interface {
	CacheHit()
	CacheMiss()
	SourceAttempt(source string, ok bool, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) CacheHit()                                 {}
func (nopRecorder) CacheMiss()                                {}
func (nopRecorder) SourceAttempt(string, bool, time.Duration) {}

// Option configures optional collaborators.
type Option func(*Provider)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(p *Provider) {
		if r != nil {
			p.recorder = r
		}
	}
}

// WithEmitter sets where refreshed quotes are published.
func WithEmitter(e eventbus.Emitter) Option {
	return func(p *Provider) {
		if e != nil {
			p.emitter = e
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) {
		if now != nil {
			p.now = now
		}
	}
}

// Provider resolves quotes for currency pairs.
type Provider struct {
	base       money.Code
	sources    []*sourceState
	defaultTTL time.Duration
	threshold  int
	cooldown   time.Duration

	cache    Cache
	group    singleflight.Group
	recorder Recorder
	emitter  eventbus.Emitter
	logger   *slog.Logger
	now      func() time.Time
}

// New builds a Provider over cache.
func New(cfg Config, cache Cache, opts ...Option) (*Provider, error) {
	if cache == nil {
		return nil, domain.Errorf(domain.KindInvalidConfig, "exchange provider: cache is required")
	}
	base := money.ParseCode(string(cfg.Base))
	if base == "" {
		base = money.USD
	}
	if !base.IsValid() {
		return nil, domain.Errorf(domain.KindInvalidConfig, "exchange provider: invalid base currency %q", cfg.Base)
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = DefaultTTL
	}

	p := &Provider{
		base:       base,
		defaultTTL: cfg.DefaultTTL,
		threshold:  cfg.BreakerThreshold,
		cooldown:   cfg.BreakerCooldown,
		cache:      cache,
		recorder:   nopRecorder{},
		emitter:    eventbus.Nop{},
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "exchange_provider")

	for i, sc := range cfg.Sources {
		if sc.Source == nil {
			return nil, domain.Errorf(domain.KindInvalidConfig, "exchange provider: source %d is nil", i)
		}
		if sc.Timeout <= 0 {
			sc.Timeout = DefaultTimeout
		}
		if sc.MaxConcurrent <= 0 {
			sc.MaxConcurrent = DefaultMaxConcurrent
		}
		p.sources = append(p.sources, newSourceState(sc))
	}
	return p, nil
}

// Base returns the triangulation base currency.
func (p *Provider) Base() money.Code { return p.base }

// Sources returns the configured sources in priority order.
func (p *Provider) Sources() []provider.RateSource {
	out := make([]provider.RateSource, 0, len(p.sources))
	for _, s := range p.sources {
		out = append(out, s.source())
	}
	return out
}

// GetRate returns a valid quote for from→to. Cached quotes are served while
// fresh, including inverses derived from the reverse pair.
func (p *Provider) GetRate(ctx context.Context, from, to money.Code) (*provider.RateQuote, error) {
	return p.get(ctx, provider.Pair{From: from, To: to}, true)
}

// GetObservedRate is GetRate without cached inverses: a quote derived from
// the reverse pair is never returned, the pair is fetched instead.
func (p *Provider) GetObservedRate(ctx context.Context, from, to money.Code) (*provider.RateQuote, error) {
	return p.get(ctx, provider.Pair{From: from, To: to}, false)
}

// ClearCache drops every cached quote.
func (p *Provider) ClearCache(ctx context.Context) error {
	return p.cache.Clear(ctx)
}

func (p *Provider) get(ctx context.Context, pair provider.Pair, allowInverse bool) (*provider.RateQuote, error) {
	if pair.IsIdentity() {
		return &provider.RateQuote{
			From:       pair.From,
			To:         pair.To,
			Rate:       decimal.NewFromInt(1),
			SourceID:   IdentitySource,
			ObservedAt: p.now(),
			TTL:        identityTTL,
		}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, unavailable(pair, err)
	}

	if q := p.cached(ctx, pair, allowInverse); q != nil {
		p.recorder.CacheHit()
		return q, nil
	}
	p.recorder.CacheMiss()

	return p.shared(ctx, pair)
}

// shared coalesces concurrent resolutions of the same pair into one upstream
// call. The call runs detached from the caller that started it, bounded by
// fetchBudget. Each caller waits under its own context.
func (p *Provider) shared(ctx context.Context, pair provider.Pair) (*provider.RateQuote, error) {
	ch := p.group.DoChan(pair.String(), func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.fetchBudget())
		defer cancel()
		return p.resolve(fctx, pair)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*provider.RateQuote), nil
	case <-ctx.Done():
		return nil, unavailable(pair, ctx.Err())
	}
}

// fetchBudget bounds one shared resolution: the direct chain plus the
// triangulation legs, which run concurrently.
func (p *Provider) fetchBudget() time.Duration {
	var total time.Duration
	for _, s := range p.sources {
		total += s.cfg.Timeout
	}
	if total <= 0 {
		return DefaultTimeout
	}
	return 2 * total
}

func (p *Provider) resolve(ctx context.Context, pair provider.Pair) (*provider.RateQuote, error) {
	logger := p.logger.With("pair", pair.String())

	q, directErr := p.fetchDirect(ctx, pair, logger)
	if directErr == nil {
		p.store(ctx, q, logger)
		p.publish(ctx, q, logger)
		return q, nil
	}
	if ctx.Err() != nil {
		return nil, unavailable(pair, ctx.Err())
	}

	if pair.From == p.base || pair.To == p.base {
		return nil, unavailable(pair, directErr)
	}
	q, err := p.triangulate(ctx, pair)
	if err != nil {
		logger.Warn("triangulation failed", "via", p.base, "error", err)
		return nil, unavailable(pair, errors.Join(directErr, err))
	}
	p.store(ctx, q, logger)
	logger.Info("rate triangulated", "via", p.base, "rate", q.Rate.String(), "source", q.SourceID)
	return q, nil
}

// fetchDirect walks the source chain in order and returns the first valid
// quote. A done context aborts the remaining chain.
func (p *Provider) fetchDirect(ctx context.Context, pair provider.Pair, logger *slog.Logger) (*provider.RateQuote, error) {
	if len(p.sources) == 0 {
		return nil, provider.ErrProviderUnavailable
	}
	var errs []error
	for _, s := range p.sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		log := logger.With("provider", s.name())
		if !s.allow(p.now()) {
			log.Debug("source skipped, breaker open")
			errs = append(errs, fmt.Errorf("%s: %w", s.name(), provider.ErrProviderUnavailable))
			continue
		}

		q, err := p.attempt(ctx, s, pair)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.name(), err))
			if ctx.Err() != nil {
				return nil, errors.Join(errs...)
			}
			log.Warn("source failed", "error", err)
			if s.failure(p.now(), p.threshold, p.cooldown) {
				log.Warn("source breaker opened", "cooldown", p.cooldown)
			}
			continue
		}
		s.success()
		log.Debug("rate fetched", "rate", q.Rate.String())
		return q, nil
	}
	return nil, errors.Join(errs...)
}

type fetchResult struct {
	q   *provider.RateQuote
	err error
}

// attempt runs one bounded, time-limited fetch. Sources that ignore their
// context are abandoned once the timeout fires.
func (p *Provider) attempt(ctx context.Context, s *sourceState, pair provider.Pair) (*provider.RateQuote, error) {
	actx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	if err := s.sem.Acquire(actx, 1); err != nil {
		return nil, fmt.Errorf("waiting for slot: %w", err)
	}

	start := p.now()
	done := make(chan fetchResult, 1)
	go func() {
		defer s.sem.Release(1)
		q, err := s.source().Fetch(actx, pair)
		done <- fetchResult{q: q, err: err}
	}()

	var res fetchResult
	select {
	case res = <-done:
	case <-actx.Done():
		res.err = actx.Err()
	}
	if res.err == nil {
		res.err = p.normalize(res.q, s.name(), pair)
	}
	p.recorder.SourceAttempt(s.name(), res.err == nil, p.now().Sub(start))
	if res.err != nil {
		return nil, res.err
	}
	return res.q, nil
}

// normalize fills defaults on a fetched quote and validates it.
func (p *Provider) normalize(q *provider.RateQuote, source string, pair provider.Pair) error {
	if q == nil {
		return provider.ErrInvalidRate
	}
	if q.SourceID == "" {
		q.SourceID = source
	}
	if q.ObservedAt.IsZero() {
		q.ObservedAt = p.now()
	}
	if q.TTL <= 0 {
		q.TTL = p.defaultTTL
	}
	q.Derived = false
	q.Via = ""
	return q.Validate(pair)
}

// triangulate computes from→to as rate(from,base) / rate(to,base). Each leg
// is resolved from cache or directly; legs are never triangulated themselves.
func (p *Provider) triangulate(ctx context.Context, pair provider.Pair) (*provider.RateQuote, error) {
	var legA, legB *provider.RateQuote
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		legA, err = p.get(gctx, provider.Pair{From: pair.From, To: p.base}, true)
		return err
	})
	g.Go(func() error {
		var err error
		legB, err = p.get(gctx, provider.Pair{From: pair.To, To: p.base}, true)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	observed := legA.ObservedAt
	if legB.ObservedAt.Before(observed) {
		observed = legB.ObservedAt
	}
	ttl := min(legA.TTL, legB.TTL)

	return &provider.RateQuote{
		From:       pair.From,
		To:         pair.To,
		Rate:       legA.Rate.Div(legB.Rate),
		SourceID:   fmt.Sprintf("triangulated(%s,%s)", legA.SourceID, legB.SourceID),
		ObservedAt: observed,
		TTL:        ttl,
		Derived:    true,
		Via:        p.base,
	}, nil
}

// cached returns a fresh cached quote for pair. With allowInverse unset a
// quote derived from the reverse pair is treated as a miss; triangulated
// quotes are still returned.
func (p *Provider) cached(ctx context.Context, pair provider.Pair, allowInverse bool) *provider.RateQuote {
	q, err := p.cache.Get(ctx, pair)
	if err != nil {
		p.logger.Warn("cache read failed", "pair", pair.String(), "error", err)
		return nil
	}
	if !q.ValidAt(p.now()) {
		return nil
	}
	if !allowInverse && q.Derived && q.Via == "" {
		return nil
	}
	return q
}

// store caches q and its derived inverse. The inverse never replaces a
// directly observed reverse quote that is still fresh.
func (p *Provider) store(ctx context.Context, q *provider.RateQuote, logger *slog.Logger) {
	if err := p.cache.Set(ctx, q); err != nil {
		logger.Warn("cache write failed", "error", err)
		return
	}
	reverse := q.Pair().Reverse()
	if existing, err := p.cache.Get(ctx, reverse); err == nil && existing.ValidAt(p.now()) && !existing.Derived {
		return
	}
	if err := p.cache.Set(ctx, q.Inverse()); err != nil {
		logger.Warn("cache write failed", "pair", reverse.String(), "error", err)
	}
}

func (p *Provider) publish(ctx context.Context, q *provider.RateQuote, logger *slog.Logger) {
	evt := &eventbus.RateQuoteRefreshed{
		Meta:       eventbus.NewMeta(),
		From:       q.From.String(),
		To:         q.To.String(),
		Rate:       q.Rate,
		SourceID:   q.SourceID,
		ObservedAt: q.ObservedAt,
		TTL:        q.TTL,
	}
	if err := p.emitter.Emit(ctx, evt); err != nil {
		logger.Warn("failed to publish quote event", "error", err)
	}
}

func unavailable(pair provider.Pair, cause error) error {
	return domain.Wrap(domain.KindRateUnavailable, cause, "no exchange rate for %s", pair)
}
