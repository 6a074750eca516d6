// Package testutils builds a fully wired HTTP app on the embedded tables and
// the static rate source for handler tests.
package testutils

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/amirasaad/fxengine/infra/cache"
	infraeventbus "github.com/amirasaad/fxengine/infra/eventbus"
	infraprovider "github.com/amirasaad/fxengine/infra/provider"
	"github.com/amirasaad/fxengine/pkg/app"
	"github.com/amirasaad/fxengine/pkg/config"
	"github.com/amirasaad/fxengine/pkg/metrics"
	"github.com/amirasaad/fxengine/pkg/money"
	"github.com/amirasaad/fxengine/pkg/provider"
	"github.com/amirasaad/fxengine/pkg/provider/exchange"
	"github.com/amirasaad/fxengine/webapi"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// TestJWTSecret signs admin tokens in handler tests.
const TestJWTSecret = "test-secret"

// Config returns an application config with the embedded tables, a zero
// rate limit and the admin routes enabled.
func Config() *config.App {
	return &config.App{
		Exchange: &config.Exchange{
			Base:                 "USD",
			ArbitrageThreshold:   decimal.NewFromInt(1),
			ArbitragePairs:       []string{"USD:EUR", "USD:GBP"},
			ArbitrageConcurrency: 2,
			CheckoutConcurrency:  2,
		},
		Fee:       &config.Fee{Rate: decimal.RequireFromString("0.001"), Mode: "deduct"},
		Rounding:  &config.Rounding{Mode: "half_up"},
		Format:    &config.Format{DefaultLocale: "en-US"},
		Fixtures:  &config.Fixtures{},
		Auth:      &config.Auth{Jwt: &config.Jwt{Secret: TestJWTSecret, Expiry: time.Hour}},
		RateLimit: &config.RateLimit{},
	}
}

// Server is a wired app plus the in-memory bus it publishes to.
type Server struct {
	t     testing.TB
	App   *app.App
	Fiber *fiber.App
	Bus   *infraeventbus.MemoryEventBus
}

// Option adjusts the server before it is built.
type Option func(*options)

type options struct {
	cfg     *config.App
	sources []provider.RateSource
}

// WithConfig replaces the default config.
func WithConfig(cfg *config.App) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithSources replaces the static source chain.
func WithSources(sources ...provider.RateSource) Option {
	return func(o *options) { o.sources = sources }
}

// NewServer builds the app the way the server does, minus external
// connections.
func NewServer(t testing.TB, opts ...Option) *Server {
	t.Helper()
	o := &options{cfg: Config()}
	for _, opt := range opts {
		opt(o)
	}
	logger := slog.New(slog.DiscardHandler)

	tables, err := app.LoadTables(o.cfg.Fixtures)
	require.NoError(t, err)
	deps, err := app.BuildRegistries(tables, logger)
	require.NoError(t, err)

	if o.sources == nil {
		static, err := infraprovider.NewStaticSource("", infraprovider.DefaultStaticRates, time.Hour)
		require.NoError(t, err)
		o.sources = []provider.RateSource{static}
	}
	chain := make([]exchange.SourceConfig, 0, len(o.sources))
	for _, src := range o.sources {
		chain = append(chain, exchange.SourceConfig{Source: src, Timeout: time.Second})
	}
	lru, err := cache.NewLRUCache(64, logger)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	bus := infraeventbus.NewWithMemory(logger)
	deps.Rates, err = exchange.New(
		exchange.Config{Base: money.USD, Sources: chain},
		lru,
		exchange.WithLogger(logger),
		exchange.WithRecorder(m),
		exchange.WithEmitter(bus),
	)
	require.NoError(t, err)
	deps.EventBus = bus
	deps.Metrics = m
	deps.Gatherer = reg
	deps.Logger = logger

	a, err := app.New(deps, o.cfg)
	require.NoError(t, err)
	return &Server{t: t, App: a, Fiber: webapi.SetupApp(a), Bus: bus}
}

// MakeRequest is a helper for making HTTP requests in tests
func (s *Server) MakeRequest(method, path, body, token string) *http.Response {
	s.t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.Fiber.Test(req, -1)
	require.NoError(s.t, err)
	s.t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

// Decode reads a JSON body into a generic map.
func Decode(t testing.TB, resp *http.Response) map[string]any {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return out
}
