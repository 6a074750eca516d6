package initializer

import (
	"fmt"
	"io"
	"os"

	"github.com/amirasaad/fxengine/pkg/app"
	"github.com/amirasaad/fxengine/pkg/config"
	"github.com/amirasaad/fxengine/pkg/metrics"
	"github.com/amirasaad/fxengine/pkg/money"
	"github.com/amirasaad/fxengine/pkg/provider/exchange"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// InitializeDependencies initializes all the application dependencies. Logs
// go to stderr.
func InitializeDependencies(cfg *config.App) (*app.Deps, error) {
	return initialize(cfg, os.Stderr)
}

func initialize(cfg *config.App, logOut io.Writer) (deps *app.Deps, err error) {
	logger := setupLogger(cfg.Log, logOut)

	tables, err := app.LoadTables(cfg.Fixtures)
	if err != nil {
		return nil, fmt.Errorf("failed to load static tables: %w", err)
	}
	deps, err = app.BuildRegistries(tables, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build registries: %w", err)
	}
	defer func() {
		if err != nil {
			_ = deps.Close()
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	deps.Metrics = metrics.New(reg)
	deps.Gatherer = reg

	bus, err := initEventBus(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize event bus: %w", err)
	}
	deps.EventBus = bus
	if c, ok := bus.(io.Closer); ok {
		deps.Closers = append(deps.Closers, c)
	}

	rateCache, closer, err := initCache(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize rate cache: %w", err)
	}
	if closer != nil {
		deps.Closers = append(deps.Closers, closer)
	}

	sources, err := initSources(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize rate sources: %w", err)
	}
	deps.Rates, err = exchange.New(
		exchange.Config{
			Base:             money.ParseCode(cfg.Exchange.Base),
			Sources:          sources,
			DefaultTTL:       cfg.Exchange.CacheTTL,
			BreakerThreshold: cfg.Exchange.BreakerThreshold,
			BreakerCooldown:  cfg.Exchange.BreakerCooldown,
		},
		rateCache,
		exchange.WithLogger(logger),
		exchange.WithRecorder(deps.Metrics),
		exchange.WithEmitter(bus),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create exchange rate provider: %w", err)
	}

	logger.Info("Dependencies initialized",
		"currencies", deps.Currencies.Count(),
		"sources", len(sources),
		"cache", cfg.Exchange.CacheDriver,
		"event_bus", fmt.Sprintf("%T", bus))
	return deps, nil
}
