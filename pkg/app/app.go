// Package app wires the registries, the rate provider and the services into
// a single facade used by the HTTP API and the CLI.
package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/amirasaad/fxengine/pkg/config"
	"github.com/amirasaad/fxengine/pkg/currency"
	"github.com/amirasaad/fxengine/pkg/eventbus"
	"github.com/amirasaad/fxengine/pkg/locale"
	"github.com/amirasaad/fxengine/pkg/metrics"
	"github.com/amirasaad/fxengine/pkg/money"
	"github.com/amirasaad/fxengine/pkg/provider"
	"github.com/amirasaad/fxengine/pkg/provider/exchange"
	"github.com/amirasaad/fxengine/pkg/region"
	"github.com/amirasaad/fxengine/pkg/service/arbitrage"
	"github.com/amirasaad/fxengine/pkg/service/checkout"
	"github.com/amirasaad/fxengine/pkg/service/conversion"
	"github.com/amirasaad/fxengine/pkg/service/format"
	taxsvc "github.com/amirasaad/fxengine/pkg/service/tax"
	"github.com/amirasaad/fxengine/pkg/tax"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// Deps contains the infrastructure the services are built on.
type Deps struct {
	Currencies *currency.Registry
	Locales    *locale.Registry
	TaxRules   *tax.Store
	Regions    *region.Table
	Rates      *exchange.Provider
	EventBus   eventbus.Bus
	Metrics    *metrics.Metrics
	Gatherer   prometheus.Gatherer
	Logger     *slog.Logger
	Closers    []io.Closer
}

// Close releases the event bus and cache connections.
func (d *Deps) Close() error {
	var errs []error
	for i := len(d.Closers) - 1; i >= 0; i-- {
		errs = append(errs, d.Closers[i].Close())
	}
	return errors.Join(errs...)
}

type App struct {
	Deps       *Deps
	Config     *config.App
	Conversion *conversion.Service
	Tax        *taxsvc.Calculator
	Formatter  *format.Formatter
	Checkout   *checkout.Selector
	Arbitrage  *arbitrage.Detector
}

func New(deps *Deps, cfg *config.App) (*App, error) {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Metrics == nil {
		reg := prometheus.NewRegistry()
		deps.Metrics = metrics.New(reg)
		deps.Gatherer = reg
	}
	if deps.EventBus == nil {
		deps.EventBus = eventbus.Nop{}
	}
	rounding, err := money.ParseRoundingMode(cfg.Rounding.Mode)
	if err != nil {
		return nil, err
	}
	feeMode, err := conversion.ParseFeeMode(cfg.Fee.Mode)
	if err != nil {
		return nil, err
	}

	a := &App{Deps: deps, Config: cfg}
	a.setupEventBus()

	a.Conversion, err = conversion.New(
		deps.Currencies,
		deps.Rates,
		conversion.Config{FeeRate: cfg.Fee.Rate, FeeMode: feeMode, Rounding: rounding},
		deps.Metrics,
		deps.Logger,
	)
	if err != nil {
		return nil, err
	}
	a.Tax = taxsvc.New(deps.TaxRules, deps.Currencies, rounding, deps.Metrics, deps.Logger)
	a.Formatter = format.New(deps.Currencies, deps.Locales, deps.Logger)
	a.Checkout = checkout.New(
		deps.Currencies,
		deps.Regions,
		a.Conversion,
		a.Formatter,
		rounding,
		cfg.Exchange.CheckoutConcurrency,
		deps.Logger,
	)
	a.Arbitrage = arbitrage.New(
		deps.Rates,
		arbitrage.Config{
			Threshold:    cfg.Exchange.ArbitrageThreshold,
			DefaultPairs: cfg.Exchange.ArbitragePairs,
			Concurrency:  cfg.Exchange.ArbitrageConcurrency,
		},
		deps.Metrics,
		deps.EventBus,
		deps.Logger,
	)
	return a, nil
}

// ConvertCurrency converts amount from one currency to another. Options
// override the configured fee and rounding for this call.
func (a *App) ConvertCurrency(
	ctx context.Context,
	amount decimal.Decimal,
	from, to string,
	opts ...conversion.Option,
) (*conversion.Result, error) {
	return a.Conversion.Convert(ctx, amount, from, to, opts...)
}

// FormatPrice renders amount for display. An empty locale uses the
// configured default.
func (a *App) FormatPrice(amount decimal.Decimal, currencyCode, localeCode string) (*format.Price, error) {
	if localeCode == "" {
		localeCode = a.Config.Format.DefaultLocale
	}
	return a.Formatter.FormatPrice(amount, currencyCode, localeCode)
}

func (a *App) CalculateTax(
	ctx context.Context,
	amount decimal.Decimal,
	currencyCode, jurisdiction, productType string,
) (*taxsvc.Result, error) {
	return a.Tax.Calculate(ctx, amount, currencyCode, jurisdiction, productType)
}

func (a *App) GetCheckoutOptions(
	ctx context.Context,
	baseAmount decimal.Decimal,
	baseCurrency, regionCode string,
) (*checkout.Options, error) {
	return a.Checkout.BuildOptions(ctx, baseAmount, baseCurrency, regionCode)
}

// RecommendCurrency returns the preferred checkout currency of a region.
func (a *App) RecommendCurrency(regionCode string) money.Code {
	return a.Checkout.Recommend(regionCode)
}

func (a *App) DetectArbitrage(ctx context.Context, pairs []string) (*arbitrage.Report, error) {
	return a.Arbitrage.Scan(ctx, pairs)
}

func (a *App) GetMetricsSnapshot() metrics.Snapshot {
	return a.Deps.Metrics.Snapshot()
}

// Health reports the state of every rate source and the size of the loaded
// tables.
type Health struct {
	Status     string            `json:"status"`
	Sources    map[string]string `json:"sources"`
	Currencies int               `json:"currencies"`
	Locales    int               `json:"locales"`
	TaxRules   int               `json:"tax_rules"`
	CheckedAt  time.Time         `json:"checked_at"`
}

// Health probes the rate sources. The engine is "ok" while at least one
// source answers and "degraded" otherwise.
func (a *App) Health(ctx context.Context) Health {
	results := provider.HealthCheckAll(ctx, a.Deps.Rates.Sources())
	h := Health{
		Status:     "degraded",
		Sources:    make(map[string]string, len(results)),
		Currencies: a.Deps.Currencies.Count(),
		Locales:    len(a.Deps.Locales.Codes()),
		TaxRules:   len(a.Deps.TaxRules.Rules()),
		CheckedAt:  time.Now().UTC(),
	}
	for name, err := range results {
		if err != nil {
			h.Sources[name] = err.Error()
			continue
		}
		h.Sources[name] = "ok"
		h.Status = "ok"
	}
	return h
}
