package app

import (
	"context"
	"log/slog"

	currencyfixtures "github.com/amirasaad/fxengine/internal/fixtures/currency"
	localefixtures "github.com/amirasaad/fxengine/internal/fixtures/locale"
	regionfixtures "github.com/amirasaad/fxengine/internal/fixtures/region"
	taxfixtures "github.com/amirasaad/fxengine/internal/fixtures/tax"
	"github.com/amirasaad/fxengine/pkg/config"
	"github.com/amirasaad/fxengine/pkg/currency"
	"github.com/amirasaad/fxengine/pkg/domain"
	"github.com/amirasaad/fxengine/pkg/locale"
	"github.com/amirasaad/fxengine/pkg/region"
	"github.com/amirasaad/fxengine/pkg/tax"
)

// Tables holds the raw static tables read from the fixtures.
type Tables struct {
	Currencies  []currency.Currency
	Locales     []locale.Entry
	Conventions []locale.Convention
	TaxRules    []tax.Rule
	Regions     region.Config
}

// LoadTables reads every static table. Empty paths use the embedded copies.
func LoadTables(f *config.Fixtures) (*Tables, error) {
	if f == nil {
		f = &config.Fixtures{}
	}
	var (
		t   Tables
		err error
	)
	if t.Currencies, err = currencyfixtures.LoadCurrencyMetaCSV(f.Currencies); err != nil {
		return nil, domain.Wrap(domain.KindInvalidConfig, err, "load currencies")
	}
	if t.Locales, t.Conventions, err = localefixtures.Load(f.Locales, f.Conventions); err != nil {
		return nil, domain.Wrap(domain.KindInvalidConfig, err, "load locales")
	}
	if t.TaxRules, err = taxfixtures.LoadRulesCSV(f.TaxRules); err != nil {
		return nil, domain.Wrap(domain.KindInvalidConfig, err, "load tax rules")
	}
	if t.Regions, err = regionfixtures.LoadRegionsJSON(f.Regions); err != nil {
		return nil, domain.Wrap(domain.KindInvalidConfig, err, "load regions")
	}
	return &t, nil
}

// BuildRegistries validates t and builds the registries.
func BuildRegistries(t *Tables, logger *slog.Logger) (*Deps, error) {
	currencies, err := currency.NewRegistry(t.Currencies, logger)
	if err != nil {
		return nil, err
	}
	locales, err := locale.NewRegistry(t.Locales, t.Conventions, logger)
	if err != nil {
		return nil, err
	}
	rules, err := tax.NewStore(t.TaxRules, logger)
	if err != nil {
		return nil, err
	}
	regions, err := region.NewTable(t.Regions, logger)
	if err != nil {
		return nil, err
	}
	return &Deps{
		Currencies: currencies,
		Locales:    locales,
		TaxRules:   rules,
		Regions:    regions,
		Logger:     logger,
	}, nil
}

// Reload re-reads the static tables and swaps them in. Every table is
// validated before any is replaced, so a bad file leaves all tables as they
// were.
func (a *App) Reload(ctx context.Context) error {
	logger := a.Deps.Logger.With("operation", "reload")
	t, err := LoadTables(a.Config.Fixtures)
	if err != nil {
		logger.Error("reload failed", "error", err)
		return err
	}
	if _, err := BuildRegistries(t, slog.New(slog.DiscardHandler)); err != nil {
		logger.Error("reload rejected", "error", err)
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := a.Deps.Currencies.Replace(t.Currencies); err != nil {
		return err
	}
	if err := a.Deps.Locales.Replace(t.Locales, t.Conventions); err != nil {
		return err
	}
	if err := a.Deps.TaxRules.Replace(t.TaxRules); err != nil {
		return err
	}
	if err := a.Deps.Regions.Replace(t.Regions); err != nil {
		return err
	}
	logger.Info("static tables reloaded",
		"currencies", len(t.Currencies),
		"locales", len(t.Locales),
		"tax_rules", len(t.TaxRules),
		"regions", len(t.Regions.Regions))
	return nil
}
