package initializer

import (
	"log/slog"

	infra_provider "github.com/amirasaad/fxengine/infra/provider"
	"github.com/amirasaad/fxengine/pkg/config"
	"github.com/amirasaad/fxengine/pkg/domain"
	"github.com/amirasaad/fxengine/pkg/provider"
	"github.com/amirasaad/fxengine/pkg/provider/exchange"
)

// initSources builds the source chain in fallback order. HTTP sources without
// a URL and the exchangerate-api source without a key are left out.
func initSources(cfg *config.App, logger *slog.Logger) ([]exchange.SourceConfig, error) {
	var sources []provider.RateSource

	httpSource := func(name string, sc *config.HTTPSource) error {
		if sc == nil || sc.URL == "" {
			return nil
		}
		s, err := infra_provider.NewHTTPSource(infra_provider.HTTPSourceConfig{
			Name:      name,
			BaseURL:   sc.URL,
			AuthToken: sc.Token,
			Schema: infra_provider.ResponseSchema{
				Rate:       sc.RateField,
				ObservedAt: sc.ObservedAtField,
			},
			TTL: sc.TTL,
		}, logger)
		if err != nil {
			return domain.Wrap(domain.KindInvalidConfig, err, "source %s", name)
		}
		sources = append(sources, s)
		return nil
	}

	src := cfg.Sources
	if src == nil {
		src = &config.Sources{}
	}
	for _, hs := range []struct {
		name string
		cfg  *config.HTTPSource
	}{
		{"primary", src.Primary},
		{"secondary", src.Secondary},
		{"tertiary", src.Tertiary},
	} {
		if err := httpSource(hs.name, hs.cfg); err != nil {
			return nil, err
		}
	}
	if api := src.ExchangeRateApi; api != nil && api.ApiKey != "" {
		sources = append(sources, infra_provider.NewExchangeRateAPISource(api.ApiUrl, api.ApiKey, api.TTL, nil, logger))
	}
	if err := httpSource("crypto", src.Crypto); err != nil {
		return nil, err
	}
	if st := src.Static; st != nil && st.Enabled {
		rates := infra_provider.DefaultStaticRates
		if st.Rates != "" {
			parsed, err := infra_provider.ParseStaticRates(st.Rates)
			if err != nil {
				return nil, domain.Wrap(domain.KindInvalidConfig, err, "static rates")
			}
			rates = parsed
		}
		s, err := infra_provider.NewStaticSource("", rates, cfg.Exchange.CacheTTL)
		if err != nil {
			return nil, domain.Wrap(domain.KindInvalidConfig, err, "static rates")
		}
		sources = append(sources, s)
	}

	if len(sources) == 0 {
		return nil, domain.Errorf(domain.KindInvalidConfig, "no rate sources configured")
	}

	out := make([]exchange.SourceConfig, 0, len(sources))
	names := make([]string, 0, len(sources))
	for _, s := range sources {
		out = append(out, exchange.SourceConfig{
			Source:        s,
			Timeout:       cfg.Exchange.SourceTimeout,
			MaxConcurrent: cfg.Exchange.MaxConcurrent,
		})
		names = append(names, s.Name())
	}
	logger.Info("Rate sources configured", "sources", names)
	return out, nil
}
