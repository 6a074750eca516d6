package provider

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/amirasaad/fxengine/pkg/provider"
	"github.com/shopspring/decimal"
)

// ExchangeRateAPIName is the source ID of exchangerate-api.com quotes.
const ExchangeRateAPIName = "exchangerate-api"

// ExchangeRateAPIResponseV6 represents the v6 response from the ExchangeRate API
// See: https://www.exchangerate-api.com/docs/standard-requests
type ExchangeRateAPIResponseV6 struct {
	Result             string                     `json:"result"`
	TimeLastUpdateUnix int64                      `json:"time_last_update_unix"`
	TimeNextUpdateUnix int64                      `json:"time_next_update_unix"`
	BaseCode           string                     `json:"base_code"`
	ConversionRates    map[string]decimal.Decimal `json:"conversion_rates"`
	ErrorType          string                     `json:"error-type,omitempty"`
}

// ExchangeRateAPISource fetches quotes from the v6 "latest" endpoint, which
// returns every rate for one base currency.
type ExchangeRateAPISource struct {
	apiKey  string
	baseURL string
	ttl     time.Duration
	client  *http.Client
	logger  *slog.Logger
}

// NewExchangeRateAPISource creates the source. baseURL should be like
// https://v6.exchangerate-api.com/v6.
func NewExchangeRateAPISource(baseURL, apiKey string, ttl time.Duration, client *http.Client, logger *slog.Logger) *ExchangeRateAPISource {
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ExchangeRateAPISource{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		ttl:     ttl,
		client:  client,
		logger:  logger.With("provider", ExchangeRateAPIName),
	}
}

// Name returns the provider's name
func (s *ExchangeRateAPISource) Name() string { return ExchangeRateAPIName }

func (s *ExchangeRateAPISource) latest(ctx context.Context, base string) (*ExchangeRateAPIResponseV6, error) {
	url := fmt.Sprintf("%s/%s/latest/%s", s.baseURL, s.apiKey, base)
	var resp ExchangeRateAPIResponseV6
	if err := getJSON(ctx, s.client, url, "", &resp); err != nil {
		return nil, err
	}
	if resp.Result != "success" {
		return nil, fmt.Errorf("API returned result=%s %s", resp.Result, resp.ErrorType)
	}
	return &resp, nil
}

// Fetch returns the From→To quote from the From-based rate table.
func (s *ExchangeRateAPISource) Fetch(ctx context.Context, p provider.Pair) (*provider.RateQuote, error) {
	resp, err := s.latest(ctx, p.From.String())
	if err != nil {
		return nil, err
	}
	rate, ok := resp.ConversionRates[p.To.String()]
	if !ok {
		return nil, fmt.Errorf("%w: %s not in response", provider.ErrUnsupportedPair, p.To)
	}

	// Stamped at fetch time: the upstream table only changes daily.
	s.logger.Debug("rate fetched", "pair", p.String(), "rate", rate.String(),
		"last_update", time.Unix(resp.TimeLastUpdateUnix, 0).UTC())

	return &provider.RateQuote{
		From:     p.From,
		To:       p.To,
		Rate:     rate,
		SourceID: ExchangeRateAPIName,
		TTL:      s.ttl,
	}, nil
}

// CheckHealth requests the USD table.
func (s *ExchangeRateAPISource) CheckHealth(ctx context.Context) error {
	_, err := s.latest(ctx, "USD")
	return err
}
