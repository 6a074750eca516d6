package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/amirasaad/fxengine/pkg/provider"
	"github.com/shopspring/decimal"
)

// ResponseSchema names the JSON fields holding the rate and the observation
// time. Nested fields use dots ("data.rate").
type ResponseSchema struct {
	Rate       string
	ObservedAt string
}

// HTTPSourceConfig configures a generic JSON rate endpoint.
type HTTPSourceConfig struct {
	Name      string
	BaseURL   string
	AuthToken string
	Schema    ResponseSchema
	TTL       time.Duration
	Client    *http.Client
}

// HTTPSource fetches single-pair quotes from GET {BaseURL}?from=X&to=Y.
type HTTPSource struct {
	cfg    HTTPSourceConfig
	client *http.Client
	logger *slog.Logger
}

// NewHTTPSource creates an HTTP rate source.
func NewHTTPSource(cfg HTTPSourceConfig, logger *slog.Logger) (*HTTPSource, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("http source: name is required")
	}
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("http source %s: invalid base url: %w", cfg.Name, err)
	}
	if cfg.Schema.Rate == "" {
		cfg.Schema.Rate = "rate"
	}
	if cfg.Schema.ObservedAt == "" {
		cfg.Schema.ObservedAt = "observed_at"
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPSource{cfg: cfg, client: client, logger: logger.With("provider", cfg.Name)}, nil
}

// Name returns the configured source name.
func (s *HTTPSource) Name() string { return s.cfg.Name }

// Fetch requests the pair and maps the response through the schema.
func (s *HTTPSource) Fetch(ctx context.Context, p provider.Pair) (*provider.RateQuote, error) {
	u, _ := url.Parse(s.cfg.BaseURL)
	q := u.Query()
	q.Set("from", p.From.String())
	q.Set("to", p.To.String())
	u.RawQuery = q.Encode()

	var body map[string]any
	if err := getJSON(ctx, s.client, u.String(), s.cfg.AuthToken, &body); err != nil {
		return nil, err
	}

	rawRate, ok := lookupPath(body, s.cfg.Schema.Rate)
	if !ok {
		return nil, fmt.Errorf("%w: field %q missing", provider.ErrInvalidRate, s.cfg.Schema.Rate)
	}
	rate, err := toDecimal(rawRate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrInvalidRate, err)
	}

	var observed time.Time
	if raw, ok := lookupPath(body, s.cfg.Schema.ObservedAt); ok {
		observed, err = toTime(raw)
		if err != nil {
			s.logger.Debug("unparsable observation time, using now", "value", raw, "error", err)
		}
	}

	return &provider.RateQuote{
		From:       p.From,
		To:         p.To,
		Rate:       rate,
		SourceID:   s.cfg.Name,
		ObservedAt: observed,
		TTL:        s.cfg.TTL,
	}, nil
}

// CheckHealth probes the endpoint with a USD:EUR request.
func (s *HTTPSource) CheckHealth(ctx context.Context) error {
	_, err := s.Fetch(ctx, provider.NewPair("USD", "EUR"))
	return err
}

func lookupPath(body map[string]any, path string) (any, bool) {
	var cur any = body
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case json.Number:
		return decimal.NewFromString(x.String())
	case string:
		return decimal.NewFromString(strings.TrimSpace(x))
	default:
		return decimal.Zero, fmt.Errorf("rate has unexpected type %T", v)
	}
}

func toTime(v any) (time.Time, error) {
	switch x := v.(type) {
	case json.Number:
		sec, err := x.Int64()
		if err != nil {
			return time.Time{}, err
		}
		return time.Unix(sec, 0).UTC(), nil
	case string:
		if sec, err := strconv.ParseInt(x, 10, 64); err == nil {
			return time.Unix(sec, 0).UTC(), nil
		}
		return time.Parse(time.RFC3339, x)
	default:
		return time.Time{}, fmt.Errorf("time has unexpected type %T", v)
	}
}
