// Package conversion converts amounts between currencies with an explicit fee
// and rounding policy.
//
// A conversion computes raw = amount × rate, then fee = round(raw × feeRate),
// then converted = round(raw - fee) (deduct) or round(raw + fee) (add). Every
// rounding uses the target currency's minor-unit digits and the named policy,
// and both are reported on the result.
package conversion

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/amirasaad/fxengine/pkg/currency"
	"github.com/amirasaad/fxengine/pkg/domain"
	"github.com/amirasaad/fxengine/pkg/money"
	"github.com/amirasaad/fxengine/pkg/provider"
	"github.com/amirasaad/fxengine/pkg/provider/exchange"
	"github.com/shopspring/decimal"
)

// FeeMode says whether the fee is taken out of or added on top of the
// converted amount.
type FeeMode string

const (
	FeeDeduct FeeMode = "deduct"
	FeeAdd    FeeMode = "add"
)

// DefaultFeeRate is 0.1%.
var DefaultFeeRate = decimal.RequireFromString("0.001")

// ParseFeeMode resolves a configured mode; empty means deduct.
func ParseFeeMode(raw string) (FeeMode, error) {
	switch FeeMode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FeeDeduct:
		return FeeDeduct, nil
	case FeeAdd:
		return FeeAdd, nil
	default:
		return "", domain.Errorf(domain.KindInvalidConfig, "unknown fee mode %q", raw)
	}
}

// RateGetter supplies quotes. *exchange.Provider implements it.
type RateGetter interface {
	GetRate(ctx context.Context, from, to money.Code) (*provider.RateQuote, error)
}

// Recorder counts completed conversions.
type Recorder interface {
	ConversionRecorded(from, to string)
}

// Config holds the defaults applied when a call does not override them.
type Config struct {
	FeeRate  decimal.Decimal
	FeeMode  FeeMode
	Rounding money.RoundingMode
}

// Result is the outcome of one conversion.
type Result struct {
	InputAmount     decimal.Decimal    `json:"input_amount"`
	From            money.Code         `json:"from"`
	To              money.Code         `json:"to"`
	ConvertedAmount money.Money        `json:"converted_amount"`
	RateUsed        decimal.Decimal    `json:"rate_used"`
	SourceID        string             `json:"source_id"`
	Derived         bool               `json:"derived"`
	FeeRate         decimal.Decimal    `json:"fee_rate"`
	FeeApplied      money.Money        `json:"fee_applied"`
	FeeMode         FeeMode            `json:"fee_mode"`
	RoundingPolicy  money.RoundingMode `json:"rounding_policy"`
	Precision       int                `json:"precision"`
	ObservedAt      time.Time          `json:"observed_at"`
}

// Option overrides a default for a single call.
type Option func(*Config)

// WithFeeRate sets the fee rate (0.001 = 0.1%).
func WithFeeRate(rate decimal.Decimal) Option {
	return func(c *Config) { c.FeeRate = rate }
}

// WithFeeMode sets the fee mode.
func WithFeeMode(mode FeeMode) Option {
	return func(c *Config) { c.FeeMode = mode }
}

// WithRounding sets the rounding policy.
func WithRounding(mode money.RoundingMode) Option {
	return func(c *Config) { c.Rounding = mode }
}

// Service converts amounts.
type Service struct {
	currencies *currency.Registry
	rates      RateGetter
	recorder   Recorder
	defaults   Config
	logger     *slog.Logger
	now        func() time.Time
}

// New creates a Service. An empty FeeMode means deduct and an empty Rounding
// means half-up; FeeRate is used as given. recorder may be nil.
func New(
	currencies *currency.Registry,
	rates RateGetter,
	cfg Config,
	recorder Recorder,
	logger *slog.Logger,
) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.FeeMode == "" {
		cfg.FeeMode = FeeDeduct
	}
	if cfg.Rounding == "" {
		cfg.Rounding = money.DefaultRoundingMode
	}
	if err := validate(cfg, domain.KindInvalidConfig); err != nil {
		return nil, err
	}
	return &Service{
		currencies: currencies,
		rates:      rates,
		recorder:   recorder,
		defaults:   cfg,
		logger:     logger.With("component", "conversion_service"),
		now:        time.Now,
	}, nil
}

// Defaults returns the configured defaults.
func (s *Service) Defaults() Config { return s.defaults }

// validate checks cfg. feeKind is the kind reported for an out-of-range fee
// rate: invalid_config for configured defaults, invalid_amount per call.
func validate(cfg Config, feeKind domain.Kind) error {
	if cfg.FeeRate.IsNegative() || cfg.FeeRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return domain.Errorf(feeKind, "fee rate %s is out of range, want 0 <= fee rate < 1", cfg.FeeRate)
	}
	if _, err := ParseFeeMode(string(cfg.FeeMode)); err != nil {
		return err
	}
	if !cfg.Rounding.IsValid() {
		return domain.Errorf(domain.KindInvalidConfig, "unknown rounding policy %q", cfg.Rounding)
	}
	return nil
}

// Convert converts amount from one currency to another.
func (s *Service) Convert(
	ctx context.Context,
	amount decimal.Decimal,
	from, to string,
	opts ...Option,
) (*Result, error) {
	cfg := s.defaults
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := validate(cfg, domain.KindInvalidAmount); err != nil {
		return nil, err
	}
	if amount.IsNegative() {
		return nil, domain.Errorf(domain.KindInvalidAmount, "amount %s must not be negative", amount)
	}

	src, err := s.currencies.Lookup(from)
	if err != nil {
		return nil, err
	}
	dst, err := s.currencies.Lookup(to)
	if err != nil {
		return nil, err
	}

	if src.Code == dst.Code {
		converted, _ := money.New(amount, dst.Money(), cfg.Rounding)
		zero, _ := money.New(decimal.Zero, dst.Money(), cfg.Rounding)
		s.record(src.Code, dst.Code)
		return &Result{
			InputAmount:     amount,
			From:            src.Code,
			To:              dst.Code,
			ConvertedAmount: converted,
			RateUsed:        decimal.NewFromInt(1),
			SourceID:        exchange.IdentitySource,
			FeeRate:         decimal.Zero,
			FeeApplied:      zero,
			FeeMode:         cfg.FeeMode,
			RoundingPolicy:  cfg.Rounding,
			Precision:       dst.Decimals,
			ObservedAt:      s.now().UTC(),
		}, nil
	}

	quote, err := s.rates.GetRate(ctx, src.Code, dst.Code)
	if err != nil {
		s.logger.Warn("rate lookup failed", "from", src.Code, "to", dst.Code, "error", err)
		return nil, err
	}

	raw := amount.Mul(quote.Rate)
	fee, err := money.New(raw.Mul(cfg.FeeRate), dst.Money(), cfg.Rounding)
	if err != nil {
		return nil, fmt.Errorf("fee for %s: %w", dst.Code, err)
	}
	net := raw.Sub(fee.Amount())
	if cfg.FeeMode == FeeAdd {
		net = raw.Add(fee.Amount())
	}
	converted, err := money.New(net, dst.Money(), cfg.Rounding)
	if err != nil {
		return nil, fmt.Errorf("convert to %s: %w", dst.Code, err)
	}

	s.record(src.Code, dst.Code)
	s.logger.Debug("converted",
		"from", src.Code, "to", dst.Code,
		"amount", amount.String(), "converted", converted.Fixed(),
		"rate", quote.Rate.String(), "source", quote.SourceID)

	return &Result{
		InputAmount:     amount,
		From:            src.Code,
		To:              dst.Code,
		ConvertedAmount: converted,
		RateUsed:        quote.Rate,
		SourceID:        quote.SourceID,
		Derived:         quote.Derived,
		FeeRate:         cfg.FeeRate,
		FeeApplied:      fee,
		FeeMode:         cfg.FeeMode,
		RoundingPolicy:  cfg.Rounding,
		Precision:       dst.Decimals,
		ObservedAt:      quote.ObservedAt,
	}, nil
}

func (s *Service) record(from, to money.Code) {
	if s.recorder != nil {
		s.recorder.ConversionRecorded(from.String(), to.String())
	}
}
