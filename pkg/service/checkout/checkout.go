// Package checkout builds the list of currencies a shopper can pay in.
package checkout

import (
	"context"
	"log/slog"

	"github.com/amirasaad/fxengine/pkg/currency"
	"github.com/amirasaad/fxengine/pkg/domain"
	"github.com/amirasaad/fxengine/pkg/money"
	"github.com/amirasaad/fxengine/pkg/provider/exchange"
	"github.com/amirasaad/fxengine/pkg/region"
	"github.com/amirasaad/fxengine/pkg/service/conversion"
	"github.com/amirasaad/fxengine/pkg/service/format"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds parallel conversions per request.
const DefaultConcurrency = 4

// Converter converts amounts. *conversion.Service implements it.
type Converter interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to string, opts ...conversion.Option) (*conversion.Result, error)
}

// PriceFormatter formats amounts. *format.Formatter implements it.
type PriceFormatter interface {
	FormatPrice(amount decimal.Decimal, currency, locale string) (*format.Price, error)
}

// Option is one payable currency.
type Option struct {
	Currency        money.Code      `json:"currency"`
	ConvertedAmount money.Money     `json:"converted_amount"`
	Formatted       string          `json:"formatted"`
	IsBase          bool            `json:"is_base"`
	Rate            decimal.Decimal `json:"rate"`
	SourceID        string          `json:"source_id"`
}

// Skipped is a currency that could not be offered.
type Skipped struct {
	Currency money.Code  `json:"currency"`
	Reason   string      `json:"reason"`
	Kind     domain.Kind `json:"kind,omitempty"`
}

// Options is the checkout currency list for one request.
type Options struct {
	BaseAmount   money.Money `json:"base_amount"`
	BaseCurrency money.Code  `json:"base_currency"`
	Region       string      `json:"region"`
	Locale       string      `json:"locale"`
	Recommended  money.Code  `json:"recommended"`
	Options      []Option    `json:"options"`
	Skipped      []Skipped   `json:"skipped"`
}

// Selector builds checkout options from the region table.
type Selector struct {
	currencies  *currency.Registry
	regions     *region.Table
	converter   Converter
	formatter   PriceFormatter
	rounding    money.RoundingMode
	concurrency int
	logger      *slog.Logger
}

// New creates a Selector. The base amount and every converted option are
// rounded with rounding; empty means half-up. concurrency <= 0 uses
// DefaultConcurrency.
func New(
	currencies *currency.Registry,
	regions *region.Table,
	converter Converter,
	formatter PriceFormatter,
	rounding money.RoundingMode,
	concurrency int,
	logger *slog.Logger,
) *Selector {
	if logger == nil {
		logger = slog.Default()
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if rounding == "" {
		rounding = money.DefaultRoundingMode
	}
	return &Selector{
		currencies:  currencies,
		regions:     regions,
		converter:   converter,
		formatter:   formatter,
		rounding:    rounding,
		concurrency: concurrency,
		logger:      logger.With("component", "checkout_selector"),
	}
}

// Recommend returns the preferred currency of regionCode, or of the default
// region when regionCode is empty or unknown.
func (s *Selector) Recommend(regionCode string) money.Code {
	return s.regions.Resolve(regionCode).Preferred
}

// BuildOptions lists the region's currencies with baseAmount converted into
// each. The base currency comes first, unconverted. Currencies that fail to
// convert or format are reported in Skipped.
func (s *Selector) BuildOptions(
	ctx context.Context,
	baseAmount decimal.Decimal,
	baseCurrency, regionCode string,
) (*Options, error) {
	if baseAmount.IsNegative() {
		return nil, domain.Errorf(domain.KindInvalidAmount, "amount %s must not be negative", baseAmount)
	}
	base, err := s.currencies.Lookup(baseCurrency)
	if err != nil {
		return nil, err
	}
	reg := s.regions.Resolve(regionCode)
	logger := s.logger.With("region", reg.Code, "base", base.Code)

	baseMoney, err := money.New(baseAmount, base.Money(), s.rounding)
	if err != nil {
		return nil, err
	}
	basePrice, err := s.formatter.FormatPrice(baseMoney.Amount(), base.Code.String(), reg.Locale)
	if err != nil {
		return nil, err
	}

	targets := make([]money.Code, 0, len(reg.Currencies))
	for _, c := range reg.Currencies {
		if c != base.Code {
			targets = append(targets, c)
		}
	}

	type outcome struct {
		option  *Option
		skipped *Skipped
	}
	outcomes := make([]outcome, len(targets))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, code := range targets {
		g.Go(func() error {
			opt, err := s.option(ctx, baseMoney.Amount(), base.Code, code, reg.Locale)
			if err != nil {
				logger.Debug("currency skipped", "currency", code, "error", err)
				outcomes[i].skipped = &Skipped{Currency: code, Reason: err.Error(), Kind: domain.KindOf(err)}
				return nil
			}
			outcomes[i].option = opt
			return nil
		})
	}
	_ = g.Wait()

	out := &Options{
		BaseAmount:   baseMoney,
		BaseCurrency: base.Code,
		Region:       reg.Code,
		Locale:       reg.Locale,
		Recommended:  reg.Preferred,
		Options: []Option{{
			Currency:        base.Code,
			ConvertedAmount: baseMoney,
			Formatted:       basePrice.Formatted,
			IsBase:          true,
			Rate:            decimal.NewFromInt(1),
			SourceID:        exchange.IdentitySource,
		}},
		Skipped: []Skipped{},
	}
	for _, o := range outcomes {
		switch {
		case o.option != nil:
			out.Options = append(out.Options, *o.option)
		case o.skipped != nil:
			out.Skipped = append(out.Skipped, *o.skipped)
		}
	}
	logger.Info("checkout options built", "options", len(out.Options), "skipped", len(out.Skipped))
	return out, nil
}

func (s *Selector) option(ctx context.Context, amount decimal.Decimal, from, to money.Code, loc string) (*Option, error) {
	res, err := s.converter.Convert(ctx, amount, from.String(), to.String(), conversion.WithRounding(s.rounding))
	if err != nil {
		return nil, err
	}
	price, err := s.formatter.FormatPrice(res.ConvertedAmount.Amount(), to.String(), loc)
	if err != nil {
		return nil, err
	}
	return &Option{
		Currency:        res.To,
		ConvertedAmount: res.ConvertedAmount,
		Formatted:       price.Formatted,
		Rate:            res.RateUsed,
		SourceID:        res.SourceID,
	}, nil
}
