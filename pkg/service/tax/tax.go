// Package tax applies jurisdiction tax rules to priced amounts.
package tax

import (
	"context"
	"log/slog"

	"github.com/amirasaad/fxengine/pkg/currency"
	"github.com/amirasaad/fxengine/pkg/domain"
	"github.com/amirasaad/fxengine/pkg/money"
	taxrule "github.com/amirasaad/fxengine/pkg/tax"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Recorder counts tax calculations.
type Recorder interface {
	TaxCalculated(jurisdiction string)
}

// Result is the outcome of a tax calculation. Amount, TaxAmount and
// TotalAmount are all at the currency's precision.
type Result struct {
	Amount         money.Money        `json:"amount"`
	Currency       money.Code         `json:"currency"`
	Jurisdiction   string             `json:"jurisdiction"`
	Kind           taxrule.Kind       `json:"kind"`
	TaxRate        decimal.Decimal    `json:"tax_rate"`
	TaxAmount      money.Money        `json:"tax_amount"`
	TotalAmount    money.Money        `json:"total_amount"`
	ProductType    string             `json:"product_type,omitempty"`
	RoundingPolicy money.RoundingMode `json:"rounding_policy"`
	Precision      int                `json:"precision"`
}

// Calculator computes tax from the loaded rules.
type Calculator struct {
	rules      *taxrule.Store
	currencies *currency.Registry
	rounding   money.RoundingMode
	recorder   Recorder
	logger     *slog.Logger
}

// New creates a Calculator. An empty rounding mode means half-up.
func New(
	rules *taxrule.Store,
	currencies *currency.Registry,
	rounding money.RoundingMode,
	recorder Recorder,
	logger *slog.Logger,
) *Calculator {
	if logger == nil {
		logger = slog.Default()
	}
	if rounding == "" {
		rounding = money.DefaultRoundingMode
	}
	return &Calculator{
		rules:      rules,
		currencies: currencies,
		rounding:   rounding,
		recorder:   recorder,
		logger:     logger.With("component", "tax_calculator"),
	}
}

// Calculate returns tax = round(amount × rate / 100) and total = amount + tax.
//
// productType is echoed on the result but no product-specific exemptions
// exist yet, so it does not change the outcome.
func (c *Calculator) Calculate(
	_ context.Context,
	amount decimal.Decimal,
	currencyCode, jurisdiction, productType string,
) (*Result, error) {
	if amount.IsNegative() {
		return nil, domain.Errorf(domain.KindInvalidAmount, "amount %s must not be negative", amount)
	}
	cur, err := c.currencies.Lookup(currencyCode)
	if err != nil {
		return nil, err
	}
	rule, err := c.rules.Lookup(jurisdiction)
	if err != nil {
		c.logger.Debug("no tax rule", "jurisdiction", jurisdiction)
		return nil, err
	}

	base, err := money.New(amount, cur.Money(), c.rounding)
	if err != nil {
		return nil, err
	}
	taxAmount, err := money.New(base.Amount().Mul(rule.Rate).Div(hundred), cur.Money(), c.rounding)
	if err != nil {
		return nil, err
	}
	total, err := base.Add(taxAmount)
	if err != nil {
		return nil, err
	}

	if c.recorder != nil {
		c.recorder.TaxCalculated(rule.Jurisdiction)
	}
	return &Result{
		Amount:         base,
		Currency:       cur.Code,
		Jurisdiction:   rule.Jurisdiction,
		Kind:           rule.Kind,
		TaxRate:        rule.Rate,
		TaxAmount:      taxAmount,
		TotalAmount:    total,
		ProductType:    productType,
		RoundingPolicy: c.rounding,
		Precision:      cur.Decimals,
	}, nil
}
