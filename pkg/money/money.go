// Package money provides functionality for handling monetary values.
//
// Amounts are arbitrary-precision decimals. A Money value is always held at
// exactly its currency's minor-unit precision.
// Invariants:
//   - Currency code must be a valid currency code (see Code.IsValid).
//   - Decimals are between 0 and 8 and come from the currency table, never
//     from the amount.
//   - Money amounts are rounded with an explicit RoundingMode.
package money

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/amirasaad/fxengine/pkg/domain"
	"github.com/shopspring/decimal"
)

// MaxDecimals is the largest supported minor-unit precision (satoshi-level).
const MaxDecimals = 8

// Currency represents a monetary unit with its standard decimal places
type Currency struct {
	Code     Code // currency code (e.g., "USD", "BTC")
	Decimals int  // Number of decimal places (0-8)
}

// IsValid checks if the currency is valid.
func (c Currency) IsValid() bool {
	if c.Decimals < 0 || c.Decimals > MaxDecimals {
		return false
	}
	return c.Code.IsValid()
}

// String returns the currency code as a string
func (c Currency) String() string { return string(c.Code) }

// Money represents a monetary value in a specific currency, rounded to the
// currency's precision.
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// New creates a Money value, rounding amount to the currency precision with mode.
func New(amount decimal.Decimal, currency Currency, mode RoundingMode) (Money, error) {
	if !currency.IsValid() {
		return Money{}, fmt.Errorf("%w: %s/%d", ErrInvalidCurrency, currency.Code, currency.Decimals)
	}
	return Money{
		amount:   Round(amount, currency.Decimals, mode),
		currency: currency,
	}, nil
}

// Amount returns the rounded amount.
func (m Money) Amount() decimal.Decimal { return m.amount }

// Currency returns the currency.
func (m Money) Currency() Currency { return m.currency }

// Fixed returns the amount with exactly the currency's number of fraction digits.
func (m Money) Fixed() string {
	return m.amount.StringFixed(int32(m.currency.Decimals))
}

// Add adds two Money values of the same currency.
func (m Money) Add(other Money) (Money, error) {
	if m.currency.Code != other.currency.Code {
		return Money{}, ErrMismatchedCurrencies
	}
	return Money{amount: m.amount.Add(other.amount), currency: m.currency}, nil
}

// IsNegative reports whether the amount is below zero.
func (m Money) IsNegative() bool { return m.amount.IsNegative() }

// String returns "<fixed amount> <code>", e.g. "100.50 USD".
func (m Money) String() string {
	return m.Fixed() + " " + m.currency.Code.String()
}

// MarshalJSON renders the amount as a fixed-precision string so that trailing
// zeros survive the round trip.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"amount":   m.Fixed(),
		"currency": m.currency.Code,
		"decimals": m.currency.Decimals,
	})
}

// ParseAmount parses a user-supplied decimal string. Empty, NaN and infinite
// inputs are rejected with ErrInvalidAmount.
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, invalidAmount(raw)
	}
	switch strings.ToLower(strings.TrimLeft(s, "+-")) {
	case "nan", "inf", "infinity":
		return decimal.Zero, invalidAmount(raw)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, invalidAmount(raw)
	}
	return d, nil
}

func invalidAmount(raw string) error {
	return domain.Wrap(domain.KindInvalidAmount, ErrInvalidAmount, "amount %q", raw)
}

// FromFloat converts a float amount, rejecting NaN and ±Inf.
func FromFloat(f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, domain.Wrap(domain.KindInvalidAmount, ErrInvalidAmount, "amount %v", f)
	}
	return decimal.NewFromFloat(f), nil
}
