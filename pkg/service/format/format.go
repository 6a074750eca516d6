// Package format renders prices using the number conventions of the locale
// table. All locale differences come from table data.
package format

import (
	"log/slog"
	"strings"

	"github.com/amirasaad/fxengine/pkg/currency"
	"github.com/amirasaad/fxengine/pkg/locale"
	"github.com/amirasaad/fxengine/pkg/money"
	"github.com/shopspring/decimal"
)

// symbolSpace separates the symbol from the number when a convention asks
// for spacing. It is non-breaking so the two never wrap apart.
const symbolSpace = "\u00a0"

// Price is a formatted amount.
type Price struct {
	Formatted string           `json:"formatted"`
	Symbol    string           `json:"symbol"`
	Direction locale.Direction `json:"direction"`
	Locale    string           `json:"locale"`
	Currency  money.Code       `json:"currency"`
}

// Formatter formats prices.
type Formatter struct {
	currencies *currency.Registry
	locales    *locale.Registry
	logger     *slog.Logger
}

// New creates a Formatter.
func New(currencies *currency.Registry, locales *locale.Registry, logger *slog.Logger) *Formatter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Formatter{
		currencies: currencies,
		locales:    locales,
		logger:     logger.With("component", "formatter"),
	}
}

// FormatPrice rounds amount half-up to the currency precision and renders it
// for localeCode.
func (f *Formatter) FormatPrice(amount decimal.Decimal, currencyCode, localeCode string) (*Price, error) {
	cur, err := f.currencies.Lookup(currencyCode)
	if err != nil {
		return nil, err
	}
	loc, err := f.locales.Lookup(localeCode)
	if err != nil {
		return nil, err
	}
	symbol := cur.DisplaySymbol()
	return &Price{
		Formatted: Render(amount, cur.Decimals, symbol, loc.Convention),
		Symbol:    symbol,
		Direction: loc.Direction,
		Locale:    loc.Code,
		Currency:  cur.Code,
	}, nil
}

// Render formats amount with the given precision, symbol and convention.
func Render(amount decimal.Decimal, decimals int, symbol string, conv locale.Convention) string {
	rounded := money.Round(amount, decimals, money.RoundHalfUp)
	negative := rounded.IsNegative()
	digits := rounded.Abs().StringFixed(int32(decimals))

	intPart, fracPart, _ := strings.Cut(digits, ".")
	number := group(intPart, conv.GroupSeparator, conv.GroupSizes)
	if fracPart != "" {
		number += conv.DecimalSeparator + fracPart
	}

	var b strings.Builder
	if negative {
		b.WriteByte('-')
	}
	sep := ""
	if conv.SymbolSpacing {
		sep = symbolSpace
	}
	if conv.SymbolPosition == locale.SymbolSuffix {
		b.WriteString(number)
		b.WriteString(sep)
		b.WriteString(symbol)
	} else {
		b.WriteString(symbol)
		b.WriteString(sep)
		b.WriteString(number)
	}
	return b.String()
}

// group inserts sep into the digit string: the rightmost group has
// sizes[0] digits, every group to its left has sizes[1] (or sizes[0]).
func group(digits, sep string, sizes []int) string {
	if sep == "" || len(sizes) == 0 || sizes[0] <= 0 || len(digits) <= sizes[0] {
		return digits
	}
	primary, secondary := sizes[0], sizes[0]
	if len(sizes) > 1 && sizes[1] > 0 {
		secondary = sizes[1]
	}

	var parts []string
	end := len(digits)
	parts = append(parts, digits[end-primary:])
	end -= primary
	for end > 0 {
		start := end - secondary
		if start < 0 {
			start = 0
		}
		parts = append(parts, digits[start:end])
		end = start
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, sep)
}
