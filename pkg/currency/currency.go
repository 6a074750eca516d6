// Package currency holds the table of supported currencies and their
// minor-unit precision.
//
// The table is immutable once loaded. Reloading swaps the whole table at once,
// so concurrent readers always see either the old or the new table.
package currency

import (
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"

	"github.com/amirasaad/fxengine/pkg/domain"
	"github.com/amirasaad/fxengine/pkg/money"
)

const (
	// DefaultCurrency is the fallback currency code (USD)
	DefaultCurrency = money.USD
	// DefaultDecimals is the default number of decimal places for currencies
	DefaultDecimals = 2
)

// Category groups currencies for display and filtering.
type Category string

const (
	CategoryFiat   Category = "fiat"
	CategoryCrypto Category = "crypto"
)

// ParseCategory maps a raw category name, defaulting to fiat.
func ParseCategory(raw string) (Category, error) {
	switch Category(raw) {
	case "", CategoryFiat:
		return CategoryFiat, nil
	case CategoryCrypto:
		return CategoryCrypto, nil
	default:
		return "", fmt.Errorf("unknown currency category %q", raw)
	}
}

// Currency is a supported monetary unit.
type Currency struct {
	Code     money.Code `json:"code"`
	Name     string     `json:"name"`
	Symbol   string     `json:"symbol"`
	Decimals int        `json:"decimals"`
	Category Category   `json:"category"`
	Priority int        `json:"priority"`
	Active   bool       `json:"active"`
}

// Money returns the money.Currency used for rounding.
func (c Currency) Money() money.Currency {
	return money.Currency{Code: c.Code, Decimals: c.Decimals}
}

// DisplaySymbol returns the symbol, or the code when no symbol is known.
func (c Currency) DisplaySymbol() string {
	if c.Symbol == "" {
		return c.Code.String()
	}
	return c.Symbol
}

// Filter narrows List results. The zero value matches every active currency.
type Filter struct {
	Category        Category
	MinPriority     int
	IncludeInactive bool
}

func (f Filter) match(c Currency) bool {
	if !c.Active && !f.IncludeInactive {
		return false
	}
	if f.Category != "" && c.Category != f.Category {
		return false
	}
	return c.Priority >= f.MinPriority
}

type table struct {
	byCode  map[money.Code]Currency
	ordered []Currency
}

// Registry resolves currency codes against the loaded table.
type Registry struct {
	current atomic.Pointer[table]
	logger  *slog.Logger
}

// NewRegistry validates entries and builds a registry.
func NewRegistry(entries []Currency, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{logger: logger.With("component", "currency_registry")}
	if err := r.Replace(entries); err != nil {
		return nil, err
	}
	return r, nil
}

// Replace validates entries and swaps them in. On error the previous table
// stays in place.
func (r *Registry) Replace(entries []Currency) error {
	t, err := buildTable(entries)
	if err != nil {
		return err
	}
	r.current.Store(t)
	r.logger.Info("currency table loaded", "count", len(t.ordered))
	return nil
}

func buildTable(entries []Currency) (*table, error) {
	if len(entries) == 0 {
		return nil, domain.Errorf(domain.KindInvalidConfig, "currency table is empty")
	}
	t := &table{
		byCode:  make(map[money.Code]Currency, len(entries)),
		ordered: make([]Currency, 0, len(entries)),
	}
	for _, c := range entries {
		c.Code = money.ParseCode(string(c.Code))
		if !c.Money().IsValid() {
			return nil, domain.Errorf(domain.KindInvalidConfig,
				"currency %q: invalid code or decimals %d", c.Code, c.Decimals)
		}
		if _, dup := t.byCode[c.Code]; dup {
			return nil, domain.Errorf(domain.KindInvalidConfig, "currency %q listed twice", c.Code)
		}
		if c.Category == "" {
			c.Category = CategoryFiat
		}
		t.byCode[c.Code] = c
		t.ordered = append(t.ordered, c)
	}
	sort.SliceStable(t.ordered, func(i, j int) bool {
		if t.ordered[i].Priority != t.ordered[j].Priority {
			return t.ordered[i].Priority > t.ordered[j].Priority
		}
		return t.ordered[i].Code < t.ordered[j].Code
	})
	return t, nil
}

// Lookup returns the active currency for code.
func (r *Registry) Lookup(code string) (Currency, error) {
	norm := money.ParseCode(code)
	c, ok := r.current.Load().byCode[norm]
	if !ok || !c.Active {
		return Currency{}, domain.Errorf(domain.KindUnsupportedCurrency,
			"currency %q is not supported", code)
	}
	return c, nil
}

// IsSupported reports whether code resolves to an active currency.
func (r *Registry) IsSupported(code string) bool {
	_, err := r.Lookup(code)
	return err == nil
}

// List returns currencies matching f, sorted by priority then code.
func (r *Registry) List(f Filter) []Currency {
	t := r.current.Load()
	out := make([]Currency, 0, len(t.ordered))
	for _, c := range t.ordered {
		if f.match(c) {
			out = append(out, c)
		}
	}
	return out
}

// Count returns the number of currencies in the table, active or not.
func (r *Registry) Count() int {
	return len(r.current.Load().ordered)
}
