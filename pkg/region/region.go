// Package region maps checkout regions to their curated currency lists.
package region

import (
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/amirasaad/fxengine/pkg/domain"
	"github.com/amirasaad/fxengine/pkg/money"
)

// Region is a checkout region with its preferred and offered currencies.
type Region struct {
	Code       string       `json:"code"`
	Name       string       `json:"name"`
	Preferred  money.Code   `json:"preferred"`
	Currencies []money.Code `json:"currencies"`
	Locale     string       `json:"locale"`
}

// Config is the full region table.
type Config struct {
	Default string   `json:"default"`
	Regions []Region `json:"regions"`
}

type table struct {
	byCode map[string]Region
	def    Region
}

// Table resolves region codes.
type Table struct {
	current atomic.Pointer[table]
	logger  *slog.Logger
}

// NormalizeCode upper-cases and trims a region code.
func NormalizeCode(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// NewTable validates and loads cfg.
func NewTable(cfg Config, logger *slog.Logger) (*Table, error) {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Table{logger: logger.With("component", "region_table")}
	if err := t.Replace(cfg); err != nil {
		return nil, err
	}
	return t, nil
}

// Replace validates cfg and swaps it in.
func (t *Table) Replace(cfg Config) error {
	next := &table{byCode: make(map[string]Region, len(cfg.Regions))}
	for _, r := range cfg.Regions {
		r.Code = NormalizeCode(r.Code)
		r.Preferred = money.ParseCode(string(r.Preferred))
		if r.Code == "" {
			return domain.Errorf(domain.KindInvalidConfig, "region without code")
		}
		if _, dup := next.byCode[r.Code]; dup {
			return domain.Errorf(domain.KindInvalidConfig, "region %s listed twice", r.Code)
		}
		if len(r.Currencies) == 0 {
			return domain.Errorf(domain.KindInvalidConfig, "region %s has no currencies", r.Code)
		}
		currencies := make([]money.Code, 0, len(r.Currencies))
		preferredListed := false
		for _, c := range r.Currencies {
			c = money.ParseCode(string(c))
			if !c.IsValid() {
				return domain.Errorf(domain.KindInvalidConfig, "region %s: invalid currency %q", r.Code, c)
			}
			preferredListed = preferredListed || c == r.Preferred
			currencies = append(currencies, c)
		}
		if !preferredListed {
			return domain.Errorf(domain.KindInvalidConfig,
				"region %s: preferred currency %s is not offered", r.Code, r.Preferred)
		}
		r.Currencies = currencies
		next.byCode[r.Code] = r
	}
	def, ok := next.byCode[NormalizeCode(cfg.Default)]
	if !ok {
		return domain.Errorf(domain.KindInvalidConfig, "default region %q is not defined", cfg.Default)
	}
	next.def = def

	t.current.Store(next)
	t.logger.Info("region table loaded", "regions", len(next.byCode), "default", def.Code)
	return nil
}

// Lookup returns the region for code.
func (t *Table) Lookup(code string) (Region, error) {
	r, ok := t.current.Load().byCode[NormalizeCode(code)]
	if !ok {
		return Region{}, domain.Errorf(domain.KindUnsupportedRegion, "region %q is not supported", code)
	}
	return r, nil
}

// Resolve returns the region for code, or the default region when code is
// empty or unknown.
func (t *Table) Resolve(code string) Region {
	if r, err := t.Lookup(code); err == nil {
		return r
	}
	return t.current.Load().def
}

// Default returns the default region.
func (t *Table) Default() Region {
	return t.current.Load().def
}
