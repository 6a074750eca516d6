// Package tax stores per-jurisdiction tax rules.
package tax

import (
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/amirasaad/fxengine/pkg/domain"
	"github.com/shopspring/decimal"
)

// Kind is the kind of tax a rule levies.
type Kind string

const (
	KindVAT            Kind = "vat"
	KindSalesTax       Kind = "sales_tax"
	KindGST            Kind = "gst"
	KindConsumptionTax Kind = "consumption_tax"
)

// IsValid reports whether k is a known tax kind.
func (k Kind) IsValid() bool {
	switch k {
	case KindVAT, KindSalesTax, KindGST, KindConsumptionTax:
		return true
	}
	return false
}

// Rule is a tax rule for one jurisdiction. Rate is a percentage.
type Rule struct {
	Jurisdiction string          `json:"jurisdiction"`
	Rate         decimal.Decimal `json:"rate"`
	Kind         Kind            `json:"kind"`
	Active       bool            `json:"active"`
}

var hundred = decimal.NewFromInt(100)

// NormalizeJurisdiction upper-cases and trims a jurisdiction code ("us-ca" -> "US-CA").
func NormalizeJurisdiction(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

type table struct {
	active map[string]Rule
	all    []Rule
}

// Store resolves the active rule for a jurisdiction.
type Store struct {
	current atomic.Pointer[table]
	logger  *slog.Logger
}

// NewStore validates and loads rules.
func NewStore(rules []Rule, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{logger: logger.With("component", "tax_rule_store")}
	if err := s.Replace(rules); err != nil {
		return nil, err
	}
	return s, nil
}

// Replace validates rules and swaps them in. A jurisdiction may carry any
// number of inactive rules but at most one active rule.
func (s *Store) Replace(rules []Rule) error {
	t := &table{active: make(map[string]Rule, len(rules))}
	for _, r := range rules {
		r.Jurisdiction = NormalizeJurisdiction(r.Jurisdiction)
		if r.Jurisdiction == "" {
			return domain.Errorf(domain.KindInvalidConfig, "tax rule without jurisdiction")
		}
		if !r.Kind.IsValid() {
			return domain.Errorf(domain.KindInvalidConfig, "tax rule %s: unknown kind %q", r.Jurisdiction, r.Kind)
		}
		if r.Rate.IsNegative() || r.Rate.GreaterThan(hundred) {
			return domain.Errorf(domain.KindInvalidConfig, "tax rule %s: rate %s out of range", r.Jurisdiction, r.Rate)
		}
		if r.Active {
			if _, dup := t.active[r.Jurisdiction]; dup {
				return domain.Errorf(domain.KindInvalidConfig,
					"jurisdiction %s has more than one active tax rule", r.Jurisdiction)
			}
			t.active[r.Jurisdiction] = r
		}
		t.all = append(t.all, r)
	}
	sort.SliceStable(t.all, func(i, j int) bool { return t.all[i].Jurisdiction < t.all[j].Jurisdiction })

	s.current.Store(t)
	s.logger.Info("tax rules loaded", "rules", len(t.all), "jurisdictions", len(t.active))
	return nil
}

// Lookup returns the active rule for a jurisdiction.
func (s *Store) Lookup(jurisdiction string) (Rule, error) {
	r, ok := s.current.Load().active[NormalizeJurisdiction(jurisdiction)]
	if !ok {
		return Rule{}, domain.Errorf(domain.KindTaxRuleNotFound,
			"no active tax rule for jurisdiction %q", jurisdiction)
	}
	return r, nil
}

// Rules returns every loaded rule, active or not, ordered by jurisdiction.
func (s *Store) Rules() []Rule {
	all := s.current.Load().all
	out := make([]Rule, len(all))
	copy(out, all)
	return out
}
