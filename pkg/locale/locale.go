// Package locale resolves BCP-47 locale tags to number formatting conventions.
package locale

import (
	"log/slog"
	"sort"
	"sync/atomic"

	"github.com/amirasaad/fxengine/pkg/domain"
	"golang.org/x/text/language"
)

// Direction is the writing direction of a locale.
type Direction string

const (
	LTR Direction = "ltr"
	RTL Direction = "rtl"
)

// SymbolPosition places the currency symbol before or after the number.
type SymbolPosition string

const (
	SymbolPrefix SymbolPosition = "prefix"
	SymbolSuffix SymbolPosition = "suffix"
)

// Convention describes how numbers are written in one or more locales.
// GroupSizes holds the primary group size followed by an optional secondary
// size repeated for the rest of the integer part (3;2 for en-IN).
type Convention struct {
	ID               string         `json:"id"`
	DecimalSeparator string         `json:"decimal_separator"`
	GroupSeparator   string         `json:"group_separator"`
	GroupSizes       []int          `json:"group_sizes"`
	SymbolPosition   SymbolPosition `json:"symbol_position"`
	SymbolSpacing    bool           `json:"symbol_spacing"`
}

// Locale is a supported locale with its resolved convention.
type Locale struct {
	Code       string     `json:"code"`
	Name       string     `json:"name"`
	Direction  Direction  `json:"direction"`
	Convention Convention `json:"convention"`
}

// Entry is a locale row as loaded from fixtures, referencing its convention by ID.
type Entry struct {
	Code         string
	Name         string
	Direction    Direction
	ConventionID string
}

type table struct {
	byCode map[string]Locale
	codes  []string
}

// Registry resolves locale tags.
type Registry struct {
	current atomic.Pointer[table]
	logger  *slog.Logger
}

// NewRegistry validates and loads entries.
func NewRegistry(entries []Entry, conventions []Convention, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{logger: logger.With("component", "locale_registry")}
	if err := r.Replace(entries, conventions); err != nil {
		return nil, err
	}
	return r, nil
}

// Canonicalize normalises a raw tag ("en_us", "EN-us") to its BCP-47 form ("en-US").
func Canonicalize(raw string) (string, error) {
	tag, err := language.Parse(raw)
	if err != nil {
		return "", domain.Wrap(domain.KindUnsupportedLocale, err, "locale %q is not a valid tag", raw)
	}
	return tag.String(), nil
}

// Replace validates and swaps in a new table. On error the previous table
// stays in place.
func (r *Registry) Replace(entries []Entry, conventions []Convention) error {
	byID := make(map[string]Convention, len(conventions))
	for _, c := range conventions {
		if err := validateConvention(c); err != nil {
			return err
		}
		if _, dup := byID[c.ID]; dup {
			return domain.Errorf(domain.KindInvalidConfig, "convention %q listed twice", c.ID)
		}
		byID[c.ID] = c
	}
	if len(entries) == 0 {
		return domain.Errorf(domain.KindInvalidConfig, "locale table is empty")
	}

	t := &table{byCode: make(map[string]Locale, len(entries))}
	for _, e := range entries {
		code, err := Canonicalize(e.Code)
		if err != nil {
			return domain.Wrap(domain.KindInvalidConfig, err, "locale table")
		}
		conv, ok := byID[e.ConventionID]
		if !ok {
			return domain.Errorf(domain.KindInvalidConfig,
				"locale %q references unknown convention %q", code, e.ConventionID)
		}
		if _, dup := t.byCode[code]; dup {
			return domain.Errorf(domain.KindInvalidConfig, "locale %q listed twice", code)
		}
		dir := e.Direction
		if dir == "" {
			dir = LTR
		}
		if dir != LTR && dir != RTL {
			return domain.Errorf(domain.KindInvalidConfig, "locale %q: unknown direction %q", code, dir)
		}
		t.byCode[code] = Locale{Code: code, Name: e.Name, Direction: dir, Convention: conv}
		t.codes = append(t.codes, code)
	}
	sort.Strings(t.codes)

	r.current.Store(t)
	r.logger.Info("locale table loaded", "locales", len(t.codes), "conventions", len(byID))
	return nil
}

func validateConvention(c Convention) error {
	switch {
	case c.ID == "":
		return domain.Errorf(domain.KindInvalidConfig, "convention without id")
	case c.DecimalSeparator == "":
		return domain.Errorf(domain.KindInvalidConfig, "convention %q: empty decimal separator", c.ID)
	case len(c.GroupSizes) == 0 || len(c.GroupSizes) > 2:
		return domain.Errorf(domain.KindInvalidConfig, "convention %q: need one or two group sizes", c.ID)
	case c.SymbolPosition != SymbolPrefix && c.SymbolPosition != SymbolSuffix:
		return domain.Errorf(domain.KindInvalidConfig, "convention %q: bad symbol position %q", c.ID, c.SymbolPosition)
	}
	for _, n := range c.GroupSizes {
		if n <= 0 {
			return domain.Errorf(domain.KindInvalidConfig, "convention %q: group size must be positive", c.ID)
		}
	}
	return nil
}

// Lookup resolves a locale tag. When the exact tag is not in the table the
// base language entry is used, so "de-AT" falls back to "de".
func (r *Registry) Lookup(code string) (Locale, error) {
	tag, err := language.Parse(code)
	if err != nil {
		return Locale{}, domain.Wrap(domain.KindUnsupportedLocale, err, "locale %q is not supported", code)
	}
	t := r.current.Load()
	if l, ok := t.byCode[tag.String()]; ok {
		return l, nil
	}
	if base, conf := tag.Base(); conf != language.No {
		if l, ok := t.byCode[base.String()]; ok {
			return l, nil
		}
	}
	return Locale{}, domain.Errorf(domain.KindUnsupportedLocale, "locale %q is not supported", code)
}

// Codes returns every loaded locale tag in sorted order.
func (r *Registry) Codes() []string {
	codes := r.current.Load().codes
	out := make([]string, len(codes))
	copy(out, codes)
	return out
}
