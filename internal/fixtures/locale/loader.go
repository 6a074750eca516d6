// Package locale loads the locale and number-convention tables.
package locale

import (
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/amirasaad/fxengine/pkg/locale"
)

var (
	//go:embed locales.csv
	localesCSV string
	//go:embed conventions.csv
	conventionsCSV string
)

// separators maps symbolic names used in the CSV to the actual characters,
// since several of them are invisible or collide with CSV syntax.
var separators = map[string]string{
	"dot":            ".",
	"comma":          ",",
	"space":          " ",
	"nbsp":           "\u00a0",
	"narrow_nbsp":    "\u202f",
	"apostrophe":     "'",
	"arabic_decimal": "\u066b",
	"arabic_group":   "\u066c",
	"none":           "",
}

// Load reads the locale and convention tables. Empty paths use the embedded
// content.
func Load(localesPath, conventionsPath string) ([]locale.Entry, []locale.Convention, error) {
	convRecords, err := readCSV(conventionsPath, conventionsCSV, 6)
	if err != nil {
		return nil, nil, fmt.Errorf("conventions: %w", err)
	}
	conventions := make([]locale.Convention, 0, len(convRecords))
	for i, rec := range convRecords {
		c, err := parseConvention(rec)
		if err != nil {
			return nil, nil, fmt.Errorf("conventions line %d: %w", i+2, err)
		}
		conventions = append(conventions, c)
	}

	locRecords, err := readCSV(localesPath, localesCSV, 4)
	if err != nil {
		return nil, nil, fmt.Errorf("locales: %w", err)
	}
	entries := make([]locale.Entry, 0, len(locRecords))
	for _, rec := range locRecords {
		entries = append(entries, locale.Entry{
			Code:         rec[0],
			Name:         rec[1],
			Direction:    locale.Direction(strings.ToLower(rec[2])),
			ConventionID: rec[3],
		})
	}
	return entries, conventions, nil
}

func parseConvention(rec []string) (locale.Convention, error) {
	dec, ok := separators[rec[1]]
	if !ok || dec == "" {
		return locale.Convention{}, fmt.Errorf("unknown decimal separator %q", rec[1])
	}
	group, ok := separators[rec[2]]
	if !ok {
		return locale.Convention{}, fmt.Errorf("unknown group separator %q", rec[2])
	}
	var sizes []int
	for _, part := range strings.Split(rec[3], ";") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return locale.Convention{}, fmt.Errorf("group sizes %q: %w", rec[3], err)
		}
		sizes = append(sizes, n)
	}
	spacing, err := strconv.ParseBool(rec[5])
	if err != nil {
		return locale.Convention{}, fmt.Errorf("symbol spacing %q: %w", rec[5], err)
	}
	return locale.Convention{
		ID:               rec[0],
		DecimalSeparator: dec,
		GroupSeparator:   group,
		GroupSizes:       sizes,
		SymbolPosition:   locale.SymbolPosition(strings.ToLower(rec[4])),
		SymbolSpacing:    spacing,
	}, nil
}

// readCSV returns the data rows of a CSV file (header dropped).
func readCSV(path, embedded string, columns int) ([][]string, error) {
	var r io.Reader
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open file: %w", err)
		}
		defer func() {
			_ = f.Close()
		}()
		r = f
	} else {
		r = strings.NewReader(embedded)
	}

	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.New("invalid CSV format: missing header")
	}
	if len(records[0]) < columns {
		return nil, fmt.Errorf(
			"invalid CSV format: expected at least %d columns, got %d",
			columns,
			len(records[0]),
		)
	}
	return records[1:], nil
}
