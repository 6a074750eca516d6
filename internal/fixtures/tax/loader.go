package tax

import (
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/amirasaad/fxengine/pkg/tax"
	"github.com/shopspring/decimal"
)

//go:embed rules.csv
var rulesCSV string

// LoadRulesCSV loads tax rules from a CSV file, or the embedded table when
// path is empty.
func LoadRulesCSV(path string) ([]tax.Rule, error) {
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
		r = strings.NewReader(rulesCSV)
	}

	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 || len(records[0]) < 4 {
		return nil, errors.New("invalid CSV format: expected jurisdiction,rate,kind,active")
	}

	rules := make([]tax.Rule, 0, len(records)-1)
	for i, rec := range records[1:] {
		rate, err := decimal.NewFromString(strings.TrimSpace(rec[1]))
		if err != nil {
			return nil, fmt.Errorf("line %d: rate %q: %w", i+2, rec[1], err)
		}
		active, err := strconv.ParseBool(strings.TrimSpace(rec[3]))
		if err != nil {
			return nil, fmt.Errorf("line %d: active %q: %w", i+2, rec[3], err)
		}
		rules = append(rules, tax.Rule{
			Jurisdiction: rec[0],
			Rate:         rate,
			Kind:         tax.Kind(strings.ToLower(strings.TrimSpace(rec[2]))),
			Active:       active,
		})
	}
	return rules, nil
}
