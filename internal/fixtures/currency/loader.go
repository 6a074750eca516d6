package currency

import (
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/amirasaad/fxengine/pkg/currency"
	"github.com/amirasaad/fxengine/pkg/money"
)

//go:embed meta.csv
var metaCSV string

var header = []string{"code", "name", "symbol", "decimals", "category", "priority", "active"}

// LoadCurrencyMetaCSV loads the currency table from a CSV file or embedded content.
// If path is empty, it uses the embedded CSV content.
func LoadCurrencyMetaCSV(path string) ([]currency.Currency, error) {
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
		r = strings.NewReader(metaCSV)
	}

	return parseCurrencyMetaCSV(r)
}

func parseCurrencyMetaCSV(r io.Reader) ([]currency.Currency, error) {
	csvReader := csv.NewReader(r)
	csvReader.TrimLeadingSpace = true
	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.New("invalid CSV format: missing header")
	}
	if len(records[0]) < len(header) {
		return nil, fmt.Errorf(
			"invalid CSV format: expected at least %d columns, got %d",
			len(header),
			len(records[0]),
		)
	}

	out := make([]currency.Currency, 0, len(records)-1)
	for i, rec := range records[1:] {
		line := i + 2
		decimals, err := strconv.Atoi(rec[3])
		if err != nil {
			return nil, fmt.Errorf("line %d: decimals %q: %w", line, rec[3], err)
		}
		priority, err := strconv.Atoi(rec[5])
		if err != nil {
			return nil, fmt.Errorf("line %d: priority %q: %w", line, rec[5], err)
		}
		category, err := currency.ParseCategory(strings.ToLower(rec[4]))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, currency.Currency{
			Code:     money.ParseCode(rec[0]),
			Name:     rec[1],
			Symbol:   rec[2],
			Decimals: decimals,
			Category: category,
			Priority: priority,
			Active:   strings.EqualFold(rec[6], "true"),
		})
	}
	return out, nil
}
