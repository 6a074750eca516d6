package region_test

import (
	"testing"

	"github.com/amirasaad/fxengine/pkg/domain"
	"github.com/amirasaad/fxengine/pkg/money"
	"github.com/amirasaad/fxengine/pkg/region"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleConfig() region.Config {
	return region.Config{
		Default: "global",
		Regions: []region.Region{
			{Code: "GLOBAL", Preferred: "USD", Currencies: []money.Code{"USD", "EUR"}, Locale: "en-US"},
			{Code: "de", Preferred: "eur", Currencies: []money.Code{"eur", "usd", "chf"}, Locale: "de-DE"},
		},
	}
}

func TestTable_LookupAndResolve(t *testing.T) {
	table, err := region.NewTable(sampleConfig(), nil)
	require.NoError(t, err)

	de, err := table.Lookup(" De ")
	require.NoError(t, err)
	assert.Equal(t, "DE", de.Code)
	assert.Equal(t, money.EUR, de.Preferred)
	assert.Equal(t, []money.Code{"EUR", "USD", "CHF"}, de.Currencies)

	_, err = table.Lookup("ATLANTIS")
	assert.ErrorIs(t, err, domain.ErrUnsupportedRegion)

	assert.Equal(t, "GLOBAL", table.Resolve("ATLANTIS").Code)
	assert.Equal(t, "GLOBAL", table.Resolve("").Code)
	assert.Equal(t, "DE", table.Resolve("de").Code)
}

func TestTable_ReplaceValidation(t *testing.T) {
	table, err := region.NewTable(sampleConfig(), nil)
	require.NoError(t, err)

	tests := []struct {
		name string
		cfg  region.Config
	}{
		{"missing default", region.Config{Default: "XX", Regions: sampleConfig().Regions}},
		{"preferred not offered", region.Config{Default: "A", Regions: []region.Region{
			{Code: "A", Preferred: "GBP", Currencies: []money.Code{"USD"}},
		}}},
		{"no currencies", region.Config{Default: "A", Regions: []region.Region{{Code: "A", Preferred: "USD"}}}},
		{"invalid currency", region.Config{Default: "A", Regions: []region.Region{
			{Code: "A", Preferred: "USD", Currencies: []money.Code{"USD", "$$"}},
		}}},
		{"duplicate", region.Config{Default: "A", Regions: []region.Region{
			{Code: "A", Preferred: "USD", Currencies: []money.Code{"USD"}},
			{Code: "a", Preferred: "USD", Currencies: []money.Code{"USD"}},
		}}},
		{"empty code", region.Config{Default: "", Regions: []region.Region{
			{Code: "", Preferred: "USD", Currencies: []money.Code{"USD"}},
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, table.Replace(tt.cfg), domain.ErrInvalidConfig)
			assert.Equal(t, "GLOBAL", table.Default().Code)
		})
	}
}
