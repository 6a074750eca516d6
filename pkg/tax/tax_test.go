package tax_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/amirasaad/fxengine/pkg/domain"
	"github.com/amirasaad/fxengine/pkg/tax"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rule(j, rate string, kind tax.Kind, active bool) tax.Rule {
	return tax.Rule{Jurisdiction: j, Rate: decimal.RequireFromString(rate), Kind: kind, Active: active}
}

func TestStore_Lookup(t *testing.T) {
	store, err := tax.NewStore([]tax.Rule{
		rule("DE", "19", tax.KindVAT, true),
		rule("DE", "16", tax.KindVAT, false),
		rule("us-ca", "7.25", tax.KindSalesTax, true),
		rule("XX", "5", tax.KindVAT, false),
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	tests := []struct {
		jurisdiction string
		rate         string
		wantErr      bool
	}{
		{"DE", "19", false},
		{"de", "19", false},
		{"US-CA", "7.25", false},
		{"XX", "", true},
		{"ZZ", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.jurisdiction, func(t *testing.T) {
			r, err := store.Lookup(tt.jurisdiction)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrTaxRuleNotFound)
				return
			}
			require.NoError(t, err)
			assert.True(t, r.Rate.Equal(decimal.RequireFromString(tt.rate)))
		})
	}
	assert.Len(t, store.Rules(), 4)
}

func TestStore_ReplaceValidation(t *testing.T) {
	store, err := tax.NewStore([]tax.Rule{rule("DE", "19", tax.KindVAT, true)}, nil)
	require.NoError(t, err)

	tests := []struct {
		name  string
		rules []tax.Rule
	}{
		{"two active rules", []tax.Rule{rule("FR", "20", tax.KindVAT, true), rule("fr", "5.5", tax.KindVAT, true)}},
		{"negative rate", []tax.Rule{rule("FR", "-1", tax.KindVAT, true)}},
		{"rate above 100", []tax.Rule{rule("FR", "101", tax.KindVAT, true)}},
		{"unknown kind", []tax.Rule{rule("FR", "20", tax.Kind("tithe"), true)}},
		{"empty jurisdiction", []tax.Rule{rule(" ", "20", tax.KindVAT, true)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, store.Replace(tt.rules), domain.ErrInvalidConfig)
			_, err := store.Lookup("DE")
			assert.NoError(t, err)
		})
	}

	require.NoError(t, store.Replace([]tax.Rule{rule("FR", "20", tax.KindVAT, true)}))
	_, err = store.Lookup("DE")
	assert.ErrorIs(t, err, domain.ErrTaxRuleNotFound)
}
