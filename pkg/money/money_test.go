package money_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/amirasaad/fxengine/pkg/domain"
	"github.com/amirasaad/fxengine/pkg/money"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func TestCode_IsValid(t *testing.T) {
	tests := []struct {
		code money.Code
		want bool
	}{
		{"USD", true},
		{"USDT", true},
		{"DOGE", true},
		{"usd", false},
		{"US", false},
		{"1INCH", false},
		{"TOOLONG", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.IsValid())
		})
	}
	assert.Equal(t, money.EUR, money.ParseCode(" eur "))
}

func TestRound(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		digits int
		mode   money.RoundingMode
		want   string
	}{
		{"half up tie", "0.125", 2, money.RoundHalfUp, "0.13"},
		{"half up below tie", "0.1249", 2, money.RoundHalfUp, "0.12"},
		{"half even tie to even", "0.125", 2, money.RoundHalfEven, "0.12"},
		{"half even tie to odd", "0.135", 2, money.RoundHalfEven, "0.14"},
		{"down", "1.999", 2, money.RoundDown, "1.99"},
		{"up", "1.001", 2, money.RoundUp, "1.01"},
		{"zero digits", "1000.5", 0, money.RoundHalfUp, "1001"},
		{"crypto precision", "0.123456789", 8, money.RoundHalfUp, "0.12345679"},
		{"unknown mode falls back to half up", "2.345", 2, money.RoundingMode("bogus"), "2.35"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := money.Round(dec(t, tt.amount), tt.digits, tt.mode)
			assert.Equal(t, tt.want, got.StringFixed(int32(tt.digits)))
		})
	}
}

func TestParseRoundingMode(t *testing.T) {
	m, err := money.ParseRoundingMode("")
	require.NoError(t, err)
	assert.Equal(t, money.RoundHalfUp, m)

	m, err = money.ParseRoundingMode("HALF_EVEN")
	require.NoError(t, err)
	assert.Equal(t, money.RoundHalfEven, m)

	_, err = money.ParseRoundingMode("ceiling")
	require.ErrorIs(t, err, money.ErrUnknownRoundingMode)

	assert.True(t, money.RoundDown.IsValid())
	assert.False(t, money.RoundingMode("").IsValid())
}

func TestNew_RoundsToCurrencyPrecision(t *testing.T) {
	usd := money.Currency{Code: money.USD, Decimals: 2}
	jpy := money.Currency{Code: money.JPY, Decimals: 0}

	m, err := money.New(dec(t, "100.999"), usd, money.RoundHalfUp)
	require.NoError(t, err)
	assert.Equal(t, "101.00 USD", m.String())

	m, err = money.New(dec(t, "1000.4"), jpy, money.RoundHalfUp)
	require.NoError(t, err)
	assert.Equal(t, "1000", m.Fixed())

	_, err = money.New(decimal.NewFromInt(1), money.Currency{Code: "usd", Decimals: 2}, money.RoundHalfUp)
	require.ErrorIs(t, err, money.ErrInvalidCurrency)

	_, err = money.New(decimal.NewFromInt(1), money.Currency{Code: money.BTC, Decimals: 9}, money.RoundHalfUp)
	require.ErrorIs(t, err, money.ErrInvalidCurrency)
}

func TestMoney_Add(t *testing.T) {
	usd := money.Currency{Code: money.USD, Decimals: 2}
	eur := money.Currency{Code: money.EUR, Decimals: 2}
	a, _ := money.New(dec(t, "10.10"), usd, money.RoundHalfUp)
	b, _ := money.New(dec(t, "0.90"), usd, money.RoundHalfUp)
	c, _ := money.New(dec(t, "1"), eur, money.RoundHalfUp)

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, "11.00", sum.Fixed())

	_, err = a.Add(c)
	assert.ErrorIs(t, err, money.ErrMismatchedCurrencies)
}

func TestMoney_MarshalJSON(t *testing.T) {
	m, err := money.New(dec(t, "85"), money.Currency{Code: money.EUR, Decimals: 2}, money.RoundHalfUp)
	require.NoError(t, err)
	b, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"85.00","currency":"EUR","decimals":2}`, string(b))
}

func TestParseAmount(t *testing.T) {
	d, err := money.ParseAmount(" 12.50 ")
	require.NoError(t, err)
	assert.True(t, d.Equal(dec(t, "12.5")))

	for _, bad := range []string{"", "abc", "NaN", "-Inf", "infinity"} {
		_, err := money.ParseAmount(bad)
		assert.ErrorIs(t, err, money.ErrInvalidAmount, bad)
		assert.Equal(t, domain.KindInvalidAmount, domain.KindOf(err), bad)
	}

	_, err = money.FromFloat(math.NaN())
	assert.ErrorIs(t, err, money.ErrInvalidAmount)
	_, err = money.FromFloat(math.Inf(1))
	assert.ErrorIs(t, err, money.ErrInvalidAmount)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	f, err := money.FromFloat(1.5)
	require.NoError(t, err)
	assert.Equal(t, "1.5", f.String())
}
