package conversion_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/amirasaad/fxengine/infra/cache"
	currencyfixtures "github.com/amirasaad/fxengine/internal/fixtures/currency"
	"github.com/amirasaad/fxengine/internal/fixtures/mocks"
	"github.com/amirasaad/fxengine/pkg/currency"
	"github.com/amirasaad/fxengine/pkg/domain"
	"github.com/amirasaad/fxengine/pkg/money"
	"github.com/amirasaad/fxengine/pkg/provider"
	"github.com/amirasaad/fxengine/pkg/provider/exchange"
	"github.com/amirasaad/fxengine/pkg/service/conversion"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func registry(t *testing.T) *currency.Registry {
	t.Helper()
	entries, err := currencyfixtures.LoadCurrencyMetaCSV("")
	require.NoError(t, err)
	reg, err := currency.NewRegistry(entries, discard())
	require.NoError(t, err)
	return reg
}

// tableRates answers from a fixed table, deriving reverse pairs as 1/rate.
type tableRates map[string]string

func (r tableRates) GetRate(_ context.Context, from, to money.Code) (*provider.RateQuote, error) {
	p := provider.Pair{From: from, To: to}
	if raw, ok := r[p.String()]; ok {
		return &provider.RateQuote{From: from, To: to, Rate: decimal.RequireFromString(raw), SourceID: "table"}, nil
	}
	if raw, ok := r[p.Reverse().String()]; ok {
		inv := decimal.NewFromInt(1).Div(decimal.RequireFromString(raw))
		return &provider.RateQuote{From: from, To: to, Rate: inv, SourceID: "table", Derived: true}, nil
	}
	return nil, domain.Errorf(domain.KindRateUnavailable, "no rate for %s", p)
}

type countingRecorder struct {
	mu    sync.Mutex
	pairs []string
}

func (r *countingRecorder) ConversionRecorded(from, to string) {
	r.mu.Lock()
	r.pairs = append(r.pairs, from+":"+to)
	r.mu.Unlock()
}

var rates = tableRates{
	"USD:EUR": "0.85",
	"USD:JPY": "151.234",
	"USD:KWD": "0.30712",
	"EUR:GBP": "0.8571",
	"USD:BTC": "0.0000154",
}

func newService(t *testing.T, cfg conversion.Config, rec conversion.Recorder) *conversion.Service {
	t.Helper()
	svc, err := conversion.New(registry(t), rates, cfg, rec, discard())
	require.NoError(t, err)
	return svc
}

func TestConvert(t *testing.T) {
	defaults := conversion.Config{FeeRate: conversion.DefaultFeeRate}
	tests := []struct {
		name      string
		amount    string
		from, to  string
		opts      []conversion.Option
		want      string
		wantFee   string
		precision int
	}{
		{"zero fee", "100", "USD", "EUR", []conversion.Option{conversion.WithFeeRate(decimal.Zero)}, "85.00", "0.00", 2},
		{"default fee deducted", "100", "USD", "EUR", nil, "84.91", "0.09", 2},
		{"fee added", "100", "USD", "EUR", []conversion.Option{conversion.WithFeeMode(conversion.FeeAdd)}, "85.09", "0.09", 2},
		{"half even fee", "100", "USD", "EUR", []conversion.Option{conversion.WithRounding(money.RoundHalfEven)}, "84.92", "0.08", 2},
		{"zero decimal target", "100", "USD", "JPY", []conversion.Option{conversion.WithFeeRate(decimal.Zero)}, "15123", "0", 0},
		{"three decimal target", "100", "USD", "KWD", []conversion.Option{conversion.WithFeeRate(decimal.Zero)}, "30.712", "0.000", 3},
		{"crypto target", "1000", "USD", "BTC", []conversion.Option{conversion.WithFeeRate(decimal.Zero)}, "0.01540000", "0.00000000", 8},
		{"derived reverse rate", "85", "eur", "usd", []conversion.Option{conversion.WithFeeRate(decimal.Zero)}, "100.00", "0.00", 2},
		{"zero amount", "0", "USD", "EUR", nil, "0.00", "0.00", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newService(t, defaults, nil)
			res, err := svc.Convert(context.Background(), decimal.RequireFromString(tt.amount), tt.from, tt.to, tt.opts...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.ConvertedAmount.Fixed())
			assert.Equal(t, tt.wantFee, res.FeeApplied.Fixed())
			assert.Equal(t, tt.precision, res.Precision)
			assert.Equal(t, "table", res.SourceID)
			assert.NotEmpty(t, res.RoundingPolicy)
		})
	}
}

func TestConvert_Identity(t *testing.T) {
	rec := &countingRecorder{}
	getter := mocks.NewRateGetter(t)
	svc, err := conversion.New(registry(t), getter, conversion.Config{FeeRate: conversion.DefaultFeeRate}, rec, discard())
	require.NoError(t, err)

	res, err := svc.Convert(context.Background(), decimal.RequireFromString("10.005"), "USD", "usd")
	require.NoError(t, err)
	assert.Equal(t, "10.01", res.ConvertedAmount.Fixed())
	assert.True(t, res.RateUsed.Equal(decimal.NewFromInt(1)))
	assert.True(t, res.FeeApplied.Amount().IsZero())
	assert.Equal(t, exchange.IdentitySource, res.SourceID)
	assert.Equal(t, []string{"USD:USD"}, rec.pairs)
	getter.AssertNotCalled(t, "GetRate", mock.Anything, mock.Anything, mock.Anything)
}

func TestConvert_Errors(t *testing.T) {
	svc := newService(t, conversion.Config{}, nil)
	ctx := context.Background()
	hundred := decimal.NewFromInt(100)

	_, err := svc.Convert(ctx, decimal.NewFromInt(-1), "USD", "EUR")
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = svc.Convert(ctx, hundred, "XXX", "EUR")
	assert.ErrorIs(t, err, domain.ErrUnsupportedCurrency)

	_, err = svc.Convert(ctx, hundred, "USD", "HRK")
	assert.ErrorIs(t, err, domain.ErrUnsupportedCurrency, "inactive currency")

	_, err = svc.Convert(ctx, hundred, "EUR", "CHF")
	assert.ErrorIs(t, err, domain.ErrRateUnavailable)

	_, err = svc.Convert(ctx, hundred, "USD", "EUR", conversion.WithFeeRate(decimal.RequireFromString("1.5")))
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	assert.ErrorContains(t, err, "fee rate 1.5")

	_, err = svc.Convert(ctx, hundred, "USD", "EUR", conversion.WithRounding("ceiling"))
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	_, err = svc.Convert(ctx, hundred, "USD", "EUR", conversion.WithFeeMode("split"))
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	_, err = conversion.New(registry(t), rates, conversion.Config{FeeRate: decimal.NewFromInt(-1)}, nil, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
	assert.ErrorContains(t, err, "fee rate -1")
}

func TestConvert_RoundTripWithinOneMinorUnit(t *testing.T) {
	svc := newService(t, conversion.Config{}, nil)
	ctx := context.Background()
	cases := []struct {
		from, to string
		amounts  []string
	}{
		{"USD", "EUR", []string{"0.01", "1", "19.99", "100.01", "12345.67", "0.99"}},
		{"EUR", "GBP", []string{"0.05", "7.77", "250", "9999.99"}},
		{"USD", "BTC", []string{"1", "1.23", "45000", "0.5"}},
		{"JPY", "USD", []string{"1", "3", "999", "150000"}},
		{"USD", "KWD", []string{"0.01", "3.33", "1000"}},
	}
	for _, c := range cases {
		src, err := registry(t).Lookup(c.from)
		require.NoError(t, err)
		unit := decimal.New(1, -int32(src.Decimals))
		for _, raw := range c.amounts {
			a := decimal.RequireFromString(raw)
			there, err := svc.Convert(ctx, a, c.from, c.to)
			require.NoError(t, err)
			back, err := svc.Convert(ctx, there.ConvertedAmount.Amount(), c.to, c.from)
			require.NoError(t, err)
			diff := back.ConvertedAmount.Amount().Sub(a).Abs()
			assert.True(t, diff.LessThanOrEqual(unit), "%s %s->%s->%s drifted by %s", raw, c.from, c.to, c.from, diff)
		}
	}
}

func TestConvert_FallbackAndSingleFlightThroughProvider(t *testing.T) {
	pair := provider.NewPair("USD", "EUR")
	primary := mocks.NewRateSource(t, "primary")
	primary.On("Fetch", mock.Anything, pair).Return(nil, errors.New("upstream 503")).Once()

	secondary := mocks.NewRateSource(t, "secondary")
	secondary.On("Fetch", mock.Anything, pair).
		After(20*time.Millisecond).
		Return(&provider.RateQuote{From: money.USD, To: money.EUR, Rate: decimal.RequireFromString("0.85")}, nil).
		Once()

	lru, err := cache.NewLRUCache(16, discard())
	require.NoError(t, err)
	p, err := exchange.New(exchange.Config{
		Sources: []exchange.SourceConfig{{Source: primary}, {Source: secondary}},
	}, lru, exchange.WithLogger(discard()))
	require.NoError(t, err)

	rec := &countingRecorder{}
	svc, err := conversion.New(registry(t), p, conversion.Config{}, rec, discard())
	require.NoError(t, err)

	const callers = 20
	var wg sync.WaitGroup
	results := make([]*conversion.Result, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.Convert(context.Background(), decimal.NewFromInt(100), "USD", "EUR")
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "85.00", results[i].ConvertedAmount.Fixed())
		assert.Equal(t, "secondary", results[i].SourceID)
	}
	assert.Len(t, rec.pairs, callers)
}
