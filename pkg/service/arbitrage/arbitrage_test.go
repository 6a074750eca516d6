package arbitrage_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	infraeventbus "github.com/amirasaad/fxengine/infra/eventbus"
	"github.com/amirasaad/fxengine/internal/fixtures/mocks"
	"github.com/amirasaad/fxengine/pkg/domain"
	"github.com/amirasaad/fxengine/pkg/eventbus"
	"github.com/amirasaad/fxengine/pkg/money"
	"github.com/amirasaad/fxengine/pkg/provider"
	"github.com/amirasaad/fxengine/pkg/service/arbitrage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type observedRates map[string]string

func (r observedRates) GetObservedRate(_ context.Context, from, to money.Code) (*provider.RateQuote, error) {
	raw, ok := r[string(from)+":"+string(to)]
	if !ok {
		return nil, fmt.Errorf("%s:%s: %w", from, to, domain.ErrRateUnavailable)
	}
	return &provider.RateQuote{From: from, To: to, Rate: decimal.RequireFromString(raw), SourceID: "static"}, nil
}

type gauge struct {
	mu   sync.Mutex
	last int
	sets int
}

func (g *gauge) SetOpenArbitrageOpportunities(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.last = n
	g.sets++
}

func quote(from, to money.Code, rate, source string) *provider.RateQuote {
	return &provider.RateQuote{From: from, To: to, Rate: decimal.RequireFromString(rate), SourceID: source}
}

func TestScan_SinglePairLowRisk(t *testing.T) {
	rates := mocks.NewRateGetter(t)
	rates.On("GetObservedRate", mock.Anything, money.USD, money.EUR).Return(quote(money.USD, money.EUR, "0.85", "primary"), nil).Once()
	rates.On("GetObservedRate", mock.Anything, money.EUR, money.USD).Return(quote(money.EUR, money.USD, "1.18", "secondary"), nil).Once()

	d := arbitrage.New(rates, arbitrage.Config{}, nil, nil, testLogger())
	report, err := d.Scan(context.Background(), []string{"USD:EUR"})
	require.NoError(t, err)
	require.Len(t, report.Opportunities, 1)
	assert.Empty(t, report.Skipped)

	opp := report.Opportunities[0]
	assert.Equal(t, "USD:EUR", opp.Pair)
	assert.True(t, opp.CrossRate.Equal(decimal.RequireFromString("1.003")), opp.CrossRate.String())
	assert.True(t, opp.ProfitPotentialPct.Equal(decimal.RequireFromString("0.3")), opp.ProfitPotentialPct.String())
	assert.Equal(t, arbitrage.RiskLow, opp.RiskLevel)
	assert.Equal(t, "primary", opp.ForwardSource)
	assert.Equal(t, "secondary", opp.ReverseSource)
	assert.Equal(t, arbitrage.RiskLow, report.AggregateRisk)
	assert.False(t, report.ScannedAt.IsZero())
}

func TestScan_SkipsUnresolvablePairs(t *testing.T) {
	rates := observedRates{
		"USD:EUR": "0.85", "EUR:USD": "1.18",
		"USD:GBP": "0.75", "GBP:USD": "1.34",
		"USD:JPY": "150", "JPY:USD": "0.0066",
		"EUR:GBP": "0.88", "GBP:EUR": "1.14",
		"USD:CHF": "0.9",
	}
	pairs := []string{"USD:EUR", "USD:GBP", "USD:CHF", "USD/JPY", "EUR:GBP"}

	d := arbitrage.New(rates, arbitrage.Config{Concurrency: 2}, nil, nil, testLogger())
	report, err := d.Scan(context.Background(), pairs)
	require.NoError(t, err)

	require.Len(t, report.Opportunities, 4)
	got := make([]string, 0, len(report.Opportunities))
	for _, o := range report.Opportunities {
		got = append(got, o.Pair)
	}
	assert.Equal(t, []string{"USD:EUR", "USD:GBP", "USD:JPY", "EUR:GBP"}, got)

	require.Len(t, report.Skipped, 1)
	assert.Equal(t, "USD:CHF", report.Skipped[0].Pair)
	assert.Equal(t, domain.KindRateUnavailable, report.Skipped[0].Kind)
	assert.NotEmpty(t, report.Skipped[0].Reason)
}

func TestScan_InvalidPairs(t *testing.T) {
	d := arbitrage.New(observedRates{}, arbitrage.Config{}, nil, nil, testLogger())
	report, err := d.Scan(context.Background(), []string{"garbage", "USD:USD"})
	require.NoError(t, err)
	assert.Empty(t, report.Opportunities)
	require.Len(t, report.Skipped, 2)
	for _, s := range report.Skipped {
		assert.Equal(t, domain.KindUnsupportedCurrency, s.Kind, s.Pair)
	}
	assert.Equal(t, arbitrage.RiskLow, report.AggregateRisk)
}

func TestScan_DefaultPairs(t *testing.T) {
	rates := observedRates{"USD:EUR": "0.85", "EUR:USD": "1.18"}
	d := arbitrage.New(rates, arbitrage.Config{DefaultPairs: []string{"USD:EUR"}}, nil, nil, testLogger())

	report, err := d.Scan(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, report.Opportunities, 1)
	assert.Equal(t, "USD:EUR", report.Opportunities[0].Pair)
}

func TestScan_HighRiskUpdatesGaugeAndPublishes(t *testing.T) {
	rates := observedRates{
		"USD:EUR": "0.85", "EUR:USD": "1.25", // cross 1.0625
		"USD:GBP": "0.75", "GBP:USD": "1.40", // cross 1.05
		"USD:JPY": "150", "JPY:USD": "0.0066", // cross 0.99
	}
	g := &gauge{}
	bus := infraeventbus.NewWithMemory(testLogger())
	var received []string
	var mu sync.Mutex
	bus.Register(eventbus.EventTypeArbitrageOpportunityDetected, func(_ context.Context, e eventbus.Event) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, e.(*eventbus.ArbitrageOpportunityDetected).Pair)
		return nil
	})

	d := arbitrage.New(rates, arbitrage.Config{}, g, bus, testLogger())
	report, err := d.Scan(context.Background(), []string{"USD:EUR", "USD:GBP", "USD:JPY"})
	require.NoError(t, err)

	assert.Equal(t, arbitrage.RiskHigh, report.Opportunities[0].RiskLevel)
	assert.Equal(t, arbitrage.RiskHigh, report.Opportunities[1].RiskLevel)
	assert.Equal(t, arbitrage.RiskLow, report.Opportunities[2].RiskLevel)
	assert.Equal(t, arbitrage.RiskMedium, report.AggregateRisk)

	assert.Equal(t, 2, g.last)
	assert.Equal(t, 1, g.sets)
	assert.ElementsMatch(t, []string{"USD:EUR", "USD:GBP"}, received)

	published := bus.Published()
	require.Len(t, published, 2)
	evt := published[0].(*eventbus.ArbitrageOpportunityDetected)
	assert.Equal(t, string(arbitrage.RiskHigh), evt.RiskLevel)
	assert.True(t, evt.ProfitPotentialPct.GreaterThan(decimal.NewFromInt(1)))
}

func TestScan_ConfigurableThreshold(t *testing.T) {
	rates := observedRates{"USD:EUR": "0.85", "EUR:USD": "1.18"}
	d := arbitrage.New(rates, arbitrage.Config{Threshold: decimal.RequireFromString("0.1")}, nil, nil, testLogger())

	report, err := d.Scan(context.Background(), []string{"USD:EUR"})
	require.NoError(t, err)
	assert.Equal(t, arbitrage.RiskHigh, report.Opportunities[0].RiskLevel)
	assert.Equal(t, arbitrage.RiskHigh, report.AggregateRisk)
}

func TestEvaluate(t *testing.T) {
	threshold := arbitrage.DefaultThreshold
	tests := []struct {
		name    string
		fwd     string
		rev     string
		wantPct string
		want    arbitrage.RiskLevel
	}{
		{"consistent", "0.8", "1.25", "0", arbitrage.RiskLow},
		{"exactly at threshold", "1", "1.01", "1", arbitrage.RiskLow},
		{"above threshold", "1", "1.0101", "1.01", arbitrage.RiskHigh},
		{"below parity", "0.5", "1.9", "5", arbitrage.RiskHigh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opp := arbitrage.Evaluate("A:B", decimal.RequireFromString(tt.fwd), decimal.RequireFromString(tt.rev), threshold)
			assert.True(t, opp.ProfitPotentialPct.Equal(decimal.RequireFromString(tt.wantPct)), opp.ProfitPotentialPct.String())
			assert.Equal(t, tt.want, opp.RiskLevel)
		})
	}
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		high, total int
		want        arbitrage.RiskLevel
	}{
		{0, 0, arbitrage.RiskLow},
		{0, 5, arbitrage.RiskLow},
		{3, 10, arbitrage.RiskLow},
		{4, 10, arbitrage.RiskMedium},
		{7, 10, arbitrage.RiskMedium},
		{8, 10, arbitrage.RiskHigh},
		{1, 1, arbitrage.RiskHigh},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_of_%d", tt.high, tt.total), func(t *testing.T) {
			assert.Equal(t, tt.want, arbitrage.Aggregate(tt.high, tt.total))
		})
	}
}
