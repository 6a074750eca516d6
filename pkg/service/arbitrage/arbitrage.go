// Package arbitrage scans currency pairs for forward/reverse rate
// inconsistencies.
//
// For a pair A:B the detector fetches A→B and B→A as two observed quotes and
// computes cross = forward × reverse. A consistent market gives cross = 1;
// the deviation |1 − cross| × 100 is the profit potential in percent.
package arbitrage

import (
	"context"
	"log/slog"
	"time"

	"github.com/amirasaad/fxengine/pkg/domain"
	"github.com/amirasaad/fxengine/pkg/eventbus"
	"github.com/amirasaad/fxengine/pkg/money"
	"github.com/amirasaad/fxengine/pkg/provider"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// RiskLevel classifies an opportunity or a whole scan.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

const DefaultConcurrency = 4

var (
	// DefaultThreshold is the profit potential (percent) above which an
	// opportunity is high risk.
	DefaultThreshold = decimal.NewFromInt(1)

	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// RateGetter supplies directly observed quotes. *exchange.Provider
// implements it.
type RateGetter interface {
	GetObservedRate(ctx context.Context, from, to money.Code) (*provider.RateQuote, error)
}

// Recorder receives the high-risk count of each scan.
type Recorder interface {
	SetOpenArbitrageOpportunities(n int)
}

// Config configures a Detector.
type Config struct {
	Threshold    decimal.Decimal
	DefaultPairs []string
	Concurrency  int
}

// Opportunity is the cross-rate analysis of one pair.
type Opportunity struct {
	Pair               string          `json:"pair"`
	ForwardRate        decimal.Decimal `json:"forward_rate"`
	ReverseRate        decimal.Decimal `json:"reverse_rate"`
	CrossRate          decimal.Decimal `json:"cross_rate"`
	ProfitPotentialPct decimal.Decimal `json:"profit_potential_pct"`
	RiskLevel          RiskLevel       `json:"risk_level"`
	ForwardSource      string          `json:"forward_source"`
	ReverseSource      string          `json:"reverse_source"`
}

// SkippedPair is a pair the scan could not analyse.
type SkippedPair struct {
	Pair   string      `json:"pair"`
	Reason string      `json:"reason"`
	Kind   domain.Kind `json:"kind,omitempty"`
}

// Report is the result of one scan.
type Report struct {
	Opportunities []Opportunity `json:"opportunities"`
	Skipped       []SkippedPair `json:"skipped"`
	AggregateRisk RiskLevel     `json:"aggregate_risk"`
	ScannedAt     time.Time     `json:"scanned_at"`
}

// Detector scans pairs.
type Detector struct {
	rates    RateGetter
	cfg      Config
	recorder Recorder
	emitter  eventbus.Emitter
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a Detector. recorder and emitter may be nil.
func New(rates RateGetter, cfg Config, recorder Recorder, emitter eventbus.Emitter, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Threshold.IsZero() {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if emitter == nil {
		emitter = eventbus.Nop{}
	}
	return &Detector{
		rates:    rates,
		cfg:      cfg,
		recorder: recorder,
		emitter:  emitter,
		logger:   logger.With("component", "arbitrage_detector"),
		now:      time.Now,
	}
}

// Scan analyses pairs ("USD:EUR" or "USD/EUR"), or the configured default
// pairs when none are given. A pair that cannot be parsed or priced is
// reported in Skipped and never fails the scan.
func (d *Detector) Scan(ctx context.Context, pairs []string) (*Report, error) {
	if len(pairs) == 0 {
		pairs = d.cfg.DefaultPairs
	}

	type outcome struct {
		opp     *Opportunity
		skipped *SkippedPair
	}
	outcomes := make([]outcome, len(pairs))

	var g errgroup.Group
	g.SetLimit(d.cfg.Concurrency)
	for i, raw := range pairs {
		g.Go(func() error {
			opp, err := d.analyse(ctx, raw)
			if err != nil {
				d.logger.Debug("pair skipped", "pair", raw, "error", err)
				outcomes[i].skipped = &SkippedPair{Pair: raw, Reason: err.Error(), Kind: domain.KindOf(err)}
				return nil
			}
			outcomes[i].opp = opp
			return nil
		})
	}
	_ = g.Wait()

	report := &Report{
		Opportunities: []Opportunity{},
		Skipped:       []SkippedPair{},
		ScannedAt:     d.now().UTC(),
	}
	high := 0
	for _, o := range outcomes {
		switch {
		case o.opp != nil:
			report.Opportunities = append(report.Opportunities, *o.opp)
			if o.opp.RiskLevel == RiskHigh {
				high++
			}
		case o.skipped != nil:
			report.Skipped = append(report.Skipped, *o.skipped)
		}
	}
	report.AggregateRisk = Aggregate(high, len(report.Opportunities))

	if d.recorder != nil {
		d.recorder.SetOpenArbitrageOpportunities(high)
	}
	d.publish(ctx, report.Opportunities)
	d.logger.Info("arbitrage scan complete",
		"pairs", len(pairs),
		"opportunities", len(report.Opportunities),
		"high_risk", high,
		"skipped", len(report.Skipped),
		"aggregate_risk", report.AggregateRisk)
	return report, nil
}

func (d *Detector) analyse(ctx context.Context, raw string) (*Opportunity, error) {
	pair, err := provider.ParsePair(raw)
	if err != nil {
		return nil, domain.Wrap(domain.KindUnsupportedCurrency, err, "invalid pair")
	}
	if pair.IsIdentity() {
		return nil, domain.Errorf(domain.KindUnsupportedCurrency, "pair %s has the same currency on both sides", pair)
	}
	fwd, err := d.rates.GetObservedRate(ctx, pair.From, pair.To)
	if err != nil {
		return nil, err
	}
	rev, err := d.rates.GetObservedRate(ctx, pair.To, pair.From)
	if err != nil {
		return nil, err
	}
	opp := Evaluate(pair.String(), fwd.Rate, rev.Rate, d.cfg.Threshold)
	opp.ForwardSource = fwd.SourceID
	opp.ReverseSource = rev.SourceID
	return &opp, nil
}

func (d *Detector) publish(ctx context.Context, opps []Opportunity) {
	for _, o := range opps {
		if o.RiskLevel != RiskHigh {
			continue
		}
		err := d.emitter.Emit(ctx, &eventbus.ArbitrageOpportunityDetected{
			Meta:               eventbus.NewMeta(),
			Pair:               o.Pair,
			ForwardRate:        o.ForwardRate,
			ReverseRate:        o.ReverseRate,
			CrossRate:          o.CrossRate,
			ProfitPotentialPct: o.ProfitPotentialPct,
			RiskLevel:          string(o.RiskLevel),
		})
		if err != nil {
			d.logger.Warn("failed to publish arbitrage event", "pair", o.Pair, "error", err)
		}
	}
}

// Evaluate computes the cross rate and risk of a forward/reverse rate pair.
func Evaluate(pair string, forward, reverse, threshold decimal.Decimal) Opportunity {
	cross := forward.Mul(reverse)
	pct := one.Sub(cross).Abs().Mul(hundred)
	risk := RiskLow
	if pct.GreaterThan(threshold) {
		risk = RiskHigh
	}
	return Opportunity{
		Pair:               pair,
		ForwardRate:        forward,
		ReverseRate:        reverse,
		CrossRate:          cross,
		ProfitPotentialPct: pct,
		RiskLevel:          risk,
	}
}

// Aggregate labels a scan: high when more than 70% of opportunities are high
// risk, medium when more than 30%, otherwise low.
func Aggregate(high, total int) RiskLevel {
	if total == 0 {
		return RiskLow
	}
	share := float64(high) / float64(total)
	switch {
	case share > 0.7:
		return RiskHigh
	case share > 0.3:
		return RiskMedium
	default:
		return RiskLow
	}
}
