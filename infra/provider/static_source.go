package provider

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/amirasaad/fxengine/pkg/money"
	"github.com/amirasaad/fxengine/pkg/provider"
	"github.com/shopspring/decimal"
)

// StaticSourceName is the default name of the static source.
const StaticSourceName = "static"

// DefaultStaticRates are indicative USD-based rates for development and
// offline use. Cross pairs are reached by triangulation.
var DefaultStaticRates = map[string]string{
	"USD:EUR":  "0.85",
	"USD:GBP":  "0.79",
	"USD:JPY":  "149.50",
	"USD:CHF":  "0.88",
	"USD:CAD":  "1.36",
	"USD:AUD":  "1.52",
	"USD:CNY":  "7.24",
	"USD:INR":  "83.20",
	"USD:BRL":  "4.95",
	"USD:MXN":  "17.10",
	"USD:KRW":  "1335",
	"USD:SGD":  "1.34",
	"USD:HKD":  "7.82",
	"USD:SEK":  "10.45",
	"USD:NOK":  "10.60",
	"USD:DKK":  "6.86",
	"USD:PLN":  "3.98",
	"USD:NZD":  "1.64",
	"USD:ZAR":  "18.40",
	"USD:TRY":  "32.10",
	"USD:AED":  "3.6725",
	"USD:SAR":  "3.75",
	"USD:KWD":  "0.3075",
	"USD:BHD":  "0.376",
	"USD:MYR":  "4.70",
	"USD:ILS":  "3.70",
	"USD:THB":  "35.90",
	"USD:IDR":  "15650",
	"USD:CZK":  "22.80",
	"USD:HUF":  "355",
	"BTC:USD":  "65000",
	"ETH:USD":  "3200",
	"USDT:USD": "1",
	"USDC:USD": "1",
}

// StaticSource serves quotes from an in-memory table. A pair whose reverse is
// in the table is answered with the reciprocal.
type StaticSource struct {
	name string
	ttl  time.Duration

	mu    sync.RWMutex
	rates map[provider.Pair]decimal.Decimal
}

// NewStaticSource builds a source from "FROM:TO" → rate strings.
func NewStaticSource(name string, rates map[string]string, ttl time.Duration) (*StaticSource, error) {
	if name == "" {
		name = StaticSourceName
	}
	s := &StaticSource{name: name, ttl: ttl, rates: make(map[provider.Pair]decimal.Decimal, len(rates))}
	for raw, r := range rates {
		if err := s.set(raw, r); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// ParseStaticRates parses "USD:EUR=0.85,USD:GBP=0.79".
func ParseStaticRates(raw string) (map[string]string, error) {
	out := map[string]string{}
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		pair, rate, ok := strings.Cut(item, "=")
		if !ok {
			return nil, fmt.Errorf("static rate %q: expected PAIR=RATE", item)
		}
		out[strings.TrimSpace(pair)] = strings.TrimSpace(rate)
	}
	return out, nil
}

func (s *StaticSource) set(rawPair, rawRate string) error {
	p, err := provider.ParsePair(rawPair)
	if err != nil {
		return err
	}
	r, err := decimal.NewFromString(rawRate)
	if err != nil || !r.IsPositive() {
		return fmt.Errorf("static rate %s: %w %q", p, provider.ErrInvalidRate, rawRate)
	}
	s.mu.Lock()
	s.rates[p] = r
	s.mu.Unlock()
	return nil
}

// Set adds or replaces one rate.
func (s *StaticSource) Set(from, to money.Code, rate decimal.Decimal) {
	s.mu.Lock()
	s.rates[provider.Pair{From: from, To: to}] = rate
	s.mu.Unlock()
}

// Name returns the source name.
func (s *StaticSource) Name() string { return s.name }

// Fetch looks the pair up directly, then through its reverse.
func (s *StaticSource) Fetch(ctx context.Context, p provider.Pair) (*provider.RateQuote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	rate, ok := s.rates[p]
	reverse, revOK := s.rates[p.Reverse()]
	s.mu.RUnlock()

	switch {
	case ok:
	case revOK:
		rate = decimal.NewFromInt(1).Div(reverse)
	default:
		return nil, fmt.Errorf("%w: %s", provider.ErrUnsupportedPair, p)
	}
	return &provider.RateQuote{
		From:     p.From,
		To:       p.To,
		Rate:     rate,
		SourceID: s.name,
		TTL:      s.ttl,
	}, nil
}
