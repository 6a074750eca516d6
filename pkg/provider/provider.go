// Package provider defines exchange-rate quotes and the sources that produce them.
package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/amirasaad/fxengine/pkg/money"
	"github.com/shopspring/decimal"
)

// Common errors for provider operations
var (
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrUnsupportedPair     = errors.New("unsupported currency pair")
	ErrInvalidRate         = errors.New("invalid rate")
	ErrInvalidPair         = errors.New("invalid currency pair")
)

// Pair is an ordered currency pair.
type Pair struct {
	From money.Code `json:"from"`
	To   money.Code `json:"to"`
}

// NewPair builds a pair from raw codes, normalising case.
func NewPair(from, to string) Pair {
	return Pair{From: money.ParseCode(from), To: money.ParseCode(to)}
}

// ParsePair parses "USD:EUR" (or "USD/EUR").
func ParsePair(raw string) (Pair, error) {
	sep := ":"
	if !strings.Contains(raw, sep) {
		sep = "/"
	}
	from, to, ok := strings.Cut(raw, sep)
	if !ok {
		return Pair{}, fmt.Errorf("%w: %q", ErrInvalidPair, raw)
	}
	p := NewPair(from, to)
	if !p.From.IsValid() || !p.To.IsValid() {
		return Pair{}, fmt.Errorf("%w: %q", ErrInvalidPair, raw)
	}
	return p, nil
}

// String returns "FROM:TO".
func (p Pair) String() string { return string(p.From) + ":" + string(p.To) }

// Reverse returns the pair with sides swapped.
func (p Pair) Reverse() Pair { return Pair{From: p.To, To: p.From} }

// IsIdentity reports whether both sides are the same currency.
func (p Pair) IsIdentity() bool { return p.From == p.To }

// RateQuote is an exchange rate observed or derived at a point in time.
// One unit of From buys Rate units of To.
type RateQuote struct {
	From       money.Code      `json:"from"`
	To         money.Code      `json:"to"`
	Rate       decimal.Decimal `json:"rate"`
	SourceID   string          `json:"source_id"`
	ObservedAt time.Time       `json:"observed_at"`
	TTL        time.Duration   `json:"ttl"`
	// Derived marks inverse and triangulated quotes.
	Derived bool `json:"derived"`
	// Via is the pivot currency of a triangulated quote.
	Via money.Code `json:"via,omitempty"`
}

// Pair returns the quote's pair.
func (q *RateQuote) Pair() Pair { return Pair{From: q.From, To: q.To} }

// ExpiresAt returns the instant after which the quote must not be used.
func (q *RateQuote) ExpiresAt() time.Time { return q.ObservedAt.Add(q.TTL) }

// ValidAt reports whether the quote has a positive rate and is still fresh at now.
func (q *RateQuote) ValidAt(now time.Time) bool {
	return q != nil && q.Rate.IsPositive() && now.Before(q.ExpiresAt())
}

// Inverse returns the derived reverse quote (1/rate) sharing source and validity.
func (q *RateQuote) Inverse() *RateQuote {
	return &RateQuote{
		From:       q.To,
		To:         q.From,
		Rate:       decimal.NewFromInt(1).Div(q.Rate),
		SourceID:   q.SourceID,
		ObservedAt: q.ObservedAt,
		TTL:        q.TTL,
		Derived:    true,
		Via:        q.Via,
	}
}

// Validate checks that the quote matches pair and carries a usable rate.
func (q *RateQuote) Validate(p Pair) error {
	switch {
	case q == nil:
		return fmt.Errorf("%w: empty quote", ErrInvalidRate)
	case q.Pair() != p:
		return fmt.Errorf("%w: quote for %s, asked %s", ErrInvalidRate, q.Pair(), p)
	case !q.Rate.IsPositive():
		return fmt.Errorf("%w: %s for %s", ErrInvalidRate, q.Rate, p)
	case q.TTL <= 0:
		return fmt.Errorf("%w: non-positive ttl for %s", ErrInvalidRate, p)
	}
	return nil
}

// RateSource fetches quotes from one upstream.
type RateSource interface {
	// Name identifies the source in quotes, logs and metrics.
	Name() string
	// Fetch returns a directly observed quote for p.
	Fetch(ctx context.Context, p Pair) (*RateQuote, error)
}

// HealthChecker is implemented by sources that can report their own health.
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}
