// Package eventbus defines the domain events emitted by the engine and the
// bus contract that transports them.
package eventbus

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventType names an event on the bus.
type EventType string

func (t EventType) String() string { return string(t) }

const (
	EventTypeRateQuoteRefreshed           EventType = "rate.quote.refreshed"
	EventTypeArbitrageOpportunityDetected EventType = "arbitrage.opportunity.detected"
)

// Event is a domain event.
type Event interface {
	Type() string
}

// HandlerFunc processes one event.
type HandlerFunc func(ctx context.Context, e Event) error

// Emitter publishes events.
type Emitter interface {
	Emit(ctx context.Context, e Event) error
}

// Bus publishes events and dispatches them to registered handlers.
type Bus interface {
	Emitter
	Register(eventType EventType, handler HandlerFunc)
}

// Meta is embedded in every event.
type Meta struct {
	ID         uuid.UUID `json:"id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewMeta stamps a fresh event ID and time.
func NewMeta() Meta {
	return Meta{ID: uuid.New(), OccurredAt: time.Now().UTC()}
}

// RateQuoteRefreshed is emitted when a quote is fetched from an upstream source.
type RateQuoteRefreshed struct {
	Meta
	From       string          `json:"from"`
	To         string          `json:"to"`
	Rate       decimal.Decimal `json:"rate"`
	SourceID   string          `json:"source_id"`
	ObservedAt time.Time       `json:"observed_at"`
	TTL        time.Duration   `json:"ttl"`
}

func (RateQuoteRefreshed) Type() string { return EventTypeRateQuoteRefreshed.String() }

// ArbitrageOpportunityDetected is emitted for each high-risk opportunity found
// by a scan.
type ArbitrageOpportunityDetected struct {
	Meta
	Pair               string          `json:"pair"`
	ForwardRate        decimal.Decimal `json:"forward_rate"`
	ReverseRate        decimal.Decimal `json:"reverse_rate"`
	CrossRate          decimal.Decimal `json:"cross_rate"`
	ProfitPotentialPct decimal.Decimal `json:"profit_potential_pct"`
	RiskLevel          string          `json:"risk_level"`
}

func (ArbitrageOpportunityDetected) Type() string {
	return EventTypeArbitrageOpportunityDetected.String()
}

// Factories builds empty events by type so transports can decode payloads.
var Factories = map[string]func() Event{
	EventTypeRateQuoteRefreshed.String():           func() Event { return &RateQuoteRefreshed{} },
	EventTypeArbitrageOpportunityDetected.String(): func() Event { return &ArbitrageOpportunityDetected{} },
}

// Nop discards every event.
type Nop struct{}

func (Nop) Emit(context.Context, Event) error { return nil }
func (Nop) Register(EventType, HandlerFunc)   {}

var _ Bus = Nop{}
