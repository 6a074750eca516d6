package app

import (
	"context"

	"github.com/amirasaad/fxengine/pkg/eventbus"
)

// setupEventBus registers the in-process event handlers.
func (a *App) setupEventBus() {
	bus := a.Deps.EventBus
	logger := a.Deps.Logger.With("component", "event_handlers")

	bus.Register(
		eventbus.EventTypeRateQuoteRefreshed,
		func(_ context.Context, e eventbus.Event) error {
			evt, ok := e.(*eventbus.RateQuoteRefreshed)
			if !ok {
				return nil
			}
			logger.Debug("rate quote refreshed",
				"from", evt.From,
				"to", evt.To,
				"rate", evt.Rate,
				"source", evt.SourceID)
			return nil
		},
	)
	bus.Register(
		eventbus.EventTypeArbitrageOpportunityDetected,
		func(_ context.Context, e eventbus.Event) error {
			evt, ok := e.(*eventbus.ArbitrageOpportunityDetected)
			if !ok {
				return nil
			}
			logger.Warn("arbitrage opportunity detected",
				"pair", evt.Pair,
				"cross_rate", evt.CrossRate,
				"profit_potential_pct", evt.ProfitPotentialPct,
				"risk", evt.RiskLevel)
			return nil
		},
	)
}
