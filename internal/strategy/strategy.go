// Package strategy defines the strategy contract and built-in strategies.
package strategy

import "okx-trader/internal/models"

// Strategy receives market data updates and outputs orders.
type Strategy interface {
	// Name returns the strategy identifier.
	Name() string

	// OnStart is called once before the event loop starts.
	OnStart()

	// OnTick handles a tick and returns zero or more new orders. It is
	// called once per tick for the lifetime of the loop.
	OnTick(tick models.Tick) []models.Order

	// OnEnd is called exactly once when the loop ends; it may return final
	// liquidating orders.
	OnEnd() []models.Order
}
