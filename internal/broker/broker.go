// Package broker provides order execution implementations.
package broker

import (
	"context"

	"okx-trader/internal/models"
)

// Broker abstracts order execution and portfolio state. Submit consumes a
// single order and returns the resulting fills, which may be empty when
// nothing executed. Orders are never retried by the broker.
type Broker interface {
	// Name returns the broker identifier (e.g. "okx", "paper").
	Name() string

	// Submit sends an order for execution and returns the fills obtained
	// before the order resolved or the broker's wait budget elapsed.
	Submit(ctx context.Context, order *models.Order) ([]models.Fill, error)

	// GetPortfolio returns the current portfolio state.
	GetPortfolio(ctx context.Context) (*models.PortfolioState, error)
}

// PriceSetter is an optional broker capability for manual price injection.
// Brokers that fill against engine-supplied reference prices implement it;
// the engine checks for it explicitly instead of probing attributes.
type PriceSetter interface {
	SetLastPrice(instID string, price float64)
}
