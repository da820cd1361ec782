// Package risk provides the order-approval gate.
package risk

import (
	"github.com/rs/zerolog"

	"okx-trader/internal/models"
)

// Gate approves or rejects orders before submission. It is a pure predicate
// of (order, portfolio snapshot, reference price) and holds no state beyond
// its configuration.
//
// The capital check compares order notional directly to available cash. It
// does not model margin for short or derivative exposure, which makes it
// conservative for leveraged instruments; that is a documented limitation,
// not something to silently relax.
type Gate struct {
	maxNotionalPerOrder float64
	logger              zerolog.Logger
}

// NewGate creates a gate with a per-order notional cap in quote currency.
func NewGate(maxNotionalPerOrder float64, logger zerolog.Logger) *Gate {
	return &Gate{
		maxNotionalPerOrder: maxNotionalPerOrder,
		logger:              logger.With().Str("component", "risk").Logger(),
	}
}

// Approve reports whether the order may be submitted. A rejected order is
// simply dropped for this tick; the strategy may regenerate it later.
func (g *Gate) Approve(order *models.Order, state *models.PortfolioState, refPrice float64) bool {
	notional := order.QuoteQuantity
	if notional <= 0 {
		notional = order.Quantity * refPrice
	}

	switch {
	case notional <= 0:
		g.reject(order, notional, "non-positive notional")
		return false
	case notional > g.maxNotionalPerOrder:
		g.reject(order, notional, "exceeds per-order cap")
		return false
	case notional > state.Cash:
		g.reject(order, notional, "exceeds available cash")
		return false
	}

	g.logger.Debug().
		Str("inst_id", order.InstID).
		Str("side", string(order.Side)).
		Float64("notional", notional).
		Float64("cash", state.Cash).
		Msg("Order approved")
	return true
}

func (g *Gate) reject(order *models.Order, notional float64, reason string) {
	g.logger.Warn().
		Str("inst_id", order.InstID).
		Str("side", string(order.Side)).
		Float64("notional", notional).
		Float64("cap", g.maxNotionalPerOrder).
		Str("reason", reason).
		Msg("Order rejected")
}
