// Package portfolio provides the position-netting ledger.
package portfolio

import (
	"math"
	"sync"

	"okx-trader/internal/models"
)

// Portfolio is the exclusive owner of cash and the position map. It is
// mutated only by applying fills.
//
// The orchestration loop is single-threaded, but a streaming feed's
// background worker may read prices or snapshots concurrently, so all entry
// points are internally synchronized.
type Portfolio struct {
	mu        sync.Mutex
	cash      float64
	positions map[string]*models.Position
}

// New creates a portfolio with the given starting cash and no positions.
func New(startingCash float64) *Portfolio {
	return &Portfolio{
		cash:      startingCash,
		positions: make(map[string]*models.Position),
	}
}

// ApplyFill folds a fill into the ledger.
//
// Netting rules:
//   - A fill that opens a position sets avg price to the fill price.
//   - A fill in the same direction as the existing position blends the
//     average price by notional weight.
//   - A fill that exactly flattens a position removes it from the map.
//   - A fill that reduces or flips a position keeps the previous average
//     price. Realized P&L on the closed portion is not computed, and after
//     a sign flip the average price is stale until same-direction fills
//     restore consistency. This mirrors the exchange-side simplification
//     and is intentional.
//
// Cash moves by signed notional minus fee: buys spend, sells receive, fees
// always subtract.
func (p *Portfolio) ApplyFill(fill models.Fill) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delta := fill.Quantity
	if fill.Side == models.SideSell {
		delta = -fill.Quantity
	}

	pos, ok := p.positions[fill.InstID]
	switch {
	case !ok:
		if delta != 0 {
			p.positions[fill.InstID] = &models.Position{
				InstID:   fill.InstID,
				Quantity: delta,
				AvgPrice: fill.Price,
			}
		}
	default:
		newQty := pos.Quantity + delta
		switch {
		case newQty == 0:
			delete(p.positions, fill.InstID)
		case sameDirection(pos.Quantity, delta):
			totalCost := pos.AvgPrice*math.Abs(pos.Quantity) + fill.Price*math.Abs(delta)
			pos.Quantity = newQty
			pos.AvgPrice = totalCost / math.Abs(newQty)
		default:
			pos.Quantity = newQty
		}
	}

	sign := -1.0
	if fill.Side == models.SideSell {
		sign = 1.0
	}
	p.cash += sign*fill.Notional() - fill.Fee
}

func sameDirection(existing, delta float64) bool {
	return (existing >= 0 && delta > 0) || (existing <= 0 && delta < 0)
}

// Snapshot returns an immutable copy of the current state. Callers never
// observe a ledger that is concurrently mid-update.
func (p *Portfolio) Snapshot() *models.PortfolioState {
	p.mu.Lock()
	defer p.mu.Unlock()

	positions := make(map[string]models.Position, len(p.positions))
	for instID, pos := range p.positions {
		positions[instID] = *pos
	}
	return &models.PortfolioState{Cash: p.cash, Positions: positions}
}

// Cash returns the current cash balance.
func (p *Portfolio) Cash() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cash
}
