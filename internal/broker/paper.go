package broker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	apperrors "okx-trader/internal/errors"
	"okx-trader/internal/models"
	"okx-trader/internal/portfolio"
)

// Compile-time interface checks.
var (
	_ Broker      = (*PaperBroker)(nil)
	_ PriceSetter = (*PaperBroker)(nil)
)

// PaperBroker simulates execution against engine-supplied reference prices.
// It owns its own in-memory portfolio and fills every order synchronously at
// the last known price with a configurable fee.
type PaperBroker struct {
	ledger *portfolio.Portfolio
	feeBps float64
	logger zerolog.Logger

	mu        sync.RWMutex
	lastPrice map[string]float64

	now func() time.Time
}

// PaperBrokerConfig holds configuration for the paper broker.
type PaperBrokerConfig struct {
	StartingCash float64
	FeeBps       float64
}

// NewPaperBroker creates a paper broker with the given starting cash and
// fee in basis points.
func NewPaperBroker(cfg PaperBrokerConfig, logger zerolog.Logger) *PaperBroker {
	if cfg.StartingCash == 0 {
		cfg.StartingCash = 10000
	}
	return &PaperBroker{
		ledger:    portfolio.New(cfg.StartingCash),
		feeBps:    cfg.FeeBps,
		logger:    logger.With().Str("component", "paper_broker").Logger(),
		lastPrice: make(map[string]float64),
		now:       time.Now,
	}
}

// Name returns "paper".
func (p *PaperBroker) Name() string {
	return "paper"
}

// SetLastPrice records the latest reference price for an instrument. The
// engine calls this on every tick; a streaming feed's worker may call it
// concurrently with Submit.
func (p *PaperBroker) SetLastPrice(instID string, price float64) {
	p.mu.Lock()
	p.lastPrice[instID] = price
	p.mu.Unlock()
}

// book returns the current ledger pointer under the read lock; Reset swaps
// it concurrently.
func (p *PaperBroker) book() *portfolio.Portfolio {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.ledger
}

func (p *PaperBroker) refPrice(order *models.Order) float64 {
	if order.Price > 0 {
		return order.Price
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastPrice[order.InstID]
}

// Submit fills the order at the reference price and applies the fill to the
// simulated portfolio. It fails closed when no positive reference price is
// known for the instrument.
func (p *PaperBroker) Submit(_ context.Context, order *models.Order) ([]models.Fill, error) {
	px := p.refPrice(order)
	if px <= 0 {
		p.logger.Warn().Str("inst_id", order.InstID).Msg("No reference price, order dropped")
		return nil, apperrors.ErrNoReferencePrice
	}

	qty := order.Quantity
	if order.QuoteQuantity > 0 {
		qty = order.QuoteQuantity / px
	}
	if qty <= 0 {
		return nil, apperrors.ErrInvalidOrder
	}

	fill := models.Fill{
		InstID:   order.InstID,
		TS:       p.now().UnixMilli(),
		Side:     order.Side,
		Price:    px,
		Quantity: qty,
		Fee:      px * qty * (p.feeBps / 10000.0),
		Meta:     map[string]string{"client_order_id": order.ClientOrderID},
	}
	p.book().ApplyFill(fill)

	p.logger.Info().
		Str("inst_id", fill.InstID).
		Str("side", string(fill.Side)).
		Float64("price", fill.Price).
		Float64("quantity", fill.Quantity).
		Float64("fee", fill.Fee).
		Msg("Paper fill")

	return []models.Fill{fill}, nil
}

// GetPortfolio returns a snapshot of the simulated portfolio.
func (p *PaperBroker) GetPortfolio(_ context.Context) (*models.PortfolioState, error) {
	return p.book().Snapshot(), nil
}

// Reset restores the paper broker to a fresh portfolio with the given cash.
func (p *PaperBroker) Reset(startingCash float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ledger = portfolio.New(startingCash)
	p.lastPrice = make(map[string]float64)
}
