package models

// Order represents a trading order produced by a strategy. Orders are
// immutable once constructed: brokers consume them and report fills, they
// are never mutated or retried automatically.
//
// Exactly one sizing mode is authoritative per order: when QuoteQuantity is
// set (> 0) the order is sized in quote currency, otherwise Quantity carries
// the base/contract quantity.
type Order struct {
	InstID        string
	Side          Side
	Type          OrderType
	Quantity      float64 // base quantity (contracts for swaps)
	QuoteQuantity float64 // quote currency amount; 0 means unset
	Price         float64 // limit price, required iff Type == OrderTypeLimit
	ClientOrderID string  // optional idempotency id assigned by the caller
}

// Fill represents an atomic executed trade. It is the sole unit of
// portfolio mutation and is immutable after creation.
//
// Price and Quantity are always strictly positive; Fee is always a
// non-negative magnitude regardless of the rebate/charge sign reported by
// the source. Meta carries free-form provenance such as the originating
// exchange order id.
type Fill struct {
	InstID   string
	TS       int64 // execution time, epoch milliseconds
	Side     Side
	Price    float64
	Quantity float64
	Fee      float64
	Meta     map[string]string
}

// Notional returns the fill's value in quote currency.
func (f Fill) Notional() float64 {
	return f.Price * f.Quantity
}

// Position represents a net position in one instrument. Quantity is signed:
// positive is net long, negative is net short. AvgPrice is meaningful only
// while Quantity is non-zero.
type Position struct {
	InstID   string
	Quantity float64
	AvgPrice float64
}

// PortfolioState is a read-only snapshot of cash and open positions. A
// position with zero quantity never appears in the map.
type PortfolioState struct {
	Cash      float64
	Positions map[string]Position
}

// Position returns the position for an instrument and whether one is open.
func (s *PortfolioState) Position(instID string) (Position, bool) {
	p, ok := s.Positions[instID]
	return p, ok
}
