// Package models provides domain models for the trading application.
package models

import "strings"

// Side represents the side of an order or fill.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// OrderType represents the execution type of an order.
type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
)

// InstrumentType classifies an instrument by its OKX instrument family.
type InstrumentType string

const (
	InstrumentSpot InstrumentType = "SPOT"
	InstrumentSwap InstrumentType = "SWAP"
)

// Instrument identifies a tradeable instrument, e.g. "BTC-USDT" or
// "BTC-USDT-SWAP".
type Instrument struct {
	InstID string
	Type   InstrumentType
}

// InstrumentTypeOf derives the instrument type from an instrument id.
// Perpetual swaps carry a "-SWAP" (or "-PERP") suffix; everything else is
// treated as spot. Sizing semantics differ between the two families, so
// order translation relies on this.
func InstrumentTypeOf(instID string) InstrumentType {
	upper := strings.ToUpper(instID)
	if strings.Contains(upper, "-SWAP") || strings.Contains(upper, "-PERP") {
		return InstrumentSwap
	}
	return InstrumentSpot
}

// Tick represents a single price update for one instrument.
type Tick struct {
	InstID string
	TS     int64 // epoch milliseconds
	Last   float64
	Bid    float64 // 0 when not provided by the source
	Ask    float64 // 0 when not provided by the source
}

// Candle represents OHLCV data for a time period.
type Candle struct {
	TS     int64 // epoch milliseconds
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// FundingRate represents the current funding rate of a swap instrument.
type FundingRate struct {
	InstID string
	Rate   float64
	TS     int64
}
