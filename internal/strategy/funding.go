package strategy

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"okx-trader/internal/models"
)

// Compile-time interface check.
var _ Strategy = (*FundingArbitrage)(nil)

const minPositionEps = 1e-8

// FundingRateSource supplies the current funding rate of a swap instrument.
// *okx.Client satisfies it.
type FundingRateSource interface {
	GetFundingRate(ctx context.Context, instID string) (float64, error)
}

// PortfolioSource supplies the current portfolio state. Any broker
// satisfies it.
type PortfolioSource interface {
	GetPortfolio(ctx context.Context) (*models.PortfolioState, error)
}

// FundingArbitrageConfig holds configuration for the funding-rate
// arbitrage strategy.
type FundingArbitrageConfig struct {
	SwapInstID string // e.g. "BTC-USDT-SWAP"
	SpotInstID string // e.g. "BTC-USDT"
	// MinFundingRate is the rate at or above which a position opens.
	MinFundingRate float64
	// MaxFundingRateToClose is the rate at or below which a position closes.
	MaxFundingRateToClose float64
	// PositionSize is the target exposure in quote currency.
	PositionSize float64
	// CheckInterval caches funding-rate lookups between checks.
	CheckInterval time.Duration
	// Cooldown suppresses reopening after a close.
	Cooldown time.Duration
}

// DefaultFundingArbitrageConfig returns sane defaults for the thresholds
// and intervals; instrument ids must still be set.
func DefaultFundingArbitrageConfig() FundingArbitrageConfig {
	return FundingArbitrageConfig{
		MinFundingRate:        0.0001,
		MaxFundingRateToClose: 0.00005,
		PositionSize:          1000,
		CheckInterval:         5 * time.Minute,
		Cooldown:              time.Minute,
	}
}

// FundingArbitrage holds a delta-neutral spot-long/swap-short pair while
// the swap funding rate is high and unwinds it when the rate decays. The
// swap short is the indicator of an open arbitrage position; pre-existing
// spot holdings are reused rather than bought again.
type FundingArbitrage struct {
	cfg       FundingArbitrageConfig
	rates     FundingRateSource
	portfolio PortfolioSource
	logger    zerolog.Logger

	lastCheck     time.Time
	lastRate      float64
	lastRateKnown bool
	lastClose     time.Time
	spotPrice     float64
	swapPrice     float64

	now func() time.Time
}

// NewFundingArbitrage creates the strategy.
func NewFundingArbitrage(cfg FundingArbitrageConfig, rates FundingRateSource, portfolio PortfolioSource, logger zerolog.Logger) *FundingArbitrage {
	return &FundingArbitrage{
		cfg:       cfg,
		rates:     rates,
		portfolio: portfolio,
		logger:    logger.With().Str("strategy", "funding_arbitrage").Logger(),
		now:       time.Now,
	}
}

// Name returns "funding_arbitrage".
func (f *FundingArbitrage) Name() string {
	return "funding_arbitrage"
}

// OnStart logs the configured pair and thresholds.
func (f *FundingArbitrage) OnStart() {
	f.logger.Info().
		Str("swap", f.cfg.SwapInstID).
		Str("spot", f.cfg.SpotInstID).
		Float64("min_funding_rate", f.cfg.MinFundingRate).
		Float64("position_size", f.cfg.PositionSize).
		Msg("Strategy started")
}

// fundingRate returns the cached rate, refreshing it when the check
// interval has elapsed.
func (f *FundingArbitrage) fundingRate() (float64, bool) {
	if f.lastRateKnown && f.now().Sub(f.lastCheck) < f.cfg.CheckInterval {
		return f.lastRate, true
	}
	rate, err := f.rates.GetFundingRate(context.Background(), f.cfg.SwapInstID)
	f.lastCheck = f.now()
	if err != nil {
		f.logger.Warn().Err(err).Msg("Funding rate lookup failed")
		f.lastRateKnown = false
		return 0, false
	}
	f.lastRate = rate
	f.lastRateKnown = true
	f.logger.Info().
		Str("inst_id", f.cfg.SwapInstID).
		Float64("rate", rate).
		Float64("annualized", rate*3*365).
		Msg("Funding rate")
	return rate, true
}

func (f *FundingArbitrage) positionSizes() (spotQty, swapQty float64) {
	state, err := f.portfolio.GetPortfolio(context.Background())
	if err != nil || state == nil {
		return 0, 0
	}
	if pos, ok := state.Position(f.cfg.SpotInstID); ok {
		spotQty = pos.Quantity
	}
	if pos, ok := state.Position(f.cfg.SwapInstID); ok {
		swapQty = pos.Quantity
	}
	return spotQty, swapQty
}

// OnTick tracks pair prices and opens or closes the arbitrage position on
// funding-rate thresholds.
func (f *FundingArbitrage) OnTick(tick models.Tick) []models.Order {
	switch tick.InstID {
	case f.cfg.SpotInstID:
		f.spotPrice = tick.Last
	case f.cfg.SwapInstID:
		f.swapPrice = tick.Last
	}
	if f.spotPrice <= 0 || f.swapPrice <= 0 {
		return nil
	}

	rate, ok := f.fundingRate()
	if !ok {
		return nil
	}

	_, swapQty := f.positionSizes()
	hasPosition := swapQty < -minPositionEps

	if !hasPosition {
		return f.maybeOpen(rate)
	}
	return f.maybeClose(rate)
}

func (f *FundingArbitrage) maybeOpen(rate float64) []models.Order {
	if f.now().Sub(f.lastClose) < f.cfg.Cooldown {
		return nil
	}
	if rate < f.cfg.MinFundingRate {
		return nil
	}

	avgPrice := (f.spotPrice + f.swapPrice) / 2
	targetQty := f.cfg.PositionSize / avgPrice
	if targetQty <= 0 {
		return nil
	}

	spotQty, _ := f.positionSizes()
	spotToBuy := targetQty - spotQty
	if spotToBuy < 0 {
		spotToBuy = 0
	}

	f.logger.Info().
		Float64("rate", rate).
		Float64("target_qty", targetQty).
		Float64("existing_spot", spotQty).
		Float64("spot_to_buy", spotToBuy).
		Msg("Opening arbitrage position")

	var orders []models.Order
	if spotToBuy > minPositionEps {
		orders = append(orders, models.Order{
			InstID:   f.cfg.SpotInstID,
			Side:     models.SideBuy,
			Type:     models.OrderTypeMarket,
			Quantity: spotToBuy,
		})
	}
	orders = append(orders, models.Order{
		InstID:   f.cfg.SwapInstID,
		Side:     models.SideSell,
		Type:     models.OrderTypeMarket,
		Quantity: targetQty,
	})
	return orders
}

func (f *FundingArbitrage) maybeClose(rate float64) []models.Order {
	if rate > f.cfg.MaxFundingRateToClose {
		return nil
	}

	f.logger.Info().Float64("rate", rate).Msg("Closing arbitrage position")
	orders := f.closeOrders()
	if len(orders) > 0 {
		f.lastClose = f.now()
	}
	return orders
}

// closeOrders unwinds both legs: sell the spot long, buy back the swap
// short.
func (f *FundingArbitrage) closeOrders() []models.Order {
	spotQty, swapQty := f.positionSizes()

	var orders []models.Order
	if spotQty > minPositionEps {
		orders = append(orders, models.Order{
			InstID:   f.cfg.SpotInstID,
			Side:     models.SideSell,
			Type:     models.OrderTypeMarket,
			Quantity: spotQty,
		})
	}
	if swapQty < -minPositionEps {
		orders = append(orders, models.Order{
			InstID:   f.cfg.SwapInstID,
			Side:     models.SideBuy,
			Type:     models.OrderTypeMarket,
			Quantity: -swapQty,
		})
	}
	return orders
}

// OnEnd liquidates any remaining arbitrage legs.
func (f *FundingArbitrage) OnEnd() []models.Order {
	_, swapQty := f.positionSizes()
	if swapQty >= -minPositionEps {
		return nil
	}
	f.logger.Info().Msg("Closing all positions at strategy end")
	return f.closeOrders()
}
