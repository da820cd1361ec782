package broker

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	apperrors "okx-trader/internal/errors"
	"okx-trader/internal/models"
	"okx-trader/internal/okx"
)

// ExchangeAPI is the slice of the OKX client the live broker depends on.
type ExchangeAPI interface {
	PlaceOrder(ctx context.Context, req okx.PlaceOrderRequest) (string, error)
	GetOrder(ctx context.Context, instID, ordID string) (*okx.OrderDetail, error)
	GetFills(ctx context.Context, ordID string) ([]okx.FillDetail, error)
	GetBalance(ctx context.Context) ([]okx.BalanceDetail, error)
	GetPositions(ctx context.Context) ([]okx.PositionDetail, error)
}

// Quote-equivalent currencies recognized as cash when reading the account
// balance.
var cashCurrencies = map[string]bool{
	"USDT": true,
	"USDC": true,
	"USD":  true,
}

// Compile-time interface check.
var _ Broker = (*OkxBroker)(nil)

// OkxBroker submits orders to OKX and reconciles fills asynchronously by
// polling order status. The exchange account is the authoritative portfolio;
// no local netting is kept.
type OkxBroker struct {
	api          ExchangeAPI
	maxFillWait  time.Duration
	pollInterval time.Duration
	logger       zerolog.Logger
}

// OkxBrokerConfig holds configuration for the live broker.
type OkxBrokerConfig struct {
	// MaxFillWait bounds how long Submit polls for fills before returning
	// whatever was accumulated.
	MaxFillWait time.Duration
	// PollInterval is the backoff between status queries.
	PollInterval time.Duration
}

// NewOkxBroker creates a live OKX broker on top of an exchange client.
func NewOkxBroker(api ExchangeAPI, cfg OkxBrokerConfig, logger zerolog.Logger) *OkxBroker {
	if cfg.MaxFillWait == 0 {
		cfg.MaxFillWait = 10 * time.Second
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	return &OkxBroker{
		api:          api,
		maxFillWait:  cfg.MaxFillWait,
		pollInterval: cfg.PollInterval,
		logger:       logger.With().Str("component", "okx_broker").Logger(),
	}
}

// Name returns "okx".
func (b *OkxBroker) Name() string {
	return "okx"
}

// Submit translates the order, places it on the exchange, and polls until
// it is fully filled, canceled, or the wait budget elapses. On submission
// failure the order is abandoned with no fills; on timeout the fills
// accumulated so far are returned and the remainder of the order's life on
// the exchange is untracked.
func (b *OkxBroker) Submit(ctx context.Context, order *models.Order) ([]models.Fill, error) {
	req, err := b.convertOrder(order)
	if err != nil {
		b.logger.Error().Err(err).Str("inst_id", order.InstID).Msg("Failed to convert order")
		return nil, err
	}

	ordID, err := b.api.PlaceOrder(ctx, *req)
	if err != nil {
		b.logger.Error().Err(err).Str("inst_id", order.InstID).Msg("Order submission failed")
		return nil, err
	}
	b.logger.Info().Str("inst_id", order.InstID).Str("order_id", ordID).Msg("Order submitted")

	return b.waitForFills(ctx, order, ordID), nil
}

// convertOrder translates an internal order to the OKX order-creation
// format. Spot orders may be sized in quote or base currency; swap orders
// are always sized in contracts and use isolated margin.
func (b *OkxBroker) convertOrder(order *models.Order) (*okx.PlaceOrderRequest, error) {
	if order.Type == models.OrderTypeLimit && order.Price <= 0 {
		return nil, apperrors.NewOrderError("", order.InstID, "convert", "limit order requires price", apperrors.ErrInvalidOrder)
	}

	req := &okx.PlaceOrderRequest{
		InstID:  order.InstID,
		Side:    string(order.Side),
		OrdType: string(order.Type),
		ClOrdID: order.ClientOrderID,
	}
	if order.Price > 0 {
		req.Px = formatFloat(order.Price)
	}

	if models.InstrumentTypeOf(order.InstID) == models.InstrumentSwap {
		req.TdMode = "isolated"
		if order.Quantity <= 0 {
			if order.QuoteQuantity > 0 {
				return nil, apperrors.NewOrderError("", order.InstID, "convert", "swap orders must be sized in contracts", apperrors.ErrInvalidOrder)
			}
			return nil, apperrors.NewOrderError("", order.InstID, "convert", "swap order must have quantity > 0", apperrors.ErrInvalidOrder)
		}
		req.Sz = formatFloat(order.Quantity)
		return req, nil
	}

	req.TdMode = "cash"
	switch {
	case order.QuoteQuantity > 0:
		req.Sz = formatFloat(order.QuoteQuantity)
		req.TgtCcy = "quote_ccy"
	case order.Quantity > 0:
		req.Sz = formatFloat(order.Quantity)
		req.TgtCcy = "base_ccy"
	default:
		return nil, apperrors.NewOrderError("", order.InstID, "convert", "spot order must have quantity or quote quantity", apperrors.ErrInvalidOrder)
	}
	return req, nil
}

// waitForFills polls order status until a terminal state or timeout,
// accumulating deduplicated fills. Transient query failures are retried on
// the next iteration within the same budget.
func (b *OkxBroker) waitForFills(ctx context.Context, order *models.Order, ordID string) []models.Fill {
	deadline := time.Now().Add(b.maxFillWait)
	var fills []models.Fill
	// Fill dedup key is the execution timestamp, scoped to this poll
	// session. Two distinct fills with an identical timestamp for the same
	// order would collapse; the wire protocol has not shown that in
	// practice.
	seen := make(map[int64]bool)

	logger := b.logger.With().Str("order_id", ordID).Str("inst_id", order.InstID).Logger()

	for time.Now().Before(deadline) {
		detail, err := b.api.GetOrder(ctx, order.InstID, ordID)
		if err != nil {
			logger.Warn().Err(err).Msg("Order status query failed")
			if !b.sleep(ctx) {
				break
			}
			continue
		}

		switch detail.State {
		case okx.OrderStateFilled, okx.OrderStatePartiallyFilled:
			b.collectFills(ctx, order, ordID, seen, &fills, logger)
			if detail.State == okx.OrderStateFilled {
				logger.Info().Int("fills", len(fills)).Msg("Order fully filled")
				return fills
			}
			logger.Info().Int("fills", len(fills)).Msg("Order partially filled, continuing to poll")

		case okx.OrderStateCanceled:
			logger.Warn().Int("fills", len(fills)).Msg("Order canceled")
			return fills

		default:
			// Still live or pending; keep polling until the budget elapses.
		}

		if !b.sleep(ctx) {
			break
		}
	}

	if len(fills) == 0 {
		logger.Warn().Msg("No fills received within wait budget")
	} else {
		logger.Warn().Int("fills", len(fills)).Msg("Wait budget elapsed with partial fills")
	}
	return fills
}

func (b *OkxBroker) collectFills(ctx context.Context, order *models.Order, ordID string, seen map[int64]bool, fills *[]models.Fill, logger zerolog.Logger) {
	details, err := b.api.GetFills(ctx, ordID)
	if err != nil {
		logger.Warn().Err(err).Msg("Fill query failed")
		return
	}
	for _, d := range details {
		ts, _ := strconv.ParseInt(d.TS, 10, 64)
		if seen[ts] {
			continue
		}
		seen[ts] = true

		px, _ := strconv.ParseFloat(d.FillPx, 64)
		qty, _ := strconv.ParseFloat(d.FillSz, 64)
		if px <= 0 || qty <= 0 {
			logger.Warn().Str("trade_id", d.TradeID).Msg("Skipping degenerate fill record")
			continue
		}
		// OKX reports maker rebates as positive fees and taker charges as
		// negative; fees are stored as a non-negative magnitude.
		rawFee, _ := strconv.ParseFloat(d.Fee, 64)

		side := models.SideBuy
		if d.Side == "sell" {
			side = models.SideSell
		}
		*fills = append(*fills, models.Fill{
			InstID:   order.InstID,
			TS:       ts,
			Side:     side,
			Price:    px,
			Quantity: qty,
			Fee:      math.Abs(rawFee),
			Meta: map[string]string{
				"okx_order_id": ordID,
				"okx_trade_id": d.TradeID,
				"okx_fee_raw":  d.Fee,
			},
		})
	}
}

// sleep waits one poll interval; it returns false when the context is done.
func (b *OkxBroker) sleep(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(b.pollInterval):
		return true
	}
}

// GetPortfolio queries balance and positions fresh from the exchange. Cash
// is the sum of recognized quote-equivalent currencies' available balances;
// positions are built from non-zero reported quantities.
func (b *OkxBroker) GetPortfolio(ctx context.Context) (*models.PortfolioState, error) {
	cash := 0.0
	details, err := b.api.GetBalance(ctx)
	if err != nil {
		b.logger.Warn().Err(err).Msg("Failed to query balance")
		return nil, err
	}
	for _, d := range details {
		if cashCurrencies[d.Ccy] {
			avail, _ := strconv.ParseFloat(d.AvailBal, 64)
			cash += avail
		}
	}

	positions := make(map[string]models.Position)
	posDetails, err := b.api.GetPositions(ctx)
	if err != nil {
		b.logger.Warn().Err(err).Msg("Failed to query positions")
		return nil, err
	}
	for _, d := range posDetails {
		qty, _ := strconv.ParseFloat(d.Pos, 64)
		if d.InstID == "" || qty == 0 {
			continue
		}
		avgPx, _ := strconv.ParseFloat(d.AvgPx, 64)
		positions[d.InstID] = models.Position{
			InstID:   d.InstID,
			Quantity: qty,
			AvgPrice: avgPx,
		}
	}

	return &models.PortfolioState{Cash: cash, Positions: positions}, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
