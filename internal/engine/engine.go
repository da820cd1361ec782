// Package engine drives the tick loop: feed to strategy to risk gate to
// broker, with guaranteed teardown.
package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"okx-trader/internal/broker"
	"okx-trader/internal/feed"
	"okx-trader/internal/models"
	"okx-trader/internal/risk"
	"okx-trader/internal/strategy"
	"okx-trader/pkg/utils"
)

// Journal records orders and fills for later inspection. Implementations
// must tolerate being called once per order and once per fill.
type Journal interface {
	RecordOrder(order models.Order, approved bool) error
	RecordFill(fill models.Fill) error
}

// Config holds engine options.
type Config struct {
	// DryRun logs approved orders with their would-be execution effects
	// instead of submitting them.
	DryRun bool
	// FeeBps estimates the fee of a dry-run fill.
	FeeBps float64
	// MaxPositionValue halts the loop once aggregate long notional reaches
	// it. Zero disables the cap.
	MaxPositionValue float64
	// MaxTicks halts the loop after that many ticks. Zero disables the
	// budget.
	MaxTicks int
}

// Engine runs a single-threaded orchestration loop. Ticks are processed
// strictly in arrival order and an order is fully resolved before the next
// tick's orders are generated.
type Engine struct {
	feed     feed.Feed
	strategy strategy.Strategy
	gate     *risk.Gate
	broker   broker.Broker
	journal  Journal // optional
	cfg      Config
	logger   zerolog.Logger

	lastPrices map[string]float64
}

// New creates an engine. journal may be nil.
func New(f feed.Feed, s strategy.Strategy, g *risk.Gate, b broker.Broker, journal Journal, cfg Config, logger zerolog.Logger) *Engine {
	return &Engine{
		feed:       f,
		strategy:   s,
		gate:       g,
		broker:     b,
		journal:    journal,
		cfg:        cfg,
		logger:     logger.With().Str("component", "engine").Logger(),
		lastPrices: make(map[string]float64),
	}
}

// Run executes the loop until the feed is exhausted, the context is
// canceled, or a configured halt condition fires. Teardown (liquidating
// orders, feed close, final portfolio log) always runs, even when the loop
// exits early; teardown failures are logged and swallowed.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info().
		Str("strategy", e.strategy.Name()).
		Str("broker", e.broker.Name()).
		Bool("dry_run", e.cfg.DryRun).
		Msg("Engine starting")

	e.strategy.OnStart()
	defer e.teardown(ctx)

	ticks, err := e.feed.Stream()
	if err != nil {
		return err
	}

	processed := 0
	for {
		select {
		case <-ctx.Done():
			e.logger.Info().Msg("Context canceled, stopping")
			return nil
		case tick, ok := <-ticks:
			if !ok {
				e.logger.Info().Int("ticks", processed).Msg("Feed exhausted")
				return nil
			}
			e.handleTick(ctx, tick)
			processed++

			if e.longExposureCapReached(ctx) {
				e.logger.Info().
					Float64("cap", e.cfg.MaxPositionValue).
					Msg("Position value cap reached, stopping")
				return nil
			}
			if e.cfg.MaxTicks > 0 && processed >= e.cfg.MaxTicks {
				e.logger.Info().Int("ticks", processed).Msg("Tick budget exhausted, stopping")
				return nil
			}
		}
	}
}

func (e *Engine) handleTick(ctx context.Context, tick models.Tick) {
	e.lastPrices[tick.InstID] = tick.Last
	if ps, ok := e.broker.(broker.PriceSetter); ok {
		ps.SetLastPrice(tick.InstID, tick.Last)
	}

	for _, order := range e.strategy.OnTick(tick) {
		e.handleOrder(ctx, order, tick.Last)
	}
}

func (e *Engine) handleOrder(ctx context.Context, order models.Order, refPrice float64) {
	state, err := e.broker.GetPortfolio(ctx)
	if err != nil {
		e.logger.Error().Err(err).
			Str("inst_id", order.InstID).
			Msg("Portfolio query failed, dropping order")
		return
	}

	approved := e.gate.Approve(&order, state, refPrice)
	e.record(func(j Journal) error { return j.RecordOrder(order, approved) })
	if !approved {
		return
	}

	if e.cfg.DryRun {
		e.logDryRun(order, refPrice)
		return
	}

	fills, err := e.broker.Submit(ctx, &order)
	if err != nil {
		e.logger.Error().Err(err).
			Str("inst_id", order.InstID).
			Str("side", string(order.Side)).
			Msg("Submission failed, order abandoned")
		return
	}
	for _, fill := range fills {
		e.logger.Info().
			Str("inst_id", fill.InstID).
			Str("side", string(fill.Side)).
			Float64("price", fill.Price).
			Float64("quantity", fill.Quantity).
			Float64("fee", fill.Fee).
			Msg("Fill")
		e.record(func(j Journal) error { return j.RecordFill(fill) })
	}
}

func (e *Engine) logDryRun(order models.Order, refPrice float64) {
	qty := order.Quantity
	if qty == 0 && refPrice > 0 {
		qty = order.QuoteQuantity / refPrice
	}
	notional := qty * refPrice
	fee := notional * e.cfg.FeeBps / 10000

	e.logger.Info().
		Str("inst_id", order.InstID).
		Str("side", string(order.Side)).
		Float64("price", refPrice).
		Float64("quantity", qty).
		Float64("notional", notional).
		Float64("est_fee", fee).
		Msg("Dry run, order not submitted")
}

// longExposureCapReached recomputes aggregate long notional from the latest
// known prices. Positions without a seen price contribute nothing.
func (e *Engine) longExposureCapReached(ctx context.Context) bool {
	if e.cfg.MaxPositionValue <= 0 {
		return false
	}
	state, err := e.broker.GetPortfolio(ctx)
	if err != nil {
		e.logger.Warn().Err(err).Msg("Portfolio query failed during cap check")
		return false
	}

	total := 0.0
	for instID, pos := range state.Positions {
		if pos.Quantity <= 0 {
			continue
		}
		if px, ok := e.lastPrices[instID]; ok {
			total += pos.Quantity * px
		}
	}
	return total >= e.cfg.MaxPositionValue
}

// teardownTimeout bounds the final liquidation and portfolio query.
const teardownTimeout = 30 * time.Second

// teardown liquidates via the strategy's final orders, closes the feed, and
// logs final portfolio state. Each step runs regardless of earlier failures.
// The loop context is usually already canceled here (interrupt, halt), so
// broker calls run on a detached context with their own deadline.
func (e *Engine) teardown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), teardownTimeout)
	defer cancel()

	for _, order := range e.strategy.OnEnd() {
		if e.cfg.DryRun {
			px := e.lastPrices[order.InstID]
			e.logDryRun(order, px)
			continue
		}
		fills, err := e.broker.Submit(ctx, &order)
		if err != nil {
			e.logger.Error().Err(err).
				Str("inst_id", order.InstID).
				Msg("Liquidating order failed")
			continue
		}
		for _, fill := range fills {
			e.record(func(j Journal) error { return j.RecordFill(fill) })
		}
	}

	if err := e.feed.Close(); err != nil {
		e.logger.Error().Err(err).Msg("Feed close failed")
	}

	state, err := e.broker.GetPortfolio(ctx)
	if err != nil {
		e.logger.Error().Err(err).Msg("Final portfolio query failed")
		return
	}
	ev := e.logger.Info().Float64("cash", state.Cash)
	for instID, pos := range state.Positions {
		ev = ev.Str(instID, utils.FormatQty(pos.Quantity)+" @ "+utils.FormatQuote(pos.AvgPrice))
	}
	ev.Msg("Final portfolio")
}

func (e *Engine) record(fn func(Journal) error) {
	if e.journal == nil {
		return
	}
	if err := fn(e.journal); err != nil {
		e.logger.Warn().Err(err).Msg("Journal write failed")
	}
}
