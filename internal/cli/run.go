package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"okx-trader/internal/broker"
	"okx-trader/internal/engine"
	"okx-trader/internal/feed"
	"okx-trader/internal/models"
	"okx-trader/internal/risk"
	"okx-trader/internal/store"
	"okx-trader/internal/strategy"
)

func newRunCmd(app *App) *cobra.Command {
	var (
		dryRun   bool
		ticks    int
		feedKind string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the trading engine",
		Long: `Run the configured strategy against live OKX market data. The broker is
selected by trading.mode: "paper" simulates fills locally, "live" submits
real orders to the exchange.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.Config
			instruments := cfg.Trading.Instruments
			if len(instruments) == 0 {
				return fmt.Errorf("no instruments configured")
			}

			client := app.client()

			var b broker.Broker
			if cfg.IsPaperMode() {
				b = broker.NewPaperBroker(broker.PaperBrokerConfig{
					StartingCash: cfg.Risk.StartingCash,
					FeeBps:       cfg.Risk.FeeBps,
				}, app.Logger)
			} else {
				b = broker.NewOkxBroker(client, broker.OkxBrokerConfig{
					MaxFillWait:  cfg.OKX.FillTimeout,
					PollInterval: cfg.OKX.PollInterval,
				}, app.Logger)
			}

			var f feed.Feed
			switch feedKind {
			case "rest":
				f = feed.NewRESTTickerFeed(client, instruments, time.Second, app.Logger)
			case "ws":
				f = feed.NewWSTickerFeed(feed.WSTickerFeedConfig{
					URL:             client.WSURL(),
					SimulatedHeader: client.SimulatedHeader(),
					InstIDs:         instruments,
				}, app.Logger)
			default:
				return fmt.Errorf("unknown feed %q (want ws or rest)", feedKind)
			}

			strat, err := buildStrategy(app, b, instruments)
			if err != nil {
				return err
			}

			var journal engine.Journal
			if cfg.Journal.Enabled {
				s, err := store.NewSQLiteStore(cfg.Journal.Path)
				if err != nil {
					return fmt.Errorf("opening journal: %w", err)
				}
				defer s.Close()
				journal = s
			}

			gate := risk.NewGate(cfg.Risk.MaxNotionalPerOrder, app.Logger)
			eng := engine.New(f, strat, gate, b, journal, engine.Config{
				DryRun:           dryRun || cfg.Trading.DryRun,
				FeeBps:           cfg.Risk.FeeBps,
				MaxPositionValue: cfg.Risk.MaxPositionValue,
				MaxTicks:         pickTicks(ticks, cfg.Trading.DurationTicks),
			}, app.Logger)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return eng.Run(ctx)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "log approved orders without submitting them")
	cmd.Flags().IntVar(&ticks, "ticks", 0, "stop after this many ticks (0 = unlimited)")
	cmd.Flags().StringVar(&feedKind, "feed", "ws", "market data source: ws or rest")
	return cmd
}

func newReplayCmd(app *App) *cobra.Command {
	var (
		instID string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "replay <file.csv>",
		Short: "Replay a CSV tick file against the paper broker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.Config

			b := broker.NewPaperBroker(broker.PaperBrokerConfig{
				StartingCash: cfg.Risk.StartingCash,
				FeeBps:       cfg.Risk.FeeBps,
			}, app.Logger)
			f := feed.NewCSVTickFeed(args[0], instID)
			strat := strategy.NewSMACross([]string{instID}, strategy.DefaultSMAConfig(), app.Logger)
			gate := risk.NewGate(cfg.Risk.MaxNotionalPerOrder, app.Logger)

			eng := engine.New(f, strat, gate, b, nil, engine.Config{
				DryRun:           dryRun,
				FeeBps:           cfg.Risk.FeeBps,
				MaxPositionValue: cfg.Risk.MaxPositionValue,
			}, app.Logger)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return eng.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&instID, "inst", "BTC-USDT", "instrument id of the replayed ticks")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "log approved orders without simulating fills")
	return cmd
}

func buildStrategy(app *App, b broker.Broker, instruments []string) (strategy.Strategy, error) {
	switch app.Config.Trading.Strategy {
	case "", "sma_cross":
		return strategy.NewSMACross(instruments, strategy.DefaultSMAConfig(), app.Logger), nil

	case "funding_arbitrage":
		spot, swap, err := splitPair(instruments)
		if err != nil {
			return nil, err
		}
		cfg := strategy.DefaultFundingArbitrageConfig()
		cfg.SpotInstID = spot
		cfg.SwapInstID = swap
		return strategy.NewFundingArbitrage(cfg, app.client(), b, app.Logger), nil

	default:
		return nil, fmt.Errorf("unknown strategy %q", app.Config.Trading.Strategy)
	}
}

// splitPair finds the spot and swap legs of a funding arbitrage pair in the
// configured instrument list.
func splitPair(instruments []string) (spot, swap string, err error) {
	for _, instID := range instruments {
		if models.InstrumentTypeOf(instID) == models.InstrumentSwap {
			swap = instID
		} else {
			spot = instID
		}
	}
	if spot == "" || swap == "" {
		return "", "", fmt.Errorf("funding_arbitrage needs one spot and one swap instrument, got %s",
			strings.Join(instruments, ", "))
	}
	return spot, swap, nil
}

func pickTicks(flag, configured int) int {
	if flag > 0 {
		return flag
	}
	return configured
}
