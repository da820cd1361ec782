package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"okx-trader/pkg/utils"
)

func newBalanceCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show exchange account balances",
		RunE: func(cmd *cobra.Command, args []string) error {
			details, err := app.client().GetBalance(cmd.Context())
			if err != nil {
				return err
			}
			if len(details) == 0 {
				fmt.Println("No balances")
				return nil
			}
			for _, d := range details {
				avail, _ := strconv.ParseFloat(d.AvailBal, 64)
				fmt.Printf("%-8s %s\n", d.Ccy, utils.FormatQuote(avail))
			}
			return nil
		},
	}
}

func newTickerCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "ticker <inst-id>...",
		Short: "Show latest ticker for instruments",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := app.client()
			for _, instID := range args {
				t, err := client.GetTicker(cmd.Context(), instID)
				if err != nil {
					return err
				}
				last, _ := strconv.ParseFloat(t.Last, 64)
				bid, _ := strconv.ParseFloat(t.BidPx, 64)
				ask, _ := strconv.ParseFloat(t.AskPx, 64)
				fmt.Printf("%-16s last=%s bid=%s ask=%s\n",
					t.InstID, utils.FormatQuote(last), utils.FormatQuote(bid), utils.FormatQuote(ask))
			}
			return nil
		},
	}
}

func newFundingCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "funding <swap-inst-id>...",
		Short: "Show current funding rates for swap instruments",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := app.client()
			for _, instID := range args {
				rate, err := client.GetFundingRate(cmd.Context(), instID)
				if err != nil {
					return err
				}
				// Funding settles three times a day.
				annualized := rate * 3 * 365
				fmt.Printf("%-20s %s (annualized %s)\n",
					instID, utils.FormatPercent(rate), utils.FormatPercent(annualized))
			}
			return nil
		},
	}
}

func newInstrumentsCmd(app *App) *cobra.Command {
	var (
		instType string
		quoteCcy string
	)

	cmd := &cobra.Command{
		Use:   "instruments",
		Short: "List tradeable instruments",
		RunE: func(cmd *cobra.Command, args []string) error {
			instruments, err := app.client().GetInstruments(cmd.Context(), instType, quoteCcy)
			if err != nil {
				return err
			}
			for _, inst := range instruments {
				fmt.Printf("%-24s %-6s base=%s quote=%s\n",
					inst.InstID, inst.InstType, inst.BaseCcy, inst.QuoteCcy)
			}
			fmt.Printf("%d instruments\n", len(instruments))
			return nil
		},
	}

	cmd.Flags().StringVar(&instType, "type", "SPOT", "instrument type: SPOT or SWAP")
	cmd.Flags().StringVar(&quoteCcy, "quote", "", "filter by quote currency, e.g. USDT")
	return cmd
}
