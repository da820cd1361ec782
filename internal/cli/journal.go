package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"okx-trader/internal/store"
	"okx-trader/pkg/utils"
)

func newFillsCmd(app *App) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "fills",
		Short: "Show recent fills from the trade journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !app.Config.Journal.Enabled {
				return fmt.Errorf("journal is disabled; enable it under [journal] in the config")
			}
			s, err := store.NewSQLiteStore(app.Config.Journal.Path)
			if err != nil {
				return err
			}
			defer s.Close()

			fills, err := s.ListFills(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(fills) == 0 {
				fmt.Println("No fills recorded")
				return nil
			}
			for _, f := range fills {
				ts := time.UnixMilli(f.TS).UTC().Format(time.RFC3339)
				fmt.Printf("%s %-16s %-4s %s @ %s fee=%s\n",
					ts, f.InstID, f.Side,
					utils.FormatQty(f.Quantity), utils.FormatQuote(f.Price), utils.FormatQuote(f.Fee))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of fills to show")
	return cmd
}
