package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hmcrab/bakeoff/internal/result"
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "List all recorded runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		store := result.NewStore(cfg.Harness.ResultsDir)
		entries, err := store.Index()
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No recorded runs.")
			return nil
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TIMESTAMP\tSCENARIO\tMODE\tVERDICT\tSCORE\tCOST (USD)")
		for _, e := range entries {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.0f%%\t%.4f\n",
				e.Timestamp, e.Scenario, e.Mode, e.Verdict, e.Score*100, e.CostUSD)
		}
		return tw.Flush()
	},
}
