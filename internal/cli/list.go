package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hmcrab/bakeoff/internal/scenario"
	"github.com/hmcrab/bakeoff/scenarios"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available scenarios",
	RunE: func(cmd *cobra.Command, args []string) error {
		loader := scenario.NewLoader(scenarios.FS, scenariosDir)
		all, err := loader.LoadAll()
		if err != nil {
			return fmt.Errorf("loading scenarios: %w", err)
		}

		if len(all) == 0 {
			fmt.Println("No scenarios found.")
			return nil
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tKIND\tTESTS\tTIMEOUT\tDESCRIPTION")
		for _, s := range all {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%ds\t%s\n",
				s.Name, s.Kind, s.TotalTests, s.Timeout, s.Description)
		}
		return tw.Flush()
	},
}
