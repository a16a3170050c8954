package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hmcrab/bakeoff/internal/result"
	"github.com/hmcrab/bakeoff/internal/score"
)

var scoreCmd = &cobra.Command{
	Use:   "score [scenario]",
	Short: "Compare the latest run per mode",
	Long: `Prints a scorecard comparing the most recent run in every mode.

Without an argument, prints a scorecard for each scenario that has
stored runs.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store := result.NewStore(cfg.Harness.ResultsDir)

		var cards []*score.Card
		if len(args) == 1 {
			card, err := score.Build(store, args[0])
			if err != nil {
				return err
			}
			if len(card.Rows) == 0 {
				return fmt.Errorf("no stored runs for scenario %s", args[0])
			}
			cards = append(cards, card)
		} else {
			var err error
			cards, err = score.BuildAll(store)
			if err != nil {
				return err
			}
			if len(cards) == 0 {
				fmt.Println("No stored runs yet.")
				return nil
			}
		}

		for _, card := range cards {
			card.WriteTable(os.Stdout)
		}
		return nil
	},
}
