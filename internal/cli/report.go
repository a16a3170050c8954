package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hmcrab/bakeoff/internal/result"
	"github.com/hmcrab/bakeoff/internal/score"
)

var reportOut string

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write a markdown results report",
	RunE: func(cmd *cobra.Command, args []string) error {
		store := result.NewStore(cfg.Harness.ResultsDir)
		cards, err := score.BuildAll(store)
		if err != nil {
			return err
		}
		if len(cards) == 0 {
			return fmt.Errorf("no stored runs to report on")
		}

		out := reportOut
		if out == "" {
			out = filepath.Join(cfg.Harness.ResultsDir, "RESULTS.md")
		}
		if err := os.WriteFile(out, []byte(score.Markdown(cards)), 0644); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		fmt.Printf("Report written to %s\n", out)
		return nil
	},
}

func init() {
	reportCmd.Flags().StringVarP(&reportOut, "output", "o", "", "output path (default: <results-dir>/RESULTS.md)")
}
