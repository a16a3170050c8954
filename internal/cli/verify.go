package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hmcrab/bakeoff/internal/result"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [run-dir]",
	Short: "Verify integrity of recorded runs",
	Long: `Recomputes the BLAKE3 checksum of metrics.json and compares it against
the checksum written when the run was recorded.

With a run directory argument, verifies that run. Without one, verifies
every run listed in the results index.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store := result.NewStore(cfg.Harness.ResultsDir)

		if len(args) == 1 {
			if err := store.Verify(args[0]); err != nil {
				return err
			}
			fmt.Printf("✓ %s: metrics unmodified\n", args[0])
			return nil
		}

		entries, err := store.Index()
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No recorded runs to verify.")
			return nil
		}

		failed := 0
		for _, e := range entries {
			dir := filepath.Join(cfg.Harness.ResultsDir, filepath.FromSlash(e.Path))
			if err := store.Verify(dir); err != nil {
				fmt.Printf("✗ %s\n", err)
				failed++
				continue
			}
			fmt.Printf("✓ %s/%s/%s\n", e.Scenario, e.Mode, e.Timestamp)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d runs failed verification", failed, len(entries))
		}
		fmt.Printf("\nAll %d runs verified.\n", len(entries))
		return nil
	},
}
