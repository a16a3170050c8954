package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hmcrab/bakeoff/internal/mode"
	"github.com/hmcrab/bakeoff/internal/result"
	"github.com/hmcrab/bakeoff/internal/run"
	"github.com/hmcrab/bakeoff/internal/scenario"
	"github.com/hmcrab/bakeoff/scenarios"
)

var (
	runMode          string
	runAll           bool
	runModel         string
	runNumCtx        int
	runTimeout       int
	runSkipPreflight bool
	runPhase2Mode    string
	runPhase2Model   string
)

var runCmd = &cobra.Command{
	Use:   "run <scenario>",
	Short: "Run a scenario in one mode, or across all batch modes",
	Long: `Runs a scenario through the agent and judges the result.

With --mode, runs once in that mode. With --all, runs the batch modes
(remote and offline) in randomized order so no mode systematically
benefits from caches warmed by an earlier one. The CPU-only mode is too
slow for batches; request it explicitly with --mode offline-cpu.

Handoff scenarios automatically run as two phases in a shared workdir,
with token usage accounted per phase. --phase2-mode hands the second
phase to a different mode, e.g. remote starts the work and offline
finishes it.

Examples:
  bakeoff run calculator --mode remote
  bakeoff run calculator --all
  bakeoff run notes-api --mode offline --model qwen3:8b
  bakeoff run notes-api --mode remote --phase2-mode offline
  bakeoff run calculator --mode offline-cpu --skip-preflight`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		scenarioName := args[0]

		if !runAll && runMode == "" {
			return fmt.Errorf("pass --mode <mode> or --all")
		}
		if runAll && runMode != "" {
			return fmt.Errorf("--mode and --all are mutually exclusive")
		}
		if runAll && (runPhase2Mode != "" || runPhase2Model != "") {
			return fmt.Errorf("--phase2-mode/--phase2-model require --mode")
		}

		loader := scenario.NewLoader(scenarios.FS, scenariosDir)
		orch, err := run.New(cfg, loader, logger)
		if err != nil {
			return err
		}
		defer func() { _ = orch.Close() }()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		opts := run.Options{
			Scenario:      scenarioName,
			Model:         runModel,
			NumCtx:        runNumCtx,
			Timeout:       runTimeout,
			SkipPreflight: runSkipPreflight,
		}

		if runAll {
			results, err := orch.RunAll(ctx, scenarioName, opts)
			for _, r := range results {
				printRunSummary(r)
			}
			return err
		}

		m, err := mode.Parse(runMode)
		if err != nil {
			return err
		}
		opts.Mode = m

		if runPhase2Mode != "" {
			m2, err := mode.Parse(runPhase2Mode)
			if err != nil {
				return err
			}
			opts.Phase2Mode = m2
		}
		opts.Phase2Model = runPhase2Model

		r, err := orch.Execute(ctx, opts)
		if err != nil {
			return err
		}
		printRunSummary(r)
		return nil
	},
}

func printRunSummary(r *result.RunResult) {
	fmt.Printf("\n%s / %s\n", r.Scenario, r.Mode)
	fmt.Printf("  status:     %s (exit %d, %.1fs)\n", r.Status, r.ExitCode, r.WallClockS)
	if r.Judge != nil {
		fmt.Printf("  judge:      %d/%d passed (%s)\n", r.Judge.Passed, r.Judge.Total, r.Judge.Verdict())
	}
	fmt.Printf("  tokens:     %d in / %d out\n", r.TotalInput, r.TotalOutput)
	if r.CostKnown {
		fmt.Printf("  est. cost:  $%.4f\n", r.EstimatedCostUSD)
	} else {
		fmt.Printf("  est. cost:  unknown\n")
	}
	for _, p := range r.Phases {
		fmt.Printf("  phase %d:    %s on %s (exit %d, %.1fs)\n", p.Phase, p.Status, p.Mode, p.ExitCode, p.WallClockS)
	}
}

func init() {
	runCmd.Flags().StringVarP(&runMode, "mode", "m", "", "mode: remote, offline, or offline-cpu")
	runCmd.Flags().BoolVar(&runAll, "all", false, "run all batch modes in randomized order")
	runCmd.Flags().StringVar(&runModel, "model", "", "model override (local tag, or alias for remote)")
	runCmd.Flags().IntVar(&runNumCtx, "num-ctx", 0, "context window for local modes")
	runCmd.Flags().IntVar(&runTimeout, "timeout", 0, "agent timeout in seconds (overrides scenario)")
	runCmd.Flags().BoolVar(&runSkipPreflight, "skip-preflight", false, "skip the GPU preflight before offline-cpu runs")
	runCmd.Flags().StringVar(&runPhase2Mode, "phase2-mode", "", "handoff only: mode for phase two (default: same as --mode)")
	runCmd.Flags().StringVar(&runPhase2Model, "phase2-model", "", "handoff only: model for phase two")
}
