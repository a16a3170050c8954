// Package run orchestrates agent runs: workdir setup, environment
// building, agent execution, usage accounting, judging, and persistence.
package run

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/hmcrab/bakeoff/internal/config"
	"github.com/hmcrab/bakeoff/internal/env"
	"github.com/hmcrab/bakeoff/internal/judge"
	"github.com/hmcrab/bakeoff/internal/mode"
	"github.com/hmcrab/bakeoff/internal/pricing"
	"github.com/hmcrab/bakeoff/internal/proc"
	"github.com/hmcrab/bakeoff/internal/result"
	"github.com/hmcrab/bakeoff/internal/scenario"
	"github.com/hmcrab/bakeoff/internal/usage"
)

const timestampLayout = "20060102T150405Z"

// Orchestrator runs scenarios end to end and persists their results.
type Orchestrator struct {
	cfg    *config.Config
	loader *scenario.Loader
	store  *result.Store
	judge  *judge.Judge
	table  *pricing.Table
	logger *slog.Logger
}

// New creates an orchestrator from configuration.
func New(cfg *config.Config, loader *scenario.Loader, logger *slog.Logger) (*Orchestrator, error) {
	table := pricing.DefaultTable()
	if cfg.Harness.PricingPath != "" {
		var err error
		table, err = pricing.LoadTable(cfg.Harness.PricingPath)
		if err != nil {
			return nil, err
		}
	}

	return &Orchestrator{
		cfg:    cfg,
		loader: loader,
		store:  result.NewStore(cfg.Harness.ResultsDir),
		judge:  judge.New(cfg.Judge, cfg.Docker, logger),
		table:  table,
		logger: logger,
	}, nil
}

// Close releases orchestrator resources.
func (o *Orchestrator) Close() error {
	return o.judge.Close()
}

// Store exposes the result store for listing and scoring commands.
func (o *Orchestrator) Store() *result.Store {
	return o.store
}

// Options configures one run.
type Options struct {
	Scenario      string
	Mode          mode.Mode
	Model         string // model override; local tag or remote alias
	NumCtx        int    // context window for local modes, 0 for config default
	Timeout       int    // seconds, 0 for scenario/config default
	SkipPreflight bool

	// Phase2Mode and Phase2Model apply to handoff scenarios only and let
	// phase two run under a different mode than phase one. Empty means
	// phase two inherits phase one's mode and model.
	Phase2Mode  mode.Mode
	Phase2Model string

	// BaseEnv overrides the inherited environment; nil uses os.Environ().
	BaseEnv map[string]string
}

// Execute runs one scenario in one mode. Handoff scenarios automatically
// take the two-phase path.
func (o *Orchestrator) Execute(ctx context.Context, opts Options) (*result.RunResult, error) {
	s, err := o.loader.Load(opts.Scenario)
	if err != nil {
		return nil, err
	}
	if s.Kind == scenario.Handoff {
		return o.executeHandoff(ctx, s, opts)
	}
	if opts.Phase2Mode != "" || opts.Phase2Model != "" {
		return nil, fmt.Errorf("scenario %s is single-phase; a phase-two mode only applies to handoff scenarios", s.Name)
	}
	return o.executeSingle(ctx, s, opts)
}

func (o *Orchestrator) executeSingle(ctx context.Context, s *scenario.Scenario, opts Options) (*result.RunResult, error) {
	prompt, err := s.TaskText()
	if err != nil {
		return nil, err
	}

	setup, err := o.prepare(ctx, s, opts, "")
	if err != nil {
		return nil, err
	}

	r := &result.RunResult{
		Scenario:  s.Name,
		Mode:      setup.modeSlug,
		Timestamp: setup.timestamp,
		Model:     setup.model,
		Workdir:   setup.workdir,
	}

	phase := o.runAgent(ctx, setup, prompt, "")
	r.WallClockS = phase.wallClock.Seconds()
	r.ExitCode = phase.exitCode
	r.Status = phase.status
	r.TokenDelta = phase.delta
	r.StdoutPath = phase.stdoutPath
	r.StderrPath = phase.stderrPath
	r.Artifacts = phase.artifacts

	o.finish(ctx, s, setup, r)
	return r, nil
}

// runSetup carries the per-run state shared between phases.
type runSetup struct {
	scenario  *scenario.Scenario
	mode      mode.Mode
	model     string
	modeSlug  string
	timestamp string
	timeout   time.Duration
	workdir   string
	runDir    string
	environ   []string
	base      map[string]string // merged base env, for rebinding phases
	numCtx    int
}

// resolveModel picks the model for a mode: the explicit override, else the
// configured local model, else empty for the agent's own remote default.
func (o *Orchestrator) resolveModel(m mode.Mode, override string) string {
	if override != "" {
		return override
	}
	if m.Local() {
		return o.cfg.ModelFor(m == mode.OfflineCPU)
	}
	return ""
}

// prepare resolves the model, runs the CPU preflight, creates directories,
// copies seed files, and builds the environment. A non-empty slug overrides
// the storage slug derived from the mode, for cross-mode handoff runs.
func (o *Orchestrator) prepare(ctx context.Context, s *scenario.Scenario, opts Options, slug string) (*runSetup, error) {
	model := o.resolveModel(opts.Mode, opts.Model)
	numCtx := opts.NumCtx
	if numCtx <= 0 {
		numCtx = o.cfg.Local.ContextLen
	}

	// CPU runs are slow; verify the model handles tool calls on GPU first
	// so a broken model fails in seconds, not hours.
	if opts.Mode == mode.OfflineCPU && !opts.SkipPreflight {
		if err := o.gpuPreflight(ctx, model, numCtx, opts.BaseEnv); err != nil {
			return nil, fmt.Errorf("gpu preflight: %w", err)
		}
	}

	timeout := time.Duration(s.Timeout) * time.Second
	if opts.Timeout > 0 {
		timeout = time.Duration(opts.Timeout) * time.Second
	}

	timestamp := time.Now().UTC().Format(timestampLayout)
	modeSlug := slug
	if modeSlug == "" {
		modeSlug = opts.Mode.Slug(model)
	}

	runDir, err := o.store.RunDir(s.Name, modeSlug, timestamp)
	if err != nil {
		return nil, err
	}

	// Workdir lives under the system temp root, away from the results
	// tree and any project the agent could discover context from.
	workdir, err := os.MkdirTemp("", fmt.Sprintf("bakeoff-%s-%s-", s.Name, modeSlug))
	if err != nil {
		return nil, fmt.Errorf("creating workdir: %w", err)
	}
	if err := os.Symlink(workdir, filepath.Join(runDir, "workdir")); err != nil {
		o.logger.Debug("workdir symlink failed", "error", err)
	}

	if err := s.CopySeed(workdir); err != nil {
		return nil, fmt.Errorf("copying seed files: %w", err)
	}

	base := opts.BaseEnv
	if base == nil {
		base = env.FromEnviron(os.Environ())
	}
	for k, v := range o.cfg.Agent.Env {
		base[k] = v
	}
	environ := env.Build(base, opts.Mode, env.Options{
		Model:    model,
		Endpoint: o.cfg.Local.Endpoint,
		NumCtx:   numCtx,
	})

	if opts.Mode.Local() {
		if err := WarmModel(ctx, o.cfg.Local.Endpoint, model); err != nil {
			o.logger.Warn("model warm-up failed", "model", model, "error", err)
		} else {
			o.logger.Info("model warm", "model", model)
		}
	}

	o.logger.Info("run prepared",
		"scenario", s.Name, "mode", modeSlug, "timeout", timeout, "workdir", workdir)

	return &runSetup{
		scenario:  s,
		mode:      opts.Mode,
		model:     model,
		modeSlug:  modeSlug,
		timestamp: timestamp,
		timeout:   timeout,
		workdir:   workdir,
		runDir:    runDir,
		environ:   env.ToSlice(environ),
		base:      base,
		numCtx:    numCtx,
	}, nil
}

// phaseResult is one agent invocation's outcome.
type phaseResult struct {
	wallClock  time.Duration
	exitCode   int
	status     result.Status
	delta      usage.Delta
	stdoutPath string
	stderrPath string
	artifacts  []result.Artifact
}

// runAgent performs one agent invocation in the prepared workdir, bracketed
// by usage snapshots. suffix distinguishes per-phase output files.
func (o *Orchestrator) runAgent(ctx context.Context, setup *runSetup, prompt, suffix string) *phaseResult {
	statsPath := o.cfg.UsageStatsPath()
	before := usage.Capture(statsPath)

	var tracker *ArtifactTracker
	var trackerCancel context.CancelFunc
	if len(setup.scenario.ExpectedFiles) > 0 {
		tracker = NewArtifactTracker(setup.workdir, setup.scenario.ExpectedFiles, o.logger)
		var trackerCtx context.Context
		trackerCtx, trackerCancel = context.WithCancel(ctx)
		go func() { _ = tracker.Watch(trackerCtx) }()
	}

	// Local modes pick their model through the environment; the model flag
	// is only meaningful against the real API.
	flagModel := ""
	if setup.mode == mode.Remote {
		flagModel = setup.model
	}
	args := o.cfg.Agent.BuildArgs(prompt, flagModel)
	if setup.mode == mode.Remote && o.cfg.Harness.RemoteBudget != "" {
		args = append(args, "--max-budget-usd", o.cfg.Harness.RemoteBudget)
	}

	o.logger.Info("running agent", "command", o.cfg.Agent.Command, "timeout", setup.timeout)
	res, err := proc.Run(ctx, proc.Options{
		Command: o.cfg.Agent.Command,
		Args:    args,
		Dir:     setup.workdir,
		Env:     setup.environ,
		Timeout: setup.timeout,
	})

	if trackerCancel != nil {
		trackerCancel()
	}

	pr := &phaseResult{}
	switch {
	case err != nil:
		o.logger.Error("agent could not start", "error", err)
		pr.exitCode = -1
		pr.status = result.StatusFailed
		pr.stderrPath = o.saveOutput(setup.runDir, "stderr"+suffix+".txt", err.Error())
	case res.TimedOut:
		o.logger.Warn("agent timed out", "timeout", setup.timeout)
		pr.wallClock = res.WallClock
		pr.exitCode = -1
		pr.status = result.StatusTimedOut
		pr.stdoutPath = o.saveOutput(setup.runDir, "stdout"+suffix+".txt", res.Stdout)
		pr.stderrPath = o.saveOutput(setup.runDir, "stderr"+suffix+".txt", res.Stderr)
	default:
		o.logger.Info("agent finished", "exit_code", res.ExitCode, "wall_clock", res.WallClock.Round(100*time.Millisecond))
		pr.wallClock = res.WallClock
		pr.exitCode = res.ExitCode
		pr.status = result.StatusCompleted
		pr.stdoutPath = o.saveOutput(setup.runDir, "stdout"+suffix+".txt", res.Stdout)
		pr.stderrPath = o.saveOutput(setup.runDir, "stderr"+suffix+".txt", res.Stderr)
	}

	after := usage.Capture(statsPath)
	pr.delta = usage.Diff(before, after)
	if tracker != nil {
		pr.artifacts = tracker.Artifacts()
	}
	return pr
}

// finish prices the run, judges the workdir, and persists the result.
// Judging is unconditional; an empty workdir scores 0/N, not no-result.
func (o *Orchestrator) finish(ctx context.Context, s *scenario.Scenario, setup *runSetup, r *result.RunResult) {
	r.TotalInput, r.TotalOutput = r.TokenDelta.Totals()
	r.EstimatedCostUSD, r.CostKnown = o.table.EstimateDelta(r.TokenDelta)

	jr, err := o.judge.Run(ctx, s, setup.workdir)
	if err != nil {
		o.logger.Error("judge failed", "error", err)
		jr = &result.JudgeResult{Output: err.Error()}
	}
	r.Judge = jr

	if err := o.store.Save(r); err != nil {
		o.logger.Error("saving result", "error", err)
	} else {
		o.logger.Info("run recorded",
			"scenario", r.Scenario, "mode", r.Mode, "verdict", jr.Verdict(),
			"score", fmt.Sprintf("%d/%d", jr.Passed, jr.Total),
			"cost_usd", fmt.Sprintf("%.4f", r.EstimatedCostUSD))
	}
}

func (o *Orchestrator) saveOutput(dir, name, content string) string {
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		o.logger.Warn("saving output", "file", name, "error", err)
		return ""
	}
	return p
}

// gpuPreflight runs a minimal tool-use task on GPU before a CPU run. A model
// that cannot write a file on GPU will not do better on CPU.
func (o *Orchestrator) gpuPreflight(ctx context.Context, model string, numCtx int, baseEnv map[string]string) error {
	if err := WarmModel(ctx, o.cfg.Local.Endpoint, model); err != nil {
		o.logger.Warn("preflight warm-up failed", "error", err)
	}

	workdir, err := os.MkdirTemp("", "bakeoff-preflight-"+mode.ModelSlug(model)+"-")
	if err != nil {
		return fmt.Errorf("creating preflight workdir: %w", err)
	}
	defer func() { _ = os.RemoveAll(workdir) }()

	base := baseEnv
	if base == nil {
		base = env.FromEnviron(os.Environ())
	}
	environ := env.Build(base, mode.Offline, env.Options{
		Model:    model,
		Endpoint: o.cfg.Local.Endpoint,
		NumCtx:   numCtx,
	})

	args := o.cfg.Agent.BuildArgs("Create a file called preflight.txt containing the text 'ok'", "")
	res, err := proc.Run(ctx, proc.Options{
		Command: o.cfg.Agent.Command,
		Args:    args,
		Dir:     workdir,
		Env:     env.ToSlice(environ),
		Timeout: 90 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("agent could not start: %w", err)
	}
	if res.TimedOut || res.ExitCode != 0 {
		return fmt.Errorf("model %s failed the tool-call check on GPU", model)
	}
	if _, err := os.Stat(filepath.Join(workdir, "preflight.txt")); err != nil {
		return fmt.Errorf("model %s did not produce the expected file", model)
	}
	o.logger.Info("gpu preflight passed", "model", model)
	return nil
}

// RunAll executes a scenario across the batch modes in randomized order and
// returns results in execution order.
func (o *Orchestrator) RunAll(ctx context.Context, scenarioName string, opts Options) ([]*result.RunResult, error) {
	modes := ShuffleModes()
	names := make([]string, len(modes))
	for i, m := range modes {
		names[i] = string(m)
	}
	o.logger.Info("batch order randomized", "modes", names)

	var results []*result.RunResult
	for _, m := range modes {
		// Cancellation takes effect between runs; an in-flight run records
		// its result first.
		if err := ctx.Err(); err != nil {
			return results, err
		}
		runOpts := opts
		runOpts.Scenario = scenarioName
		runOpts.Mode = m
		r, err := o.Execute(ctx, runOpts)
		if err != nil {
			return results, fmt.Errorf("running %s/%s: %w", scenarioName, m, err)
		}
		results = append(results, r)
	}
	return results, nil
}
