package run

import (
	"context"
	"fmt"

	"github.com/hmcrab/bakeoff/internal/env"
	"github.com/hmcrab/bakeoff/internal/mode"
	"github.com/hmcrab/bakeoff/internal/result"
	"github.com/hmcrab/bakeoff/internal/scenario"
	"github.com/hmcrab/bakeoff/internal/usage"
)

// executeHandoff runs a two-phase scenario. Both phases share one workdir,
// so phase two sees phase one's files, but each phase is a fresh agent
// invocation with no conversational carryover. The phases may run under
// different modes; each gets its own environment and usage snapshot pair,
// and the run's total delta is the sum of the two.
func (o *Orchestrator) executeHandoff(ctx context.Context, s *scenario.Scenario, opts Options) (*result.RunResult, error) {
	phase1, phase2, err := s.PhaseTexts()
	if err != nil {
		return nil, err
	}

	p1Mode := opts.Mode
	p2Mode := opts.Phase2Mode
	if p2Mode == "" {
		p2Mode = p1Mode
	}
	p1Model := o.resolveModel(p1Mode, opts.Model)
	p2Model := o.resolveModel(p2Mode, opts.Phase2Model)
	crossMode := p2Mode != p1Mode || p2Model != p1Model

	// prepare only preflights phase one's mode; a CPU phase two gets the
	// same fail-fast check before any phase runs.
	if crossMode && p2Mode == mode.OfflineCPU && p1Mode != mode.OfflineCPU && !opts.SkipPreflight {
		numCtx := opts.NumCtx
		if numCtx <= 0 {
			numCtx = o.cfg.Local.ContextLen
		}
		if err := o.gpuPreflight(ctx, p2Model, numCtx, opts.BaseEnv); err != nil {
			return nil, fmt.Errorf("gpu preflight (phase 2): %w", err)
		}
	}

	slug := ""
	if crossMode {
		slug = p1Mode.Slug(p1Model) + "+" + p2Mode.Slug(p2Model)
	}

	setup, err := o.prepare(ctx, s, opts, slug)
	if err != nil {
		return nil, err
	}

	setup2 := setup
	if crossMode {
		s2 := *setup
		s2.mode = p2Mode
		s2.model = p2Model
		s2.environ = env.ToSlice(env.Build(setup.base, p2Mode, env.Options{
			Model:    p2Model,
			Endpoint: o.cfg.Local.Endpoint,
			NumCtx:   setup.numCtx,
		}))
		setup2 = &s2
	}

	r := &result.RunResult{
		Scenario:  s.Name,
		Mode:      setup.modeSlug,
		Timestamp: setup.timestamp,
		Model:     setup.model,
		Workdir:   setup.workdir,
	}

	o.logger.Info("handoff phase 1 starting", "scenario", s.Name, "mode", p1Mode.Slug(setup.model))
	p1 := o.runAgent(ctx, setup, phase1, "-phase1")
	r.Phases = append(r.Phases, result.PhaseUsage{
		Phase:      1,
		Mode:       p1Mode.Slug(setup.model),
		Model:      setup.model,
		TokenDelta: p1.delta,
		WallClockS: p1.wallClock.Seconds(),
		ExitCode:   p1.exitCode,
		Status:     p1.status,
	})

	// Phase one's model is the one loaded on the server; a different phase
	// two model pays its load cost here, outside the timed run.
	if crossMode && p2Mode.Local() {
		if err := WarmModel(ctx, o.cfg.Local.Endpoint, p2Model); err != nil {
			o.logger.Warn("phase 2 warm-up failed", "model", p2Model, "error", err)
		}
	}

	// Phase two runs even when phase one struggled; a partial phase-one
	// workdir is exactly the handoff condition being measured.
	o.logger.Info("handoff phase 2 starting", "scenario", s.Name, "mode", p2Mode.Slug(setup2.model))
	p2 := o.runAgent(ctx, setup2, phase2, "-phase2")
	r.Phases = append(r.Phases, result.PhaseUsage{
		Phase:      2,
		Mode:       p2Mode.Slug(setup2.model),
		Model:      setup2.model,
		TokenDelta: p2.delta,
		WallClockS: p2.wallClock.Seconds(),
		ExitCode:   p2.exitCode,
		Status:     p2.status,
	})

	r.TokenDelta = usage.Merge(p1.delta, p2.delta)
	r.WallClockS = (p1.wallClock + p2.wallClock).Seconds()
	r.ExitCode = p2.exitCode
	r.Status = combineStatus(p1.status, p2.status)
	r.StdoutPath = p2.stdoutPath
	r.StderrPath = p2.stderrPath
	r.Artifacts = append(p1.artifacts, p2.artifacts...)

	o.finish(ctx, s, setup, r)
	return r, nil
}

// combineStatus reduces two phase statuses to a run status. Any timeout or
// failure taints the whole run.
func combineStatus(a, b result.Status) result.Status {
	for _, s := range []result.Status{result.StatusFailed, result.StatusTimedOut} {
		if a == s || b == s {
			return s
		}
	}
	return result.StatusCompleted
}
