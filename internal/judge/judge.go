// Package judge executes a scenario's test suite against a run's workdir
// and parses the outcome.
//
// The judge is unconditional: it runs even when the agent produced nothing,
// because an empty workdir scoring 0/N is a real result. Only a judge that
// cannot execute at all yields Ran=false.
package judge

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/hmcrab/bakeoff/internal/config"
	"github.com/hmcrab/bakeoff/internal/proc"
	"github.com/hmcrab/bakeoff/internal/result"
	"github.com/hmcrab/bakeoff/internal/scenario"
)

// Judge runs test suites, either as a host subprocess or inside a
// container.
type Judge struct {
	cfg    config.JudgeConfig
	docker config.DockerConfig
	logger *slog.Logger

	dc *DockerClient // created on first containerized run
}

// New creates a judge from configuration.
func New(cfg config.JudgeConfig, docker config.DockerConfig, logger *slog.Logger) *Judge {
	return &Judge{cfg: cfg, docker: docker, logger: logger}
}

// Close releases the Docker client if one was created.
func (j *Judge) Close() error {
	if j.dc != nil {
		return j.dc.Close()
	}
	return nil
}

// Run copies the scenario's suite into the workdir and executes it.
//
// The returned error covers harness-side failures (cannot copy the suite,
// cannot reach Docker); judge execution problems are reported through the
// JudgeResult instead so the run still gets recorded.
func (j *Judge) Run(ctx context.Context, s *scenario.Scenario, workdir string) (*result.JudgeResult, error) {
	// Replace any tests/ the agent may have left behind; the suite of
	// record is the scenario's copy, always.
	testsDest := filepath.Join(workdir, "tests")
	if err := os.RemoveAll(testsDest); err != nil {
		return nil, fmt.Errorf("clearing stale tests dir: %w", err)
	}
	if err := s.CopyTests(testsDest); err != nil {
		return nil, fmt.Errorf("copying judge suite: %w", err)
	}

	args := append([]string{}, j.cfg.Command[1:]...)
	args = append(args, "tests/")
	args = append(args, j.cfg.Args...)
	timeout := time.Duration(j.cfg.Timeout) * time.Second

	if j.docker.Enabled {
		return j.runContainerized(ctx, workdir, append([]string{j.cfg.Command[0]}, args...), timeout)
	}

	res, err := proc.Run(ctx, proc.Options{
		Command: j.cfg.Command[0],
		Args:    args,
		Dir:     workdir,
		Timeout: timeout,
	})
	if err != nil {
		// Judge binary missing. Record it, don't lose the run.
		j.logger.Warn("judge could not start", "error", err)
		return &result.JudgeResult{Output: fmt.Sprintf("judge could not start: %v", err)}, nil
	}
	if res.TimedOut {
		j.logger.Warn("judge timed out", "timeout", timeout)
		return &result.JudgeResult{Output: fmt.Sprintf("judge timed out after %v\n%s%s", timeout, res.Stdout, res.Stderr)}, nil
	}

	jr := Parse(res.Stdout + "\n" + res.Stderr)
	j.logger.Info("judge finished", "passed", jr.Passed, "total", jr.Total, "verdict", jr.Verdict())
	return jr, nil
}

func (j *Judge) runContainerized(ctx context.Context, workdir string, cmd []string, timeout time.Duration) (*result.JudgeResult, error) {
	if j.dc == nil {
		dc, err := NewDockerClient()
		if err != nil {
			return nil, err
		}
		j.dc = dc
	}
	if err := j.dc.EnsureImage(ctx, j.docker.JudgeImage, j.docker.AutoPull); err != nil {
		return nil, err
	}

	absWorkdir, err := filepath.Abs(workdir)
	if err != nil {
		return nil, fmt.Errorf("resolving workdir: %w", err)
	}

	_, output, err := j.dc.RunSuite(ctx, j.docker.JudgeImage, absWorkdir, cmd, timeout)
	if err != nil {
		j.logger.Warn("containerized judge failed", "error", err)
		return &result.JudgeResult{Output: fmt.Sprintf("%v\n%s", err, output)}, nil
	}

	jr := Parse(output)
	j.logger.Info("judge finished", "passed", jr.Passed, "total", jr.Total, "verdict", jr.Verdict())
	return jr, nil
}
