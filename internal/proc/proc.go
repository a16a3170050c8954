// Package proc runs external commands with a hard deadline and whole
// process-group teardown.
//
// Agents spawn helper processes (shells, language servers, package
// managers); killing only the direct child on timeout leaks the rest of the
// tree. Every command here runs in its own process group and the entire
// group is killed when the deadline fires.
package proc

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"time"
)

// Result captures a finished invocation.
type Result struct {
	ExitCode  int
	WallClock time.Duration
	TimedOut  bool
	Stdout    string
	Stderr    string
}

// Options configures one invocation.
type Options struct {
	Command string
	Args    []string
	Dir     string
	Env     []string // nil inherits the parent environment
	Timeout time.Duration

	// Optional extra sinks; output is always captured in the Result too.
	Stdout io.Writer
	Stderr io.Writer
}

// Run executes the command and waits for it to finish or time out.
//
// A timeout is not an error: the Result comes back with TimedOut set and
// exit code -1, and the caller decides what that means. An error is returned
// only when the command could not be started at all.
func Run(ctx context.Context, opts Options) (*Result, error) {
	runCtx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, opts.Command, opts.Args...)
	cmd.Dir = opts.Dir
	cmd.Env = opts.Env
	setupProcessGroup(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if opts.Stdout != nil {
		cmd.Stdout = io.MultiWriter(&stdout, opts.Stdout)
	}
	if opts.Stderr != nil {
		cmd.Stderr = io.MultiWriter(&stderr, opts.Stderr)
	}

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	res := &Result{
		WallClock: elapsed,
		Stdout:    stdout.String(),
		Stderr:    stderr.String(),
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		res.TimedOut = true
		res.ExitCode = -1
		return res, nil
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		// Never started: missing binary, bad workdir
		return nil, err
	}

	res.ExitCode = 0
	return res, nil
}
