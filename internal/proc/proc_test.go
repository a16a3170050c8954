//go:build !windows

package proc

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestRunCapturesOutput(t *testing.T) {
	t.Parallel()

	res, err := Run(context.Background(), Options{
		Command: "sh",
		Args:    []string{"-c", "echo out; echo err >&2"},
		Timeout: 10 * time.Second,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.ExitCode != 0 {
		t.Errorf("exit code = %d", res.ExitCode)
	}
	if strings.TrimSpace(res.Stdout) != "out" || strings.TrimSpace(res.Stderr) != "err" {
		t.Errorf("stdout = %q, stderr = %q", res.Stdout, res.Stderr)
	}
	if res.TimedOut {
		t.Error("should not time out")
	}
}

func TestRunExitCode(t *testing.T) {
	t.Parallel()

	res, err := Run(context.Background(), Options{
		Command: "sh",
		Args:    []string{"-c", "exit 3"},
		Timeout: 10 * time.Second,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.ExitCode != 3 {
		t.Errorf("exit code = %d, want 3", res.ExitCode)
	}
}

func TestRunTimeout(t *testing.T) {
	t.Parallel()

	start := time.Now()
	res, err := Run(context.Background(), Options{
		Command: "sh",
		Args:    []string{"-c", "sleep 30"},
		Timeout: 200 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Run() error = %v, timeout should not be an error", err)
	}
	if !res.TimedOut || res.ExitCode != -1 {
		t.Errorf("timed out = %v, exit = %d", res.TimedOut, res.ExitCode)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("timeout did not fire promptly")
	}
}

func TestRunKillsProcessGroup(t *testing.T) {
	t.Parallel()

	// The child spawns a grandchild that would outlive a naive kill and
	// write a marker file after the deadline.
	marker := filepath.Join(t.TempDir(), "marker")
	res, err := Run(context.Background(), Options{
		Command: "sh",
		Args:    []string{"-c", "(sleep 2; echo alive > " + marker + ") & wait"},
		Timeout: 200 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !res.TimedOut {
		t.Fatal("expected timeout")
	}

	time.Sleep(3 * time.Second)
	if _, err := os.Stat(marker); err == nil {
		t.Error("grandchild survived the process-group kill")
	}
}

func TestRunMissingBinary(t *testing.T) {
	t.Parallel()

	_, err := Run(context.Background(), Options{
		Command: "definitely-not-a-real-binary-xyz",
		Timeout: time.Second,
	})
	if err == nil {
		t.Error("Run() should error when the command cannot start")
	}
}

func TestRunWorkdir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	res, err := Run(context.Background(), Options{
		Command: "pwd",
		Dir:     dir,
		Timeout: 10 * time.Second,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	got, _ := filepath.EvalSymlinks(strings.TrimSpace(res.Stdout))
	want, _ := filepath.EvalSymlinks(dir)
	if got != want {
		t.Errorf("pwd = %q, want %q", got, want)
	}
}
