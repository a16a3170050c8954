//go:build !windows

package run

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestArtifactTracker(t *testing.T) {
	t.Parallel()

	workdir := t.TempDir()
	tracker := NewArtifactTracker(workdir, []string{"calc.py", "lib/util.py"}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = tracker.Watch(ctx)
		close(done)
	}()

	// Give the watcher a moment to arm before writing
	time.Sleep(200 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(workdir, "calc.py"), []byte("x = 1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(workdir, "unrelated.txt"), []byte("noise\n"), 0644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if len(tracker.Artifacts()) > 0 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	cancel()
	<-done

	arts := tracker.Artifacts()
	if len(arts) != 1 {
		t.Fatalf("got %d artifacts, want 1 (unexpected files must be ignored): %+v", len(arts), arts)
	}
	if arts[0].Path != "calc.py" {
		t.Errorf("artifact path = %q", arts[0].Path)
	}
	if arts[0].FirstSeenS < 0 {
		t.Errorf("first seen = %v", arts[0].FirstSeenS)
	}
}
