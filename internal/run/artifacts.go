package run

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/hmcrab/bakeoff/internal/result"
)

// ArtifactTracker watches a workdir during an agent run and records when
// each expected output file first appears. The timeline shows how far an
// agent got before a timeout, which raw pass counts hide.
type ArtifactTracker struct {
	workdir  string
	expected map[string]bool // relative slash paths
	start    time.Time
	logger   *slog.Logger

	mu   sync.Mutex
	seen map[string]time.Duration
}

// NewArtifactTracker creates a tracker for the given expected files,
// relative to workdir.
func NewArtifactTracker(workdir string, expected []string, logger *slog.Logger) *ArtifactTracker {
	exp := make(map[string]bool, len(expected))
	for _, p := range expected {
		exp[filepath.ToSlash(p)] = true
	}
	return &ArtifactTracker{
		workdir:  workdir,
		expected: exp,
		logger:   logger,
		seen:     map[string]time.Duration{},
	}
}

// Watch blocks until the context is cancelled, recording first-write times
// for expected files. Call it in a goroutine alongside the agent run.
func (a *ArtifactTracker) Watch(ctx context.Context) error {
	a.start = time.Now()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(a.workdir); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			// New directories get watched so nested artifacts are seen
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					a.watchTree(watcher, event.Name)
				}
			}
			a.record(event.Name)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			a.logger.Debug("artifact watcher error", "error", err)
		}
	}
}

func (a *ArtifactTracker) watchTree(watcher *fsnotify.Watcher, path string) {
	_ = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && p != path {
				return filepath.SkipDir
			}
			_ = watcher.Add(p)
		} else {
			// Files written before the subdirectory watch landed
			a.record(p)
		}
		return nil
	})
}

func (a *ArtifactTracker) record(absPath string) {
	rel, err := filepath.Rel(a.workdir, absPath)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)
	if !a.expected[rel] {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.seen[rel]; !ok {
		a.seen[rel] = time.Since(a.start)
		a.logger.Debug("expected artifact appeared", "file", rel)
	}
}

// Artifacts returns the recorded first-appearance times, sorted by time.
func (a *ArtifactTracker) Artifacts() []result.Artifact {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]result.Artifact, 0, len(a.seen))
	for p, d := range a.seen {
		out = append(out, result.Artifact{Path: p, FirstSeenS: d.Seconds()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FirstSeenS < out[j].FirstSeenS })
	return out
}
