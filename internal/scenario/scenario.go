// Package scenario provides scenario definition and loading for bakeoff.
//
// Each scenario is a directory containing:
//
//	scenario.toml  - metadata (name, description, timeout, total tests)
//	prompt.md      - task prompt fed to the agent (single-phase), OR
//	phase1.md +
//	phase2.md      - ordered phase prompts (handoff)
//	tests/         - judge test suite, copied into the workdir for judging
//	seed/          - (optional) files copied into the workdir before the run
package scenario

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"
)

// Kind distinguishes single-phase scenarios from two-phase handoffs.
// Resolved once at load time from which prompt files exist on disk,
// never re-sniffed later.
type Kind string

const (
	Single  Kind = "single"
	Handoff Kind = "handoff"
)

const (
	promptFile = "prompt.md"
	phase1File = "phase1.md"
	phase2File = "phase2.md"
	metaFile   = "scenario.toml"
	testsDir   = "tests"
	seedDir    = "seed"
)

// Meta is the scenario.toml payload.
type Meta struct {
	Name          string   `toml:"name"`
	Description   string   `toml:"description"`
	Timeout       int      `toml:"timeout"`     // seconds for the agent run
	TotalTests    int      `toml:"total_tests"` // declared judge suite size
	ExpectedFiles []string `toml:"expected_files"`
}

// Scenario is a loaded, read-only task definition.
type Scenario struct {
	Meta
	Kind Kind

	prompt  string // single-phase task text
	phase1  string // handoff phase texts
	phase2  string
	dir     string // path relative to the loader root
	loader  *Loader
	hasSeed bool
}

// TaskText returns the single-phase task description. It errors for handoff
// scenarios, which must be run through the handoff entry point.
func (s *Scenario) TaskText() (string, error) {
	if s.Kind != Single {
		return "", fmt.Errorf("scenario %s is a handoff scenario; it has no single task text", s.Name)
	}
	return s.prompt, nil
}

// PhaseTexts returns the ordered handoff phase descriptions.
func (s *Scenario) PhaseTexts() (phase1, phase2 string, err error) {
	if s.Kind != Handoff {
		return "", "", fmt.Errorf("scenario %s is single-phase; it has no handoff phases", s.Name)
	}
	return s.phase1, s.phase2, nil
}

// HasSeed reports whether the scenario ships seed files for the workdir.
func (s *Scenario) HasSeed() bool {
	return s.hasSeed
}

// CopySeed copies the scenario's seed files into the workdir, preserving
// relative paths. A scenario without seed files is a no-op.
func (s *Scenario) CopySeed(workdir string) error {
	if !s.hasSeed {
		return nil
	}
	return s.loader.copyTree(path.Join(s.dir, seedDir), workdir)
}

// CopyTests copies the judge test suite into destDir (typically
// <workdir>/tests) so the judge can discover the produced code.
func (s *Scenario) CopyTests(destDir string) error {
	return s.loader.copyTree(path.Join(s.dir, testsDir), destDir)
}

// Loader handles loading scenarios from embedded or external sources.
// If externalDir is provided, it takes precedence over embedded scenarios.
type Loader struct {
	embeddedFS  embed.FS
	externalDir string
}

// NewLoader creates a new scenario loader.
func NewLoader(embeddedFS embed.FS, externalDir string) *Loader {
	return &Loader{
		embeddedFS:  embeddedFS,
		externalDir: externalDir,
	}
}

// fsys returns the filesystem scenarios are read from.
func (l *Loader) fsys() fs.FS {
	if l.externalDir != "" {
		return os.DirFS(l.externalDir)
	}
	return l.embeddedFS
}

// LoadAll discovers and loads every scenario directory.
func (l *Loader) LoadAll() ([]*Scenario, error) {
	entries, err := fs.ReadDir(l.fsys(), ".")
	if err != nil {
		return nil, fmt.Errorf("reading scenarios root: %w", err)
	}

	var scenarios []*Scenario
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := fs.Stat(l.fsys(), path.Join(entry.Name(), metaFile)); err != nil {
			continue
		}
		s, err := l.Load(entry.Name())
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, s)
	}

	sort.Slice(scenarios, func(i, j int) bool { return scenarios[i].Name < scenarios[j].Name })
	return scenarios, nil
}

// Load loads a single scenario by directory name.
//
// A handoff scenario carries phase1.md and phase2.md instead of prompt.md.
// A directory with only one of the two phase files is malformed and fails
// loudly here, before any run starts. It is never degraded to "not found".
func (l *Loader) Load(name string) (*Scenario, error) {
	fsys := l.fsys()
	dir := name

	if _, err := fs.Stat(fsys, dir); err != nil {
		return nil, fmt.Errorf("scenario not found: %s", name)
	}

	metaRaw, err := fs.ReadFile(fsys, path.Join(dir, metaFile))
	if err != nil {
		return nil, fmt.Errorf("scenario %s: reading %s: %w", name, metaFile, err)
	}
	var meta Meta
	if err := toml.Unmarshal(metaRaw, &meta); err != nil {
		return nil, fmt.Errorf("scenario %s: parsing %s: %w", name, metaFile, err)
	}
	if meta.Name == "" {
		meta.Name = name
	}
	if meta.Timeout <= 0 {
		meta.Timeout = 600
	}

	s := &Scenario{Meta: meta, dir: dir, loader: l}

	prompt := l.readOptional(path.Join(dir, promptFile))
	phase1 := l.readOptional(path.Join(dir, phase1File))
	phase2 := l.readOptional(path.Join(dir, phase2File))

	switch {
	case prompt != "" && (phase1 != "" || phase2 != ""):
		return nil, fmt.Errorf("scenario %s: has both %s and phase files; pick one shape", name, promptFile)
	case phase1 != "" && phase2 != "":
		s.Kind = Handoff
		s.phase1, s.phase2 = phase1, phase2
	case phase1 != "" || phase2 != "":
		return nil, fmt.Errorf("scenario %s: handoff scenario is missing one of %s/%s", name, phase1File, phase2File)
	case prompt != "":
		s.Kind = Single
		s.prompt = prompt
	default:
		return nil, fmt.Errorf("scenario %s: no %s or phase files found", name, promptFile)
	}

	if _, err := fs.Stat(fsys, path.Join(dir, testsDir)); err != nil {
		return nil, fmt.Errorf("scenario %s: missing judge suite directory %s/", name, testsDir)
	}
	if _, err := fs.Stat(fsys, path.Join(dir, seedDir)); err == nil {
		s.hasSeed = true
	}

	return s, nil
}

// readOptional returns the file's contents, or "" if it does not exist.
func (l *Loader) readOptional(p string) string {
	data, err := fs.ReadFile(l.fsys(), p)
	if err != nil {
		return ""
	}
	return string(data)
}

// copyTree copies srcDir (relative to the loader root) into destDir on the
// host filesystem.
func (l *Loader) copyTree(srcDir, destDir string) error {
	fsys := l.fsys()
	return fs.WalkDir(fsys, srcDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(srcDir, filepath.FromSlash(p))
		if relErr != nil {
			return relErr
		}
		dest := filepath.Join(destDir, rel)
		if d.IsDir() {
			return os.MkdirAll(dest, 0755)
		}
		data, readErr := fs.ReadFile(fsys, p)
		if readErr != nil {
			return fmt.Errorf("reading %s: %w", p, readErr)
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return err
		}
		return os.WriteFile(dest, data, 0644)
	})
}

// ErrNotFound reports whether err indicates a missing scenario.
func ErrNotFound(err error) bool {
	return err != nil && errors.Is(err, fs.ErrNotExist)
}
