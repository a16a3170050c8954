package result

import (
	"bufio"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/zeebo/blake3"
)

const (
	metricsFile  = "metrics.json"
	checksumFile = "metrics.json.b3"
	indexFile    = "index.jsonl"
	judgeOutFile = "judge-output.txt"
)

// Store persists run results under a root directory:
//
//	<root>/<scenario>/<mode-slug>/<timestamp>/metrics.json
//
// plus an append-only index.jsonl at the root for cheap listing.
type Store struct {
	root string

	mu sync.Mutex // serializes index appends
}

// NewStore creates a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{root: dir}
}

// Root returns the results root directory.
func (s *Store) Root() string {
	return s.root
}

// RunDir returns the directory for one run, creating it.
func (s *Store) RunDir(scenario, modeSlug, timestamp string) (string, error) {
	dir := filepath.Join(s.root, scenario, modeSlug, timestamp)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating run directory: %w", err)
	}
	return dir, nil
}

// IndexEntry is one line of index.jsonl.
type IndexEntry struct {
	Scenario  string  `json:"scenario"`
	Mode      string  `json:"mode"`
	Timestamp string  `json:"timestamp"`
	Path      string  `json:"path"` // run dir relative to the store root
	Hash      string  `json:"hash"` // blake3 of metrics.json
	Verdict   string  `json:"verdict"`
	Score     float64 `json:"score"`
	CostUSD   float64 `json:"cost_usd"`
}

// Save writes a run's metrics.json, its integrity checksum, and the raw
// judge output, then appends an index entry.
func (s *Store) Save(r *RunResult) error {
	dir, err := s.RunDir(r.Scenario, r.Mode, r.Timestamp)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling metrics: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, metricsFile), data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", metricsFile, err)
	}

	sum := hashBytes(data)
	if err := os.WriteFile(filepath.Join(dir, checksumFile), []byte(sum+"\n"), 0644); err != nil {
		return fmt.Errorf("writing checksum: %w", err)
	}

	if r.Judge != nil && r.Judge.Output != "" {
		if err := os.WriteFile(filepath.Join(dir, judgeOutFile), []byte(r.Judge.Output), 0644); err != nil {
			return fmt.Errorf("writing judge output: %w", err)
		}
	}

	rel, err := filepath.Rel(s.root, dir)
	if err != nil {
		rel = dir
	}
	entry := IndexEntry{
		Scenario:  r.Scenario,
		Mode:      r.Mode,
		Timestamp: r.Timestamp,
		Path:      filepath.ToSlash(rel),
		Hash:      sum,
		Verdict:   r.Judge.Verdict(),
		Score:     r.Score(),
		CostUSD:   r.EstimatedCostUSD,
	}
	return s.appendIndex(entry)
}

func (s *Store) appendIndex(entry IndexEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling index entry: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(s.root, indexFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("opening index: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("appending index entry: %w", err)
	}
	return nil
}

// Index reads every entry from index.jsonl in append order. A missing index
// yields an empty slice.
func (s *Store) Index() ([]IndexEntry, error) {
	f, err := os.Open(filepath.Join(s.root, indexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening index: %w", err)
	}
	defer f.Close()

	var entries []IndexEntry
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var e IndexEntry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			// Torn last line from a crashed run is tolerated
			continue
		}
		entries = append(entries, e)
	}
	return entries, sc.Err()
}

// Load reads metrics.json from a run directory.
func (s *Store) Load(dir string) (*RunResult, error) {
	data, err := os.ReadFile(filepath.Join(dir, metricsFile))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", metricsFile, err)
	}
	var r RunResult
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", metricsFile, err)
	}
	return &r, nil
}

// LatestByMode returns the most recent run per mode slug for a scenario.
// Timestamps sort lexically (UTC, fixed width), so the max is the latest.
func (s *Store) LatestByMode(scenario string) (map[string]*RunResult, error) {
	scenarioDir := filepath.Join(s.root, scenario)
	modeDirs, err := os.ReadDir(scenarioDir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]*RunResult{}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", scenarioDir, err)
	}

	out := map[string]*RunResult{}
	for _, md := range modeDirs {
		if !md.IsDir() {
			continue
		}
		runs, err := os.ReadDir(filepath.Join(scenarioDir, md.Name()))
		if err != nil {
			continue
		}
		var stamps []string
		for _, rd := range runs {
			if rd.IsDir() {
				stamps = append(stamps, rd.Name())
			}
		}
		if len(stamps) == 0 {
			continue
		}
		sort.Strings(stamps)
		latest := stamps[len(stamps)-1]
		r, err := s.Load(filepath.Join(scenarioDir, md.Name(), latest))
		if err != nil {
			continue
		}
		out[md.Name()] = r
	}
	return out, nil
}

// Scenarios lists scenario names that have at least one stored run.
func (s *Store) Scenarios() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading results root: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Verify recomputes the metrics checksum for a run directory and compares
// it against the stored one.
func (s *Store) Verify(dir string) error {
	data, err := os.ReadFile(filepath.Join(dir, metricsFile))
	if err != nil {
		return fmt.Errorf("reading %s: %w", metricsFile, err)
	}
	want, err := os.ReadFile(filepath.Join(dir, checksumFile))
	if err != nil {
		return fmt.Errorf("reading checksum: %w", err)
	}
	got := hashBytes(data)
	if got != strings.TrimSpace(string(want)) {
		return fmt.Errorf("checksum mismatch for %s: stored %s, computed %s",
			dir, strings.TrimSpace(string(want)), got)
	}
	return nil
}

// hashBytes returns the BLAKE3 hash of data as a prefixed hex string.
func hashBytes(data []byte) string {
	h := blake3.Sum256(data)
	return "blake3:" + hex.EncodeToString(h[:])
}
