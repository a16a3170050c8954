package result

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveAndLoad(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	r := sampleResult("calculator", "remote", "20260823T120000Z")

	if err := store.Save(r); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	dir := filepath.Join(store.Root(), "calculator", "remote", "20260823T120000Z")
	loaded, err := store.Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Scenario != "calculator" || loaded.Mode != "remote" {
		t.Errorf("loaded = %s/%s", loaded.Scenario, loaded.Mode)
	}
	if loaded.Judge == nil || loaded.Judge.Passed != 7 {
		t.Errorf("judge not round-tripped: %+v", loaded.Judge)
	}
	if c := loaded.TokenDelta["claude-sonnet-4-5"]; c.Input != 100 {
		t.Errorf("token delta not round-tripped: %+v", loaded.TokenDelta)
	}

	// Raw judge output lands in its own file, not metrics.json
	out, err := os.ReadFile(filepath.Join(dir, "judge-output.txt"))
	if err != nil {
		t.Fatalf("judge output file: %v", err)
	}
	if !strings.Contains(string(out), "7 passed") {
		t.Errorf("judge output = %q", out)
	}
	if loaded.Judge.Output != "" {
		t.Error("raw judge output should not be serialized into metrics.json")
	}
}

func TestIndexAppend(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	if err := store.Save(sampleResult("calculator", "remote", "20260823T120000Z")); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(sampleResult("calculator", "offline-gpt-oss-20b", "20260823T130000Z")); err != nil {
		t.Fatal(err)
	}

	entries, err := store.Index()
	if err != nil {
		t.Fatalf("Index() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("index has %d entries, want 2", len(entries))
	}
	if entries[0].Mode != "remote" || entries[1].Mode != "offline-gpt-oss-20b" {
		t.Errorf("index order: %s, %s", entries[0].Mode, entries[1].Mode)
	}
	if entries[0].Verdict != "partial" {
		t.Errorf("verdict = %q, want partial", entries[0].Verdict)
	}
	if !strings.HasPrefix(entries[0].Hash, "blake3:") {
		t.Errorf("hash = %q, want blake3 prefix", entries[0].Hash)
	}
}

func TestIndexMissing(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	entries, err := store.Index()
	if err != nil {
		t.Fatalf("Index() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("empty store should have no index entries")
	}
}

func TestLatestByMode(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	old := sampleResult("calculator", "remote", "20260823T100000Z")
	old.WallClockS = 10
	newer := sampleResult("calculator", "remote", "20260823T110000Z")
	newer.WallClockS = 20
	offline := sampleResult("calculator", "offline-gpt-oss-20b", "20260823T103000Z")

	for _, r := range []*RunResult{old, newer, offline} {
		if err := store.Save(r); err != nil {
			t.Fatal(err)
		}
	}

	latest, err := store.LatestByMode("calculator")
	if err != nil {
		t.Fatalf("LatestByMode() error = %v", err)
	}
	if len(latest) != 2 {
		t.Fatalf("got %d modes, want 2", len(latest))
	}
	if latest["remote"].WallClockS != 20 {
		t.Errorf("remote latest wall clock = %v, want the newer run", latest["remote"].WallClockS)
	}
	if _, ok := latest["offline-gpt-oss-20b"]; !ok {
		t.Error("offline mode missing from latest map")
	}

	// Unknown scenario yields an empty map, not an error
	empty, err := store.LatestByMode("nope")
	if err != nil || len(empty) != 0 {
		t.Errorf("unknown scenario: %v, %v", empty, err)
	}
}

func TestVerify(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	r := sampleResult("calculator", "remote", "20260823T120000Z")
	if err := store.Save(r); err != nil {
		t.Fatal(err)
	}

	dir := filepath.Join(store.Root(), "calculator", "remote", "20260823T120000Z")
	if err := store.Verify(dir); err != nil {
		t.Fatalf("Verify() on untouched run = %v", err)
	}

	// Tamper with metrics.json: verification must fail
	p := filepath.Join(dir, "metrics.json")
	data, _ := os.ReadFile(p)
	tampered := strings.Replace(string(data), `"passed": 7`, `"passed": 8`, 1)
	if tampered == string(data) {
		t.Fatal("tamper replacement did not apply")
	}
	if err := os.WriteFile(p, []byte(tampered), 0644); err != nil {
		t.Fatal(err)
	}
	if err := store.Verify(dir); err == nil {
		t.Error("Verify() should fail for tampered metrics")
	}
}

func TestScenarios(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	_ = store.Save(sampleResult("zeta", "remote", "20260823T120000Z"))
	_ = store.Save(sampleResult("alpha", "remote", "20260823T120000Z"))

	names, err := store.Scenarios()
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 || names[0] != "alpha" || names[1] != "zeta" {
		t.Errorf("Scenarios() = %v", names)
	}
}
