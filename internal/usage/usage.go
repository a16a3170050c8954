// Package usage captures token-usage snapshots from the agent's stats cache
// and computes per-run deltas.
//
// The agent maintains a cumulative per-model token ledger in a JSON stats
// cache. The harness snapshots it before and after a run; the difference is
// what the run consumed. Deltas are clamped at zero because the cache can be
// rewritten or reset between snapshots.
package usage

import (
	"encoding/json"
	"os"
)

// Counters holds the token fields tracked per model.
type Counters struct {
	Input         int64 `json:"inputTokens"`
	Output        int64 `json:"outputTokens"`
	CacheRead     int64 `json:"cacheReadInputTokens"`
	CacheCreation int64 `json:"cacheCreationInputTokens"`
}

// IsZero reports whether all counters are zero.
func (c Counters) IsZero() bool {
	return c == Counters{}
}

// Add returns the element-wise sum of two counter sets.
func (c Counters) Add(o Counters) Counters {
	return Counters{
		Input:         c.Input + o.Input,
		Output:        c.Output + o.Output,
		CacheRead:     c.CacheRead + o.CacheRead,
		CacheCreation: c.CacheCreation + o.CacheCreation,
	}
}

// Snapshot is the per-model usage state at a point in time.
type Snapshot struct {
	ModelUsage map[string]Counters `json:"modelUsage"`
}

// Capture reads the stats cache at path. A missing or unreadable cache
// yields an empty snapshot; runs must not fail because the agent has never
// written stats.
func Capture(path string) Snapshot {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{ModelUsage: map[string]Counters{}}
	}
	var raw struct {
		ModelUsage map[string]Counters `json:"modelUsage"`
	}
	if err := json.Unmarshal(data, &raw); err != nil || raw.ModelUsage == nil {
		return Snapshot{ModelUsage: map[string]Counters{}}
	}
	return Snapshot{ModelUsage: raw.ModelUsage}
}

// Delta is the per-model token consumption between two snapshots.
type Delta map[string]Counters

// Diff computes after minus before per model, clamping each field at zero.
// Models with an all-zero delta are omitted.
func Diff(before, after Snapshot) Delta {
	delta := Delta{}
	seen := map[string]bool{}
	for model := range before.ModelUsage {
		seen[model] = true
	}
	for model := range after.ModelUsage {
		seen[model] = true
	}
	for model := range seen {
		b := before.ModelUsage[model]
		a := after.ModelUsage[model]
		d := Counters{
			Input:         clamp(a.Input - b.Input),
			Output:        clamp(a.Output - b.Output),
			CacheRead:     clamp(a.CacheRead - b.CacheRead),
			CacheCreation: clamp(a.CacheCreation - b.CacheCreation),
		}
		if !d.IsZero() {
			delta[model] = d
		}
	}
	return delta
}

// Merge returns the per-model sum of two deltas. Used for handoff runs,
// where total consumption is the sum of the per-phase deltas.
func Merge(a, b Delta) Delta {
	out := Delta{}
	for model, c := range a {
		out[model] = c
	}
	for model, c := range b {
		out[model] = out[model].Add(c)
	}
	return out
}

// Totals collapses a delta into overall input and output token counts.
// Cache reads and cache creation count as input.
func (d Delta) Totals() (input, output int64) {
	for _, c := range d {
		input += c.Input + c.CacheRead + c.CacheCreation
		output += c.Output
	}
	return input, output
}

func clamp(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
