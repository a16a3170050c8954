package result

import (
	"testing"

	"github.com/hmcrab/bakeoff/internal/usage"
)

func TestVerdict(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		judge *JudgeResult
		want  string
	}{
		{"nil", nil, "no-judge"},
		{"not run", &JudgeResult{Ran: false}, "no-judge"},
		{"empty suite", &JudgeResult{Ran: true, Total: 0}, "no-tests"},
		{"all pass", &JudgeResult{Ran: true, Passed: 8, Total: 8}, "pass"},
		{"partial", &JudgeResult{Ran: true, Passed: 3, Failed: 5, Total: 8}, "partial"},
		{"zero of n", &JudgeResult{Ran: true, Passed: 0, Failed: 8, Total: 8}, "fail"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := tc.judge.Verdict(); got != tc.want {
				t.Errorf("Verdict() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestScore(t *testing.T) {
	t.Parallel()

	r := &RunResult{Judge: &JudgeResult{Ran: true, Passed: 3, Total: 4}}
	if got := r.Score(); got != 0.75 {
		t.Errorf("Score() = %v, want 0.75", got)
	}

	// Judge that could not run scores zero, as does a missing judge
	r = &RunResult{Judge: &JudgeResult{Ran: false}}
	if got := r.Score(); got != 0 {
		t.Errorf("Score() for unran judge = %v, want 0", got)
	}
	r = &RunResult{}
	if got := r.Score(); got != 0 {
		t.Errorf("Score() without judge = %v, want 0", got)
	}
}

func sampleResult(scenario, mode, ts string) *RunResult {
	return &RunResult{
		Scenario:   scenario,
		Mode:       mode,
		Timestamp:  ts,
		WallClockS: 42.5,
		ExitCode:   0,
		Status:     StatusCompleted,
		TokenDelta: usage.Delta{"claude-sonnet-4-5": {Input: 100, Output: 50}},
		Judge: &JudgeResult{
			Passed: 7, Failed: 1, Total: 8, Ran: true,
			Output: "7 passed, 1 failed",
		},
		EstimatedCostUSD: 0.0123,
		CostKnown:        true,
	}
}
