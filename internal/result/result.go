// Package result provides run result types, persistence, and the results
// index.
package result

import (
	"github.com/hmcrab/bakeoff/internal/usage"
)

// Status is the terminal state of an agent invocation.
type Status string

const (
	StatusCompleted Status = "completed" // agent exited on its own
	StatusTimedOut  Status = "timed-out" // killed at the deadline
	StatusFailed    Status = "failed"    // could not start or died abnormally
)

// TestCase is one judge test with its outcome.
type TestCase struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// JudgeResult holds the parsed judge suite outcome for a run.
//
// Ran distinguishes "the suite executed and scored 0/N" from "the suite
// could not execute at all". An agent that produced nothing still gets
// judged; only a broken judge yields Ran=false.
type JudgeResult struct {
	Passed int        `json:"passed"`
	Failed int        `json:"failed"`
	Errors int        `json:"errors"`
	Total  int        `json:"total"`
	Ran    bool       `json:"ran"`
	Tests  []TestCase `json:"tests,omitempty"`
	Output string     `json:"-"` // raw judge output, stored separately
}

// Verdict summarizes a judge result as a single word.
func (j *JudgeResult) Verdict() string {
	switch {
	case j == nil || !j.Ran:
		return "no-judge"
	case j.Total == 0:
		return "no-tests"
	case j.Passed == j.Total:
		return "pass"
	case j.Passed > 0:
		return "partial"
	default:
		return "fail"
	}
}

// PhaseUsage records one handoff phase's token consumption. Mode and Model
// are set per phase because the two phases of a handoff may run under
// different modes.
type PhaseUsage struct {
	Phase      int         `json:"phase"`
	Mode       string      `json:"mode,omitempty"`
	Model      string      `json:"model,omitempty"`
	TokenDelta usage.Delta `json:"token_delta"`
	WallClockS float64     `json:"wall_clock_s"`
	ExitCode   int         `json:"exit_code"`
	Status     Status      `json:"status"`
}

// Artifact records when an expected output file first appeared during a run.
type Artifact struct {
	Path       string  `json:"path"`
	FirstSeenS float64 `json:"first_seen_s"` // seconds after agent start
}

// RunResult is the complete record of a single run: one scenario, one mode.
type RunResult struct {
	Scenario  string `json:"scenario"`
	Mode      string `json:"mode"` // mode slug, model embedded for local modes
	Timestamp string `json:"timestamp"`
	Model     string `json:"model,omitempty"`

	WallClockS float64 `json:"wall_clock_s"`
	ExitCode   int     `json:"exit_code"`
	Status     Status  `json:"status"`

	Workdir    string `json:"workdir"`
	StdoutPath string `json:"stdout_path"`
	StderrPath string `json:"stderr_path"`

	// Token consumption over the whole run. For handoff runs this is the
	// sum of the per-phase deltas, which are kept alongside.
	TokenDelta  usage.Delta  `json:"token_delta"`
	Phases      []PhaseUsage `json:"phases,omitempty"`
	TotalInput  int64        `json:"total_input_tokens"`
	TotalOutput int64        `json:"total_output_tokens"`

	EstimatedCostUSD float64 `json:"estimated_cost_usd"`
	CostKnown        bool    `json:"cost_known"`

	Judge     *JudgeResult `json:"judge,omitempty"`
	Artifacts []Artifact   `json:"artifacts,omitempty"`
}

// Score is the pass fraction in [0,1], or 0 when the judge did not run.
func (r *RunResult) Score() float64 {
	if r.Judge == nil || !r.Judge.Ran || r.Judge.Total == 0 {
		return 0
	}
	return float64(r.Judge.Passed) / float64(r.Judge.Total)
}
