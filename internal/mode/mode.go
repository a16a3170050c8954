// Package mode defines the competition modes a run can execute under.
package mode

import (
	"fmt"
	"strings"
)

// Mode identifies where inference happens for a run.
type Mode string

const (
	// Remote routes the agent at the vendor cloud API.
	Remote Mode = "remote"
	// Offline routes all agent traffic to the local model server (GPU).
	Offline Mode = "offline"
	// OfflineCPU is Offline with GPU acceleration disabled on the server.
	OfflineCPU Mode = "offline-cpu"
)

// Batch is the set of modes exercised by a full-comparison batch.
// OfflineCPU is excluded: it is too slow for batch runs and must be
// requested explicitly.
var Batch = []Mode{Remote, Offline}

// All lists every known mode.
var All = []Mode{Remote, Offline, OfflineCPU}

// Parse converts a user-supplied string to a Mode.
func Parse(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "remote":
		return Remote, nil
	case "offline":
		return Offline, nil
	case "offline-cpu", "offline_cpu", "cpu":
		return OfflineCPU, nil
	default:
		return "", fmt.Errorf("unknown mode: %s (valid: remote, offline, offline-cpu)", s)
	}
}

// Local reports whether the mode targets the local model server.
func (m Mode) Local() bool {
	return m == Offline || m == OfflineCPU
}

// String returns the string representation of a Mode.
func (m Mode) String() string {
	return string(m)
}

// Slug returns the result-storage slug for a mode/model pair. Offline slugs
// embed the model name so different local models get separate result dirs.
func (m Mode) Slug(model string) string {
	if !m.Local() || model == "" {
		return string(m)
	}
	return string(m) + "-" + ModelSlug(model)
}

// ModelSlug normalizes a model name for use in directory paths:
// "gpt-oss:20b" becomes "gpt-oss-20b".
func ModelSlug(model string) string {
	r := strings.NewReplacer(":", "-", "/", "-")
	return r.Replace(model)
}
