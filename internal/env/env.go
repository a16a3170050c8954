// Package env builds per-mode process environments for agent runs.
//
// Each mode gets a complete environment derived from an explicit base map,
// ready to pass to exec.Cmd. Builders never read the process environment
// themselves; callers pass os.Environ() through FromEnviron.
package env

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hmcrab/bakeoff/internal/mode"
)

// Vars that trigger the agent's nested-session detection. The harness always
// runs the agent as a plain subprocess, never a nested session.
var nestingGuards = []string{"CLAUDECODE", "CLAUDE_CODE_SESSION_ID"}

// Prefixes stripped in remote mode so the agent runs with its default cloud
// configuration, uncontaminated by local-routing overrides.
var remoteStripPrefixes = []string{"HC_", "ANTHROPIC_", "OLLAMA_"}

// Exact vars stripped in remote mode on top of the prefixes.
var remoteStripVars = []string{
	"HTTPS_PROXY", "HTTP_PROXY", "NO_PROXY",
	"CLAUDE_CODE_DISABLE_NONESSENTIAL_TRAFFIC",
	"DISABLE_AUTOUPDATER",
	"CLAUDE_CODE_SUBAGENT_MODEL",
}

// Options carries the knobs for local-mode environments.
type Options struct {
	Model    string // local model tag, e.g. "gpt-oss:20b"
	Endpoint string // local server base URL, no /v1 suffix
	NumCtx   int    // context window size
}

// Build returns a complete environment map for the given mode.
//
// Remote mode is the control baseline: all local-routing overrides are
// stripped so the agent talks to its real API. Local modes redirect every
// API call to the local endpoint and blackhole any traffic that bypasses
// the base URL override.
func Build(base map[string]string, m mode.Mode, opts Options) map[string]string {
	env := make(map[string]string, len(base)+16)
	for k, v := range base {
		env[k] = v
	}

	switch {
	case m == mode.Remote:
		for k := range env {
			for _, p := range remoteStripPrefixes {
				if strings.HasPrefix(k, p) {
					delete(env, k)
					break
				}
			}
		}
		for _, k := range remoteStripVars {
			delete(env, k)
		}

	case m.Local():
		// Route all API calls to the local server. No /v1 suffix; the
		// agent appends its own paths.
		env["ANTHROPIC_BASE_URL"] = opts.Endpoint
		env["ANTHROPIC_AUTH_TOKEN"] = "ollama"
		env["ANTHROPIC_API_KEY"] = ""

		// Every model tier resolves to the one local model.
		env["ANTHROPIC_DEFAULT_HAIKU_MODEL"] = opts.Model
		env["ANTHROPIC_DEFAULT_SONNET_MODEL"] = opts.Model
		env["ANTHROPIC_DEFAULT_OPUS_MODEL"] = opts.Model
		env["CLAUDE_CODE_SUBAGENT_MODEL"] = opts.Model

		// The local server lacks a count_tokens endpoint.
		env["CLAUDE_CODE_DISABLE_NONESSENTIAL_TRAFFIC"] = "1"
		env["DISABLE_AUTOUPDATER"] = "1"

		// Keep the local server from reaching its own cloud.
		env["OLLAMA_NO_CLOUD"] = "1"
		env["OLLAMA_REMOTES"] = ""

		// Bogus proxy catches any library that ignores ANTHROPIC_BASE_URL.
		env["HTTPS_PROXY"] = "http://127.0.0.1:1"
		env["HTTP_PROXY"] = "http://127.0.0.1:1"
		env["NO_PROXY"] = "localhost,127.0.0.1,::1"

		env["OLLAMA_CONTEXT_LENGTH"] = fmt.Sprintf("%d", opts.NumCtx)

		if m == mode.OfflineCPU {
			env["OLLAMA_NUM_GPU"] = "0"
			env["CUDA_VISIBLE_DEVICES"] = ""
		}
	}

	for _, k := range nestingGuards {
		delete(env, k)
	}
	return env
}

// FromEnviron converts os.Environ() style "KEY=VALUE" pairs into a map.
func FromEnviron(environ []string) map[string]string {
	m := make(map[string]string, len(environ))
	for _, kv := range environ {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			m[kv[:i]] = kv[i+1:]
		}
	}
	return m
}

// ToSlice converts an environment map back into sorted "KEY=VALUE" pairs
// for exec.Cmd. Sorted output keeps run records diffable.
func ToSlice(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}
