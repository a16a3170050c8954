// Package config provides configuration loading and management for bakeoff.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// AgentConfig defines how to invoke the coding agent.
type AgentConfig struct {
	Command   string            `toml:"command"`    // Binary name or path
	Args      []string          `toml:"args"`       // Args with {prompt} placeholder
	ModelFlag string            `toml:"model_flag"` // e.g., "--model"
	Env       map[string]string `toml:"env"`        // Extra environment variables
}

// BuildArgs expands the {prompt} placeholder and prepends the model flag.
func (a *AgentConfig) BuildArgs(prompt, model string) []string {
	args := make([]string, 0, len(a.Args)+2)
	if model != "" && a.ModelFlag != "" {
		args = append(args, a.ModelFlag, model)
	}
	for _, arg := range a.Args {
		if strings.Contains(arg, "{prompt}") {
			arg = strings.ReplaceAll(arg, "{prompt}", prompt)
		}
		args = append(args, arg)
	}
	return args
}

// JudgeConfig defines how the judge test suite is executed.
type JudgeConfig struct {
	Command []string `toml:"command"` // e.g., ["python3", "-m", "pytest"]
	Args    []string `toml:"args"`    // appended after the tests dir
	Timeout int      `toml:"timeout"` // seconds
}

// Config holds all configuration for bakeoff.
type Config struct {
	Harness HarnessConfig `toml:"harness"`
	Agent   AgentConfig   `toml:"agent"`
	Judge   JudgeConfig   `toml:"judge"`
	Local   LocalConfig   `toml:"local"`
	Docker  DockerConfig  `toml:"docker"`
}

// HarnessConfig contains harness-wide settings.
type HarnessConfig struct {
	ResultsDir     string `toml:"results_dir"`
	DefaultTimeout int    `toml:"default_timeout"` // seconds, per agent run
	UsageStatsPath string `toml:"usage_stats_path"`
	PricingPath    string `toml:"pricing_path"`
	RemoteBudget   string `toml:"remote_budget_usd"` // safety cap passed to the agent in remote mode
}

// LocalConfig contains local model server settings.
type LocalConfig struct {
	Endpoint   string `toml:"endpoint"`
	Model      string `toml:"model"`     // default GPU model
	CPUModel   string `toml:"cpu_model"` // default model for offline-cpu runs
	ContextLen int    `toml:"context_len"`
}

// DockerConfig contains settings for the containerized judge.
type DockerConfig struct {
	Enabled    bool   `toml:"enabled"`
	JudgeImage string `toml:"judge_image"`
	AutoPull   bool   `toml:"auto_pull"`
}

// Default configuration values.
var Default = Config{
	Harness: HarnessConfig{
		ResultsDir:     "./results",
		DefaultTimeout: 600,
		RemoteBudget:   "2.0",
	},
	Agent: AgentConfig{
		Command: "claude",
		// Context isolation: skip permission prompts, never persist sessions,
		// and read only user-level settings so the run starts from a blank slate.
		Args: []string{
			"-p", "{prompt}",
			"--dangerously-skip-permissions",
			"--no-session-persistence",
			"--setting-sources", "user",
		},
		ModelFlag: "--model",
	},
	Judge: JudgeConfig{
		Command: []string{"python3", "-m", "pytest"},
		Args:    []string{"-v", "--tb=short", "--no-header"},
		Timeout: 60,
	},
	Local: LocalConfig{
		Endpoint:   "http://127.0.0.1:11434",
		Model:      "gpt-oss:20b",
		CPUModel:   "qwen3:4b",
		ContextLen: 65536,
	},
	Docker: DockerConfig{
		JudgeImage: "ghcr.io/hmcrab/bakeoff-judge:latest",
		AutoPull:   true,
	},
}

// UsageStatsPath resolves the usage stats file path, defaulting to the
// agent's per-user stats cache.
func (c *Config) UsageStatsPath() string {
	if c.Harness.UsageStatsPath != "" {
		return c.Harness.UsageStatsPath
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".claude", "stats-cache.json")
}

// ModelFor returns the default local model: the CPU model when cpu is set,
// the GPU model otherwise.
func (c *Config) ModelFor(cpu bool) string {
	if cpu {
		return c.Local.CPUModel
	}
	return c.Local.Model
}

// configPaths returns the list of paths to search for config files.
func configPaths() []string {
	paths := []string{"./bakeoff.toml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".bakeoff.toml"))
		paths = append(paths, filepath.Join(home, ".config", "bakeoff", "config.toml"))
	}

	return paths
}

// Load loads configuration from a file or discovers it automatically.
// If configFile is empty, it searches standard locations.
// Returns default config if no file is found.
func Load(configFile string) (*Config, error) {
	cfg := Default // Start with defaults

	var path string
	if configFile != "" {
		path = configFile
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
	} else {
		for _, p := range configPaths() {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}

	if path == "" {
		return &cfg, nil
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	// Ensure critical fields aren't zeroed out by partial config
	if cfg.Harness.ResultsDir == "" {
		cfg.Harness.ResultsDir = Default.Harness.ResultsDir
	}
	if cfg.Harness.DefaultTimeout <= 0 {
		cfg.Harness.DefaultTimeout = Default.Harness.DefaultTimeout
	}
	if cfg.Agent.Command == "" {
		cfg.Agent = Default.Agent
	}
	if len(cfg.Judge.Command) == 0 {
		cfg.Judge.Command = Default.Judge.Command
	}
	if cfg.Judge.Timeout <= 0 {
		cfg.Judge.Timeout = Default.Judge.Timeout
	}
	if cfg.Local.Endpoint == "" {
		cfg.Local.Endpoint = Default.Local.Endpoint
	}
	if cfg.Local.Model == "" {
		cfg.Local.Model = Default.Local.Model
	}
	if cfg.Local.CPUModel == "" {
		cfg.Local.CPUModel = Default.Local.CPUModel
	}
	if cfg.Local.ContextLen <= 0 {
		cfg.Local.ContextLen = Default.Local.ContextLen
	}
	if cfg.Docker.JudgeImage == "" {
		cfg.Docker.JudgeImage = Default.Docker.JudgeImage
	}

	return &cfg, nil
}
