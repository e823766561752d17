// Package config holds the runtime configuration for the agent. Values come
// from defaults, an optional YAML file, and NOVA_* environment overrides, in
// that order.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures every recognized runtime option.
type Config struct {
	// WorkspaceDir is the root for sandboxing and persistence. Required.
	WorkspaceDir string `yaml:"workspace_dir"`

	// SafetyLevel is one of read_only, sandbox_only, restricted,
	// unrestricted.
	SafetyLevel string `yaml:"safety_level"`

	// OfflineMode forces network tools to request confirmation.
	OfflineMode bool `yaml:"offline_mode"`

	BenchmarkMode       bool   `yaml:"benchmark_mode"`
	BenchmarkTaskType   string `yaml:"benchmark_task_type"`
	BenchmarkMaxRetries int    `yaml:"benchmark_max_retries"`

	// TurboMode raises the dispatch worker pool and relaxes model
	// selection forcing.
	TurboMode bool `yaml:"turbo_mode"`

	CircuitBreakerThreshold int `yaml:"circuit_breaker_threshold"`

	// Model generation defaults. A non-zero Seed pins sampling for
	// reproducible runs on backends that support it.
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	Seed        int     `yaml:"seed"`

	// DailyBudget caps model spend in USD-equivalent units. Zero means
	// unlimited.
	DailyBudget float64 `yaml:"daily_budget"`

	MaxHistoryBeforeCompression int `yaml:"max_history_before_compression"`

	// SandboxRoot defaults to <workspace_dir>/.sandbox.
	SandboxRoot string `yaml:"sandbox_root"`

	// MaxIterations bounds the reasoning loop per turn.
	MaxIterations int `yaml:"max_iterations"`

	// OllamaHost is the base URL of the local model server.
	OllamaHost string `yaml:"ollama_host"`

	// ModelName is the default model when the router is bypassed.
	ModelName string `yaml:"model_name"`

	// TierModels maps router tiers (fast, balanced, powerful) to model
	// names.
	TierModels map[string]string `yaml:"tier_models"`

	// ToolTimeout bounds a single tool invocation.
	ToolTimeout time.Duration `yaml:"tool_timeout"`
}

// Default returns the configuration used when no file or overrides are
// present. WorkspaceDir is left empty and must be set by the caller.
func Default() *Config {
	return &Config{
		SafetyLevel:                 "unrestricted",
		OfflineMode:                 true,
		BenchmarkMaxRetries:         3,
		CircuitBreakerThreshold:     5,
		Temperature:                 0.7,
		MaxTokens:                   4096,
		MaxHistoryBeforeCompression: 10,
		MaxIterations:               10,
		OllamaHost:                  "http://localhost:11434",
		ModelName:                   "llama3.2",
		TierModels: map[string]string{
			"fast":     "llama3.2:1b",
			"balanced": "llama3.2",
			"powerful": "qwen2.5-coder:14b",
		},
		ToolTimeout: 120 * time.Second,
	}
}

// Load reads a YAML config file, applies it over defaults, then applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides selected fields from NOVA_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("NOVA_WORKSPACE_DIR"); v != "" {
		c.WorkspaceDir = v
	}
	if v := os.Getenv("NOVA_SAFETY_LEVEL"); v != "" {
		c.SafetyLevel = v
	}
	if v := os.Getenv("NOVA_OLLAMA_HOST"); v != "" {
		c.OllamaHost = v
	}
	if v := os.Getenv("NOVA_MODEL_NAME"); v != "" {
		c.ModelName = v
	}
	if v := os.Getenv("NOVA_DAILY_BUDGET"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.DailyBudget = f
		}
	}
	if v := os.Getenv("NOVA_TURBO_MODE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.TurboMode = b
		}
	}
	if v := os.Getenv("NOVA_OFFLINE_MODE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.OfflineMode = b
		}
	}
}

// Validate checks required fields and fills derived defaults.
func (c *Config) Validate() error {
	if c.WorkspaceDir == "" {
		return fmt.Errorf("config: workspace_dir is required")
	}
	switch c.SafetyLevel {
	case "read_only", "sandbox_only", "restricted", "unrestricted":
	default:
		return fmt.Errorf("config: unknown safety_level %q", c.SafetyLevel)
	}
	if c.SandboxRoot == "" {
		c.SandboxRoot = filepath.Join(c.WorkspaceDir, ".sandbox")
	}
	if c.CircuitBreakerThreshold <= 0 {
		c.CircuitBreakerThreshold = 5
	}
	if c.MaxHistoryBeforeCompression <= 0 {
		c.MaxHistoryBeforeCompression = 10
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = 10
	}
	if c.ToolTimeout <= 0 {
		c.ToolTimeout = 120 * time.Second
	}
	return nil
}

// StateDir returns the directory persistent runtime state lives in,
// creating it on first use.
func (c *Config) StateDir() string {
	dir := filepath.Join(c.WorkspaceDir, ".nova")
	_ = os.MkdirAll(dir, 0o755)
	return dir
}
