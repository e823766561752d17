package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "unrestricted", cfg.SafetyLevel)
	assert.True(t, cfg.OfflineMode)
	assert.Equal(t, 5, cfg.CircuitBreakerThreshold)
	assert.Equal(t, 0.7, cfg.Temperature)
	assert.Equal(t, 10, cfg.MaxIterations)
	assert.Equal(t, "llama3.2:1b", cfg.TierModels["fast"])
	assert.Equal(t, 120*time.Second, cfg.ToolTimeout)
	assert.Empty(t, cfg.WorkspaceDir, "workspace must be set by the caller")
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nova.yaml")
	content := `
workspace_dir: ` + dir + `
safety_level: restricted
daily_budget: 2.5
turbo_mode: true
tier_models:
  fast: tinyllama
  balanced: llama3.2
  powerful: qwen2.5-coder:14b
max_iterations: 25
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.WorkspaceDir)
	assert.Equal(t, "restricted", cfg.SafetyLevel)
	assert.Equal(t, 2.5, cfg.DailyBudget)
	assert.True(t, cfg.TurboMode)
	assert.Equal(t, "tinyllama", cfg.TierModels["fast"])
	assert.Equal(t, 25, cfg.MaxIterations)
	// untouched keys keep their defaults
	assert.Equal(t, 4096, cfg.MaxTokens)
	// derived default
	assert.Equal(t, filepath.Join(dir, ".sandbox"), cfg.SandboxRoot)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workspace_dir: [unclosed"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("NOVA_WORKSPACE_DIR", "/tmp/ws")
	t.Setenv("NOVA_SAFETY_LEVEL", "read_only")
	t.Setenv("NOVA_DAILY_BUDGET", "1.25")
	t.Setenv("NOVA_TURBO_MODE", "true")
	t.Setenv("NOVA_OFFLINE_MODE", "false")

	cfg := Default()
	cfg.ApplyEnv()

	assert.Equal(t, "/tmp/ws", cfg.WorkspaceDir)
	assert.Equal(t, "read_only", cfg.SafetyLevel)
	assert.Equal(t, 1.25, cfg.DailyBudget)
	assert.True(t, cfg.TurboMode)
	assert.False(t, cfg.OfflineMode)
}

func TestApplyEnvIgnoresMalformed(t *testing.T) {
	t.Setenv("NOVA_DAILY_BUDGET", "not-a-number")
	t.Setenv("NOVA_TURBO_MODE", "maybe")

	cfg := Default()
	cfg.ApplyEnv()

	assert.Zero(t, cfg.DailyBudget)
	assert.False(t, cfg.TurboMode)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	assert.Error(t, cfg.Validate(), "missing workspace_dir")

	cfg.WorkspaceDir = "/tmp/ws"
	cfg.SafetyLevel = "paranoid"
	assert.Error(t, cfg.Validate(), "unknown safety level")

	cfg.SafetyLevel = "sandbox_only"
	cfg.CircuitBreakerThreshold = -1
	cfg.MaxIterations = 0
	require.NoError(t, cfg.Validate())

	assert.Equal(t, filepath.Join("/tmp/ws", ".sandbox"), cfg.SandboxRoot)
	assert.Equal(t, 5, cfg.CircuitBreakerThreshold)
	assert.Equal(t, 10, cfg.MaxIterations)
}

func TestStateDir(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.WorkspaceDir = dir

	state := cfg.StateDir()
	assert.Equal(t, filepath.Join(dir, ".nova"), state)

	info, err := os.Stat(state)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
