// Package rollback snapshots the workspace with git so failed task steps
// can be reverted. Checkpoint failures are reported but treated as
// warnings by callers; a workspace without version control simply opts out.
package rollback

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/hupe1980/nova/logging"
)

const tagPrefix = "checkpoint_"

// Options configures a Manager.
type Options struct {
	Logger logging.Logger
}

// Manager creates and restores git checkpoints in a workspace.
type Manager struct {
	workspace string
	logger    logging.Logger
}

// New creates a Manager for the given workspace directory.
func New(workspace string, optFns ...func(o *Options)) *Manager {
	opts := Options{
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Manager{workspace: workspace, logger: opts.Logger}
}

// Available reports whether the workspace is under version control.
func (m *Manager) Available() bool {
	info, err := os.Stat(filepath.Join(m.workspace, ".git"))
	return err == nil && info.IsDir()
}

func (m *Manager) git(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = m.workspace
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(string(out)))
	}
	return strings.TrimSpace(string(out)), nil
}

// Checkpoint stages everything, commits and tags checkpoint_<name>. A clean
// tree still gets a tag on the current head.
func (m *Manager) Checkpoint(ctx context.Context, name string) error {
	if !m.Available() {
		return fmt.Errorf("rollback: workspace is not a git repository")
	}

	if _, err := m.git(ctx, "add", "-A"); err != nil {
		return fmt.Errorf("rollback: stage: %w", err)
	}

	// Commit fails on a clean tree; the tag below still pins the head.
	if _, err := m.git(ctx, "commit", "--no-verify", "-m", "checkpoint: "+name); err != nil {
		m.logger.Debug("checkpoint commit skipped", "name", name, "reason", err)
	}

	if _, err := m.git(ctx, "tag", "-f", tagPrefix+name); err != nil {
		return fmt.Errorf("rollback: tag: %w", err)
	}
	m.logger.Info("created checkpoint", "name", name)
	return nil
}

// Revert restores the workspace to a checkpoint.
func (m *Manager) Revert(ctx context.Context, name string) error {
	if !m.Available() {
		return fmt.Errorf("rollback: workspace is not a git repository")
	}
	if _, err := m.git(ctx, "checkout", "-f", tagPrefix+name); err != nil {
		return fmt.Errorf("rollback: revert to %s: %w", name, err)
	}
	m.logger.Info("reverted to checkpoint", "name", name)
	return nil
}

// List returns existing checkpoint names.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	if !m.Available() {
		return nil, nil
	}
	out, err := m.git(ctx, "tag", "--list", tagPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("rollback: list: %w", err)
	}
	if out == "" {
		return nil, nil
	}
	var names []string
	for _, tag := range strings.Split(out, "\n") {
		names = append(names, strings.TrimPrefix(tag, tagPrefix))
	}
	return names, nil
}
