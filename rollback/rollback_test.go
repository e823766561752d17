package rollback

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, "git %v: %s", args, out)
	}
	run("init")
	run("config", "user.email", "test@example.com")
	run("config", "user.name", "test")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "file.txt"), []byte("v1\n"), 0o644))
	run("add", "-A")
	run("commit", "-m", "initial")
	return dir
}

func TestAvailable(t *testing.T) {
	m := New(t.TempDir())
	assert.False(t, m.Available())

	m = New(initRepo(t))
	assert.True(t, m.Available())
}

func TestCheckpointOutsideRepo(t *testing.T) {
	m := New(t.TempDir())

	err := m.Checkpoint(context.Background(), "step_1")
	assert.Error(t, err)

	err = m.Revert(context.Background(), "step_1")
	assert.Error(t, err)
}

func TestCheckpointAndRevert(t *testing.T) {
	ctx := context.Background()
	dir := initRepo(t)
	m := New(dir)

	require.NoError(t, m.Checkpoint(ctx, "step_1"))

	path := filepath.Join(dir, "file.txt")
	require.NoError(t, os.WriteFile(path, []byte("v2 broken\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "junk.txt"), []byte("debris\n"), 0o644))

	require.NoError(t, m.Revert(ctx, "step_1"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "v1\n", string(data))
}

func TestCheckpointOnCleanTree(t *testing.T) {
	ctx := context.Background()
	m := New(initRepo(t))

	// nothing to commit, but the tag must still land
	require.NoError(t, m.Checkpoint(ctx, "clean"))

	names, err := m.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, names, "clean")
}

func TestCheckpointRetagsSameName(t *testing.T) {
	ctx := context.Background()
	dir := initRepo(t)
	m := New(dir)

	require.NoError(t, m.Checkpoint(ctx, "step_1"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "file.txt"), []byte("v2\n"), 0o644))
	require.NoError(t, m.Checkpoint(ctx, "step_1"), "same name moves the tag")

	names, err := m.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"step_1"}, names)
}

func TestList(t *testing.T) {
	ctx := context.Background()
	m := New(initRepo(t))

	names, err := m.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)

	require.NoError(t, m.Checkpoint(ctx, "a"))
	require.NoError(t, m.Checkpoint(ctx, "b"))

	names, err = m.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, names)
}

func TestListOutsideRepo(t *testing.T) {
	names, err := New(t.TempDir()).List(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, names)
}
