package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTask(t *testing.T) {
	tk := New("ship the release")

	assert.NotEmpty(t, tk.ID)
	assert.Equal(t, "ship the release", tk.Goal)
	assert.Equal(t, StatusPending, tk.Status)
	assert.False(t, tk.CreatedAt.IsZero())
	assert.Empty(t, tk.Steps)
}

func TestTransitionTable(t *testing.T) {
	allowed := []struct{ from, to Status }{
		{StatusPending, StatusPlanning},
		{StatusPending, StatusInProgress},
		{StatusPending, StatusFailed},
		{StatusPending, StatusSkipped},
		{StatusPlanning, StatusInProgress},
		{StatusPlanning, StatusFailed},
		{StatusInProgress, StatusBlocked},
		{StatusInProgress, StatusCompleted},
		{StatusInProgress, StatusFailed},
		{StatusInProgress, StatusSkipped},
		{StatusBlocked, StatusInProgress},
		{StatusBlocked, StatusFailed},
		{StatusFailed, StatusPending},
		{StatusFailed, StatusInProgress},
		{StatusCompleted, StatusInProgress},
		{StatusSkipped, StatusPending},
	}
	for _, tt := range allowed {
		assert.True(t, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}

	denied := []struct{ from, to Status }{
		{StatusPending, StatusCompleted},
		{StatusPending, StatusBlocked},
		{StatusPlanning, StatusCompleted},
		{StatusPlanning, StatusSkipped},
		{StatusBlocked, StatusCompleted},
		{StatusBlocked, StatusSkipped},
		{StatusCompleted, StatusFailed},
		{StatusCompleted, StatusPending},
		{StatusFailed, StatusCompleted},
		{StatusSkipped, StatusInProgress},
		{StatusInProgress, StatusPlanning},
	}
	for _, tt := range denied {
		assert.False(t, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestTransition(t *testing.T) {
	tk := New("goal")

	require.NoError(t, tk.Transition(StatusPlanning))
	require.NoError(t, tk.Transition(StatusInProgress))
	require.NoError(t, tk.Transition(StatusCompleted))
	assert.Equal(t, StatusCompleted, tk.Status)

	err := tk.Transition(StatusFailed)
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StatusCompleted, tk.Status, "failed transitions leave status unchanged")
}

func TestTransitionStep(t *testing.T) {
	tk := New("goal")
	step := tk.AddStep("investigate")

	require.NoError(t, tk.TransitionStep(step, StatusInProgress))
	require.NoError(t, tk.TransitionStep(step, StatusBlocked))
	require.NoError(t, tk.TransitionStep(step, StatusInProgress))
	require.NoError(t, tk.TransitionStep(step, StatusCompleted))

	err := tk.TransitionStep(step, StatusPending)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestRetryPathThroughFailed(t *testing.T) {
	tk := New("goal")

	require.NoError(t, tk.Transition(StatusInProgress))
	require.NoError(t, tk.Transition(StatusFailed))
	require.NoError(t, tk.Transition(StatusInProgress))
	assert.Equal(t, StatusInProgress, tk.Status)
}

func TestObserverFiresOnEveryChange(t *testing.T) {
	tk := New("goal")
	step := tk.AddStep("one")

	var statuses []Status
	tk.Observe(func(changed *Task) {
		statuses = append(statuses, changed.Status)
	})

	require.NoError(t, tk.Transition(StatusInProgress))
	require.NoError(t, tk.TransitionStep(step, StatusInProgress))
	require.NoError(t, tk.Transition(StatusCompleted))

	assert.Len(t, statuses, 3)
	assert.Equal(t, StatusCompleted, statuses[2])
}

func TestAddToolStep(t *testing.T) {
	tk := New("goal")
	step := tk.AddToolStep("fetch data", "web.search", map[string]any{"query": "go"})

	assert.NotEmpty(t, step.ID)
	assert.Equal(t, "web.search", step.Tool)
	assert.Equal(t, StatusPending, step.Status)
	require.Len(t, tk.Steps, 1)
}

func TestPendingSteps(t *testing.T) {
	tk := New("goal")
	first := tk.AddStep("one")
	tk.AddStep("two")
	tk.AddStep("three")

	require.NoError(t, tk.TransitionStep(first, StatusInProgress))
	require.NoError(t, tk.TransitionStep(first, StatusCompleted))

	pending := tk.PendingSteps()
	require.Len(t, pending, 2)
	assert.Equal(t, "two", pending[0].Description)
	assert.Equal(t, "three", pending[1].Description)
}

func TestDescriptions(t *testing.T) {
	tk := New("goal")
	tk.AddStep("alpha")
	tk.AddToolStep("beta", "x.y", nil)

	assert.Equal(t, []string{"alpha", "beta"}, tk.Descriptions())
}
