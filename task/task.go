// Package task models multi-step work items and the strict status state
// machine governing them. Transitions outside the declared table fail with
// ErrInvalidTransition so state corruption surfaces immediately.
package task

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a Task or TaskStep.
type Status string

const (
	StatusPending    Status = "pending"
	StatusPlanning   Status = "planning"
	StatusInProgress Status = "in_progress"
	StatusBlocked    Status = "blocked"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusSkipped    Status = "skipped"
)

// ErrInvalidTransition is returned for undeclared status transitions.
var ErrInvalidTransition = errors.New("task: invalid status transition")

var transitions = map[Status][]Status{
	StatusPending:    {StatusPlanning, StatusInProgress, StatusFailed, StatusSkipped},
	StatusPlanning:   {StatusInProgress, StatusFailed},
	StatusInProgress: {StatusBlocked, StatusCompleted, StatusFailed, StatusSkipped},
	StatusBlocked:    {StatusInProgress, StatusFailed},
	StatusFailed:     {StatusPending, StatusInProgress},
	StatusCompleted:  {StatusInProgress},
	StatusSkipped:    {StatusPending},
}

// CanTransition reports whether from → to is a declared transition.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// TaskStep is a single unit of work inside a Task. Tool-bound steps name a
// registry tool plus its arguments; free-form steps carry only a
// description and run through the reasoning loop.
type TaskStep struct {
	ID          string         `json:"id"`
	Description string         `json:"description"`
	Tool        string         `json:"tool,omitempty"`
	Args        map[string]any `json:"args,omitempty"`
	Status      Status         `json:"status"`
	Result      string         `json:"result,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// Task is an ordered collection of steps working toward a goal.
type Task struct {
	mu        sync.Mutex
	ID        string     `json:"id"`
	Goal      string     `json:"goal"`
	Steps     []*TaskStep `json:"steps"`
	Status    Status     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	observer func(*Task)
}

// New creates a pending task for a goal.
func New(goal string) *Task {
	now := time.Now()
	return &Task{
		ID:        uuid.New().String(),
		Goal:      goal,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Observe registers a callback invoked synchronously after every status
// change.
func (t *Task) Observe(fn func(*Task)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.observer = fn
}

// AddStep appends a free-form step.
func (t *Task) AddStep(description string) *TaskStep {
	return t.AddToolStep(description, "", nil)
}

// AddToolStep appends a step bound to a registry tool.
func (t *Task) AddToolStep(description, tool string, args map[string]any) *TaskStep {
	t.mu.Lock()
	defer t.mu.Unlock()
	step := &TaskStep{
		ID:          uuid.New().String(),
		Description: description,
		Tool:        tool,
		Args:        args,
		Status:      StatusPending,
	}
	t.Steps = append(t.Steps, step)
	t.UpdatedAt = time.Now()
	return step
}

// Transition moves the task to a new status or fails with
// ErrInvalidTransition.
func (t *Task) Transition(to Status) error {
	t.mu.Lock()
	if !CanTransition(t.Status, to) {
		from := t.Status
		t.mu.Unlock()
		return fmt.Errorf("%w: task %s → %s", ErrInvalidTransition, from, to)
	}
	t.Status = to
	t.UpdatedAt = time.Now()
	observer := t.observer
	t.mu.Unlock()

	if observer != nil {
		observer(t)
	}
	return nil
}

// TransitionStep moves a step to a new status or fails with
// ErrInvalidTransition.
func (t *Task) TransitionStep(step *TaskStep, to Status) error {
	t.mu.Lock()
	if !CanTransition(step.Status, to) {
		from := step.Status
		t.mu.Unlock()
		return fmt.Errorf("%w: step %s → %s", ErrInvalidTransition, from, to)
	}
	step.Status = to
	t.UpdatedAt = time.Now()
	observer := t.observer
	t.mu.Unlock()

	if observer != nil {
		observer(t)
	}
	return nil
}

// PendingSteps returns the steps still awaiting execution, in order.
func (t *Task) PendingSteps() []*TaskStep {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []*TaskStep
	for _, step := range t.Steps {
		if step.Status == StatusPending {
			out = append(out, step)
		}
	}
	return out
}

// Descriptions returns each step's description, in order.
func (t *Task) Descriptions() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.Steps))
	for i, step := range t.Steps {
		out[i] = step.Description
	}
	return out
}
