// Package trajectory records what a session did: every input, thought, tool
// call and error is appended as a step, and finalizing writes one JSON file
// per session.
package trajectory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Step types used by the agent loop.
const (
	StepInput       = "input"
	StepThought     = "thought"
	StepToolCall    = "tool_call"
	StepToolResult  = "tool_result"
	StepObservation = "observation"
	StepResponse    = "response"
	StepError       = "error"
)

// Step is one recorded event.
type Step struct {
	Timestamp float64        `json:"timestamp"`
	Type      string         `json:"type"`
	Data      map[string]any `json:"data"`
}

// File is the on-disk trajectory document.
type File struct {
	SessionID string         `json:"session_id"`
	Success   bool           `json:"success"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Steps     []Step         `json:"steps"`
}

// Logger buffers steps for one session at a time.
type Logger struct {
	mu    sync.Mutex
	dir   string
	steps []Step
	now   func() time.Time
}

// NewLogger creates a Logger writing finalized trajectories into dir.
func NewLogger(dir string) *Logger {
	return &Logger{dir: dir, now: time.Now}
}

// Log appends a step to the current buffer.
func (l *Logger) Log(stepType string, data map[string]any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.steps = append(l.steps, Step{
		Timestamp: float64(l.now().UnixNano()) / float64(time.Second),
		Type:      stepType,
		Data:      data,
	})
}

// Steps returns a copy of the buffered steps.
func (l *Logger) Steps() []Step {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Step, len(l.steps))
	copy(out, l.steps)
	return out
}

// Finalize writes the buffered steps as <session_id>.json and resets the
// buffer.
func (l *Logger) Finalize(sessionID string, success bool, metadata map[string]any) error {
	l.mu.Lock()
	steps := l.steps
	l.steps = nil
	l.mu.Unlock()

	doc := File{
		SessionID: sessionID,
		Success:   success,
		Metadata:  metadata,
		Steps:     steps,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("trajectory: marshal: %w", err)
	}
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("trajectory: create dir: %w", err)
	}
	path := filepath.Join(l.dir, sessionID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("trajectory: write %s: %w", path, err)
	}
	return nil
}
