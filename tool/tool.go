// Package tool implements the tool subsystem: the capability contract agents
// invoke, a generic function adapter with schema validated arguments, and the
// namespaced registry with an ephemeral overlay for benchmark-injected tools.
package tool

import (
	"context"
	"fmt"

	"github.com/hupe1980/nova/core"
	"github.com/hupe1980/nova/internal/util"
)

// Tool defines the interface for extending agent capabilities with external functions.
//
// Tools are registered with the Registry under dot-namespaced names (for
// example "web.search" or "file.write") and invoked through the Executor,
// which consults the policy engine first and normalizes whatever the tool
// returns into a core.ToolResult.
//
// Tool implementations should:
//   - Provide clear, descriptive names and descriptions
//   - Declare an honest risk level; policies consult it
//   - Define a JSON schema for their arguments
//   - Be safe for concurrent use; the dispatcher fans out in parallel
type Tool interface {
	// Name returns the unique dot-namespaced identifier for this tool.
	Name() string

	// Description returns a human-readable description of what this tool does.
	// It is provided to the model to help it decide when to call the tool.
	Description() string

	// Risk returns the tool-declared risk level.
	Risk() core.RiskLevel

	// Parameters returns a JSON schema describing the expected arguments.
	Parameters() map[string]any

	// Execute runs the tool. The returned value may be a core.ToolResult, a
	// map with a "success" key, or any scalar; the Executor normalizes all of
	// these. A returned error marks an execution crash and is retryable.
	Execute(ctx context.Context, args map[string]any) (any, error)
}

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
}

// Error codes attached to ToolError values.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeExecution  = "EXECUTION_ERROR"
	CodeNotFound   = "TOOL_NOT_FOUND"
)

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}

// ValidationError represents argument validation errors with detailed information.
type ValidationError = util.ValidationError
