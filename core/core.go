package core

import (
	"fmt"
	"strings"
	"time"
)

// Role identifies the author of a conversation message.
type Role string

const (
	// RoleSystem marks context and summary messages injected by the runtime.
	RoleSystem Role = "system"
	// RoleUser marks end-user input and runtime observations fed back to the model.
	RoleUser Role = "user"
	// RoleAssistant marks model output.
	RoleAssistant Role = "assistant"
)

// Message is one entry of a conversation history. Messages are appended by the
// reasoning loop and compressed or dropped by the context compressor; they are
// never retroactively mutated.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// NewMessage constructs a message stamped with the current time.
func NewMessage(role Role, content string) Message {
	return Message{Role: role, Content: content, Timestamp: time.Now()}
}

// History is an ordered conversation. Invariants maintained by the loop: the
// first element (if any system context exists) is a system-role summary, and
// the last element is user-role before every generation call.
type History []Message

// Append returns the history with an additional message. The receiver is not
// mutated when the append reallocates, so callers must use the return value.
func (h History) Append(role Role, content string) History {
	return append(h, NewMessage(role, content))
}

// Render serializes the history into a stable textual form used for response
// cache keys.
func (h History) Render() string {
	var sb strings.Builder
	for _, m := range h {
		sb.WriteString(string(m.Role))
		sb.WriteString(": ")
		sb.WriteString(m.Content)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Clone returns a copy safe for independent mutation.
func (h History) Clone() History {
	out := make(History, len(h))
	copy(out, h)
	return out
}

// ToolCall is a single tool invocation request parsed from model output. Tool
// names use opaque dot-separated namespaces (for example "web.search"); the
// runtime never parses them.
type ToolCall struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args"`
}

// ToolResult is the normalized outcome every tool invocation reduces to.
type ToolResult struct {
	Success  bool   `json:"success"`
	Result   any    `json:"result,omitempty"`
	Error    string `json:"error,omitempty"`
	ExitCode *int   `json:"exit_code,omitempty"`
}

// Failure builds a failed result with the given error message.
func Failure(format string, args ...any) ToolResult {
	return ToolResult{Success: false, Error: fmt.Sprintf(format, args...)}
}

// Success wraps a value as a successful result.
func Succeed(result any) ToolResult {
	return ToolResult{Success: true, Result: result}
}

// RiskLevel is a tool-declared property consulted by policies. Levels are
// ordered: LOW < MEDIUM < HIGH < CRITICAL.
type RiskLevel int

const (
	RiskLow RiskLevel = iota
	RiskMedium
	RiskHigh
	RiskCritical
)

var riskNames = map[RiskLevel]string{
	RiskLow:      "LOW",
	RiskMedium:   "MEDIUM",
	RiskHigh:     "HIGH",
	RiskCritical: "CRITICAL",
}

// String returns the canonical upper-case name of the level.
func (r RiskLevel) String() string {
	if s, ok := riskNames[r]; ok {
		return s
	}
	return "UNKNOWN"
}

// ParseRiskLevel maps a name to a level, defaulting unknown names to MEDIUM.
func ParseRiskLevel(s string) RiskLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LOW":
		return RiskLow
	case "HIGH":
		return RiskHigh
	case "CRITICAL":
		return RiskCritical
	default:
		return RiskMedium
	}
}
