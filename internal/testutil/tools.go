package testutil

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/hupe1980/nova/core"
)

// StubTool is a configurable in-memory tool for exercising the registry,
// executor and dispatcher without touching the filesystem or network.
// The zero value is not usable; construct via NewStubTool.
type StubTool struct {
	name        string
	description string
	risk        core.RiskLevel
	fn          func(ctx context.Context, args map[string]any) (any, error)
	calls       atomic.Int64
}

// NewStubTool creates a low-risk tool that echoes its "input" argument.
// Override behavior with the chainable helpers below.
func NewStubTool(name string) *StubTool {
	return &StubTool{
		name:        name,
		description: "stub tool " + name,
		risk:        core.RiskLow,
		fn: func(_ context.Context, args map[string]any) (any, error) {
			return fmt.Sprintf("%v", args["input"]), nil
		},
	}
}

// WithRisk sets the declared risk level (chainable).
func (t *StubTool) WithRisk(r core.RiskLevel) *StubTool { t.risk = r; return t }

// WithResult makes the tool return a fixed value (chainable).
func (t *StubTool) WithResult(v any) *StubTool {
	t.fn = func(context.Context, map[string]any) (any, error) { return v, nil }
	return t
}

// WithError makes the tool return an execution error (chainable).
func (t *StubTool) WithError(err error) *StubTool {
	t.fn = func(context.Context, map[string]any) (any, error) { return nil, err }
	return t
}

// WithFunc installs a custom execution function (chainable).
func (t *StubTool) WithFunc(fn func(ctx context.Context, args map[string]any) (any, error)) *StubTool {
	t.fn = fn
	return t
}

// Calls reports how many times Execute has run.
func (t *StubTool) Calls() int { return int(t.calls.Load()) }

func (t *StubTool) Name() string         { return t.name }
func (t *StubTool) Description() string  { return t.description }
func (t *StubTool) Risk() core.RiskLevel { return t.risk }

func (t *StubTool) Parameters() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{"input": map[string]any{"type": "string"}},
	}
}

func (t *StubTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	t.calls.Add(1)
	return t.fn(ctx, args)
}

// OKResult builds a successful tool result with the given payload.
func OKResult(result string) core.ToolResult {
	return core.Succeed(result)
}

// FailResult builds a failed tool result with the given error message.
func FailResult(msg string) core.ToolResult {
	return core.Failure("%s", msg)
}
