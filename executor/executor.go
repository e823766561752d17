// Package executor provides the single entry point for tool invocation:
// registry lookup, policy check, execution with timeout and panic recovery,
// and normalization of whatever the tool returned into a core.ToolResult.
//
// The executor is synchronous; parallelism is the dispatcher's job.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/nova/core"
	"github.com/hupe1980/nova/logging"
	"github.com/hupe1980/nova/policy"
	"github.com/hupe1980/nova/tool"
)

// ErrToolNotFound is the error string surfaced when a call names a tool the
// registry cannot resolve.
const ErrToolNotFound = "ToolNotFound"

// StatusBlocked is the reserved status value tools may return to signal they
// refused the operation themselves; it normalizes to a failed result.
const StatusBlocked = "BLOCKED"

// DefaultTimeout bounds a single tool invocation unless the tool overrides it.
const DefaultTimeout = 120 * time.Second

// TimeoutOverrider is an optional capability a Tool can implement to replace
// the default invocation timeout.
type TimeoutOverrider interface {
	Timeout() time.Duration
}

// Executor resolves, gates and invokes tools.
type Executor struct {
	registry *tool.Registry
	policies *policy.Engine
	logger   logging.Logger
}

// New constructs an executor. logger may be nil.
func New(registry *tool.Registry, policies *policy.Engine, logger logging.Logger) *Executor {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Executor{registry: registry, policies: policies, logger: logger}
}

// Execute runs one tool call to completion.
//
// The returned error is non-nil only for retryable execution crashes: a tool
// returning an error, panicking, or exceeding its timeout. Registry misses and
// policy denials are terminal and come back as failed results with a nil
// error, so the dispatcher never retries them.
func (e *Executor) Execute(ctx context.Context, toolName string, args map[string]any) (core.ToolResult, error) {
	t, ok := e.registry.Get(toolName)
	if !ok {
		e.logger.Warn("tool.lookup.miss", "tool", toolName)
		return core.ToolResult{Success: false, Error: ErrToolNotFound}, nil
	}

	allowed, reason := e.policies.Check(t, args)
	if !allowed {
		e.logger.Info("tool.blocked", "tool", toolName, "reason", reason)
		return core.ToolResult{Success: false, Error: "Blocked: " + reason}, nil
	}

	timeout := DefaultTimeout
	if o, ok := t.(TimeoutOverrider); ok && o.Timeout() > 0 {
		timeout = o.Timeout()
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	raw, err := invoke(callCtx, t, args)
	if err == nil && callCtx.Err() != nil {
		err = fmt.Errorf("tool %s timed out after %s", toolName, timeout)
	}
	e.logger.Debug("tool.executed", "tool", toolName, "duration_ms", time.Since(start).Milliseconds(), "error", err != nil)
	if err != nil {
		return core.ToolResult{}, err
	}

	return normalize(raw), nil
}

// invoke runs the tool with panic recovery so a misbehaving implementation
// surfaces as a retryable error rather than tearing down the session.
func invoke(ctx context.Context, t tool.Tool, args map[string]any) (raw any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool %s panicked: %v", t.Name(), r)
		}
	}()
	return t.Execute(ctx, args)
}

// normalize reduces a tool's return value to the canonical result shape:
// core.ToolResult passes through, maps with a "success" key are decoded, the
// reserved BLOCKED status becomes a failure, and anything else is wrapped as a
// successful scalar result.
func normalize(raw any) core.ToolResult {
	switch v := raw.(type) {
	case core.ToolResult:
		return v
	case *core.ToolResult:
		return *v
	case map[string]any:
		if status, ok := v["status"].(string); ok && status == StatusBlocked {
			return core.ToolResult{Success: false, Error: "Blocked by safety policy"}
		}
		if _, ok := v["success"]; ok {
			return decodeResultMap(v)
		}
		return core.Succeed(v)
	default:
		return core.Succeed(v)
	}
}

func decodeResultMap(m map[string]any) core.ToolResult {
	res := core.ToolResult{}
	res.Success, _ = m["success"].(bool)
	res.Error, _ = m["error"].(string)
	if v, ok := m["result"]; ok {
		res.Result = v
	} else {
		res.Result = m
	}
	if code, ok := m["exit_code"]; ok {
		switch c := code.(type) {
		case int:
			res.ExitCode = &c
		case float64:
			ci := int(c)
			res.ExitCode = &ci
		}
	}
	return res
}
