// Package policy implements the safety gate every tool call passes through: a
// composable list of policies checked in order, an append-only audit log, and
// one-shot permission tokens for pre-authorizing high-risk actions.
package policy

import (
	"fmt"
	"sync"

	"github.com/hupe1980/nova/tool"
)

// Policy decides whether a single tool call may proceed. Implementations must
// be safe for concurrent Check calls; the dispatcher fans out in parallel.
type Policy interface {
	// Name returns the policy identifier used in denial reasons and audit records.
	Name() string

	// Check reports whether the call is allowed and a human-readable reason.
	Check(t tool.Tool, args map[string]any) (bool, string)
}

// Authorizer is an optional capability a Policy can implement to short-circuit
// the engine: when Authorize returns true the call is allowed immediately
// without consulting the remaining policies. Used by TokenPolicy so a valid
// permission token overrides restrictive policies for one call.
type Authorizer interface {
	Authorize(t tool.Tool, args map[string]any) (bool, string)
}

// Engine orchestrates multiple policies. Policies are checked in registration
// order and all must pass for a tool call to proceed. Every decision is
// appended to the audit log when one is configured.
//
// The engine is read-mostly: Check takes a read lock, Add/Remove an exclusive
// lock.
type Engine struct {
	mu       sync.RWMutex
	policies []Policy
	audit    *AuditLogger
}

// NewEngine constructs an engine with the given policies. audit may be nil.
func NewEngine(audit *AuditLogger, policies ...Policy) *Engine {
	return &Engine{policies: policies, audit: audit}
}

// Add appends a policy to the chain.
func (e *Engine) Add(p Policy) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.policies = append(e.policies, p)
}

// Remove drops all policies with the given name.
func (e *Engine) Remove(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	kept := e.policies[:0]
	for _, p := range e.policies {
		if p.Name() != name {
			kept = append(kept, p)
		}
	}
	e.policies = kept
}

// Active returns the names of all registered policies in order.
func (e *Engine) Active() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, len(e.policies))
	for i, p := range e.policies {
		names[i] = p.Name()
	}
	return names
}

// Check evaluates the tool call against all policies. On denial the reason
// names the failing policy. The decision is audit-logged either way.
func (e *Engine) Check(t tool.Tool, args map[string]any) (allowed bool, reason string) {
	e.mu.RLock()
	policies := make([]Policy, len(e.policies))
	copy(policies, e.policies)
	e.mu.RUnlock()

	defer func() {
		if e.audit != nil {
			e.audit.Log(t.Name(), args, allowed, reason)
		}
	}()

	for _, p := range policies {
		if auth, ok := p.(Authorizer); ok {
			if granted, why := auth.Authorize(t, args); granted {
				return true, why
			}
		}
	}

	for _, p := range policies {
		ok, why := p.Check(t, args)
		if !ok {
			return false, fmt.Sprintf("[%s] %s", p.Name(), why)
		}
	}
	return true, "All policies passed"
}
