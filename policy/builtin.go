package policy

import (
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/nova/core"
	"github.com/hupe1980/nova/tool"
)

// RiskPolicy blocks tools whose declared risk level exceeds a threshold.
type RiskPolicy struct {
	maxRisk core.RiskLevel
}

// NewRiskPolicy constructs a risk policy allowing tools up to maxRisk.
func NewRiskPolicy(maxRisk core.RiskLevel) *RiskPolicy {
	return &RiskPolicy{maxRisk: maxRisk}
}

// Name implements Policy.
func (p *RiskPolicy) Name() string { return "risk_policy" }

// Check implements Policy.
func (p *RiskPolicy) Check(t tool.Tool, _ map[string]any) (bool, string) {
	if t.Risk() > p.maxRisk {
		return false, fmt.Sprintf("Tool risk level '%s' exceeds maximum '%s'", t.Risk(), p.maxRisk)
	}
	return true, "Risk level acceptable"
}

// RateLimitPolicy limits how often each tool can be executed using a per-tool
// sliding one-minute window. The timestamp is recorded on allow, so denied
// calls do not consume quota.
type RateLimitPolicy struct {
	mu       sync.Mutex
	maxCalls int
	history  map[string][]time.Time
	now      func() time.Time // test hook
}

// NewRateLimitPolicy constructs a rate limit policy allowing maxCallsPerMinute
// invocations per tool.
func NewRateLimitPolicy(maxCallsPerMinute int) *RateLimitPolicy {
	return &RateLimitPolicy{
		maxCalls: maxCallsPerMinute,
		history:  make(map[string][]time.Time),
		now:      time.Now,
	}
}

// Name implements Policy.
func (p *RateLimitPolicy) Name() string { return "rate_limit_policy" }

// Check implements Policy.
func (p *RateLimitPolicy) Check(t tool.Tool, _ map[string]any) (bool, string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	cutoff := now.Add(-time.Minute)

	recent := p.history[t.Name()][:0]
	for _, ts := range p.history[t.Name()] {
		if ts.After(cutoff) {
			recent = append(recent, ts)
		}
	}
	p.history[t.Name()] = recent

	if len(recent) >= p.maxCalls {
		return false, fmt.Sprintf("Rate limit exceeded: %d calls/min", p.maxCalls)
	}

	p.history[t.Name()] = append(recent, now)
	return true, "Rate limit OK"
}

// Role is a coarse caller identity consulted by PermissionPolicy. Roles are
// ordered guest < user < admin.
type Role int

const (
	RoleGuest Role = iota
	RoleUser
	RoleAdmin
)

var roleNames = map[Role]string{RoleGuest: "guest", RoleUser: "user", RoleAdmin: "admin"}

// String returns the lower-case role name.
func (r Role) String() string {
	if s, ok := roleNames[r]; ok {
		return s
	}
	return "unknown"
}

// PermissionPolicy enforces per-tool minimum roles. Tools without an explicit
// requirement default to guest (always allowed).
type PermissionPolicy struct {
	mu           sync.RWMutex
	userRole     Role
	requirements map[string]Role
}

// NewPermissionPolicy constructs a permission policy for a caller role.
func NewPermissionPolicy(userRole Role) *PermissionPolicy {
	return &PermissionPolicy{userRole: userRole, requirements: make(map[string]Role)}
}

// Require sets the minimum role for a tool name.
func (p *PermissionPolicy) Require(toolName string, minRole Role) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requirements[toolName] = minRole
}

// Name implements Policy.
func (p *PermissionPolicy) Name() string { return "permission_policy" }

// Check implements Policy.
func (p *PermissionPolicy) Check(t tool.Tool, _ map[string]any) (bool, string) {
	p.mu.RLock()
	required := p.requirements[t.Name()]
	p.mu.RUnlock()

	if p.userRole < required {
		return false, fmt.Sprintf("Insufficient permissions: requires '%s', user is '%s'", required, p.userRole)
	}
	return true, "Permissions OK"
}
