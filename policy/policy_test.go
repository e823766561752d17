package policy

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/nova/core"
	"github.com/hupe1980/nova/tool"
)

func stubTool(name string, risk core.RiskLevel) tool.Tool {
	return tool.NewFunctionTool(name, "stub", risk, nil,
		func(context.Context, map[string]any) (any, error) { return "ok", nil })
}

type denyAll struct{}

func (denyAll) Name() string { return "deny_all" }
func (denyAll) Check(tool.Tool, map[string]any) (bool, string) {
	return false, "computer says no"
}

func TestEngineAllPoliciesPass(t *testing.T) {
	engine := NewEngine(nil, NewRiskPolicy(core.RiskHigh))

	allowed, reason := engine.Check(stubTool("file.read", core.RiskLow), nil)
	assert.True(t, allowed)
	assert.Equal(t, "All policies passed", reason)
}

func TestEngineDenialNamesPolicy(t *testing.T) {
	engine := NewEngine(nil, NewRiskPolicy(core.RiskHigh), denyAll{})

	allowed, reason := engine.Check(stubTool("file.read", core.RiskLow), nil)
	assert.False(t, allowed)
	assert.Contains(t, reason, "[deny_all]")
	assert.Contains(t, reason, "computer says no")
}

func TestEngineAddRemoveActive(t *testing.T) {
	engine := NewEngine(nil)
	engine.Add(NewRiskPolicy(core.RiskMedium))
	engine.Add(denyAll{})

	assert.Equal(t, []string{"risk_policy", "deny_all"}, engine.Active())

	engine.Remove("deny_all")
	assert.Equal(t, []string{"risk_policy"}, engine.Active())

	allowed, _ := engine.Check(stubTool("x", core.RiskLow), nil)
	assert.True(t, allowed)
}

func TestEngineAuditsDecisions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	engine := NewEngine(NewAuditLogger(path), denyAll{})

	engine.Check(stubTool("shell.run", core.RiskHigh), map[string]any{"command": "ls"})

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	scanner := bufio.NewScanner(f)
	require.True(t, scanner.Scan())

	var rec AuditRecord
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
	assert.Equal(t, "shell.run", rec.Action)
	assert.False(t, rec.Allowed)
	assert.Contains(t, rec.Reason, "deny_all")
}

func TestRiskPolicy(t *testing.T) {
	p := NewRiskPolicy(core.RiskMedium)

	ok, _ := p.Check(stubTool("a", core.RiskMedium), nil)
	assert.True(t, ok)

	ok, reason := p.Check(stubTool("b", core.RiskHigh), nil)
	assert.False(t, ok)
	assert.Contains(t, reason, "HIGH")
}

func TestParseSafetyLevel(t *testing.T) {
	assert.Equal(t, SafetyReadOnly, ParseSafetyLevel("read_only"))
	assert.Equal(t, SafetySandboxOnly, ParseSafetyLevel(" SANDBOX_ONLY "))
	assert.Equal(t, SafetyRestricted, ParseSafetyLevel("restricted"))
	assert.Equal(t, SafetyUnrestricted, ParseSafetyLevel("anything"))
}

func TestSafetyLevelReadOnly(t *testing.T) {
	p := NewSafetyLevelPolicy(SafetyReadOnly, "/sandbox", "/ws")

	ok, reason := p.Check(stubTool("file.write", core.RiskMedium), map[string]any{"path": "a.txt"})
	assert.False(t, ok)
	assert.Contains(t, reason, "READ_ONLY")

	ok, _ = p.Check(stubTool("shell.run", core.RiskHigh), map[string]any{"command": "ls"})
	assert.False(t, ok)

	ok, _ = p.Check(stubTool("file.read", core.RiskLow), map[string]any{"path": "a.txt"})
	assert.True(t, ok)
}

func TestSafetyLevelSandboxOnly(t *testing.T) {
	ws := t.TempDir()
	sandbox := filepath.Join(ws, ".sandbox")
	p := NewSafetyLevelPolicy(SafetySandboxOnly, sandbox, ws)

	ok, _ := p.Check(stubTool("file.write", core.RiskMedium),
		map[string]any{"path": filepath.Join(sandbox, "out.txt")})
	assert.True(t, ok)

	ok, reason := p.Check(stubTool("file.write", core.RiskMedium),
		map[string]any{"path": "/etc/passwd"})
	assert.False(t, ok)
	assert.Contains(t, reason, "outside sandbox")

	// safe shell commands need confirmation, dangerous ones are denied outright
	ok, reason = p.Check(stubTool("shell.run", core.RiskHigh), map[string]any{"command": "ls -la"})
	assert.False(t, ok)
	assert.Equal(t, ConfirmRequired, reason)

	ok, reason = p.Check(stubTool("shell.run", core.RiskHigh), map[string]any{"command": "rm -rf /"})
	assert.False(t, ok)
	assert.Contains(t, reason, "Dangerous command")
}

func TestSafetyLevelRestricted(t *testing.T) {
	p := NewSafetyLevelPolicy(SafetyRestricted, "/sandbox", "/ws")

	ok, _ := p.Check(stubTool("shell.run", core.RiskHigh), map[string]any{"command": "ls"})
	assert.True(t, ok)

	ok, reason := p.Check(stubTool("shell.run", core.RiskHigh), map[string]any{"command": "rm -rf /tmp/x"})
	assert.False(t, ok)
	assert.Equal(t, ConfirmRequired, reason)
}

func TestSafetyLevelUnrestricted(t *testing.T) {
	p := NewSafetyLevelPolicy(SafetyUnrestricted, "/sandbox", "/ws")

	ok, _ := p.Check(stubTool("shell.run", core.RiskHigh), map[string]any{"command": "rm -rf /"})
	assert.True(t, ok)
}

func TestSandboxPolicy(t *testing.T) {
	ws := t.TempDir()
	sandbox := filepath.Join(ws, ".sandbox")
	p := NewSandboxPolicy(sandbox, ws)

	// relative paths resolve against the workspace, so they escape the sandbox
	ok, _ := p.Check(stubTool("file.write", core.RiskMedium), map[string]any{"path": "notes.txt"})
	assert.False(t, ok)

	ok, _ = p.Check(stubTool("file.write", core.RiskMedium),
		map[string]any{"path": filepath.Join(sandbox, "notes.txt")})
	assert.True(t, ok)

	// traversal out of the sandbox is caught after cleaning
	ok, _ = p.Check(stubTool("file.write", core.RiskMedium),
		map[string]any{"path": filepath.Join(sandbox, "..", "escape.txt")})
	assert.False(t, ok)

	// non-write tools pass
	ok, _ = p.Check(stubTool("file.read", core.RiskLow), map[string]any{"path": "/etc/passwd"})
	assert.True(t, ok)
}

func TestDangerousCommandPolicy(t *testing.T) {
	p := NewDangerousCommandPolicy()

	tests := []struct {
		command string
		allowed bool
	}{
		{"ls -la", true},
		{"rm -rf /", false},
		{"echo hello && rm x", false},
		{"curl http://example.com", false},
		{"grep rmdir file", true},
		{"", true},
	}

	for _, tt := range tests {
		ok, _ := p.Check(stubTool("shell.run", core.RiskHigh), map[string]any{"command": tt.command})
		assert.Equal(t, tt.allowed, ok, tt.command)
	}

	// non-shell tools are not inspected
	ok, _ := p.Check(stubTool("file.read", core.RiskLow), map[string]any{"command": "rm -rf /"})
	assert.True(t, ok)
}

func TestDangerousCommandPolicyCustomDenylist(t *testing.T) {
	p := NewDangerousCommandPolicy("forbidden")

	ok, _ := p.Check(stubTool("shell.run", core.RiskHigh), map[string]any{"command": "rm x"})
	assert.True(t, ok)

	ok, _ = p.Check(stubTool("shell.run", core.RiskHigh), map[string]any{"command": "forbidden --now"})
	assert.False(t, ok)
}

func TestRateLimitPolicy(t *testing.T) {
	p := NewRateLimitPolicy(2)
	base := time.Now()
	p.now = func() time.Time { return base }

	tl := stubTool("web.search", core.RiskLow)

	ok, _ := p.Check(tl, nil)
	assert.True(t, ok)
	ok, _ = p.Check(tl, nil)
	assert.True(t, ok)
	ok, reason := p.Check(tl, nil)
	assert.False(t, ok)
	assert.Contains(t, reason, "Rate limit exceeded")

	// other tools have independent windows
	ok, _ = p.Check(stubTool("file.read", core.RiskLow), nil)
	assert.True(t, ok)

	// window slides
	p.now = func() time.Time { return base.Add(61 * time.Second) }
	ok, _ = p.Check(tl, nil)
	assert.True(t, ok)
}

func TestPermissionPolicy(t *testing.T) {
	p := NewPermissionPolicy(RoleUser)
	p.Require("admin.tool", RoleAdmin)

	ok, _ := p.Check(stubTool("anything.else", core.RiskLow), nil)
	assert.True(t, ok)

	ok, reason := p.Check(stubTool("admin.tool", core.RiskLow), nil)
	assert.False(t, ok)
	assert.Contains(t, reason, "admin")
}

func TestTokenManagerSingleUse(t *testing.T) {
	m := NewTokenManager()

	token, err := m.Generate("shell.run", 0)
	require.NoError(t, err)
	assert.Len(t, token, 32)

	assert.False(t, m.Validate(token, "file.write"), "token is bound to its tool")
	assert.True(t, m.Validate(token, "shell.run"))
	assert.False(t, m.Validate(token, "shell.run"), "token is consumed on use")
}

func TestTokenManagerExpiry(t *testing.T) {
	m := NewTokenManager()
	base := time.Now()
	m.now = func() time.Time { return base }

	token, err := m.Generate("shell.run", time.Minute)
	require.NoError(t, err)

	m.now = func() time.Time { return base.Add(2 * time.Minute) }
	assert.False(t, m.Validate(token, "shell.run"))
}

func TestTokenPolicyShortCircuitsEngine(t *testing.T) {
	manager := NewTokenManager()
	engine := NewEngine(nil, NewTokenPolicy(manager), denyAll{})

	risky := stubTool("shell.run", core.RiskHigh)

	allowed, _ := engine.Check(risky, map[string]any{"command": "ls"})
	assert.False(t, allowed, "no token means normal policy flow")

	token, err := manager.Generate("shell.run", 0)
	require.NoError(t, err)

	allowed, reason := engine.Check(risky, map[string]any{"command": "ls", "token": token})
	assert.True(t, allowed)
	assert.Contains(t, reason, "permission token")

	// consumed: second call falls through to deny_all again
	allowed, _ = engine.Check(risky, map[string]any{"command": "ls", "token": token})
	assert.False(t, allowed)
}

func TestTokenPolicyIgnoresLowRisk(t *testing.T) {
	manager := NewTokenManager()
	p := NewTokenPolicy(manager)

	token, err := manager.Generate("file.read", 0)
	require.NoError(t, err)

	granted, _ := p.Authorize(stubTool("file.read", core.RiskLow), map[string]any{"token": token})
	assert.False(t, granted)
}
