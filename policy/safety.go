package policy

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hupe1980/nova/tool"
)

// SafetyLevel is the coarse operating mode gating writes and shell execution.
type SafetyLevel string

const (
	// SafetyReadOnly blocks any write or shell tool.
	SafetyReadOnly SafetyLevel = "read_only"
	// SafetySandboxOnly additionally requires path arguments to resolve
	// inside the sandbox root.
	SafetySandboxOnly SafetyLevel = "sandbox_only"
	// SafetyRestricted requires user confirmation for dangerous tools.
	SafetyRestricted SafetyLevel = "restricted"
	// SafetyUnrestricted grants full access.
	SafetyUnrestricted SafetyLevel = "unrestricted"
)

// ParseSafetyLevel maps a config string to a level, defaulting to unrestricted.
func ParseSafetyLevel(s string) SafetyLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "read_only":
		return SafetyReadOnly
	case "sandbox_only":
		return SafetySandboxOnly
	case "restricted":
		return SafetyRestricted
	default:
		return SafetyUnrestricted
	}
}

// ConfirmRequired is the denial reason signaling that the call is not refused
// outright but needs interactive user confirmation. The loop surfaces it to
// the caller instead of treating it as a hard block.
const ConfirmRequired = "CONFIRM_REQUIRED"

// Default tool sets consulted by the safety policies. The names follow the
// dot-namespace convention of the standard tool catalog.
var (
	defaultWriteTools = []string{"file.write", "file.patch", "file.delete"}
	defaultShellTools = []string{"shell.run", "shell.run_safe", "shell.kill_safe"}
)

// SandboxPolicy rejects filesystem-writing tool calls whose path argument
// resolves outside the sandbox root.
type SandboxPolicy struct {
	sandboxRoot  string
	workspaceDir string
	writeTools   map[string]bool
}

// NewSandboxPolicy constructs a sandbox policy. Relative path arguments are
// resolved against workspaceDir before the containment check.
func NewSandboxPolicy(sandboxRoot, workspaceDir string) *SandboxPolicy {
	return &SandboxPolicy{
		sandboxRoot:  sandboxRoot,
		workspaceDir: workspaceDir,
		writeTools:   toSet(defaultWriteTools),
	}
}

// Name implements Policy.
func (p *SandboxPolicy) Name() string { return "sandbox_policy" }

// Check implements Policy.
func (p *SandboxPolicy) Check(t tool.Tool, args map[string]any) (bool, string) {
	if !p.writeTools[t.Name()] {
		return true, "Not a write tool"
	}
	path, _ := args["path"].(string)
	if path == "" {
		return true, "No path argument"
	}
	if !insideRoot(p.sandboxRoot, p.workspaceDir, path) {
		return false, fmt.Sprintf("Access denied: %s is outside sandbox", path)
	}
	return true, "Path inside sandbox"
}

// SafetyLevelPolicy applies the coarse mode gate:
//
//	READ_ONLY    -> any write or shell tool is denied
//	SANDBOX_ONLY -> write tools must target the sandbox; dangerous shell
//	               commands are denied; other shell use needs confirmation
//	RESTRICTED   -> dangerous tools return ConfirmRequired
//	UNRESTRICTED -> everything passes
type SafetyLevelPolicy struct {
	level        SafetyLevel
	sandboxRoot  string
	workspaceDir string
	writeTools   map[string]bool
	shellTools   map[string]bool
	denylist     []string
}

// NewSafetyLevelPolicy constructs the mode gate for the given level.
func NewSafetyLevelPolicy(level SafetyLevel, sandboxRoot, workspaceDir string) *SafetyLevelPolicy {
	return &SafetyLevelPolicy{
		level:        level,
		sandboxRoot:  sandboxRoot,
		workspaceDir: workspaceDir,
		writeTools:   toSet(defaultWriteTools),
		shellTools:   toSet(defaultShellTools),
		denylist:     defaultDenylist,
	}
}

// Name implements Policy.
func (p *SafetyLevelPolicy) Name() string { return "safety_level_policy" }

// Check implements Policy.
func (p *SafetyLevelPolicy) Check(t tool.Tool, args map[string]any) (bool, string) {
	name := t.Name()
	isWrite := p.writeTools[name]
	isShell := p.shellTools[name]

	switch p.level {
	case SafetyReadOnly:
		if isWrite || isShell {
			return false, "Action denied in READ_ONLY mode"
		}

	case SafetySandboxOnly:
		if isWrite {
			path, _ := args["path"].(string)
			if path != "" && !insideRoot(p.sandboxRoot, p.workspaceDir, path) {
				return false, fmt.Sprintf("Access denied: %s is outside sandbox", path)
			}
		}
		if isShell {
			cmd, _ := args["command"].(string)
			if isDangerous(cmd, p.denylist) {
				return false, "Dangerous command denied in SANDBOX_ONLY mode"
			}
			return false, ConfirmRequired
		}

	case SafetyRestricted:
		if isShell {
			cmd, _ := args["command"].(string)
			if isDangerous(cmd, p.denylist) || name == "shell.kill_safe" {
				return false, ConfirmRequired
			}
		}
	}

	return true, "Safety level OK"
}

// DangerousCommandPolicy string-matches shell tool commands against a
// configurable denylist of command heads.
type DangerousCommandPolicy struct {
	shellTools map[string]bool
	denylist   []string
}

var defaultDenylist = []string{"rm", "kill", "chmod", "chown", "dd", "mkfs", "reboot", "shutdown", "wget", "curl"}

// NewDangerousCommandPolicy constructs the policy with the default denylist.
func NewDangerousCommandPolicy(denylist ...string) *DangerousCommandPolicy {
	if len(denylist) == 0 {
		denylist = defaultDenylist
	}
	return &DangerousCommandPolicy{shellTools: toSet(defaultShellTools), denylist: denylist}
}

// Name implements Policy.
func (p *DangerousCommandPolicy) Name() string { return "dangerous_command_policy" }

// Check implements Policy.
func (p *DangerousCommandPolicy) Check(t tool.Tool, args map[string]any) (bool, string) {
	if !p.shellTools[t.Name()] {
		return true, "Not a shell tool"
	}
	cmd, _ := args["command"].(string)
	if isDangerous(cmd, p.denylist) {
		return false, fmt.Sprintf("Command matches denylist: %q", cmd)
	}
	return true, "Command OK"
}

// isDangerous checks the command head and chained segments against the denylist.
func isDangerous(cmd string, denylist []string) bool {
	fields := strings.Fields(cmd)
	if len(fields) == 0 {
		return false
	}
	deny := toSet(denylist)
	if deny[fields[0]] {
		return true
	}
	padded := " " + cmd + " "
	for _, d := range denylist {
		if strings.Contains(padded, " "+d+" ") {
			return true
		}
	}
	return false
}

// insideRoot reports whether path, resolved against workspaceDir when
// relative, falls under root.
func insideRoot(root, workspaceDir, path string) bool {
	if !filepath.IsAbs(path) {
		path = filepath.Join(workspaceDir, path)
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return false
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, "..") && !filepath.IsAbs(rel))
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}
