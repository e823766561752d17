package policy

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// AuditRecord is one line of the append-only audit log.
type AuditRecord struct {
	Timestamp float64        `json:"timestamp"`
	Action    string         `json:"action"`
	Details   map[string]any `json:"details"`
	Allowed   bool           `json:"allowed"`
	Reason    string         `json:"reason"`
}

// AuditLogger appends line-delimited JSON records of every policy decision.
// Failures to write are swallowed: auditing is best-effort and must never
// block a tool call.
type AuditLogger struct {
	mu   sync.Mutex
	path string
}

// NewAuditLogger constructs an audit logger writing to path, creating parent
// directories as needed.
func NewAuditLogger(path string) *AuditLogger {
	_ = os.MkdirAll(filepath.Dir(path), 0o755)
	return &AuditLogger{path: path}
}

// Log appends one decision record.
func (a *AuditLogger) Log(action string, details map[string]any, allowed bool, reason string) {
	rec := AuditRecord{
		Timestamp: float64(time.Now().UnixNano()) / float64(time.Second),
		Action:    action,
		Details:   details,
		Allowed:   allowed,
		Reason:    reason,
	}
	line, err := json.Marshal(rec)
	if err != nil {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	f, err := os.OpenFile(a.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = f.Write(append(line, '\n'))
}
