package policy

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/hupe1980/nova/core"
	"github.com/hupe1980/nova/tool"
)

// DefaultTokenTTL is the lifetime of a permission token.
const DefaultTokenTTL = 300 * time.Second

// TokenManager issues short-lived one-shot permission tokens bound to a tool
// name. Tokens are 16 random bytes hex encoded and are consumed on first
// successful validation.
type TokenManager struct {
	mu     sync.Mutex
	tokens map[string]tokenGrant
	now    func() time.Time // test hook
}

type tokenGrant struct {
	toolName string
	expires  time.Time
}

// NewTokenManager constructs an empty token manager.
func NewTokenManager() *TokenManager {
	return &TokenManager{tokens: make(map[string]tokenGrant), now: time.Now}
}

// Generate issues a token authorizing one call to toolName within ttl. Zero
// ttl means DefaultTokenTTL.
func (m *TokenManager) Generate(toolName string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	token := hex.EncodeToString(buf)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[token] = tokenGrant{toolName: toolName, expires: m.now().Add(ttl)}
	return token, nil
}

// Validate consumes the token when it exists, is unexpired and is bound to
// toolName. A consumed token never validates again.
func (m *TokenManager) Validate(token, toolName string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	grant, ok := m.tokens[token]
	if !ok {
		return false
	}
	if m.now().After(grant.expires) {
		delete(m.tokens, token)
		return false
	}
	if grant.toolName != toolName {
		return false
	}
	delete(m.tokens, token) // single use
	return true
}

// TokenPolicy lets high-risk tool calls carry a "token" argument that, when
// valid, pre-authorizes the call and short-circuits the remaining policies.
// Calls without a token pass through unaffected.
type TokenPolicy struct {
	manager *TokenManager
}

// NewTokenPolicy constructs a token policy backed by manager.
func NewTokenPolicy(manager *TokenManager) *TokenPolicy {
	return &TokenPolicy{manager: manager}
}

// Name implements Policy.
func (p *TokenPolicy) Name() string { return "token_policy" }

// Check implements Policy. The policy itself never denies; it only grants via
// Authorize.
func (p *TokenPolicy) Check(tool.Tool, map[string]any) (bool, string) {
	return true, "No token required"
}

// Authorize implements Authorizer: a valid one-shot token bound to the tool
// name allows the call immediately.
func (p *TokenPolicy) Authorize(t tool.Tool, args map[string]any) (bool, string) {
	if t.Risk() < core.RiskHigh {
		return false, ""
	}
	token, _ := args["token"].(string)
	if token == "" {
		return false, ""
	}
	if p.manager.Validate(token, t.Name()) {
		return true, "Authorized by permission token"
	}
	return false, ""
}
