package reasoning

import (
	"fmt"
	"strings"
	"sync"

	"github.com/hupe1980/nova/core"
)

const (
	defaultMaxTurns         = 10
	defaultSummaryThreshold = 5
)

// MemoryGuard keeps multi-turn conversation tasks anchored: it holds a ring
// of recent turns, summarizes older ones, and prepends both to the current
// question so the model cannot drift off earlier context.
type MemoryGuard struct {
	mu               sync.Mutex
	maxTurns         int
	summaryThreshold int
	turns            []core.Message
	summary          string
}

// NewMemoryGuard creates a guard with the default ring size.
func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{
		maxTurns:         defaultMaxTurns,
		summaryThreshold: defaultSummaryThreshold,
	}
}

// AddTurn records a conversation turn, evicting the oldest once the ring is
// full and summarizing once the threshold is reached.
func (g *MemoryGuard) AddTurn(role core.Role, content string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.turns = append(g.turns, core.NewMessage(role, content))
	if len(g.turns) > g.maxTurns {
		g.turns = g.turns[len(g.turns)-g.maxTurns:]
	}
	if len(g.turns) >= g.summaryThreshold && g.summary == "" {
		g.summarize()
	}
}

// summarize folds the older half of the ring into bullet points. Caller
// holds the lock.
func (g *MemoryGuard) summarize() {
	if len(g.turns) < 3 {
		return
	}
	mid := len(g.turns) / 2
	var points []string
	for _, turn := range g.turns[:mid] {
		content := turn.Content
		if len(content) > 50 {
			content = content[:50]
		}
		if turn.Role == core.RoleUser {
			points = append(points, fmt.Sprintf("User asked: %s...", content))
		} else {
			points = append(points, fmt.Sprintf("Assistant responded: %s...", content))
		}
	}
	g.summary = strings.Join(points, "\n")
}

// ContextPrompt wraps the current question with the summary and the last few
// turns. Without recorded turns the question passes through unchanged.
func (g *MemoryGuard) ContextPrompt(current string) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.turns) == 0 {
		return current
	}

	var parts []string
	if g.summary != "" {
		parts = append(parts, fmt.Sprintf("Earlier context:\n%s\n", g.summary))
	}

	recent := g.turns
	if len(recent) > 3 {
		recent = recent[len(recent)-3:]
	}
	parts = append(parts, "Recent conversation:")
	for _, turn := range recent {
		role := "User"
		if turn.Role == core.RoleAssistant {
			role = "You"
		}
		parts = append(parts, fmt.Sprintf("%s: %s", role, turn.Content))
	}

	parts = append(parts, fmt.Sprintf("\nCurrent question: %s", current))
	return strings.Join(parts, "\n")
}

// LastUserInput returns the most recent user turn.
func (g *MemoryGuard) LastUserInput() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := len(g.turns) - 1; i >= 0; i-- {
		if g.turns[i].Role == core.RoleUser {
			return g.turns[i].Content
		}
	}
	return ""
}

// TurnCount returns the number of turns currently held.
func (g *MemoryGuard) TurnCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.turns)
}

// Reset clears the ring and the summary.
func (g *MemoryGuard) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.turns = nil
	g.summary = ""
}
