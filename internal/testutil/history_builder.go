package testutil

import (
	"github.com/hupe1980/nova/core"
)

// HistoryBuilder provides a fluent helper for constructing conversation
// histories in tests.
// Example:
//
//	h := NewHistoryBuilder().System("be terse").User("hi").Assistant("hello").Build()
//
// Chain only the turns you need; messages keep insertion order.
type HistoryBuilder struct {
	messages core.History
}

// NewHistoryBuilder creates an empty history builder.
func NewHistoryBuilder() *HistoryBuilder { return &HistoryBuilder{} }

// System appends a system message (chainable).
func (b *HistoryBuilder) System(content string) *HistoryBuilder {
	b.messages = b.messages.Append(core.RoleSystem, content)
	return b
}

// User appends a user message (chainable).
func (b *HistoryBuilder) User(content string) *HistoryBuilder {
	b.messages = b.messages.Append(core.RoleUser, content)
	return b
}

// Assistant appends an assistant message (chainable).
func (b *HistoryBuilder) Assistant(content string) *HistoryBuilder {
	b.messages = b.messages.Append(core.RoleAssistant, content)
	return b
}

// Turns appends n alternating user/assistant pairs with generated content
// (chainable). Useful for exercising compression thresholds.
func (b *HistoryBuilder) Turns(n int, userFmt, assistantFmt func(i int) string) *HistoryBuilder {
	for i := 0; i < n; i++ {
		b.messages = b.messages.Append(core.RoleUser, userFmt(i))
		b.messages = b.messages.Append(core.RoleAssistant, assistantFmt(i))
	}
	return b
}

// Build returns the accumulated history.
func (b *HistoryBuilder) Build() core.History { return b.messages }
