package core

// StatusEvent categorizes lifecycle notifications emitted synchronously by the
// reasoning loop and dispatcher so UI layers can render progress without
// polling.
type StatusEvent string

const (
	// StatusThinkingStart fires before a model generation begins.
	StatusThinkingStart StatusEvent = "thinking_start"
	// StatusThinkingEnd fires after generation completes or fails.
	StatusThinkingEnd StatusEvent = "thinking_end"
	// StatusToolStart fires before each tool invocation with (name, args).
	StatusToolStart StatusEvent = "tool_start"
	// StatusToolEnd fires after each tool invocation with (name, result).
	StatusToolEnd StatusEvent = "tool_end"
)

// StatusFunc receives status events. Implementations must be fast and must not
// block; they are invoked synchronously on the loop goroutine.
type StatusFunc func(event StatusEvent, args ...any)

// StreamFunc receives model output chunks during streaming generation.
type StreamFunc func(chunk string)

// Callbacks bundles the optional observer hooks a session can carry. A nil
// function disables the corresponding notification.
type Callbacks struct {
	Status StatusFunc
	Stream StreamFunc
}

// EmitStatus invokes the status hook when set.
func (c Callbacks) EmitStatus(event StatusEvent, args ...any) {
	if c.Status != nil {
		c.Status(event, args...)
	}
}

// EmitStream invokes the stream hook when set.
func (c Callbacks) EmitStream(chunk string) {
	if c.Stream != nil {
		c.Stream(chunk)
	}
}
