package dispatch

import "sync"

// DefaultBreakerThreshold is the consecutive-failure count at which a tool's
// breaker opens.
const DefaultBreakerThreshold = 5

// Breaker tracks per-tool consecutive failures within one session. When a
// tool's counter reaches the threshold its breaker is open and the dispatcher
// refuses calls without invoking the tool. A single success resets the
// counter. Counters never cross sessions.
type Breaker struct {
	mu        sync.Mutex
	threshold int
	failures  map[string]int
}

// NewBreaker constructs a breaker. A threshold < 1 falls back to the default.
func NewBreaker(threshold int) *Breaker {
	if threshold < 1 {
		threshold = DefaultBreakerThreshold
	}
	return &Breaker{threshold: threshold, failures: make(map[string]int)}
}

// Open reports whether the breaker for toolName is open.
func (b *Breaker) Open(toolName string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures[toolName] >= b.threshold
}

// RecordSuccess resets the tool's counter.
func (b *Breaker) RecordSuccess(toolName string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[toolName] = 0
}

// RecordFailure increments the tool's counter.
func (b *Breaker) RecordFailure(toolName string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[toolName]++
}

// Failures returns the current consecutive-failure count for toolName.
func (b *Breaker) Failures(toolName string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures[toolName]
}
