// Package routing selects a model tier per request and tracks spend against
// a daily budget. Selection is a cheap heuristic over the prompt; the budget
// ledger persists across runs and resets every 24 hours.
package routing

import "fmt"

// ModelTier orders models by capability and cost.
type ModelTier int

const (
	TierFast ModelTier = iota
	TierBalanced
	TierPowerful
)

// CostPer1K returns the tier's cost per 1000 tokens in USD-equivalent units.
func (t ModelTier) CostPer1K() float64 {
	switch t {
	case TierFast:
		return 0.0001
	case TierBalanced:
		return 0.0005
	case TierPowerful:
		return 0.002
	default:
		return 0.002
	}
}

func (t ModelTier) String() string {
	switch t {
	case TierFast:
		return "fast"
	case TierBalanced:
		return "balanced"
	case TierPowerful:
		return "powerful"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// ParseTier maps a tier name back to its ModelTier.
func ParseTier(s string) (ModelTier, error) {
	switch s {
	case "fast":
		return TierFast, nil
	case "balanced":
		return TierBalanced, nil
	case "powerful":
		return TierPowerful, nil
	default:
		return TierFast, fmt.Errorf("routing: unknown tier %q", s)
	}
}
