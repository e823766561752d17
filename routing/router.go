package routing

import (
	"strings"

	"github.com/hupe1980/nova/logging"
)

// estimatedTokens is the request size assumed when checking affordability.
const estimatedTokens = 1000

var balancedKeywords = []string{
	"code", "design", "architecture", "plan", "complex", "refactor",
	"debug", "script",
}

// Decision is the outcome of a routing call.
type Decision struct {
	Tier   ModelTier
	Model  string
	Reason string
}

// RouterOptions configures a Router.
type RouterOptions struct {
	// TierModels maps tier names to model names.
	TierModels map[string]string

	// ForcedModel pins every request to one model at the powerful tier,
	// used by benchmark runs without turbo.
	ForcedModel string

	Logger logging.Logger
}

// Router scores prompt complexity and picks the cheapest tier the budget
// allows.
type Router struct {
	ledger      *BudgetLedger
	tierModels  map[string]string
	forcedModel string
	logger      logging.Logger
}

// NewRouter creates a Router over a budget ledger.
func NewRouter(ledger *BudgetLedger, optFns ...func(o *RouterOptions)) *Router {
	opts := RouterOptions{
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Router{
		ledger:      ledger,
		tierModels:  opts.TierModels,
		forcedModel: opts.ForcedModel,
		logger:      opts.Logger,
	}
}

// ScoreComplexity maps a prompt to the tier its shape calls for.
func ScoreComplexity(prompt string) ModelTier {
	if len(prompt) > 2000 || strings.Count(prompt, "\n") > 50 {
		return TierPowerful
	}
	lower := strings.ToLower(prompt)
	for _, kw := range balancedKeywords {
		if strings.Contains(lower, kw) {
			return TierBalanced
		}
	}
	return TierFast
}

// Route picks the tier and model for a prompt. Budget exhaustion downgrades
// one tier at a time; it never blocks the request.
func (r *Router) Route(prompt string) Decision {
	if r.forcedModel != "" {
		return Decision{
			Tier:   TierPowerful,
			Model:  r.forcedModel,
			Reason: "forced model",
		}
	}

	scored := ScoreComplexity(prompt)
	tier := scored
	reason := "complexity"
	for tier > TierFast && !r.ledger.CanAfford(tier, estimatedTokens) {
		tier--
		reason = "budget downgrade"
	}

	decision := Decision{
		Tier:   tier,
		Model:  r.modelFor(tier),
		Reason: reason,
	}
	if tier != scored {
		r.logger.Debug("routed below scored tier",
			"scored", scored.String(), "selected", tier.String())
	}
	return decision
}

func (r *Router) modelFor(tier ModelTier) string {
	if name, ok := r.tierModels[tier.String()]; ok {
		return name
	}
	return ""
}

// Track forwards usage accounting to the ledger.
func (r *Router) Track(tier ModelTier, tokens int) error {
	return r.ledger.Track(tier, tokens)
}
