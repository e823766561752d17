package routing

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// budgetFileName is the ledger's on-disk name inside the state dir.
const budgetFileName = "budget.json"

// LedgerPath returns the ledger file location inside a state directory.
func LedgerPath(stateDir string) string {
	return filepath.Join(stateDir, budgetFileName)
}

type budgetState struct {
	CurrentSpend float64            `json:"current_spend"`
	TokenUsage   map[string]float64 `json:"token_usage"`
	LastReset    float64            `json:"last_reset"`
}

// BudgetLedger tracks model spend with a daily reset. State persists to a
// JSON file via write-temp-then-rename; a zero daily budget means unlimited.
type BudgetLedger struct {
	mu          sync.Mutex
	path        string
	dailyBudget float64
	state       budgetState
	now         func() time.Time
}

// NewBudgetLedger loads or initializes the ledger at path.
func NewBudgetLedger(path string, dailyBudget float64) *BudgetLedger {
	l := &BudgetLedger{
		path:        path,
		dailyBudget: dailyBudget,
		now:         time.Now,
		state: budgetState{
			TokenUsage: map[string]float64{},
		},
	}
	l.load()
	return l
}

func (l *BudgetLedger) load() {
	data, err := os.ReadFile(l.path)
	if err != nil {
		l.state.LastReset = float64(l.now().Unix())
		return
	}
	var state budgetState
	if err := json.Unmarshal(data, &state); err != nil {
		l.state.LastReset = float64(l.now().Unix())
		return
	}
	if state.TokenUsage == nil {
		state.TokenUsage = map[string]float64{}
	}
	l.state = state
}

func (l *BudgetLedger) save() error {
	data, err := json.MarshalIndent(l.state, "", "  ")
	if err != nil {
		return err
	}
	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, l.path)
}

// maybeReset zeroes the ledger 24h after the last reset. Caller holds the
// lock.
func (l *BudgetLedger) maybeReset() {
	if float64(l.now().Unix())-l.state.LastReset > 24*60*60 {
		l.state.CurrentSpend = 0
		l.state.TokenUsage = map[string]float64{}
		l.state.LastReset = float64(l.now().Unix())
	}
}

// CanAfford reports whether an estimated token count at the given tier fits
// the remaining budget.
func (l *BudgetLedger) CanAfford(tier ModelTier, tokens int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.maybeReset()
	if l.dailyBudget <= 0 {
		return true
	}
	cost := float64(tokens) * tier.CostPer1K() / 1000
	return l.state.CurrentSpend+cost <= l.dailyBudget
}

// Track records token usage at a tier and persists the ledger.
func (l *BudgetLedger) Track(tier ModelTier, tokens int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.maybeReset()
	l.state.CurrentSpend += float64(tokens) * tier.CostPer1K() / 1000
	l.state.TokenUsage[tier.String()] += float64(tokens)
	if err := l.save(); err != nil {
		return fmt.Errorf("routing: persist budget: %w", err)
	}
	return nil
}

// Spent returns the spend accumulated since the last reset.
func (l *BudgetLedger) Spent() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.maybeReset()
	return l.state.CurrentSpend
}

// TokensByTier returns a copy of per-tier token counts.
func (l *BudgetLedger) TokensByTier() map[string]float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]float64, len(l.state.TokenUsage))
	for k, v := range l.state.TokenUsage {
		out[k] = v
	}
	return out
}
