// Package bandit implements an epsilon-greedy multi-armed bandit over search
// backends. Q-values persist to disk so learning survives restarts.
package bandit

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
)

const (
	// DefaultEpsilon is the exploration probability.
	DefaultEpsilon = 0.15

	// DefaultAlpha is the Q-value learning rate.
	DefaultAlpha = 0.2

	// optimisticQ is the initial Q-value; high so unexplored arms get
	// tried early.
	optimisticQ = 0.8

	// stateFileName is the persisted state's on-disk name.
	stateFileName = "search_rl_state.json"
)

// Rewards for backend outcomes.
const (
	RewardSuccess float64 = 1.0
	RewardEmpty   float64 = -0.5
	RewardError   float64 = -1.0
)

// DefaultArms is the fixed backend set.
var DefaultArms = []string{"lite", "html", "api", "scrape", "wiki", "arxiv"}

// StatePath returns the state file location inside a state directory.
func StatePath(stateDir string) string {
	return filepath.Join(stateDir, stateFileName)
}

type armState struct {
	Q     float64 `json:"q"`
	Pulls int     `json:"pulls"`
}

// Options configures an Optimizer.
type Options struct {
	Arms    []string
	Epsilon float64
	Alpha   float64
	Rand    *rand.Rand
}

// Optimizer selects search backends and learns from their outcomes.
type Optimizer struct {
	mu      sync.Mutex
	path    string
	epsilon float64
	alpha   float64
	arms    []string
	state   map[string]*armState
	rng     *rand.Rand
}

// New loads or initializes an optimizer persisting at path.
func New(path string, optFns ...func(o *Options)) *Optimizer {
	opts := Options{
		Arms:    DefaultArms,
		Epsilon: DefaultEpsilon,
		Alpha:   DefaultAlpha,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(rand.Int63()))
	}

	o := &Optimizer{
		path:    path,
		epsilon: opts.Epsilon,
		alpha:   opts.Alpha,
		arms:    opts.Arms,
		state:   make(map[string]*armState, len(opts.Arms)),
		rng:     opts.Rand,
	}
	for _, arm := range opts.Arms {
		o.state[arm] = &armState{Q: optimisticQ}
	}
	o.load()
	return o
}

func (o *Optimizer) load() {
	data, err := os.ReadFile(o.path)
	if err != nil {
		return
	}
	var stored map[string]*armState
	if err := json.Unmarshal(data, &stored); err != nil {
		return
	}
	// Unknown arms in the file are discarded; missing arms keep their
	// optimistic initial value.
	for arm, st := range stored {
		if _, ok := o.state[arm]; ok {
			o.state[arm] = st
		}
	}
}

func (o *Optimizer) save() error {
	data, err := json.MarshalIndent(o.state, "", "  ")
	if err != nil {
		return err
	}
	tmp := o.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, o.path)
}

// Select picks a backend, skipping excluded arms. With probability epsilon
// the pick is uniformly random; otherwise the best Q-value wins with a tiny
// noise term breaking ties.
func (o *Optimizer) Select(exclude ...string) string {
	o.mu.Lock()
	defer o.mu.Unlock()

	excluded := make(map[string]struct{}, len(exclude))
	for _, arm := range exclude {
		excluded[arm] = struct{}{}
	}

	var candidates []string
	for _, arm := range o.arms {
		if _, skip := excluded[arm]; !skip {
			candidates = append(candidates, arm)
		}
	}
	if len(candidates) == 0 {
		return ""
	}

	if o.rng.Float64() < o.epsilon {
		return candidates[o.rng.Intn(len(candidates))]
	}

	best := candidates[0]
	bestScore := o.state[best].Q + o.rng.Float64()*1e-6
	for _, arm := range candidates[1:] {
		score := o.state[arm].Q + o.rng.Float64()*1e-6
		if score > bestScore {
			best = arm
			bestScore = score
		}
	}
	return best
}

// Update applies a reward to an arm and persists the new state. Q-values
// stay clamped to [-1, 1].
func (o *Optimizer) Update(arm string, reward float64) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	st, ok := o.state[arm]
	if !ok {
		return fmt.Errorf("bandit: unknown arm %q", arm)
	}
	st.Q += o.alpha * (reward - st.Q)
	if st.Q > 1 {
		st.Q = 1
	}
	if st.Q < -1 {
		st.Q = -1
	}
	st.Pulls++

	if err := o.save(); err != nil {
		return fmt.Errorf("bandit: persist state: %w", err)
	}
	return nil
}

// Q returns an arm's current Q-value.
func (o *Optimizer) Q(arm string) float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	if st, ok := o.state[arm]; ok {
		return st.Q
	}
	return 0
}

// Pulls returns how often an arm has been updated.
func (o *Optimizer) Pulls(arm string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	if st, ok := o.state[arm]; ok {
		return st.Pulls
	}
	return 0
}
