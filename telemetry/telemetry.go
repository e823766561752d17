// Package telemetry accumulates run counters (tasks, tokens, cost, cache
// hits) and persists them atomically after every update.
package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// telemetryFileName is the counters' on-disk name inside the state dir.
const telemetryFileName = "telemetry.json"

// FilePath returns the telemetry file location inside a state directory.
func FilePath(stateDir string) string {
	return filepath.Join(stateDir, telemetryFileName)
}

type counters struct {
	TotalTasks       int     `json:"total_tasks"`
	SuccessfulTasks  int     `json:"successful_tasks"`
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	TotalCost        float64 `json:"total_cost"`
	CacheHits        int     `json:"cache_hits"`
	CacheMisses      int     `json:"cache_misses"`
	TotalDurationMS  int64   `json:"total_duration_ms"`
	LastUpdated      string  `json:"last_updated"`
}

// Stats are the derived numbers callers display.
type Stats struct {
	TotalTasks      int     `json:"total_tasks"`
	SuccessfulTasks int     `json:"successful_tasks"`
	SuccessRate     float64 `json:"success_rate"`
	TotalTokens     int     `json:"total_tokens"`
	TotalCost       float64 `json:"total_cost"`
	CacheHitRate    float64 `json:"cache_hit_rate"`
	AvgDurationMS   int64   `json:"avg_duration_ms"`
}

// Collector tracks counters and saves them after each mutation.
type Collector struct {
	mu    sync.Mutex
	path  string
	state counters
	now   func() time.Time
}

// NewCollector loads or initializes the collector persisting at path.
func NewCollector(path string) *Collector {
	c := &Collector{path: path, now: time.Now}
	if data, err := os.ReadFile(path); err == nil {
		_ = json.Unmarshal(data, &c.state)
	}
	return c
}

// save writes the counters via temp file and rename. Caller holds the lock.
func (c *Collector) save() error {
	c.state.LastUpdated = c.now().UTC().Format(time.RFC3339)
	data, err := json.MarshalIndent(c.state, "", "  ")
	if err != nil {
		return err
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, c.path)
}

// LogTask records a completed task and its duration.
func (c *Collector) LogTask(success bool, duration time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.TotalTasks++
	if success {
		c.state.SuccessfulTasks++
	}
	c.state.TotalDurationMS += duration.Milliseconds()
	if err := c.save(); err != nil {
		return fmt.Errorf("telemetry: persist: %w", err)
	}
	return nil
}

// LogTokens records token usage and its cost.
func (c *Collector) LogTokens(prompt, completion int, cost float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.PromptTokens += prompt
	c.state.CompletionTokens += completion
	c.state.TotalTokens += prompt + completion
	c.state.TotalCost += cost
	if err := c.save(); err != nil {
		return fmt.Errorf("telemetry: persist: %w", err)
	}
	return nil
}

// LogCache records a response cache lookup outcome.
func (c *Collector) LogCache(hit bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if hit {
		c.state.CacheHits++
	} else {
		c.state.CacheMisses++
	}
	if err := c.save(); err != nil {
		return fmt.Errorf("telemetry: persist: %w", err)
	}
	return nil
}

// Stats derives display numbers from the counters.
func (c *Collector) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	stats := Stats{
		TotalTasks:      c.state.TotalTasks,
		SuccessfulTasks: c.state.SuccessfulTasks,
		TotalTokens:     c.state.TotalTokens,
		TotalCost:       c.state.TotalCost,
	}
	if c.state.TotalTasks > 0 {
		stats.SuccessRate = float64(c.state.SuccessfulTasks) / float64(c.state.TotalTasks)
		stats.AvgDurationMS = c.state.TotalDurationMS / int64(c.state.TotalTasks)
	}
	if lookups := c.state.CacheHits + c.state.CacheMisses; lookups > 0 {
		stats.CacheHitRate = float64(c.state.CacheHits) / float64(lookups)
	}
	return stats
}
