package memory

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"

	"github.com/google/uuid"
	"github.com/hupe1980/nova/core"
	"github.com/hupe1980/nova/logging"
)

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	Logger logging.Logger
}

// Manager coordinates the memory tiers over a Store. Writes are best effort:
// a failing backend is logged and the caller proceeds.
type Manager struct {
	store  Store
	logger logging.Logger
}

// NewManager creates a Manager over the given store.
func NewManager(store Store, optFns ...func(o *ManagerOptions)) *Manager {
	opts := ManagerOptions{
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Manager{store: store, logger: opts.Logger}
}

// CacheKey derives the response cache key from the system prompt and the
// rendered history.
func CacheKey(system, history string) string {
	sum := sha256.Sum256([]byte(system + history))
	return hex.EncodeToString(sum[:])
}

// SaveSession persists a conversation snapshot.
func (m *Manager) SaveSession(ctx context.Context, id string, history []core.Message, metadata map[string]string) {
	s := Session{
		ID:        id,
		Timestamp: Now(),
		History:   history,
		Metadata:  metadata,
	}
	if err := m.store.SaveSession(ctx, s); err != nil {
		m.logger.Warn("failed to save session", "session_id", id, "error", err)
	}
}

// LoadSession retrieves a stored snapshot.
func (m *Manager) LoadSession(ctx context.Context, id string) (Session, error) {
	return m.store.LoadSession(ctx, id)
}

// ListSessions returns summaries of all stored sessions, newest first.
func (m *Manager) ListSessions(ctx context.Context) ([]SessionSummary, error) {
	summaries, err := m.store.ListSessions(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Timestamp > summaries[j].Timestamp
	})
	return summaries, nil
}

// CachedResponse looks up a previously generated response.
func (m *Manager) CachedResponse(ctx context.Context, key string) (string, bool) {
	value, ok, err := m.store.CacheGet(ctx, key)
	if err != nil {
		m.logger.Warn("response cache lookup failed", "error", err)
		return "", false
	}
	return value, ok
}

// CacheResponse stores a generated response under the given key.
func (m *Manager) CacheResponse(ctx context.Context, key, value string) {
	if err := m.store.CacheSet(ctx, key, value); err != nil {
		m.logger.Warn("response cache write failed", "error", err)
	}
}

// AddFact stores a semantic fact with its source attribution. Confidence is
// clamped to [0,1]. Duplicate content is ignored by the store.
func (m *Manager) AddFact(ctx context.Context, topic, content, source string, confidence float64) {
	f := Fact{
		Topic:      topic,
		Content:    content,
		Source:     source,
		Confidence: clampConfidence(confidence),
		CreatedAt:  Now(),
	}
	if err := m.store.AddFact(ctx, f); err != nil {
		m.logger.Warn("failed to add fact", "topic", topic, "error", err)
	}
}

func clampConfidence(c float64) float64 {
	switch {
	case c < 0:
		return 0
	case c > 1:
		return 1
	}
	return c
}

// GetFacts returns stored facts for a topic.
func (m *Manager) GetFacts(ctx context.Context, topic string, limit int) ([]Fact, error) {
	return m.store.GetFacts(ctx, topic, limit)
}

// SemanticSearch queries the fact store.
func (m *Manager) SemanticSearch(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	return m.store.SemanticSearch(ctx, query, limit)
}

// SaveEpisode records a completed task together with the session it ran in.
func (m *Manager) SaveEpisode(ctx context.Context, goal string, steps []string, result, sessionID string) {
	e := Episode{
		ID:        uuid.New().String(),
		Goal:      goal,
		Steps:     steps,
		Result:    result,
		SessionID: sessionID,
		CreatedAt: Now(),
	}
	if err := m.store.SaveEpisode(ctx, e); err != nil {
		m.logger.Warn("failed to save episode", "goal", goal, "error", err)
	}
}

// GetEpisodes retrieves episodes matching a task goal.
func (m *Manager) GetEpisodes(ctx context.Context, goal string, limit int) ([]Episode, error) {
	return m.store.GetEpisodes(ctx, goal, limit)
}

// Remember stores an opaque key-value pair.
func (m *Manager) Remember(ctx context.Context, key, value string) {
	if err := m.store.Remember(ctx, key, value); err != nil {
		m.logger.Warn("failed to remember", "key", key, "error", err)
	}
}

// Recall retrieves a value stored with Remember.
func (m *Manager) Recall(ctx context.Context, key string) (string, error) {
	return m.store.Recall(ctx, key)
}
