package memory

import (
	"context"
	"errors"
	"time"

	"github.com/hupe1980/nova/core"
)

// ErrNotFound is returned by stores when a session, episode or key does not
// exist.
var ErrNotFound = errors.New("memory: not found")

// Session is a persisted conversation snapshot.
type Session struct {
	ID        string            `json:"id" bson:"id"`
	Timestamp int64             `json:"timestamp" bson:"timestamp"`
	History   []core.Message    `json:"history" bson:"history"`
	Metadata  map[string]string `json:"metadata,omitempty" bson:"metadata,omitempty"`
}

// SessionSummary describes a stored session for listings.
type SessionSummary struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"`
	Messages  int    `json:"messages"`
	Preview   string `json:"preview"`
}

// Fact is a topic-indexed piece of semantic memory with its provenance.
// Confidence is in [0,1].
type Fact struct {
	Topic      string  `json:"topic" bson:"topic"`
	Content    string  `json:"content" bson:"content"`
	Source     string  `json:"source,omitempty" bson:"source,omitempty"`
	Confidence float64 `json:"confidence" bson:"confidence"`
	CreatedAt  int64   `json:"created_at" bson:"created_at"`
}

// Episode records a successfully completed task for later replay.
type Episode struct {
	ID        string   `json:"id" bson:"id"`
	Goal      string   `json:"goal" bson:"goal"`
	Steps     []string `json:"steps,omitempty" bson:"steps,omitempty"`
	Result    string   `json:"result" bson:"result"`
	SessionID string   `json:"session_id,omitempty" bson:"session_id,omitempty"`
	CreatedAt int64    `json:"created_at" bson:"created_at"`
}

// SearchResult is a scored semantic search hit.
type SearchResult struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Score    float64        `json:"score"`
}

// Store is the persistence capability the memory system requires. All
// methods must be safe for concurrent use.
type Store interface {
	SaveSession(ctx context.Context, s Session) error
	LoadSession(ctx context.Context, id string) (Session, error)
	ListSessions(ctx context.Context) ([]SessionSummary, error)

	CacheGet(ctx context.Context, key string) (string, bool, error)
	CacheSet(ctx context.Context, key, value string) error

	AddFact(ctx context.Context, f Fact) error
	GetFacts(ctx context.Context, topic string, limit int) ([]Fact, error)
	SemanticSearch(ctx context.Context, query string, limit int) ([]SearchResult, error)

	SaveEpisode(ctx context.Context, e Episode) error
	GetEpisodes(ctx context.Context, goal string, limit int) ([]Episode, error)

	Remember(ctx context.Context, key, value string) error
	Recall(ctx context.Context, key string) (string, error)
}

// Summarize builds a SessionSummary from a stored session. The preview is
// the last message's content, truncated.
func Summarize(s Session) SessionSummary {
	summary := SessionSummary{
		ID:        s.ID,
		Timestamp: s.Timestamp,
		Messages:  len(s.History),
	}
	if len(s.History) > 0 {
		preview := s.History[len(s.History)-1].Content
		if len(preview) > 80 {
			preview = preview[:80]
		}
		summary.Preview = preview
	}
	return summary
}

// Now is the clock used for record timestamps; overridable in tests.
var Now = func() int64 { return time.Now().Unix() }
