package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// InMemoryStore is a Store that keeps everything in process memory. It is
// the default backend and the one tests use.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
	cache    map[string]string
	facts    []Fact
	episodes []Episode
	kv       map[string]string
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions: make(map[string]Session),
		cache:    make(map[string]string),
		kv:       make(map[string]string),
	}
}

// SaveSession implements Store.
func (s *InMemoryStore) SaveSession(_ context.Context, sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return nil
}

// LoadSession implements Store.
func (s *InMemoryStore) LoadSession(_ context.Context, id string) (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	return sess, nil
}

// ListSessions implements Store.
func (s *InMemoryStore) ListSessions(_ context.Context) ([]SessionSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	summaries := make([]SessionSummary, 0, len(s.sessions))
	for _, sess := range s.sessions {
		summaries = append(summaries, Summarize(sess))
	}
	return summaries, nil
}

// CacheGet implements Store.
func (s *InMemoryStore) CacheGet(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.cache[key]
	return value, ok, nil
}

// CacheSet implements Store.
func (s *InMemoryStore) CacheSet(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[key] = value
	return nil
}

// AddFact implements Store. Facts with identical content are dropped.
func (s *InMemoryStore) AddFact(_ context.Context, f Fact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.facts {
		if existing.Content == f.Content {
			return nil
		}
	}
	s.facts = append(s.facts, f)
	return nil
}

// GetFacts implements Store.
func (s *InMemoryStore) GetFacts(_ context.Context, topic string, limit int) ([]Fact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Fact
	for _, f := range s.facts {
		if topic != "" && f.Topic != topic {
			continue
		}
		out = append(out, f)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// SemanticSearch implements Store with token-overlap scoring over fact
// content and topic.
func (s *InMemoryStore) SemanticSearch(_ context.Context, query string, limit int) ([]SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	terms := tokenize(query)
	if len(terms) == 0 {
		return nil, nil
	}

	var results []SearchResult
	for _, f := range s.facts {
		score := overlapScore(terms, tokenize(f.Topic+" "+f.Content))
		if score <= 0 {
			continue
		}
		results = append(results, SearchResult{
			Content: f.Content,
			Metadata: map[string]any{
				"topic":      f.Topic,
				"source":     f.Source,
				"confidence": f.Confidence,
			},
			Score: score,
		})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// SaveEpisode implements Store.
func (s *InMemoryStore) SaveEpisode(_ context.Context, e Episode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.episodes = append(s.episodes, e)
	return nil
}

// GetEpisodes implements Store. Goal matching is case-insensitive substring
// in both directions.
func (s *InMemoryStore) GetEpisodes(_ context.Context, goal string, limit int) ([]Episode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Episode
	needle := strings.ToLower(goal)
	for i := len(s.episodes) - 1; i >= 0; i-- {
		e := s.episodes[i]
		haystack := strings.ToLower(e.Goal)
		if needle != "" && !strings.Contains(haystack, needle) && !strings.Contains(needle, haystack) {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// Remember implements Store.
func (s *InMemoryStore) Remember(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kv[key] = value
	return nil
}

// Recall implements Store.
func (s *InMemoryStore) Recall(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.kv[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func tokenize(text string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		tok = strings.Trim(tok, ".,!?:;\"'()")
		if len(tok) > 2 {
			out[tok] = struct{}{}
		}
	}
	return out
}

func overlapScore(query, doc map[string]struct{}) float64 {
	if len(query) == 0 {
		return 0
	}
	matches := 0
	for tok := range query {
		if _, ok := doc[tok]; ok {
			matches++
		}
	}
	return float64(matches) / float64(len(query))
}
