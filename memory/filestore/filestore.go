// Package filestore implements a JSON-file memory.Store. Sessions and
// episodes get one file each under their own directory; facts, the response
// cache and key-value pairs live in single JSON documents. Writes go through
// a temp file and rename.
package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/hupe1980/nova/memory"
)

// Store persists memory tiers as JSON files under a root directory.
type Store struct {
	mu   sync.Mutex
	root string
}

// New creates a file store rooted at dir, creating the layout if needed.
func New(dir string) (*Store, error) {
	s := &Store{root: dir}
	for _, sub := range []string{"sessions", "episodes"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("filestore: create %s: %w", sub, err)
		}
	}
	return s, nil
}

func (s *Store) sessionPath(id string) string {
	return filepath.Join(s.root, "sessions", id+".json")
}

func (s *Store) episodePath(id string) string {
	return filepath.Join(s.root, "episodes", id+".json")
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// SaveSession implements memory.Store.
func (s *Store) SaveSession(_ context.Context, sess memory.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSON(s.sessionPath(sess.ID), sess)
}

// LoadSession implements memory.Store.
func (s *Store) LoadSession(_ context.Context, id string) (memory.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sess memory.Session
	if err := readJSON(s.sessionPath(id), &sess); err != nil {
		if os.IsNotExist(err) {
			return memory.Session{}, memory.ErrNotFound
		}
		return memory.Session{}, fmt.Errorf("filestore: load session %s: %w", id, err)
	}
	return sess, nil
}

// ListSessions implements memory.Store.
func (s *Store) ListSessions(_ context.Context) ([]memory.SessionSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := os.ReadDir(filepath.Join(s.root, "sessions"))
	if err != nil {
		return nil, fmt.Errorf("filestore: list sessions: %w", err)
	}
	var summaries []memory.SessionSummary
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		var sess memory.Session
		if err := readJSON(filepath.Join(s.root, "sessions", entry.Name()), &sess); err != nil {
			continue
		}
		summaries = append(summaries, memory.Summarize(sess))
	}
	return summaries, nil
}

type cacheFile map[string]string

func (s *Store) loadMap(name string) (cacheFile, error) {
	out := cacheFile{}
	err := readJSON(filepath.Join(s.root, name), &out)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return out, nil
}

func (s *Store) saveMap(name string, m cacheFile) error {
	return writeJSON(filepath.Join(s.root, name), m)
}

// CacheGet implements memory.Store.
func (s *Store) CacheGet(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cache, err := s.loadMap("cache.json")
	if err != nil {
		return "", false, fmt.Errorf("filestore: read cache: %w", err)
	}
	value, ok := cache[key]
	return value, ok, nil
}

// CacheSet implements memory.Store.
func (s *Store) CacheSet(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cache, err := s.loadMap("cache.json")
	if err != nil {
		return fmt.Errorf("filestore: read cache: %w", err)
	}
	cache[key] = value
	return s.saveMap("cache.json", cache)
}

// AddFact implements memory.Store. Facts with identical content are dropped.
func (s *Store) AddFact(_ context.Context, f memory.Fact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	facts, err := s.loadFacts()
	if err != nil {
		return err
	}
	for _, existing := range facts {
		if existing.Content == f.Content {
			return nil
		}
	}
	facts = append(facts, f)
	return writeJSON(filepath.Join(s.root, "facts.json"), facts)
}

func (s *Store) loadFacts() ([]memory.Fact, error) {
	var facts []memory.Fact
	err := readJSON(filepath.Join(s.root, "facts.json"), &facts)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("filestore: read facts: %w", err)
	}
	return facts, nil
}

// GetFacts implements memory.Store.
func (s *Store) GetFacts(_ context.Context, topic string, limit int) ([]memory.Fact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	facts, err := s.loadFacts()
	if err != nil {
		return nil, err
	}
	var out []memory.Fact
	for _, f := range facts {
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

// SemanticSearch implements memory.Store by delegating scoring to an
// in-memory index built from the fact file.
func (s *Store) SemanticSearch(ctx context.Context, query string, limit int) ([]memory.SearchResult, error) {
	s.mu.Lock()
	facts, err := s.loadFacts()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	index := memory.NewInMemoryStore()
	for _, f := range facts {
		if err := index.AddFact(ctx, f); err != nil {
			return nil, err
		}
	}
	return index.SemanticSearch(ctx, query, limit)
}

// SaveEpisode implements memory.Store.
func (s *Store) SaveEpisode(_ context.Context, e memory.Episode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSON(s.episodePath(e.ID), e)
}

// GetEpisodes implements memory.Store.
func (s *Store) GetEpisodes(_ context.Context, goal string, limit int) ([]memory.Episode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := os.ReadDir(filepath.Join(s.root, "episodes"))
	if err != nil {
		return nil, fmt.Errorf("filestore: list episodes: %w", err)
	}
	var episodes []memory.Episode
	needle := strings.ToLower(goal)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		var e memory.Episode
		if err := readJSON(filepath.Join(s.root, "episodes", entry.Name()), &e); err != nil {
			continue
		}
		haystack := strings.ToLower(e.Goal)
		if needle != "" && !strings.Contains(haystack, needle) && !strings.Contains(needle, haystack) {
			continue
		}
		episodes = append(episodes, e)
	}
	sort.Slice(episodes, func(i, j int) bool { return episodes[i].CreatedAt > episodes[j].CreatedAt })
	if limit > 0 && len(episodes) > limit {
		episodes = episodes[:limit]
	}
	return episodes, nil
}

// Remember implements memory.Store.
func (s *Store) Remember(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kv, err := s.loadMap("kv.json")
	if err != nil {
		return fmt.Errorf("filestore: read kv: %w", err)
	}
	kv[key] = value
	return s.saveMap("kv.json", kv)
}

// Recall implements memory.Store.
func (s *Store) Recall(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kv, err := s.loadMap("kv.json")
	if err != nil {
		return "", fmt.Errorf("filestore: read kv: %w", err)
	}
	value, ok := kv[key]
	if !ok {
		return "", memory.ErrNotFound
	}
	return value, nil
}
