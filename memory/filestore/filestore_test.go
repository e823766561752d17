package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/nova/internal/testutil"
	"github.com/hupe1980/nova/memory"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestNewCreatesLayout(t *testing.T) {
	dir := t.TempDir()
	_, err := New(dir)
	require.NoError(t, err)

	for _, sub := range []string{"sessions", "episodes"} {
		info, err := os.Stat(filepath.Join(dir, sub))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	history := testutil.NewHistoryBuilder().User("question").Assistant("answer").Build()
	sess := memory.Session{
		ID:        "sess-1",
		Timestamp: 100,
		History:   history,
		Metadata:  map[string]string{"profile": "general"},
	}
	require.NoError(t, s.SaveSession(ctx, sess))

	loaded, err := s.LoadSession(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, sess.ID, loaded.ID)
	assert.Equal(t, sess.Metadata, loaded.Metadata)
	require.Len(t, loaded.History, 2)
	assert.Equal(t, "answer", loaded.History[1].Content)

	_, err = s.LoadSession(ctx, "missing")
	assert.ErrorIs(t, err, memory.ErrNotFound)
}

func TestListSessions(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.SaveSession(ctx, memory.Session{ID: "a", Timestamp: 1}))
	require.NoError(t, s.SaveSession(ctx, memory.Session{ID: "b", Timestamp: 2}))

	summaries, err := s.ListSessions(ctx)
	require.NoError(t, err)
	assert.Len(t, summaries, 2)
}

func TestCachePersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s1, err := New(dir)
	require.NoError(t, err)
	require.NoError(t, s1.CacheSet(ctx, "key1", "value1"))

	s2, err := New(dir)
	require.NoError(t, err)

	value, ok, err := s2.CacheGet(ctx, "key1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "value1", value)

	_, ok, err = s2.CacheGet(ctx, "absent")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFactsPersistAndDedup(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	fact := memory.Fact{Topic: "go", Content: "interfaces are satisfied implicitly", Source: "tour", Confidence: 0.9}
	require.NoError(t, s.AddFact(ctx, fact))
	require.NoError(t, s.AddFact(ctx, fact))
	require.NoError(t, s.AddFact(ctx, memory.Fact{Topic: "tooling", Content: "gofmt settles style debates"}))

	facts, err := s.GetFacts(ctx, "go", 0)
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.Equal(t, "tour", facts[0].Source)
	assert.InDelta(t, 0.9, facts[0].Confidence, 1e-9)

	all, err := s.GetFacts(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSemanticSearchOverFile(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.AddFact(ctx, memory.Fact{Topic: "runtime", Content: "goroutines multiplex onto threads"}))
	require.NoError(t, s.AddFact(ctx, memory.Fact{Topic: "style", Content: "short names for short scopes"}))

	results, err := s.SemanticSearch(ctx, "goroutines threads runtime", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Content, "goroutines")
}

func TestEpisodesNewestFirstWithLimit(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.SaveEpisode(ctx, memory.Episode{ID: "e1", Goal: "deploy service", CreatedAt: 1}))
	require.NoError(t, s.SaveEpisode(ctx, memory.Episode{ID: "e2", Goal: "deploy worker", SessionID: "sess-2", CreatedAt: 2}))
	require.NoError(t, s.SaveEpisode(ctx, memory.Episode{ID: "e3", Goal: "write docs", CreatedAt: 3}))

	episodes, err := s.GetEpisodes(ctx, "deploy", 1)
	require.NoError(t, err)
	require.Len(t, episodes, 1)
	assert.Equal(t, "e2", episodes[0].ID)
	assert.Equal(t, "sess-2", episodes[0].SessionID)
}

func TestRememberRecall(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.Remember(ctx, "api_style", "rest"))

	value, err := s.Recall(ctx, "api_style")
	require.NoError(t, err)
	assert.Equal(t, "rest", value)

	_, err = s.Recall(ctx, "unset")
	assert.ErrorIs(t, err, memory.ErrNotFound)
}
