package memory

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/nova/core"
	"github.com/hupe1980/nova/internal/testutil"
)

func TestInMemorySessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	history := testutil.NewHistoryBuilder().User("hi").Assistant("hello").Build()
	require.NoError(t, store.SaveSession(ctx, Session{ID: "s1", Timestamp: 100, History: history}))

	loaded, err := store.LoadSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", loaded.ID)
	require.Len(t, loaded.History, 2)
	assert.Equal(t, "hello", loaded.History[1].Content)

	_, err = store.LoadSession(ctx, "absent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSummarize(t *testing.T) {
	long := strings.Repeat("x", 200)
	s := Session{
		ID:        "s1",
		Timestamp: 42,
		History:   []core.Message{core.NewMessage(core.RoleAssistant, long)},
	}

	summary := Summarize(s)
	assert.Equal(t, "s1", summary.ID)
	assert.Equal(t, 1, summary.Messages)
	assert.Len(t, summary.Preview, 80)

	assert.Empty(t, Summarize(Session{ID: "empty"}).Preview)
}

func TestManagerListSessionsNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	m := NewManager(store)

	require.NoError(t, store.SaveSession(ctx, Session{ID: "old", Timestamp: 10}))
	require.NoError(t, store.SaveSession(ctx, Session{ID: "new", Timestamp: 20}))

	summaries, err := m.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "new", summaries[0].ID)
	assert.Equal(t, "old", summaries[1].ID)
}

func TestCacheKeyDeterministic(t *testing.T) {
	k1 := CacheKey("system", "user: hi\n")
	k2 := CacheKey("system", "user: hi\n")
	k3 := CacheKey("system", "user: bye\n")

	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
	assert.Len(t, k1, 64)
}

func TestResponseCache(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewInMemoryStore())

	key := CacheKey("sys", "user: q\n")
	_, ok := m.CachedResponse(ctx, key)
	assert.False(t, ok)

	m.CacheResponse(ctx, key, "cached answer")

	value, ok := m.CachedResponse(ctx, key)
	assert.True(t, ok)
	assert.Equal(t, "cached answer", value)
}

func TestFactsDedupAndTopicFilter(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewInMemoryStore())

	m.AddFact(ctx, "go", "goroutines are cheap", "runtime docs", 0.9)
	m.AddFact(ctx, "go", "goroutines are cheap", "runtime docs", 0.9) // duplicate content dropped
	m.AddFact(ctx, "python", "the gil limits threads", "cpython wiki", 0.8)

	facts, err := m.GetFacts(ctx, "go", 0)
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.Equal(t, "runtime docs", facts[0].Source)
	assert.InDelta(t, 0.9, facts[0].Confidence, 1e-9)

	all, err := m.GetFacts(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	limited, err := m.GetFacts(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSemanticSearchRanksByOverlap(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewInMemoryStore())

	m.AddFact(ctx, "messaging", "channels coordinate work safely", "notes", 0.6)
	m.AddFact(ctx, "storage", "files persist data on disk", "notes", 0.6)
	m.AddFact(ctx, "concurrency", "goroutines and channels power concurrency in go programs", "manual", 1.0)

	results, err := m.SemanticSearch(ctx, "goroutines channels concurrency", 10)
	require.NoError(t, err)
	require.Len(t, results, 2, "unrelated facts score zero and are dropped")
	assert.Contains(t, results[0].Content, "power concurrency")
	assert.Greater(t, results[0].Score, results[1].Score)
	assert.Equal(t, "manual", results[0].Metadata["source"])
	assert.Equal(t, 1.0, results[0].Metadata["confidence"])
}

func TestAddFactClampsConfidence(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewInMemoryStore())

	m.AddFact(ctx, "a", "over confident", "guess", 3.5)
	m.AddFact(ctx, "a", "under confident", "guess", -1)

	facts, err := m.GetFacts(ctx, "a", 0)
	require.NoError(t, err)
	require.Len(t, facts, 2)
	assert.Equal(t, 1.0, facts[0].Confidence)
	assert.Equal(t, 0.0, facts[1].Confidence)
}

func TestSemanticSearchEmptyQuery(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	require.NoError(t, store.AddFact(ctx, Fact{Topic: "t", Content: "something"}))

	results, err := store.SemanticSearch(ctx, "a", 10)
	require.NoError(t, err)
	assert.Empty(t, results, "tokens shorter than three characters are ignored")
}

func TestEpisodesSubstringMatchNewestFirst(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewInMemoryStore())

	m.SaveEpisode(ctx, "deploy the web service", []string{"build", "push"}, "success", "sess-a")
	m.SaveEpisode(ctx, "deploy the database", []string{"migrate"}, "success", "sess-b")
	m.SaveEpisode(ctx, "write documentation", nil, "success", "sess-c")

	episodes, err := m.GetEpisodes(ctx, "deploy", 10)
	require.NoError(t, err)
	require.Len(t, episodes, 2)
	assert.Equal(t, "deploy the database", episodes[0].Goal, "newest first")
	assert.Equal(t, "sess-b", episodes[0].SessionID)
	assert.NotEmpty(t, episodes[0].ID)

	// both containment directions match
	episodes, err = m.GetEpisodes(ctx, "please deploy the database tonight", 10)
	require.NoError(t, err)
	assert.Len(t, episodes, 1)
}

func TestRememberRecall(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewInMemoryStore())

	m.Remember(ctx, "favorite_editor", "vim")

	value, err := m.Recall(ctx, "favorite_editor")
	require.NoError(t, err)
	assert.Equal(t, "vim", value)

	_, err = m.Recall(ctx, "unset")
	assert.ErrorIs(t, err, ErrNotFound)
}
