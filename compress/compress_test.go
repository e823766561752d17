package compress

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/nova/core"
	"github.com/hupe1980/nova/internal/testutil"
	"github.com/hupe1980/nova/model"
)

func longHistory(turns int) []core.Message {
	return testutil.NewHistoryBuilder().
		System("you are nova").
		Turns(turns,
			func(i int) string { return fmt.Sprintf("question %d", i) },
			func(i int) string { return fmt.Sprintf("answer %d", i) }).
		Build()
}

func TestCompressShortHistoryUntouched(t *testing.T) {
	c := New()
	messages := longHistory(4) // 9 messages, under the threshold

	out := c.Compress(context.Background(), messages)
	assert.Equal(t, messages, out)
}

func TestCompressFoldsMiddle(t *testing.T) {
	c := New()
	messages := longHistory(8) // 1 system + 16 turns

	out := c.Compress(context.Background(), messages)

	// system + summary + 5 recent
	require.Len(t, out, 7)
	assert.Equal(t, core.RoleSystem, out[0].Role)
	assert.Equal(t, "you are nova", out[0].Content)

	assert.Equal(t, core.RoleSystem, out[1].Role)
	assert.Contains(t, out[1].Content, "[Previous Context Summary]: ")
	assert.Contains(t, out[1].Content, "11 preserved messages")

	// the last five non-system messages survive verbatim
	assert.Equal(t, "answer 5", out[2].Content)
	assert.Equal(t, "answer 7", out[6].Content)
}

func TestCompressUsesModelSummary(t *testing.T) {
	m := model.NewMockModel()
	m.Enqueue("User explored history compression. Decisions: keep recent turns.")

	c := New(func(o *Options) {
		o.Model = m
		o.ModelName = "llama3.2:1b"
	})

	out := c.Compress(context.Background(), longHistory(8))

	require.GreaterOrEqual(t, len(out), 2)
	assert.Equal(t, "[Previous Context Summary]: User explored history compression. Decisions: keep recent turns.", out[1].Content)

	reqs := m.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "llama3.2:1b", reqs[0].Model)
	assert.Contains(t, reqs[0].Messages[0].Content, "question 0")
}

func TestCompressModelFailureFallsBack(t *testing.T) {
	m := model.NewMockModel()
	m.Fail(errors.New("model offline"))

	c := New(func(o *Options) { o.Model = m })

	out := c.Compress(context.Background(), longHistory(8))
	assert.Contains(t, out[1].Content, "preserved messages")
}

func TestCompressEmptyModelSummaryFallsBack(t *testing.T) {
	m := model.NewMockModel()
	m.Enqueue("   ")

	c := New(func(o *Options) { o.Model = m })

	out := c.Compress(context.Background(), longHistory(8))
	assert.Contains(t, out[1].Content, "preserved messages")
}

func TestCompressCustomThreshold(t *testing.T) {
	c := New(func(o *Options) { o.MaxHistory = 20 })

	messages := longHistory(8) // 17 messages, under the raised threshold
	out := c.Compress(context.Background(), messages)
	assert.Equal(t, messages, out)
}

func TestCompressFewNonSystemMessages(t *testing.T) {
	c := New(func(o *Options) { o.MaxHistory = 3 })

	// over the threshold but only four non-system messages: nothing to fold
	messages := []core.Message(testutil.NewHistoryBuilder().
		System("a").System("b").System("c").System("d").System("e").System("f").System("g").
		User("q1").Assistant("a1").User("q2").Assistant("a2").
		Build())

	out := c.Compress(context.Background(), messages)
	assert.Equal(t, messages, out)
}
