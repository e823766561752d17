package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseToolCallsSingle(t *testing.T) {
	calls := ParseToolCalls(`I'll search for that. {"tool": "web.search", "args": {"query": "go generics"}}`)
	require.Len(t, calls, 1)
	assert.Equal(t, "web.search", calls[0].Tool)
	assert.Equal(t, "go generics", calls[0].Args["query"])
}

func TestParseToolCallsMultiple(t *testing.T) {
	response := `{"tool": "a.one", "args": {}}
some commentary
{"tool": "b.two", "args": {"n": 2}}`
	calls := ParseToolCalls(response)
	require.Len(t, calls, 2)
	assert.Equal(t, "a.one", calls[0].Tool)
	assert.Equal(t, "b.two", calls[1].Tool)
	assert.Equal(t, float64(2), calls[1].Args["n"])
}

func TestParseToolCallsBracesInsideStrings(t *testing.T) {
	response := `{"tool": "file.write", "args": {"content": "func main() { return }"}}`
	calls := ParseToolCalls(response)
	require.Len(t, calls, 1)
	assert.Equal(t, "func main() { return }", calls[0].Args["content"])
}

func TestParseToolCallsEscapedQuotes(t *testing.T) {
	response := `{"tool": "shell.run", "args": {"cmd": "echo \"hi {there}\""}}`
	calls := ParseToolCalls(response)
	require.Len(t, calls, 1)
	assert.Equal(t, `echo "hi {there}"`, calls[0].Args["cmd"])
}

func TestParseToolCallsSkipsMalformed(t *testing.T) {
	// The first candidate never closes; the later valid one still parses.
	response := `{"tool": "broken", "args": {"q": and then {"tool": "a.ok", "args": {"q": "x"}}`
	calls := ParseToolCalls(response)
	require.Len(t, calls, 1)
	assert.Equal(t, "a.ok", calls[0].Tool)
}

func TestParseToolCallsRequiresArgs(t *testing.T) {
	assert.Empty(t, ParseToolCalls(`{"tool": "web.search"}`))
	assert.Empty(t, ParseToolCalls(`{"tool": null, "args": {}}`))
	assert.Empty(t, ParseToolCalls(`plain prose with no JSON at all`))
}

func TestParseToolCallsIgnoresOtherJSON(t *testing.T) {
	assert.Empty(t, ParseToolCalls(`{"plan": [{"step": 1}]}`))
}

func TestDetectBadToolCall(t *testing.T) {
	assert.Equal(t, "web.search", DetectBadToolCall(`Let me run web.search("cats")`))
	assert.Equal(t, "", DetectBadToolCall("The result is 4."))

	// A valid JSON call suppresses the detector even when a dotted call
	// shape also appears in the text.
	response := `calling web.search("cats") via {"tool": "web.search", "args": {"query": "cats"}}`
	assert.Equal(t, "", DetectBadToolCall(response))
}
