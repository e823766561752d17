package agent

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/hupe1980/nova/core"
)

var (
	toolCallStartRe = regexp.MustCompile(`\{\s*"tool"`)
	badToolCallRe   = regexp.MustCompile(`(\w+\.\w+)\s*\(`)
)

// ParseToolCalls extracts every {"tool": ..., "args": {...}} object from a
// model response using balanced-brace scanning. Candidates with malformed
// JSON are skipped and scanning resumes past them.
func ParseToolCalls(response string) []core.ToolCall {
	var calls []core.ToolCall

	pos := 0
	for pos < len(response) {
		loc := toolCallStartRe.FindStringIndex(response[pos:])
		if loc == nil {
			break
		}
		start := pos + loc[0]

		candidate, end := balancedObject(response, start)
		if candidate == "" {
			pos = start + 1
			continue
		}

		var raw struct {
			Tool *string        `json:"tool"`
			Args map[string]any `json:"args"`
		}
		if err := json.Unmarshal([]byte(candidate), &raw); err != nil || raw.Tool == nil || raw.Args == nil {
			pos = start + 1
			continue
		}

		calls = append(calls, core.ToolCall{Tool: *raw.Tool, Args: raw.Args})
		pos = end
	}

	return calls
}

// balancedObject returns the JSON object starting at start and the index
// just past it, tracking strings so braces inside values don't count.
func balancedObject(s string, start int) (string, int) {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return s[start : i+1], i + 1
				}
			}
		}
	}
	return "", len(s)
}

// DetectBadToolCall reports a dotted function-call shape like
// `web.search("x")`, which means the model attempted a tool call without
// the JSON format. Responses containing valid JSON calls are not flagged.
func DetectBadToolCall(response string) string {
	if len(ParseToolCalls(response)) > 0 {
		return ""
	}
	match := badToolCallRe.FindStringSubmatch(response)
	if match == nil {
		return ""
	}
	return strings.TrimSpace(match[1])
}
