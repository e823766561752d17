package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleArgs struct {
	Query   string   `json:"query" description:"what to search"`
	Limit   int      `json:"limit,omitempty"`
	Verbose bool     `json:"verbose"`
	Tags    []string `json:"tags,omitempty"`
	skipped string
	Ignored string   `json:"-"`
}

func TestCreateSchema(t *testing.T) {
	schema := CreateSchema(sampleArgs{})

	assert.Equal(t, "object", schema["type"])

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, props, 4)

	query, ok := props["query"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "string", query["type"])
	assert.Equal(t, "what to search", query["description"])

	limit, ok := props["limit"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "integer", limit["type"])

	tags, ok := props["tags"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "array", tags["type"])

	assert.NotContains(t, props, "skipped")
	assert.NotContains(t, props, "Ignored")

	// omitempty fields are optional
	assert.ElementsMatch(t, []string{"query", "verbose"}, schema["required"])
}

func TestCreateSchemaNonStruct(t *testing.T) {
	schema := CreateSchema("not a struct")

	assert.Equal(t, "object", schema["type"])
	assert.Empty(t, schema["properties"])
}

func TestValidateArgsRequired(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{"type": "string"},
		},
		"required": []string{"query"},
	}

	err := ValidateArgs(map[string]any{}, schema)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "query", verr.Field)
	assert.Contains(t, verr.Message, "missing")

	assert.NoError(t, ValidateArgs(map[string]any{"query": "ok"}, schema))
}

func TestValidateArgsRequiredDecodedFromJSON(t *testing.T) {
	schema := map[string]any{
		"properties": map[string]any{
			"query": map[string]any{"type": "string"},
		},
		"required": []any{"query"},
	}

	err := ValidateArgs(map[string]any{}, schema)
	assert.Error(t, err)
}

func TestValidateArgsTypeMismatch(t *testing.T) {
	schema := map[string]any{
		"properties": map[string]any{
			"count": map[string]any{"type": "integer"},
		},
	}

	assert.Error(t, ValidateArgs(map[string]any{"count": "three"}, schema))
	assert.NoError(t, ValidateArgs(map[string]any{"count": 3}, schema))
	// JSON decoding yields float64 for numbers; whole floats pass as integers
	assert.NoError(t, ValidateArgs(map[string]any{"count": float64(3)}, schema))
	assert.Error(t, ValidateArgs(map[string]any{"count": 3.5}, schema))
}

func TestValidateArgsEnum(t *testing.T) {
	schema := map[string]any{
		"properties": map[string]any{
			"mode": map[string]any{
				"type": "string",
				"enum": []any{"fast", "slow"},
			},
		},
	}

	assert.NoError(t, ValidateArgs(map[string]any{"mode": "fast"}, schema))
	assert.Error(t, ValidateArgs(map[string]any{"mode": "warp"}, schema))
}

func TestValidateArgsExtraFieldsPass(t *testing.T) {
	schema := map[string]any{
		"properties": map[string]any{
			"query": map[string]any{"type": "string"},
		},
	}

	assert.NoError(t, ValidateArgs(map[string]any{"query": "x", "unknown": 1}, schema))
}
