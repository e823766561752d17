package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/nova/core"
)

func newEchoTool(name string) *FunctionTool {
	return NewFunctionTool(name, "echoes input", core.RiskLow,
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"input": map[string]any{"type": "string"},
			},
			"required": []string{"input"},
		},
		func(_ context.Context, args map[string]any) (any, error) {
			return args["input"], nil
		},
	)
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	r.Register(newEchoTool("text.echo"))

	got, ok := r.Get("text.echo")
	require.True(t, ok)
	assert.Equal(t, "text.echo", got.Name())

	_, ok = r.Get("missing.tool")
	assert.False(t, ok)
}

func TestRegistryEphemeralShadowsBase(t *testing.T) {
	r := NewRegistry()
	r.Register(NewFunctionTool("text.echo", "base version", core.RiskLow, nil,
		func(context.Context, map[string]any) (any, error) { return "base", nil }))
	r.RegisterEphemeral(NewFunctionTool("text.echo", "overlay version", core.RiskLow, nil,
		func(context.Context, map[string]any) (any, error) { return "overlay", nil }))

	got, ok := r.Get("text.echo")
	require.True(t, ok)
	assert.Equal(t, "overlay version", got.Description())

	r.ClearEphemeral()

	got, ok = r.Get("text.echo")
	require.True(t, ok)
	assert.Equal(t, "base version", got.Description())
}

func TestRegistryListSortedAndDeduped(t *testing.T) {
	r := NewRegistry()
	r.Register(newEchoTool("b.tool"))
	r.Register(newEchoTool("a.tool"))
	r.RegisterEphemeral(newEchoTool("b.tool"))
	r.RegisterEphemeral(newEchoTool("c.tool"))

	assert.Equal(t, []string{"a.tool", "b.tool", "c.tool"}, r.List())
}

func TestRegistryDescriptions(t *testing.T) {
	r := NewRegistry()
	r.Register(NewFunctionTool("a.tool", "base a", core.RiskLow, nil,
		func(context.Context, map[string]any) (any, error) { return nil, nil }))
	r.RegisterEphemeral(NewFunctionTool("a.tool", "overlay a", core.RiskLow, nil,
		func(context.Context, map[string]any) (any, error) { return nil, nil }))

	descs := r.Descriptions()
	assert.Equal(t, map[string]string{"a.tool": "overlay a"}, descs)
}

func TestFunctionToolExecute(t *testing.T) {
	echo := newEchoTool("text.echo")

	result, err := echo.Execute(context.Background(), map[string]any{"input": "hello"})
	require.NoError(t, err)
	assert.Equal(t, "hello", result)
}

func TestFunctionToolValidationError(t *testing.T) {
	echo := newEchoTool("text.echo")

	_, err := echo.Execute(context.Background(), map[string]any{})

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeValidation, toolErr.Code)
	assert.Equal(t, "text.echo", toolErr.Tool)
}

func TestFunctionToolExecutionError(t *testing.T) {
	boom := NewFunctionTool("always.fails", "fails", core.RiskLow, nil,
		func(context.Context, map[string]any) (any, error) {
			return nil, errors.New("disk on fire")
		})

	_, err := boom.Execute(context.Background(), nil)

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeExecution, toolErr.Code)
	assert.Contains(t, toolErr.Message, "disk on fire")
}

func TestFunctionToolPreservesToolError(t *testing.T) {
	custom := NewFunctionTool("custom.fail", "fails with custom code", core.RiskLow, nil,
		func(context.Context, map[string]any) (any, error) {
			return nil, NewToolError("custom.fail", "nope", "RATE_LIMITED")
		})

	_, err := custom.Execute(context.Background(), nil)

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "RATE_LIMITED", toolErr.Code)
}

type argSpec struct {
	Query string `json:"query" description:"search query"`
	Limit *int   `json:"limit,omitempty"`
}

func TestNewFunctionToolFromStruct(t *testing.T) {
	tl := NewFunctionToolFromStruct("web.search", "search", core.RiskMedium, argSpec{},
		func(context.Context, map[string]any) (any, error) { return nil, nil })

	schema := tl.Parameters()
	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "query")
	assert.Contains(t, props, "limit")
	assert.Equal(t, []string{"query"}, schema["required"])
}
