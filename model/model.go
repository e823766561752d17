package model

import (
	"context"
	"io"
	"strings"

	"github.com/hupe1980/nova/core"
)

// Options is the subset of sampling parameters shared across providers.
// Pointer fields are omitted from the request when nil so provider defaults
// apply.
type Options struct {
	Temperature   *float64 `json:"temperature,omitempty"`
	TopP          *float64 `json:"top_p,omitempty"`
	TopK          *int     `json:"top_k,omitempty"`
	MaxTokens     int      `json:"max_tokens,omitempty"`
	Stop          []string `json:"stop,omitempty"`
	Seed          *int     `json:"seed,omitempty"`
	RepeatPenalty *float64 `json:"repeat_penalty,omitempty"`
}

// Request is the normalized model input: a system prompt, the conversation
// so far, and optional sampling overrides. Model overrides the provider's
// configured default when set, which is how the router switches tiers on a
// shared client.
type Request struct {
	Model    string
	System   string
	Messages []core.Message
	Options  *Options
}

// Stream yields generated text incrementally. Next returns io.EOF after the
// final chunk. Callers must Close the stream when abandoning it early.
type Stream interface {
	Next() (string, error)
	Close() error
}

// Info contains metadata about a model implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "ollama", "anthropic", "openai", "mock"
}

// LanguageModel is the minimal interface the agent loop drives generation
// through.
type LanguageModel interface {
	Generate(ctx context.Context, req Request) (string, error)
	StreamGenerate(ctx context.Context, req Request) (Stream, error)

	// ListModels returns the model names the provider can serve.
	ListModels(ctx context.Context) ([]string, error)

	// Info returns information about the model implementation.
	Info() Info
}

// Collect drains a stream into the full response text, closing it on return.
func Collect(s Stream) (string, error) {
	defer s.Close()
	var sb strings.Builder
	for {
		chunk, err := s.Next()
		sb.WriteString(chunk)
		if err == io.EOF {
			return sb.String(), nil
		}
		if err != nil {
			return sb.String(), err
		}
	}
}

// Float returns a pointer to v, for Options literals.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v, for Options literals.
func Int(v int) *int { return &v }
