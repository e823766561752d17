// Package openai provides a model.LanguageModel backed by the OpenAI Chat
// Completions API.
package openai

import (
	"context"
	"fmt"
	"io"

	"github.com/hupe1980/nova/core"
	"github.com/hupe1980/nova/model"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/packages/ssestream"
)

// Options configure the OpenAI model adapter.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
}

// Model wraps the OpenAI Chat Completions API behind the model.LanguageModel
// interface.
type Model struct {
	client *openai.Client
	opts   Options
}

// NewModel creates a new OpenAI model using the official client.
func NewModel(optFns ...func(o *Options)) *Model {
	client := openai.NewClient()
	return NewModelFromClient(&client, optFns...)
}

// NewModelFromClient creates a new OpenAI model from an existing client.
func NewModelFromClient(client *openai.Client, optFns ...func(o *Options)) *Model {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Model{client: client, opts: opts}
}

func (m *Model) buildParams(req model.Request) openai.ChatCompletionNewParams {
	var messages []openai.ChatCompletionMessageParamUnion
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	for _, msg := range req.Messages {
		if msg.Content == "" {
			continue
		}
		switch msg.Role {
		case core.RoleSystem:
			messages = append(messages, openai.SystemMessage(msg.Content))
		case core.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(msg.Content))
		default:
			messages = append(messages, openai.UserMessage(msg.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Messages:            messages,
		Model:               m.opts.Model,
		Temperature:         openai.Float(m.opts.Temperature),
		MaxCompletionTokens: openai.Int(m.opts.MaxCompletionTokens),
	}
	if req.Model != "" {
		params.Model = req.Model
	}
	if o := req.Options; o != nil {
		if o.Temperature != nil {
			params.Temperature = openai.Float(*o.Temperature)
		}
		if o.MaxTokens > 0 {
			params.MaxCompletionTokens = openai.Int(int64(o.MaxTokens))
		}
		if o.Seed != nil {
			params.Seed = openai.Int(int64(*o.Seed))
		}
	}
	return params
}

// Generate implements model.LanguageModel.
func (m *Model) Generate(ctx context.Context, req model.Request) (string, error) {
	resp, err := m.client.Chat.Completions.New(ctx, m.buildParams(req))
	if err != nil {
		return "", fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai api error: empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// StreamGenerate implements model.LanguageModel using the streaming chat
// completions endpoint.
func (m *Model) StreamGenerate(ctx context.Context, req model.Request) (model.Stream, error) {
	stream := m.client.Chat.Completions.NewStreaming(ctx, m.buildParams(req))
	return &openaiStream{stream: stream}, nil
}

// ListModels implements model.LanguageModel; the adapter serves the model it
// was configured with.
func (m *Model) ListModels(ctx context.Context) ([]string, error) {
	return []string{m.opts.Model}, nil
}

// Info implements model.LanguageModel.
func (m *Model) Info() model.Info {
	return model.Info{Name: m.opts.Model, Provider: "openai"}
}

type openaiStream struct {
	stream *ssestream.Stream[openai.ChatCompletionChunk]
}

func (s *openaiStream) Next() (string, error) {
	for s.stream.Next() {
		chunk := s.stream.Current()
		for _, choice := range chunk.Choices {
			if choice.Delta.Content != "" {
				return choice.Delta.Content, nil
			}
		}
	}
	if err := s.stream.Err(); err != nil {
		return "", fmt.Errorf("openai streaming error: %w", err)
	}
	return "", io.EOF
}

func (s *openaiStream) Close() error { return s.stream.Close() }
