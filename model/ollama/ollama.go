// Package ollama provides a model.LanguageModel backed by a local Ollama
// server's chat API.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hupe1980/nova/model"
)

// DefaultBaseURL is the Ollama server address used when none is configured.
const DefaultBaseURL = "http://localhost:11434"

// Options configures the Ollama model adapter.
type Options struct {
	BaseURL    string
	Model      string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Model wraps the Ollama chat API behind the model.LanguageModel interface.
type Model struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewModel creates a new Ollama model client.
func NewModel(optFns ...func(o *Options)) *Model {
	opts := Options{
		BaseURL: DefaultBaseURL,
		Model:   "llama3.2",
		Timeout: 120 * time.Second,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	return &Model{
		baseURL: opts.BaseURL,
		model:   opts.Model,
		client:  client,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
	Error   string      `json:"error,omitempty"`
}

func (m *Model) buildRequest(req model.Request, stream bool) chatRequest {
	name := req.Model
	if name == "" {
		name = m.model
	}

	messages := make([]chatMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	for _, msg := range req.Messages {
		messages = append(messages, chatMessage{Role: string(msg.Role), Content: msg.Content})
	}

	out := chatRequest{
		Model:    name,
		Messages: messages,
		Stream:   stream,
	}
	if o := req.Options; o != nil {
		opts := map[string]any{}
		if o.Temperature != nil {
			opts["temperature"] = *o.Temperature
		}
		if o.TopP != nil {
			opts["top_p"] = *o.TopP
		}
		if o.TopK != nil {
			opts["top_k"] = *o.TopK
		}
		if o.MaxTokens > 0 {
			opts["num_predict"] = o.MaxTokens
		}
		if len(o.Stop) > 0 {
			opts["stop"] = o.Stop
		}
		if o.Seed != nil {
			opts["seed"] = *o.Seed
		}
		if o.RepeatPenalty != nil {
			opts["repeat_penalty"] = *o.RepeatPenalty
		}
		if len(opts) > 0 {
			out.Options = opts
		}
	}
	return out
}

func (m *Model) post(ctx context.Context, body chatRequest) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("ollama: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("ollama: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ollama: request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("ollama: unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(data))
	}
	return resp, nil
}

// Generate implements model.LanguageModel.
func (m *Model) Generate(ctx context.Context, req model.Request) (string, error) {
	resp, err := m.post(ctx, m.buildRequest(req, false))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("ollama: decode response: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("ollama: %s", out.Error)
	}
	return out.Message.Content, nil
}

// StreamGenerate implements model.LanguageModel. The server responds with
// newline-delimited JSON chunks until a done marker.
func (m *Model) StreamGenerate(ctx context.Context, req model.Request) (model.Stream, error) {
	resp, err := m.post(ctx, m.buildRequest(req, true))
	if err != nil {
		return nil, err
	}
	return &ndjsonStream{body: resp.Body, dec: json.NewDecoder(resp.Body)}, nil
}

// ListModels implements model.LanguageModel using the tags endpoint.
func (m *Model) ListModels(ctx context.Context) ([]string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("ollama: build request: %w", err)
	}

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ollama: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama: unexpected status %d", resp.StatusCode)
	}

	var out struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("ollama: decode tags: %w", err)
	}

	names := make([]string, len(out.Models))
	for i, m := range out.Models {
		names[i] = m.Name
	}
	return names, nil
}

// Info implements model.LanguageModel.
func (m *Model) Info() model.Info {
	return model.Info{Name: m.model, Provider: "ollama"}
}

type ndjsonStream struct {
	body io.ReadCloser
	dec  *json.Decoder
	done bool
}

func (s *ndjsonStream) Next() (string, error) {
	if s.done {
		return "", io.EOF
	}
	var chunk chatResponse
	if err := s.dec.Decode(&chunk); err != nil {
		if err == io.EOF {
			s.done = true
			return "", io.EOF
		}
		return "", fmt.Errorf("ollama: decode chunk: %w", err)
	}
	if chunk.Error != "" {
		return "", fmt.Errorf("ollama: %s", chunk.Error)
	}
	if chunk.Done {
		s.done = true
		return chunk.Message.Content, io.EOF
	}
	return chunk.Message.Content, nil
}

func (s *ndjsonStream) Close() error { return s.body.Close() }
