package model

import (
	"context"
	"io"
	"sync"

	"github.com/hupe1980/nova/core"
)

// MockModel is a lightweight in-memory LanguageModel useful for tests and
// examples. Responses can be scripted as a queue or keyed to the last user
// message; every request is recorded for inspection.
type MockModel struct {
	mu        sync.Mutex
	queue     []string
	byPrompt  map[string]string
	requests  []Request
	err       error
	chunkSize int
}

// NewMockModel constructs an empty MockModel.
func NewMockModel() *MockModel {
	return &MockModel{
		byPrompt:  make(map[string]string),
		chunkSize: 8,
	}
}

// Enqueue appends scripted responses returned in order by Generate.
func (m *MockModel) Enqueue(responses ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, responses...)
}

// AddResponse registers a canned completion for an exact last-user-message
// match. Prompt matches take precedence over the queue.
func (m *MockModel) AddResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byPrompt[prompt] = response
}

// Fail makes every subsequent call return err.
func (m *MockModel) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetChunkSize controls how StreamGenerate slices responses into chunks.
func (m *MockModel) SetChunkSize(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunkSize = n
}

// Requests returns a copy of every request seen so far.
func (m *MockModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// Calls returns the number of requests seen so far.
func (m *MockModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func (m *MockModel) next(req Request) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if m.err != nil {
		return "", m.err
	}
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == core.RoleUser {
			if resp, ok := m.byPrompt[req.Messages[i].Content]; ok {
				return resp, nil
			}
			break
		}
	}
	if len(m.queue) > 0 {
		resp := m.queue[0]
		m.queue = m.queue[1:]
		return resp, nil
	}
	return "", nil
}

// Generate implements LanguageModel.
func (m *MockModel) Generate(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return m.next(req)
}

// StreamGenerate implements LanguageModel; it slices the scripted response
// into fixed-size chunks so callers exercise their streaming paths.
func (m *MockModel) StreamGenerate(ctx context.Context, req Request) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full, err := m.next(req)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	size := m.chunkSize
	m.mu.Unlock()
	if size <= 0 {
		size = len(full)
	}
	return &mockStream{text: full, size: size}, nil
}

// ListModels implements LanguageModel.
func (m *MockModel) ListModels(ctx context.Context) ([]string, error) {
	return []string{"mock"}, nil
}

// Info implements LanguageModel.
func (m *MockModel) Info() Info {
	return Info{Name: "mock", Provider: "mock"}
}

type mockStream struct {
	text string
	pos  int
	size int
}

func (s *mockStream) Next() (string, error) {
	if s.pos >= len(s.text) {
		return "", io.EOF
	}
	end := s.pos + s.size
	if end > len(s.text) {
		end = len(s.text)
	}
	chunk := s.text[s.pos:end]
	s.pos = end
	if s.pos >= len(s.text) {
		return chunk, io.EOF
	}
	return chunk, nil
}

func (s *mockStream) Close() error { return nil }
