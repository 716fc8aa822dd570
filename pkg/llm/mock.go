package llm

import (
	"context"
	"sync"
)

// MockClient is a configurable Generator and Embedder for tests.
// Set the function fields to control behavior.
type MockClient struct {
	// GenerateResponseFunc handles GenerateResponse. If nil, returns an
	// empty result.
	GenerateResponseFunc func(ctx context.Context, prompt string, systemMessage string, temperature float64) (*GenerateResponseResult, error)

	// CreateEmbeddingFunc handles CreateEmbedding. If nil, returns nil.
	CreateEmbeddingFunc func(ctx context.Context, input string) ([]float32, error)

	// Model is returned by GetModel. Defaults to "mock-model".
	Model string

	mu                    sync.Mutex
	GenerateResponseCalls int
	CreateEmbeddingCalls  int
	Prompts               []string
}

// NewMockClient creates a mock with default settings.
func NewMockClient() *MockClient {
	return &MockClient{Model: "mock-model"}
}

var (
	_ Generator = (*MockClient)(nil)
	_ Embedder  = (*MockClient)(nil)
)

func (m *MockClient) GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64) (*GenerateResponseResult, error) {
	m.mu.Lock()
	m.GenerateResponseCalls++
	m.Prompts = append(m.Prompts, prompt)
	m.mu.Unlock()

	if m.GenerateResponseFunc != nil {
		return m.GenerateResponseFunc(ctx, prompt, systemMessage, temperature)
	}
	return &GenerateResponseResult{}, nil
}

func (m *MockClient) CreateEmbedding(ctx context.Context, input string) ([]float32, error) {
	m.mu.Lock()
	m.CreateEmbeddingCalls++
	m.mu.Unlock()

	if m.CreateEmbeddingFunc != nil {
		return m.CreateEmbeddingFunc(ctx, input)
	}
	return nil, nil
}

func (m *MockClient) GetModel() string {
	if m.Model == "" {
		return "mock-model"
	}
	return m.Model
}
