// Package llm wraps the text-generation and embedding services used to
// draft semantic types and index them for similarity lookup.
package llm

import (
	"context"
)

// Default models used when none is configured.
const (
	DefaultOpenAIModel    = "gpt-4o-mini"
	DefaultAnthropicModel = "claude-sonnet-4-5-20250929"
	DefaultEmbeddingModel = "text-embedding-3-small"
)

// GenerateResponseResult is a completed generation with usage stats.
type GenerateResponseResult struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Generator produces text from a prompt.
type Generator interface {
	GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64) (*GenerateResponseResult, error)
	GetModel() string
}

// Embedder turns text into an embedding vector.
type Embedder interface {
	CreateEmbedding(ctx context.Context, input string) ([]float32, error)
}
