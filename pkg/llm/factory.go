package llm

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/config"
	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/retry"
)

// NewGenerator builds the draft generator for the configured provider.
func NewGenerator(cfg config.LLMConfig, logger *zap.Logger) (Generator, error) {
	switch cfg.Provider {
	case "", "openai":
		return NewOpenAIClient(OpenAIConfig{
			BaseURL:        cfg.BaseURL,
			Model:          cfg.Model,
			EmbeddingModel: cfg.EmbeddingModel,
			APIKey:         cfg.APIKey,
			Retry:          retry.DefaultConfig(),
		}, logger), nil
	case "anthropic":
		return NewAnthropicClient(AnthropicConfig{
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			APIKey:  cfg.APIKey,
			Retry:   retry.DefaultConfig(),
		}, logger), nil
	}
	return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
}

// NewEmbedder builds the embedding client. Embeddings always use the
// OpenAI-compatible API; with the anthropic provider the base URL is
// ignored so the public OpenAI endpoint serves them.
func NewEmbedder(cfg config.LLMConfig, logger *zap.Logger) Embedder {
	baseURL := cfg.BaseURL
	if cfg.Provider == "anthropic" {
		baseURL = ""
	}
	return NewOpenAIClient(OpenAIConfig{
		BaseURL:        baseURL,
		EmbeddingModel: cfg.EmbeddingModel,
		APIKey:         cfg.EmbeddingAPIKey,
		Retry:          retry.DefaultConfig(),
	}, logger)
}
