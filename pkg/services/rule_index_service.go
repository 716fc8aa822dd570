package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/index"
	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/llm"
	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/models"
)

const (
	// DefaultSimilarityThreshold is the minimum cosine score FindSimilar
	// accepts when the caller passes none.
	DefaultSimilarityThreshold = 0.35

	indexedExampleCount = 10
)

// RuleIndexService embeds rules so similar semantic types can be found by
// description.
type RuleIndexService interface {
	RuleIndexer

	// FindSimilar returns indexed rules whose score against description is
	// at least threshold, best first. threshold <= 0 uses the configured
	// default and limit <= 0 returns every match.
	FindSimilar(ctx context.Context, description string, threshold float64, limit int) ([]models.SimilarRule, error)
}

type ruleIndexService struct {
	embedder  llm.Embedder
	store     index.VectorStore
	threshold float64
	logger    *zap.Logger
}

// NewRuleIndexService creates a RuleIndexService over a vector store.
func NewRuleIndexService(embedder llm.Embedder, store index.VectorStore, threshold float64, logger *zap.Logger) RuleIndexService {
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}
	return &ruleIndexService{
		embedder:  embedder,
		store:     store,
		threshold: threshold,
		logger:    logger.Named("rule-index"),
	}
}

var _ RuleIndexService = (*ruleIndexService)(nil)

func (s *ruleIndexService) Reindex(ctx context.Context, rule *models.SemanticTypeRule) error {
	if rule == nil || strings.TrimSpace(rule.Name) == "" {
		return fmt.Errorf("rule name is required for indexing")
	}

	vector, err := s.embedder.CreateEmbedding(ctx, embeddingText(rule))
	if err != nil {
		return fmt.Errorf("embed rule %s: %w", rule.Name, err)
	}
	if err := s.store.Upsert(ctx, index.Entry{
		ID:          rule.Name,
		Description: rule.Description,
		Vector:      vector,
	}); err != nil {
		return fmt.Errorf("index rule %s: %w", rule.Name, err)
	}

	s.logger.Debug("Indexed rule",
		zap.String("semantic_type", rule.Name),
		zap.Int("dimensions", len(vector)))
	return nil
}

func (s *ruleIndexService) Remove(ctx context.Context, name string) error {
	removed, err := s.store.Delete(ctx, name)
	if err != nil {
		return fmt.Errorf("remove rule %s from index: %w", name, err)
	}
	if !removed {
		s.logger.Debug("Rule was not indexed", zap.String("semantic_type", name))
	}
	return nil
}

func (s *ruleIndexService) FindSimilar(ctx context.Context, description string, threshold float64, limit int) ([]models.SimilarRule, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, fmt.Errorf("description is required")
	}
	if threshold <= 0 {
		threshold = s.threshold
	}

	query, err := s.embedder.CreateEmbedding(ctx, description)
	if err != nil {
		return nil, fmt.Errorf("embed description: %w", err)
	}
	matches, err := s.store.Search(ctx, query, threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	similar := make([]models.SimilarRule, 0, len(matches))
	for _, m := range matches {
		similar = append(similar, models.SimilarRule{
			SemanticType: m.ID,
			Description:  m.Description,
			Score:        m.Score,
		})
	}
	return similar, nil
}

// embeddingText is the text embedded for a rule.
func embeddingText(rule *models.SemanticTypeRule) string {
	var b strings.Builder
	b.WriteString("Semantic Type: ")
	b.WriteString(rule.Name)
	b.WriteString("\nDescription: ")
	b.WriteString(rule.Description)
	if examples := rule.Examples(indexedExampleCount); len(examples) > 0 {
		b.WriteString("\nExamples: ")
		b.WriteString(strings.Join(examples, ", "))
	}
	return b.String()
}
