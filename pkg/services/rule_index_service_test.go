package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/index"
	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/llm"
	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/models"
)

var embeddingVocabulary = []string{"country", "currency", "color", "code"}

// keywordEmbedder counts vocabulary words so similarity is predictable.
func keywordEmbedder() *llm.MockClient {
	mock := llm.NewMockClient()
	mock.CreateEmbeddingFunc = func(ctx context.Context, input string) ([]float32, error) {
		lower := strings.ToLower(input)
		vec := make([]float32, len(embeddingVocabulary))
		for i, w := range embeddingVocabulary {
			vec[i] = float32(strings.Count(lower, w))
		}
		return vec, nil
	}
	return mock
}

func indexedRule(name, description string, members ...string) *models.SemanticTypeRule {
	return &models.SemanticTypeRule{
		Name:        name,
		Description: description,
		Kind:        models.RuleKindFiniteList,
		FiniteList:  &models.FiniteListPayload{Members: members},
	}
}

func newIndexedService(t *testing.T) (RuleIndexService, *index.MemoryStore) {
	t.Helper()
	store := index.NewMemoryStore()
	svc := NewRuleIndexService(keywordEmbedder(), store, 0, zap.NewNop())

	ctx := context.Background()
	require.NoError(t, svc.Reindex(ctx, indexedRule("CUSTOM.COUNTRY", "Country code", "US", "CA")))
	require.NoError(t, svc.Reindex(ctx, indexedRule("CUSTOM.CURRENCY", "Currency code", "USD", "EUR")))
	require.NoError(t, svc.Reindex(ctx, indexedRule("CUSTOM.PAINT", "Paint color", "RED")))
	return svc, store
}

func TestRuleIndexService_FindSimilar(t *testing.T) {
	svc, _ := newIndexedService(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		threshold float64
		limit     int
		want      []string
	}{
		{"default threshold", 0, 0, []string{"CUSTOM.COUNTRY"}},
		{"lower threshold", 0.3, 0, []string{"CUSTOM.COUNTRY", "CUSTOM.CURRENCY"}},
		{"limit", 0.3, 1, []string{"CUSTOM.COUNTRY"}},
		{"nothing close enough", 0.99, 0, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.FindSimilar(ctx, "country code", tt.threshold, tt.limit)
			require.NoError(t, err)

			names := make([]string, 0, len(got))
			for _, s := range got {
				names = append(names, s.SemanticType)
				assert.GreaterOrEqual(t, s.Score, 0.3)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestRuleIndexService_FindSimilar_ReturnsDescriptions(t *testing.T) {
	svc, _ := newIndexedService(t)

	got, err := svc.FindSimilar(context.Background(), "paint color", 0, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Paint color", got[0].Description)
	assert.InDelta(t, 1.0, got[0].Score, 1e-6)
}

func TestRuleIndexService_Remove(t *testing.T) {
	svc, store := newIndexedService(t)
	ctx := context.Background()

	require.NoError(t, svc.Remove(ctx, "CUSTOM.COUNTRY"))
	assert.Equal(t, 2, store.Len())
	require.NoError(t, svc.Remove(ctx, "CUSTOM.COUNTRY"))

	got, err := svc.FindSimilar(ctx, "country code", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRuleIndexService_ReindexReplaces(t *testing.T) {
	svc, store := newIndexedService(t)
	ctx := context.Background()

	require.NoError(t, svc.Reindex(ctx, indexedRule("CUSTOM.COUNTRY", "Paint color", "RED")))
	assert.Equal(t, 3, store.Len())

	got, err := svc.FindSimilar(ctx, "country code", 0, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "CUSTOM.COUNTRY", got[0].SemanticType)
	assert.Equal(t, "Paint color", got[0].Description)
	assert.InDelta(t, 0.5, got[0].Score, 1e-6)
}

func TestRuleIndexService_Errors(t *testing.T) {
	ctx := context.Background()
	failing := llm.NewMockClient()
	failing.CreateEmbeddingFunc = func(ctx context.Context, input string) ([]float32, error) {
		return nil, errors.New("rate limited")
	}
	svc := NewRuleIndexService(failing, index.NewMemoryStore(), 0, zap.NewNop())

	err := svc.Reindex(ctx, indexedRule("CUSTOM.X", "x", "A"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embed rule CUSTOM.X")

	_, err = svc.FindSimilar(ctx, "anything", 0, 0)
	assert.Error(t, err)

	assert.Error(t, svc.Reindex(ctx, nil))
	assert.Error(t, svc.Reindex(ctx, indexedRule(" ", "x")))

	_, err = svc.FindSimilar(ctx, "  ", 0, 0)
	assert.Error(t, err)
	assert.Equal(t, 2, failing.CreateEmbeddingCalls)
}

func TestEmbeddingText(t *testing.T) {
	members := []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J", "K", "L"}
	rule := indexedRule("CUSTOM.LETTER", "Single letter", members...)

	assert.Equal(t,
		"Semantic Type: CUSTOM.LETTER\nDescription: Single letter\nExamples: A, B, C, D, E, F, G, H, I, J",
		embeddingText(rule))

	regex := &models.SemanticTypeRule{
		Name:        "CUSTOM.CODE",
		Description: "Code",
		Kind:        models.RuleKindRegexSet,
		RegexSet:    &models.RegexSetPayload{Patterns: []string{`[A-Z]{2}`}},
	}
	assert.Equal(t, "Semantic Type: CUSTOM.CODE\nDescription: Code\nExamples: [A-Z]{2}", embeddingText(regex))

	bare := indexedRule("CUSTOM.EMPTY", "Nothing")
	assert.Equal(t, "Semantic Type: CUSTOM.EMPTY\nDescription: Nothing", embeddingText(bare))
}
