// Package index stores rule embeddings for similarity lookup.
package index

import (
	"context"
	"math"
	"sort"
)

// Vector is a float32 embedding vector.
type Vector = []float32

// Entry is one indexed rule.
type Entry struct {
	ID          string
	Description string
	Vector      Vector
}

// Match is an entry scored against a query vector.
type Match struct {
	ID          string
	Description string
	Score       float64
}

// VectorStore holds embeddings keyed by rule name.
type VectorStore interface {
	Upsert(ctx context.Context, entry Entry) error
	// Delete reports whether an entry was removed.
	Delete(ctx context.Context, id string) (bool, error)
	// Search returns entries with score >= minScore, best first, at most
	// limit of them (all when limit <= 0).
	Search(ctx context.Context, query Vector, minScore float64, limit int) ([]Match, error)
}

// CosineSimilarity computes cosine similarity between two vectors.
// Mismatched or zero vectors score 0.
func CosineSimilarity(a, b Vector) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// rank scores entries against query and applies the threshold and limit.
// Equal scores are ordered by ID.
func rank(entries []Entry, query Vector, minScore float64, limit int) []Match {
	matches := make([]Match, 0, len(entries))
	for _, e := range entries {
		score := CosineSimilarity(query, e.Vector)
		if score < minScore {
			continue
		}
		matches = append(matches, Match{ID: e.ID, Description: e.Description, Score: score})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}
