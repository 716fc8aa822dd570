package index

import (
	"context"
	"slices"
	"sync"
)

// MemoryStore is a VectorStore held in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

var _ VectorStore = (*MemoryStore)(nil)

func (s *MemoryStore) Upsert(ctx context.Context, entry Entry) error {
	entry.Vector = slices.Clone(entry.Vector)
	s.mu.Lock()
	s.entries[entry.ID] = entry
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[id]
	delete(s.entries, id)
	return ok, nil
}

func (s *MemoryStore) Search(ctx context.Context, query Vector, minScore float64, limit int) ([]Match, error) {
	s.mu.RLock()
	entries := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	s.mu.RUnlock()
	return rank(entries, query, minScore, limit), nil
}

// Len returns the number of indexed entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
