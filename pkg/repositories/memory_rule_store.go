package repositories

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/apperrors"
	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/models"
)

// ruleCache is the in-memory index shared by the memory and object stores.
// It hands out clones so callers cannot mutate stored rules.
type ruleCache struct {
	mu    sync.RWMutex
	rules map[string]*models.SemanticTypeRule
}

func newRuleCache() *ruleCache {
	return &ruleCache{rules: make(map[string]*models.SemanticTypeRule)}
}

func (c *ruleCache) get(name string) (*models.SemanticTypeRule, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.rules[name]
	return r.Clone(), ok
}

func (c *ruleCache) put(rule *models.SemanticTypeRule) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rules[rule.Name] = rule.Clone()
}

func (c *ruleCache) remove(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.rules[name]
	delete(c.rules, name)
	return ok
}

func (c *ruleCache) replaceAll(rules []*models.SemanticTypeRule) {
	next := make(map[string]*models.SemanticTypeRule, len(rules))
	for _, r := range rules {
		next[r.Name] = r.Clone()
	}
	c.mu.Lock()
	c.rules = next
	c.mu.Unlock()
}

func (c *ruleCache) list() []*models.SemanticTypeRule {
	c.mu.RLock()
	out := make([]*models.SemanticTypeRule, 0, len(c.rules))
	for _, r := range c.rules {
		out = append(out, r.Clone())
	}
	c.mu.RUnlock()
	sortByName(out)
	return out
}

type memoryRuleStore struct {
	cache  *ruleCache
	logger *zap.Logger
}

// NewMemoryRuleStore creates a RuleStore that lives only in process memory.
func NewMemoryRuleStore(logger *zap.Logger) RuleStore {
	return &memoryRuleStore{
		cache:  newRuleCache(),
		logger: logger.Named("memory-store"),
	}
}

var _ RuleStore = (*memoryRuleStore)(nil)

func (s *memoryRuleStore) Init(ctx context.Context) error   { return nil }
func (s *memoryRuleStore) Reload(ctx context.Context) error { return nil }
func (s *memoryRuleStore) Close() error                     { return nil }

func (s *memoryRuleStore) Save(ctx context.Context, rule *models.SemanticTypeRule) (*models.SemanticTypeRule, error) {
	if err := checkRule(rule); err != nil {
		return nil, err
	}
	s.cache.mu.Lock()
	defer s.cache.mu.Unlock()
	if _, ok := s.cache.rules[rule.Name]; ok {
		return nil, apperrors.ErrConflict
	}
	s.cache.rules[rule.Name] = rule.Clone()
	return rule.Clone(), nil
}

func (s *memoryRuleStore) Update(ctx context.Context, rule *models.SemanticTypeRule) (*models.SemanticTypeRule, error) {
	if err := checkRule(rule); err != nil {
		return nil, err
	}
	s.cache.mu.Lock()
	defer s.cache.mu.Unlock()
	if _, ok := s.cache.rules[rule.Name]; !ok {
		return nil, apperrors.ErrNotFound
	}
	s.cache.rules[rule.Name] = rule.Clone()
	return rule.Clone(), nil
}

func (s *memoryRuleStore) Get(ctx context.Context, name string) (*models.SemanticTypeRule, error) {
	r, ok := s.cache.get(name)
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return r, nil
}

func (s *memoryRuleStore) Exists(ctx context.Context, name string) (bool, error) {
	_, ok := s.cache.get(name)
	return ok, nil
}

func (s *memoryRuleStore) Delete(ctx context.Context, name string) (bool, error) {
	return s.cache.remove(name), nil
}

func (s *memoryRuleStore) List(ctx context.Context) ([]*models.SemanticTypeRule, error) {
	return s.cache.list(), nil
}
