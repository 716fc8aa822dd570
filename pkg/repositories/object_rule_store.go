package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/apperrors"
	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/logging"
	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/models"
)

// Bucket is the object storage the object rule store writes to.
// Get returns apperrors.ErrNotFound for a missing key.
type Bucket interface {
	Ensure(ctx context.Context) error
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]string, error)
}

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// objectRuleStore keeps one JSON object per rule and serves reads from an
// in-memory copy loaded by Init and Reload.
type objectRuleStore struct {
	bucket Bucket
	prefix string
	cache  *ruleCache
	logger *zap.Logger
}

// NewObjectRuleStore creates a RuleStore over bucket. Rules are stored
// under prefix, one object per rule.
func NewObjectRuleStore(bucket Bucket, prefix string, logger *zap.Logger) RuleStore {
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &objectRuleStore{
		bucket: bucket,
		prefix: prefix,
		cache:  newRuleCache(),
		logger: logger.Named("object-store"),
	}
}

var _ RuleStore = (*objectRuleStore)(nil)

func (s *objectRuleStore) key(name string) string {
	return s.prefix + unsafeKeyChars.ReplaceAllString(name, "_") + ".json"
}

func (s *objectRuleStore) Init(ctx context.Context) error {
	if err := s.bucket.Ensure(ctx); err != nil {
		return fmt.Errorf("ensure bucket: %w", err)
	}
	return s.Reload(ctx)
}

// Reload replaces the in-memory copy with the bucket contents. Objects that
// fail to decode are logged and skipped.
func (s *objectRuleStore) Reload(ctx context.Context) error {
	keys, err := s.bucket.List(ctx, s.prefix)
	if err != nil {
		return fmt.Errorf("list rules: %w", err)
	}

	rules := make([]*models.SemanticTypeRule, 0, len(keys))
	for _, key := range keys {
		if !strings.HasSuffix(key, ".json") {
			continue
		}
		data, err := s.bucket.Get(ctx, key)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				continue
			}
			return fmt.Errorf("read rule %s: %w", key, err)
		}
		var rule models.SemanticTypeRule
		if err := json.Unmarshal(data, &rule); err != nil || rule.Name == "" {
			s.logger.Warn("Skipping unreadable rule object", zap.String("key", key), zap.Error(err))
			continue
		}
		rules = append(rules, &rule)
	}

	s.cache.replaceAll(rules)
	s.logger.Info("Loaded rules from object storage", zap.Int("count", len(rules)))
	return nil
}

func (s *objectRuleStore) Close() error {
	s.cache.replaceAll(nil)
	return nil
}

func (s *objectRuleStore) write(ctx context.Context, rule *models.SemanticTypeRule) error {
	data, err := json.MarshalIndent(rule, "", "  ")
	if err != nil {
		return fmt.Errorf("encode rule: %w", err)
	}
	if err := s.bucket.Put(ctx, s.key(rule.Name), data); err != nil {
		s.logger.Error("Failed to write rule object",
			zap.String("semantic_type", rule.Name),
			zap.String("error", logging.SanitizeError(err)))
		return fmt.Errorf("write rule: %w", err)
	}
	s.cache.put(rule)
	return nil
}

func (s *objectRuleStore) Save(ctx context.Context, rule *models.SemanticTypeRule) (*models.SemanticTypeRule, error) {
	if err := checkRule(rule); err != nil {
		return nil, err
	}
	if _, ok := s.cache.get(rule.Name); ok {
		return nil, apperrors.ErrConflict
	}
	if err := s.write(ctx, rule); err != nil {
		return nil, err
	}
	return rule.Clone(), nil
}

func (s *objectRuleStore) Update(ctx context.Context, rule *models.SemanticTypeRule) (*models.SemanticTypeRule, error) {
	if err := checkRule(rule); err != nil {
		return nil, err
	}
	if _, ok := s.cache.get(rule.Name); !ok {
		return nil, apperrors.ErrNotFound
	}
	if err := s.write(ctx, rule); err != nil {
		return nil, err
	}
	return rule.Clone(), nil
}

func (s *objectRuleStore) Get(ctx context.Context, name string) (*models.SemanticTypeRule, error) {
	r, ok := s.cache.get(name)
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return r, nil
}

func (s *objectRuleStore) Exists(ctx context.Context, name string) (bool, error) {
	_, ok := s.cache.get(name)
	return ok, nil
}

func (s *objectRuleStore) Delete(ctx context.Context, name string) (bool, error) {
	if _, ok := s.cache.get(name); !ok {
		return false, nil
	}
	if err := s.bucket.Delete(ctx, s.key(name)); err != nil {
		return false, fmt.Errorf("delete rule: %w", err)
	}
	return s.cache.remove(name), nil
}

func (s *objectRuleStore) List(ctx context.Context) ([]*models.SemanticTypeRule, error) {
	return s.cache.list(), nil
}
