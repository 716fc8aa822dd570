package repositories

import (
	"context"
	"slices"
	"strings"

	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/apperrors"
	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/models"
)

// RuleStore persists rules by unique name. Callers own the lifecycle:
// Init before use, Reload to pick up external changes, Close when done.
type RuleStore interface {
	Init(ctx context.Context) error
	Reload(ctx context.Context) error
	Close() error

	// Save creates a rule; apperrors.ErrConflict if the name is taken.
	Save(ctx context.Context, rule *models.SemanticTypeRule) (*models.SemanticTypeRule, error)
	// Update replaces a rule; apperrors.ErrNotFound if it does not exist.
	Update(ctx context.Context, rule *models.SemanticTypeRule) (*models.SemanticTypeRule, error)
	Get(ctx context.Context, name string) (*models.SemanticTypeRule, error)
	Exists(ctx context.Context, name string) (bool, error)
	// Delete reports whether a rule was removed.
	Delete(ctx context.Context, name string) (bool, error)
	// List returns all rules ordered by name.
	List(ctx context.Context) ([]*models.SemanticTypeRule, error)
}

func checkRule(rule *models.SemanticTypeRule) error {
	if rule == nil {
		return apperrors.NewRuleError("", "rule is required")
	}
	if strings.TrimSpace(rule.Name) == "" {
		return apperrors.NewRuleError("", "semantic type name is required")
	}
	return nil
}

func sortByName(rules []*models.SemanticTypeRule) {
	slices.SortFunc(rules, func(a, b *models.SemanticTypeRule) int {
		return strings.Compare(a.Name, b.Name)
	})
}
