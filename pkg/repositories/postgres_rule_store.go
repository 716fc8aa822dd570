package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/apperrors"
	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/database"
	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/models"
)

// postgresRuleStore keeps rules in the semantic_type_rules table. The full
// rule is stored as JSONB; name, kind, built-in flag and priority are also
// columns so they can be filtered without decoding.
type postgresRuleStore struct {
	db     *database.DB
	logger *zap.Logger
}

// NewPostgresRuleStore creates a RuleStore backed by PostgreSQL.
func NewPostgresRuleStore(db *database.DB, logger *zap.Logger) RuleStore {
	return &postgresRuleStore{
		db:     db,
		logger: logger.Named("postgres-store"),
	}
}

var _ RuleStore = (*postgresRuleStore)(nil)

func (s *postgresRuleStore) Init(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping rule store: %w", err)
	}
	return nil
}

// Reload is a no-op: every read goes to the database.
func (s *postgresRuleStore) Reload(ctx context.Context) error { return nil }

// Close leaves the pool open; it is owned by whoever created it.
func (s *postgresRuleStore) Close() error { return nil }

func (s *postgresRuleStore) Save(ctx context.Context, rule *models.SemanticTypeRule) (*models.SemanticTypeRule, error) {
	if err := checkRule(rule); err != nil {
		return nil, err
	}
	definition, err := json.Marshal(rule)
	if err != nil {
		return nil, fmt.Errorf("failed to encode rule: %w", err)
	}

	query := `
		INSERT INTO semantic_type_rules (id, name, kind, is_built_in, priority, definition, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())`

	_, err = s.db.Exec(ctx, query,
		uuid.New(),
		rule.Name,
		string(rule.Kind),
		rule.IsBuiltIn,
		rule.Priority,
		definition,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, apperrors.ErrConflict
		}
		return nil, fmt.Errorf("failed to save rule: %w", err)
	}

	s.logger.Debug("Saved rule", zap.String("semantic_type", rule.Name))
	return rule.Clone(), nil
}

func (s *postgresRuleStore) Update(ctx context.Context, rule *models.SemanticTypeRule) (*models.SemanticTypeRule, error) {
	if err := checkRule(rule); err != nil {
		return nil, err
	}
	definition, err := json.Marshal(rule)
	if err != nil {
		return nil, fmt.Errorf("failed to encode rule: %w", err)
	}

	query := `
		UPDATE semantic_type_rules
		SET kind = $2, is_built_in = $3, priority = $4, definition = $5, updated_at = NOW()
		WHERE name = $1`

	tag, err := s.db.Exec(ctx, query,
		rule.Name,
		string(rule.Kind),
		rule.IsBuiltIn,
		rule.Priority,
		definition,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, apperrors.ErrNotFound
	}
	return rule.Clone(), nil
}

func (s *postgresRuleStore) Get(ctx context.Context, name string) (*models.SemanticTypeRule, error) {
	query := `SELECT definition FROM semantic_type_rules WHERE name = $1`

	var definition []byte
	if err := s.db.QueryRow(ctx, query, name).Scan(&definition); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}
	return decodeRule(definition)
}

func (s *postgresRuleStore) Exists(ctx context.Context, name string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM semantic_type_rules WHERE name = $1)`

	var exists bool
	if err := s.db.QueryRow(ctx, query, name).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check rule: %w", err)
	}
	return exists, nil
}

func (s *postgresRuleStore) Delete(ctx context.Context, name string) (bool, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM semantic_type_rules WHERE name = $1`, name)
	if err != nil {
		return false, fmt.Errorf("failed to delete rule: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *postgresRuleStore) List(ctx context.Context) ([]*models.SemanticTypeRule, error) {
	rows, err := s.db.Query(ctx, `SELECT definition FROM semantic_type_rules ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()

	var rules []*models.SemanticTypeRule
	for rows.Next() {
		var definition []byte
		if err := rows.Scan(&definition); err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rule, err := decodeRule(definition)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rules: %w", err)
	}
	return rules, nil
}

func decodeRule(definition []byte) (*models.SemanticTypeRule, error) {
	var rule models.SemanticTypeRule
	if err := json.Unmarshal(definition, &rule); err != nil {
		return nil, fmt.Errorf("failed to decode rule: %w", err)
	}
	return &rule, nil
}
