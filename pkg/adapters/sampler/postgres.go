package sampler

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/database"
	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/retry"
)

// PostgresSampler samples columns from a PostgreSQL database.
type PostgresSampler struct {
	db     *database.DB
	owned  bool
	logger *zap.Logger
}

// NewPostgresSampler samples through an existing pool. Close leaves the
// pool open.
func NewPostgresSampler(db *database.DB, logger *zap.Logger) *PostgresSampler {
	return &PostgresSampler{db: db, logger: logger.Named("postgres-sampler")}
}

// OpenPostgresSampler connects to url and owns the resulting pool.
func OpenPostgresSampler(ctx context.Context, url string, logger *zap.Logger) (*PostgresSampler, error) {
	db, err := database.NewConnection(ctx, &database.Config{
		URL:            url,
		MaxConnections: 2,
		Retry:          retry.DefaultConfig(),
	})
	if err != nil {
		return nil, err
	}
	s := NewPostgresSampler(db, logger)
	s.owned = true
	return s, nil
}

var _ Sampler = (*PostgresSampler)(nil)

// Sample returns up to limit non-null values of ref cast to text, in
// storage order. Duplicates are kept so frequencies survive.
func (s *PostgresSampler) Sample(ctx context.Context, ref ColumnRef, limit int) ([]string, error) {
	if err := CheckIdentifiers(ref); err != nil {
		return nil, err
	}

	table := pgx.Identifier{ref.Table}
	if ref.Schema != "" {
		table = pgx.Identifier{ref.Schema, ref.Table}
	}
	col := pgx.Identifier{ref.Column}.Sanitize()

	query := fmt.Sprintf(`
		SELECT %s::text
		FROM %s
		WHERE %s IS NOT NULL
		LIMIT $1`, col, table.Sanitize(), col)

	rows, err := s.db.Query(ctx, query, effectiveLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("sample %s: %w", ref, err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan sampled value: %w", err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sampled values: %w", err)
	}

	s.logger.Debug("Sampled column", zap.String("column", ref.String()), zap.Int("values", len(values)))
	return values, nil
}

func (s *PostgresSampler) Close() error {
	if s.owned {
		s.db.Close()
	}
	return nil
}
