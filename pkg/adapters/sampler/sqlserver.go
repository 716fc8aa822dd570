package sampler

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/microsoft/go-mssqldb" // SQL Server driver
	"go.uber.org/zap"

	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/logging"
	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/retry"
)

// SQLServerSampler samples columns from SQL Server.
type SQLServerSampler struct {
	db     *sql.DB
	logger *zap.Logger
}

// OpenSQLServerSampler connects with a sqlserver:// URL, retrying the
// initial ping on transient failures.
func OpenSQLServerSampler(ctx context.Context, connStr string, logger *zap.Logger) (*SQLServerSampler, error) {
	logger = logger.Named("sqlserver-sampler")

	db, err := sql.Open("sqlserver", connStr)
	if err != nil {
		return nil, fmt.Errorf("open sql server connection: %w", err)
	}
	db.SetMaxOpenConns(2)

	if err := retry.DoIfRetryable(ctx, retry.DefaultConfig(), func() error {
		return db.PingContext(ctx)
	}); err != nil {
		_ = db.Close()
		logger.Error("Failed to connect to SQL Server",
			zap.String("dsn", logging.SanitizeConnectionString(connStr)),
			zap.String("error", logging.SanitizeError(err)))
		return nil, fmt.Errorf("ping sql server: %w", err)
	}

	return NewSQLServerSampler(db, logger), nil
}

// NewSQLServerSampler wraps an open handle; Close closes it.
func NewSQLServerSampler(db *sql.DB, logger *zap.Logger) *SQLServerSampler {
	return &SQLServerSampler{db: db, logger: logger}
}

var _ Sampler = (*SQLServerSampler)(nil)

// Sample returns up to limit non-null values of ref as NVARCHAR. Schema
// defaults to dbo.
func (s *SQLServerSampler) Sample(ctx context.Context, ref ColumnRef, limit int) ([]string, error) {
	if err := CheckIdentifiers(ref); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, sqlServerSampleQuery(ref, effectiveLimit(limit)))
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
	return values, nil
}

func (s *SQLServerSampler) Close() error {
	return s.db.Close()
}

func sqlServerSampleQuery(ref ColumnRef, limit int) string {
	schema := ref.Schema
	if schema == "" {
		schema = "dbo"
	}
	col := quoteName(ref.Column)
	return fmt.Sprintf(`
	SET NOCOUNT ON;
	SELECT TOP (%d) CAST(%s AS NVARCHAR(MAX)) AS val
	FROM %s.%s WITH (NOLOCK)
	WHERE %s IS NOT NULL`,
		limit, col, quoteName(schema), quoteName(ref.Table), col)
}

// quoteName brackets an identifier the way QUOTENAME does.
func quoteName(identifier string) string {
	return "[" + strings.ReplaceAll(identifier, "]", "]]") + "]"
}
