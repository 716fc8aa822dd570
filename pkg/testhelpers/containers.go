// Package testhelpers starts the PostgreSQL container shared by
// integration tests.
package testhelpers

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/database"
	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/retry"
)

const (
	// PostgresImage is the image of the shared container.
	PostgresImage = "postgres:16-alpine"

	testDatabase = "semantic_types_test"
	testUser     = "rules"
	testPassword = "test_password"
)

// TestDB is a running container and a pool connected to it.
type TestDB struct {
	Container testcontainers.Container
	DB        *database.DB
	ConnStr   string
}

// shared starts a fixture once per test binary and hands every caller the
// same value or the same error.
type shared[T any] struct {
	once  sync.Once
	value T
	err   error
}

func (s *shared[T]) get(t *testing.T, start func() (T, error)) T {
	t.Helper()
	s.once.Do(func() { s.value, s.err = start() })
	if s.err != nil {
		t.Fatalf("Failed to set up test database: %v", s.err)
	}
	return s.value
}

var (
	rawDB    shared[*TestDB]
	engineDB shared[*TestDB]
)

// GetTestDB returns the shared container without the rule store schema.
// Tests are skipped in -short mode since Docker is required.
func GetTestDB(t *testing.T) *TestDB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}
	return rawDB.get(t, startPostgres)
}

// GetEngineDB returns the shared container with migrations applied.
func GetEngineDB(t *testing.T) *TestDB {
	t.Helper()
	db := GetTestDB(t)
	return engineDB.get(t, func() (*TestDB, error) {
		if err := database.Migrate(db.DB, MigrationsPath(), zap.NewNop()); err != nil {
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
		return db, nil
	})
}

func startPostgres() (*TestDB, error) {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        PostgresImage,
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_DB":       testDatabase,
				"POSTGRES_USER":     testUser,
				"POSTGRES_PASSWORD": testPassword,
			},
			// The init server logs readiness first, then the real one.
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return nil, fmt.Errorf("start container: %w", err)
	}

	endpoint, err := container.PortEndpoint(ctx, "5432/tcp", "")
	if err != nil {
		return nil, fmt.Errorf("resolve container endpoint: %w", err)
	}
	connStr := fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=disable", testUser, testPassword, endpoint, testDatabase)

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            connStr,
		MaxConnections: 5,
		Retry:          retry.DefaultConfig(),
	})
	if err != nil {
		return nil, err
	}
	return &TestDB{Container: container, DB: db, ConnStr: connStr}, nil
}

// MigrationsPath is the repository's migrations directory, resolved from
// this file so tests may run from any package.
func MigrationsPath() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "migrations")
}
