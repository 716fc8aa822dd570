// Package database opens the PostgreSQL pool behind the SQL rule store and
// applies its migrations.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/retry"
)

// Pool settings used when Config leaves them zero.
const (
	DefaultMaxConnections  = 10
	DefaultMaxConnLifetime = time.Hour
	DefaultMaxConnIdleTime = 30 * time.Minute
)

// DB is a pgx pool shared by the rule store and the column sampler.
type DB struct {
	*pgxpool.Pool
}

// Config describes one pool.
type Config struct {
	URL             string
	MaxConnections  int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration

	// Retry governs the initial ping; nil pings once.
	Retry *retry.Config
}

func (c *Config) pool() (*pgxpool.Config, error) {
	pc, err := pgxpool.ParseConfig(c.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	pc.MaxConns = orDefault(c.MaxConnections, DefaultMaxConnections)
	pc.MaxConnLifetime = orDefault(c.MaxConnLifetime, DefaultMaxConnLifetime)
	pc.MaxConnIdleTime = orDefault(c.MaxConnIdleTime, DefaultMaxConnIdleTime)
	return pc, nil
}

func orDefault[T int32 | time.Duration](v, def T) T {
	if v <= 0 {
		return def
	}
	return v
}

// NewConnection opens a pool and pings it. With cfg.Retry set, transient
// ping failures (server still starting, connection refused) are retried.
func NewConnection(ctx context.Context, cfg *Config) (*DB, error) {
	pc, err := cfg.pool()
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	ping := func() error { return pool.Ping(ctx) }
	if cfg.Retry != nil {
		err = retry.DoIfRetryable(ctx, cfg.Retry, ping)
	} else {
		err = ping()
	}
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &DB{Pool: pool}, nil
}

// StdDB returns a database/sql handle over the same pool, for libraries
// that need one. Closing the handle leaves the pool open.
func (db *DB) StdDB() *sql.DB {
	return stdlib.OpenDBFromPool(db.Pool)
}

func (db *DB) Close() {
	db.Pool.Close()
}
