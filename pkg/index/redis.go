package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/logging"
)

// RedisCommands is the subset of the go-redis client the index uses.
// *redis.Client satisfies it.
type RedisCommands interface {
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	SAdd(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
	SRem(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
	SMembers(ctx context.Context, key string) *redis.StringSliceCmd
}

var _ RedisCommands = (*redis.Client)(nil)

// RedisStore keeps each entry in a hash under "<prefix>:<id>" and the set
// of ids under "<prefix>:ids". Search scores every entry client-side.
type RedisStore struct {
	client RedisCommands
	prefix string
	logger *zap.Logger
}

// NewRedisStore creates a RedisStore using keys under prefix.
func NewRedisStore(client RedisCommands, prefix string, logger *zap.Logger) *RedisStore {
	if prefix == "" {
		prefix = "semantic_type"
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
		logger: logger.Named("redis-index"),
	}
}

var _ VectorStore = (*RedisStore)(nil)

func (s *RedisStore) entryKey(id string) string { return s.prefix + ":" + id }
func (s *RedisStore) idsKey() string            { return s.prefix + ":ids" }

func (s *RedisStore) Upsert(ctx context.Context, entry Entry) error {
	vec, err := json.Marshal(entry.Vector)
	if err != nil {
		return fmt.Errorf("encode vector: %w", err)
	}
	if err := s.client.HSet(ctx, s.entryKey(entry.ID),
		"id", entry.ID,
		"description", entry.Description,
		"vector", string(vec),
	).Err(); err != nil {
		return fmt.Errorf("store entry %s: %w", entry.ID, err)
	}
	if err := s.client.SAdd(ctx, s.idsKey(), entry.ID).Err(); err != nil {
		return fmt.Errorf("register entry %s: %w", entry.ID, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) (bool, error) {
	removed, err := s.client.Del(ctx, s.entryKey(id)).Result()
	if err != nil {
		return false, fmt.Errorf("delete entry %s: %w", id, err)
	}
	if err := s.client.SRem(ctx, s.idsKey(), id).Err(); err != nil {
		return false, fmt.Errorf("unregister entry %s: %w", id, err)
	}
	return removed > 0, nil
}

func (s *RedisStore) Search(ctx context.Context, query Vector, minScore float64, limit int) ([]Match, error) {
	ids, err := s.client.SMembers(ctx, s.idsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}

	entries := make([]Entry, 0, len(ids))
	for _, id := range ids {
		fields, err := s.client.HGetAll(ctx, s.entryKey(id)).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, fmt.Errorf("read entry %s: %w", id, err)
		}
		if len(fields) == 0 {
			// Set member without a hash: left behind by a partial delete.
			continue
		}
		var vec Vector
		if err := json.Unmarshal([]byte(fields["vector"]), &vec); err != nil {
			s.logger.Warn("Skipping entry with unreadable vector",
				zap.String("semantic_type", id),
				zap.String("error", logging.SanitizeError(err)))
			continue
		}
		entries = append(entries, Entry{ID: id, Description: fields["description"], Vector: vec})
	}
	return rank(entries, query, minScore, limit), nil
}
