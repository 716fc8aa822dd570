package index

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeRedis implements RedisCommands over maps.
type fakeRedis struct {
	hashes  map[string]map[string]string
	sets    map[string]map[string]bool
	failGet error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{
		hashes: make(map[string]map[string]string),
		sets:   make(map[string]map[string]bool),
	}
}

func (f *fakeRedis) HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	h, ok := f.hashes[key]
	if !ok {
		h = make(map[string]string)
		f.hashes[key] = h
	}
	for i := 0; i+1 < len(values); i += 2 {
		h[values[i].(string)] = values[i+1].(string)
	}
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(int64(len(values) / 2))
	return cmd
}

func (f *fakeRedis) HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd {
	cmd := redis.NewMapStringStringCmd(ctx)
	if f.failGet != nil {
		cmd.SetErr(f.failGet)
		return cmd
	}
	out := make(map[string]string)
	for k, v := range f.hashes[key] {
		out[k] = v
	}
	cmd.SetVal(out)
	return cmd
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := f.hashes[k]; ok {
			delete(f.hashes, k)
			n++
		}
	}
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(n)
	return cmd
}

func (f *fakeRedis) SAdd(ctx context.Context, key string, members ...interface{}) *redis.IntCmd {
	s, ok := f.sets[key]
	if !ok {
		s = make(map[string]bool)
		f.sets[key] = s
	}
	for _, m := range members {
		s[m.(string)] = true
	}
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(int64(len(members)))
	return cmd
}

func (f *fakeRedis) SRem(ctx context.Context, key string, members ...interface{}) *redis.IntCmd {
	for _, m := range members {
		delete(f.sets[key], m.(string))
	}
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(int64(len(members)))
	return cmd
}

func (f *fakeRedis) SMembers(ctx context.Context, key string) *redis.StringSliceCmd {
	var out []string
	for m := range f.sets[key] {
		out = append(out, m)
	}
	sort.Strings(out)
	cmd := redis.NewStringSliceCmd(ctx)
	cmd.SetVal(out)
	return cmd
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b Vector
		want float64
	}{
		{"identical", Vector{1, 2, 3}, Vector{1, 2, 3}, 1},
		{"orthogonal", Vector{1, 0}, Vector{0, 1}, 0},
		{"opposite", Vector{1, 0}, Vector{-1, 0}, -1},
		{"length mismatch", Vector{1, 2}, Vector{1, 2, 3}, 0},
		{"empty", Vector{}, Vector{}, 0},
		{"zero vector", Vector{0, 0}, Vector{1, 1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CosineSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}

func storesUnderTest() map[string]VectorStore {
	return map[string]VectorStore{
		"memory": NewMemoryStore(),
		"redis":  NewRedisStore(newFakeRedis(), "test", zap.NewNop()),
	}
}

func TestVectorStore_SearchRanksAndFilters(t *testing.T) {
	for name, store := range storesUnderTest() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Upsert(ctx, Entry{ID: "CUSTOM.COUNTRY", Description: "country codes", Vector: Vector{1, 0, 0}}))
			require.NoError(t, store.Upsert(ctx, Entry{ID: "CUSTOM.REGION", Description: "regions", Vector: Vector{0.8, 0.6, 0}}))
			require.NoError(t, store.Upsert(ctx, Entry{ID: "CUSTOM.AMOUNT", Description: "amounts", Vector: Vector{0, 0, 1}}))

			matches, err := store.Search(ctx, Vector{1, 0, 0}, 0.35, 10)
			require.NoError(t, err)
			require.Len(t, matches, 2)
			assert.Equal(t, "CUSTOM.COUNTRY", matches[0].ID)
			assert.Equal(t, "country codes", matches[0].Description)
			assert.InDelta(t, 1.0, matches[0].Score, 1e-6)
			assert.Equal(t, "CUSTOM.REGION", matches[1].ID)
			assert.InDelta(t, 0.8, matches[1].Score, 1e-6)

			limited, err := store.Search(ctx, Vector{1, 0, 0}, 0, 1)
			require.NoError(t, err)
			require.Len(t, limited, 1)
			assert.Equal(t, "CUSTOM.COUNTRY", limited[0].ID)
		})
	}
}

func TestVectorStore_UpsertReplacesAndDeleteRemoves(t *testing.T) {
	for name, store := range storesUnderTest() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Upsert(ctx, Entry{ID: "CUSTOM.X", Vector: Vector{1, 0}}))
			require.NoError(t, store.Upsert(ctx, Entry{ID: "CUSTOM.X", Vector: Vector{0, 1}}))

			matches, err := store.Search(ctx, Vector{0, 1}, 0.9, 0)
			require.NoError(t, err)
			require.Len(t, matches, 1)

			removed, err := store.Delete(ctx, "CUSTOM.X")
			require.NoError(t, err)
			assert.True(t, removed)

			removed, err = store.Delete(ctx, "CUSTOM.X")
			require.NoError(t, err)
			assert.False(t, removed)

			matches, err = store.Search(ctx, Vector{0, 1}, 0, 0)
			require.NoError(t, err)
			assert.Empty(t, matches)
		})
	}
}

func TestRedisStore_SkipsOrphansAndBadVectors(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedis()
	store := NewRedisStore(fake, "", zap.NewNop())

	require.NoError(t, store.Upsert(ctx, Entry{ID: "CUSTOM.OK", Vector: Vector{1, 1}}))
	fake.sets["semantic_type:ids"]["CUSTOM.ORPHAN"] = true
	fake.hashes["semantic_type:CUSTOM.BAD"] = map[string]string{"vector": "not-json"}
	fake.sets["semantic_type:ids"]["CUSTOM.BAD"] = true

	matches, err := store.Search(ctx, Vector{1, 1}, 0, 0)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "CUSTOM.OK", matches[0].ID)
}

func TestRedisStore_SearchPropagatesErrors(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedis()
	store := NewRedisStore(fake, "p", zap.NewNop())
	require.NoError(t, store.Upsert(ctx, Entry{ID: "CUSTOM.A", Vector: Vector{1}}))

	fake.failGet = errors.New("connection reset")
	_, err := store.Search(ctx, Vector{1}, 0, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestMemoryStore_CopiesVectors(t *testing.T) {
	store := NewMemoryStore()
	vec := Vector{1, 0}
	require.NoError(t, store.Upsert(context.Background(), Entry{ID: "A", Vector: vec}))
	vec[0] = 0
	vec[1] = 1

	matches, err := store.Search(context.Background(), Vector{1, 0}, 0.99, 0)
	require.NoError(t, err)
	assert.Len(t, matches, 1)
	assert.Equal(t, 1, store.Len())
}
