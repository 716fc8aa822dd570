//go:build integration

package repositories

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/apperrors"
	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/testhelpers"
)

func setupPostgresRuleStore(t *testing.T) RuleStore {
	t.Helper()

	engineDB := testhelpers.GetEngineDB(t)
	store := NewPostgresRuleStore(engineDB.DB, zap.NewNop())
	ctx := context.Background()
	require.NoError(t, store.Init(ctx))

	_, err := engineDB.DB.Exec(ctx, `DELETE FROM semantic_type_rules`)
	require.NoError(t, err)
	return store
}

func TestPostgresRuleStore_Lifecycle(t *testing.T) {
	store := setupPostgresRuleStore(t)
	ctx := context.Background()

	_, err := store.Save(ctx, testRule("CUSTOM.PG"))
	require.NoError(t, err)

	_, err = store.Save(ctx, testRule("CUSTOM.PG"))
	assert.True(t, errors.Is(err, apperrors.ErrConflict))

	exists, err := store.Exists(ctx, "CUSTOM.PG")
	require.NoError(t, err)
	assert.True(t, exists)

	updated := testRule("CUSTOM.PG")
	updated.FiniteList.Members = []string{"DE", "FR"}
	_, err = store.Update(ctx, updated)
	require.NoError(t, err)

	got, err := store.Get(ctx, "CUSTOM.PG")
	require.NoError(t, err)
	assert.Equal(t, []string{"DE", "FR"}, got.FiniteList.Members)

	removed, err := store.Delete(ctx, "CUSTOM.PG")
	require.NoError(t, err)
	assert.True(t, removed)

	_, err = store.Get(ctx, "CUSTOM.PG")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	_, err = store.Update(ctx, updated)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestPostgresRuleStore_ListOrdersByName(t *testing.T) {
	store := setupPostgresRuleStore(t)
	ctx := context.Background()

	for _, n := range []string{"CUSTOM.Z", "CUSTOM.M", "CUSTOM.A"} {
		_, err := store.Save(ctx, testRule(n))
		require.NoError(t, err)
	}

	rules, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 3)
	assert.Equal(t, "CUSTOM.A", rules[0].Name)
	assert.Equal(t, "CUSTOM.Z", rules[2].Name)
}
