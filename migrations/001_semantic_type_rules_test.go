//go:build integration

package migrations

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/testhelpers"
)

// Test_001_SemanticTypeRules verifies the rule table and its constraints.
func Test_001_SemanticTypeRules(t *testing.T) {
	engineDB := testhelpers.GetEngineDB(t)
	ctx := context.Background()

	var dataType string
	err := engineDB.DB.Pool.QueryRow(ctx, `
		SELECT data_type
		FROM information_schema.columns
		WHERE table_name = 'semantic_type_rules' AND column_name = 'definition'`).Scan(&dataType)
	require.NoError(t, err)
	assert.Equal(t, "jsonb", dataType)

	_, err = engineDB.DB.Pool.Exec(ctx, `DELETE FROM semantic_type_rules WHERE name LIKE 'MIGRATION.%'`)
	require.NoError(t, err)

	insert := `
		INSERT INTO semantic_type_rules (id, name, kind, is_built_in, priority, definition)
		VALUES ($1, $2, $3, $4, $5, '{}'::jsonb)`

	_, err = engineDB.DB.Pool.Exec(ctx, insert, uuid.New(), "MIGRATION.LOW", "list", false, 1999)
	assert.Error(t, err, "custom rules below priority 2000 must be rejected")

	_, err = engineDB.DB.Pool.Exec(ctx, insert, uuid.New(), "MIGRATION.BUILTIN", "regex", true, 50)
	assert.NoError(t, err, "built-in rules may keep low priorities")

	_, err = engineDB.DB.Pool.Exec(ctx, insert, uuid.New(), "MIGRATION.BUILTIN", "regex", true, 60)
	assert.Error(t, err, "names must be unique")

	_, err = engineDB.DB.Pool.Exec(ctx, insert, uuid.New(), "MIGRATION.KIND", "python", false, 2000)
	assert.Error(t, err, "unknown kinds must be rejected")

	_, err = engineDB.DB.Pool.Exec(ctx, `DELETE FROM semantic_type_rules WHERE name LIKE 'MIGRATION.%'`)
	require.NoError(t, err)
}
