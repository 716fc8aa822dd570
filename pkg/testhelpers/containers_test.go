//go:build integration

package testhelpers

import (
	"context"
	"os"
	"testing"
)

func TestMigrationsPath_Exists(t *testing.T) {
	info, err := os.Stat(MigrationsPath())
	if err != nil {
		t.Fatalf("migrations directory not found: %v", err)
	}
	if !info.IsDir() {
		t.Fatalf("%s is not a directory", MigrationsPath())
	}
}

func TestEngineDB_HasRuleTable(t *testing.T) {
	engineDB := GetEngineDB(t)

	var exists bool
	err := engineDB.DB.QueryRow(context.Background(), `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = 'public' AND table_name = 'semantic_type_rules'
		)`).Scan(&exists)
	if err != nil {
		t.Fatalf("failed to query information_schema: %v", err)
	}
	if !exists {
		t.Error("expected semantic_type_rules table after migrations")
	}
}
