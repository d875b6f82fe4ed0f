package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/utils/tests"

	"github.com/chisomudeze/marketa/models"
)

func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(tests.DummyDialector{}, &gorm.Config{DryRun: true})
	require.NoError(t, err)
	return gdb
}

func TestConversationScopeFiltersByItem(t *testing.T) {
	gdb := dryRunDB(t)
	key := models.NewConversationKey(2, 1, 42)

	stmt := gdb.Scopes(conversationScope(key)).Find(&[]models.Message{}).Statement

	assert.Contains(t, stmt.SQL.String(), "item_id = ?")
	assert.Contains(t, stmt.Vars, uint(42))
	assert.Contains(t, stmt.Vars, uint(1))
	assert.Contains(t, stmt.Vars, uint(2))
}

func TestConversationScopeMatchesNulledItem(t *testing.T) {
	gdb := dryRunDB(t)
	// A deleted listing nulls item_id on its messages; those group under a
	// zero item key and must match IS NULL, never item_id = 0.
	key := models.NewConversationKey(1, 2, 0)

	stmt := gdb.Scopes(conversationScope(key)).Find(&[]models.Message{}).Statement

	sql := stmt.SQL.String()
	assert.Contains(t, sql, "item_id IS NULL")
	assert.NotContains(t, sql, "item_id = ?")
}
