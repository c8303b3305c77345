package checks

import (
	"testing"

	"regen/core/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)
	return db
}

var wantTables = map[string][]string{
	"runs":   {"id", "status", "total"},
	"tokens": {"id", "run_id"},
}

func TestCheckSchema_NilDB(t *testing.T) {
	report, err := CheckSchema(nil, wantTables)
	assert.Error(t, err)
	assert.Nil(t, report)
}

func TestCheckSchema_Matched(t *testing.T) {
	db := setupDB(t)
	require.NoError(t, db.Exec("CREATE TABLE runs (id TEXT PRIMARY KEY, status TEXT, total INTEGER)").Error)
	require.NoError(t, db.Exec("CREATE TABLE tokens (id INTEGER PRIMARY KEY, run_id TEXT, extra TEXT)").Error)

	report, err := CheckSchema(db, wantTables)
	require.NoError(t, err)
	assert.True(t, report.Matched)
	assert.Equal(t, "ok", report.Tables["runs"].Status)
	assert.Equal(t, "ok", report.Tables["tokens"].Status)
}

func TestCheckSchema_MissingColumnsAndTables(t *testing.T) {
	db := setupDB(t)
	require.NoError(t, db.Exec("CREATE TABLE runs (id TEXT PRIMARY KEY, status TEXT)").Error)

	report, err := CheckSchema(db, wantTables)
	require.NoError(t, err)
	assert.False(t, report.Matched)

	runs := report.Tables["runs"]
	assert.True(t, runs.Exists)
	assert.Equal(t, "error", runs.Status)
	assert.Equal(t, []string{"total"}, runs.MissingColumns)

	tokens := report.Tables["tokens"]
	assert.False(t, tokens.Exists)
	assert.Equal(t, []string{"id", "run_id"}, tokens.MissingColumns)
}
