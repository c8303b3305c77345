package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTableColumns(t *testing.T) {
	db, err := Connect(Config{Driver: DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)

	err = db.Exec("CREATE TABLE rebuild_runs (id TEXT PRIMARY KEY, total INTEGER, started_at DATETIME)").Error
	require.NoError(t, err)

	columns, err := GetTableColumns(db, "rebuild_runs")
	require.NoError(t, err)
	assert.Len(t, columns, 3)

	colMap := make(map[string]string)
	for _, col := range columns {
		colMap[col.Field] = col.Type
	}
	assert.Equal(t, "text", colMap["id"])
	assert.Equal(t, "integer", colMap["total"])
	assert.Equal(t, "datetime", colMap["started_at"])

	// PRAGMA table_info returns no rows for an unknown table.
	cols, err := GetTableColumns(db, "non_existent")
	assert.NoError(t, err)
	assert.Empty(t, cols)
}

func TestMissingColumns(t *testing.T) {
	db, err := Connect(Config{Driver: DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, db.Exec("CREATE TABLE rebuild_tokens (id INTEGER PRIMARY KEY, run_id TEXT, status TEXT)").Error)

	assert.True(t, TableExists(db, "rebuild_tokens"))
	assert.False(t, TableExists(db, "rebuild_runs"))

	missing, err := MissingColumns(db, "rebuild_tokens", []string{"id", "run_id", "Status", "output"})
	require.NoError(t, err)
	assert.Equal(t, []string{"output"}, missing)
}
