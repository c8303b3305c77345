// Package database handles database connections and schema inspection.
//
// It wraps GORM and configures either a MySQL or a SQLite connection from
// the application's configuration. The database only backs the optional
// rebuild run history.
//
// # Schema Inspection
//
// GetTableColumns, TableExists and MissingColumns let the integrity feature
// verify that the history tables match the expected models.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    logg.Warn("Run history disabled", zap.Error(err))
//	}
//
//	missing, err := database.MissingColumns(db, "rebuild_runs", []string{"id", "status"})
package database
