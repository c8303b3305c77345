package checks

import (
	"fmt"
	"sort"

	"regen/core/database"

	"gorm.io/gorm"
)

// SchemaReport strictly types the result of a history schema check.
type SchemaReport struct {
	Matched bool                   `json:"matched"`
	Tables  map[string]TableReport `json:"tables"`
	Errors  []string               `json:"errors"`
}

type TableReport struct {
	Exists         bool     `json:"exists"`
	MissingColumns []string `json:"missing_columns"`
	Status         string   `json:"status"` // "ok", "error"
}

// CheckSchema verifies that every table in want exists with its columns.
func CheckSchema(db *gorm.DB, want map[string][]string) (*SchemaReport, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	report := &SchemaReport{
		Tables:  make(map[string]TableReport),
		Errors:  []string{},
		Matched: true,
	}

	tables := make([]string, 0, len(want))
	for name := range want {
		tables = append(tables, name)
	}
	sort.Strings(tables)

	for _, table := range tables {
		tbl := TableReport{MissingColumns: []string{}, Status: "ok"}

		if !database.TableExists(db, table) {
			tbl.Status = "error"
			tbl.MissingColumns = append(tbl.MissingColumns, want[table]...)
			report.Tables[table] = tbl
			report.Matched = false
			continue
		}
		tbl.Exists = true

		missing, err := database.MissingColumns(db, table, want[table])
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("Failed to inspect table %s: %v", table, err))
			report.Matched = false
			tbl.Status = "error"
			report.Tables[table] = tbl
			continue
		}
		if len(missing) > 0 {
			tbl.MissingColumns = missing
			tbl.Status = "error"
			report.Matched = false
		}
		report.Tables[table] = tbl
	}

	return report, nil
}
