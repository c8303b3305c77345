package checks

import (
	"errors"
	"fmt"
	"sort"

	"regen/core/layers"
	"regen/core/metadata"
)

// MetadataReport is a dry run of trait resolution over every record.
type MetadataReport struct {
	Dir    string `json:"dir"`
	Status string `json:"status"` // "ok", "warning", "error"
	Files  int    `json:"files"`
	Tokens int    `json:"tokens"`
	// Unparseable maps file to parse error.
	Unparseable map[string]string `json:"unparseable"`
	// UnknownCategories counts trait categories with no layer directory.
	UnknownCategories map[string]int `json:"unknown_categories"`
	// Unresolved counts "category/value" pairs with no matching layer.
	Unresolved map[string]int `json:"unresolved"`
	// DuplicateIDs lists token ids claimed by more than one file.
	DuplicateIDs []string `json:"duplicate_ids"`
}

// CheckMetadata parses every record in dir and resolves its traits against idx
// without rendering anything.
func CheckMetadata(dir string, idx *layers.Index, opts metadata.Options) (*MetadataReport, error) {
	files, err := metadata.Discover(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list metadata: %w", err)
	}

	report := &MetadataReport{
		Dir:               dir,
		Status:            "ok",
		Files:             len(files),
		Unparseable:       map[string]string{},
		UnknownCategories: map[string]int{},
		Unresolved:        map[string]int{},
		DuplicateIDs:      []string{},
	}

	ids := make(map[string]int)
	for _, file := range files {
		tok, err := metadata.Load(file, opts)
		if err != nil {
			report.Unparseable[file] = err.Error()
			continue
		}
		report.Tokens++
		ids[tok.ID]++

		for _, tr := range tok.Traits {
			_, err := idx.Resolve(tr.Category, tr.Value)
			switch {
			case errors.Is(err, layers.ErrUnknownCategory):
				report.UnknownCategories[tr.Category]++
			case err != nil:
				report.Unresolved[tr.Category+"/"+tr.Value]++
			}
		}
	}

	for id, n := range ids {
		if n > 1 {
			report.DuplicateIDs = append(report.DuplicateIDs, id)
		}
	}
	sort.Strings(report.DuplicateIDs)

	switch {
	case len(report.Unparseable) > 0:
		report.Status = "error"
	case len(report.UnknownCategories) > 0 || len(report.Unresolved) > 0 || len(report.DuplicateIDs) > 0:
		report.Status = "warning"
	}
	return report, nil
}
