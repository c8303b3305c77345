package checks

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"regen/core/layers"

	"go.uber.org/zap"
)

// LayerReport describes the layer directory.
type LayerReport struct {
	Root       string                `json:"root"`
	Status     string                `json:"status"` // "ok", "warning", "error"
	Categories []layers.CategoryInfo `json:"categories"`
	// MissingDirs are manifest category directories that do not exist.
	MissingDirs []string `json:"missing_dirs"`
	// Empty lists categories without any usable image.
	Empty []string `json:"empty"`
	// Duplicates lists keys shared by several files of one category.
	Duplicates []Duplicate `json:"duplicates"`
	Errors     []string    `json:"errors"`
}

// Duplicate is a normalized key that more than one file maps to.
type Duplicate struct {
	Category string   `json:"category"`
	Key      string   `json:"key"`
	Files    []string `json:"files"`
}

// CheckLayers indexes the layer root and reports structural problems.
// Every manifest directory is checked, not only the first missing one.
func CheckLayers(root string, opts layers.Options) (*LayerReport, error) {
	report := &LayerReport{
		Root:        root,
		Status:      "ok",
		MissingDirs: []string{},
		Empty:       []string{},
		Duplicates:  []Duplicate{},
		Errors:      []string{},
	}

	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("layer directory %s does not exist", root)
	}

	if opts.ManifestPath != "" {
		m, err := layers.LoadManifest(opts.ManifestPath)
		if err != nil {
			return nil, err
		}
		for _, mc := range m.Categories {
			dir := mc.Dir
			if !filepath.IsAbs(dir) {
				dir = filepath.Join(root, dir)
			}
			if info, err := os.Stat(dir); err != nil || !info.IsDir() {
				report.MissingDirs = append(report.MissingDirs, dir)
			}
		}
		if len(report.MissingDirs) > 0 {
			report.Status = "error"
			return report, nil
		}
	}

	idx, err := layers.Build(root, opts)
	if err != nil {
		if errors.Is(err, layers.ErrNoLayers) {
			report.Status = "error"
			report.Errors = append(report.Errors, err.Error())
			return report, nil
		}
		return nil, err
	}

	report.Categories = idx.Categories()
	for _, cat := range report.Categories {
		if cat.Candidates == 0 {
			report.Empty = append(report.Empty, cat.Name)
			continue
		}
		report.Duplicates = append(report.Duplicates, duplicates(cat.Name, idx.Candidates(cat.Name))...)
	}
	if len(report.Empty) > 0 || len(report.Duplicates) > 0 {
		report.Status = "warning"
	}
	return report, nil
}

func duplicates(category string, cands []layers.Candidate) []Duplicate {
	byKey := make(map[string][]string)
	var keys []string
	for _, c := range cands {
		if _, seen := byKey[c.Key]; !seen {
			keys = append(keys, c.Key)
		}
		byKey[c.Key] = append(byKey[c.Key], filepath.Base(c.Path))
	}
	sort.Strings(keys)

	var out []Duplicate
	for _, k := range keys {
		if files := byKey[k]; len(files) > 1 {
			out = append(out, Duplicate{Category: category, Key: k, Files: files})
		}
	}
	return out
}

// FixLayers creates the missing category directories.
func FixLayers(logger *zap.Logger, missing []string) error {
	for _, dir := range missing {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Error("Failed to create category directory", zap.String("dir", dir), zap.Error(err))
			return err
		}
		logger.Info("Created missing category directory", zap.String("dir", dir))
	}
	return nil
}
