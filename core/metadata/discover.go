package metadata

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"regen/core/naming"
)

// imageExtensions are never metadata records, even when they sit next to
// them.
var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
	".gif":  true,
}

// IsRecordFile reports whether a file name is a metadata record. Any name
// counts except hidden files, names starting with "_" and image files.
// Files that turn out not to be JSON fail later with a *ParseError.
func IsRecordFile(name string) bool {
	if name == "" || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
		return false
	}
	return !imageExtensions[strings.ToLower(filepath.Ext(name))]
}

// Discover lists the metadata files directly inside dir in natural order
// ("2" before "10").
func Discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list metadata directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.Type().IsRegular() || !IsRecordFile(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.SliceStable(names, func(i, j int) bool {
		return naming.NaturalLess(names[i], names[j])
	})

	paths := make([]string, len(names))
	for i, n := range names {
		paths[i] = filepath.Join(dir, n)
	}
	return paths, nil
}
