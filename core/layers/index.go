package layers

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"regen/core/naming"
)

// Options controls how a layer root is indexed.
type Options struct {
	// ManifestPath is an optional TOML manifest. When set, only declared
	// categories are indexed and each must have an existing directory.
	ManifestPath string
	// PrefixSeparator splits root-level "<category><sep><value>" files.
	// Empty means the manifest value or DefaultPrefixSeparator.
	PrefixSeparator string
}

type category struct {
	name       string
	dir        string
	candidates []Candidate
	byKey      map[string][]Candidate
}

// Index is the read-only set of layer candidates, partitioned by category.
// It is safe for concurrent use once built.
type Index struct {
	root       string
	categories map[string]*category
	aliases    map[string]string
	order      []string
}

// Build walks root and indexes every layer image.
//
// Without a manifest, each first-level directory is a category and root-level
// files use the "<category><sep><value>" prefix convention. With a manifest,
// the declared categories are validated first and a missing directory fails
// with a *CategoryDirError.
func Build(root string, opts Options) (*Index, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("layer directory unavailable: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("layer path %s is not a directory", root)
	}

	var manifest *Manifest
	if opts.ManifestPath != "" {
		manifest, err = LoadManifest(opts.ManifestPath)
		if err != nil {
			return nil, err
		}
	}

	sep := opts.PrefixSeparator
	if sep == "" && manifest != nil {
		sep = manifest.PrefixSeparator
	}
	if sep == "" {
		sep = DefaultPrefixSeparator
	}

	idx := &Index{
		root:       root,
		categories: make(map[string]*category),
		aliases:    make(map[string]string),
	}

	if manifest != nil && len(manifest.Categories) > 0 {
		if err := idx.addManifestCategories(manifest); err != nil {
			return nil, err
		}
	} else if err := idx.addDirectoryCategories(); err != nil {
		return nil, err
	}

	if err := idx.addPrefixedFiles(sep, manifest != nil && len(manifest.Categories) > 0); err != nil {
		return nil, err
	}

	total := 0
	for _, c := range idx.categories {
		sortCandidates(c)
		total += len(c.candidates)
	}
	if total == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoLayers, root)
	}
	return idx, nil
}

func (idx *Index) addManifestCategories(m *Manifest) error {
	for _, mc := range m.Categories {
		dir := mc.Dir
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(idx.root, dir)
		}
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			return &CategoryDirError{Category: mc.Name, Path: dir}
		}
		c := idx.ensureCategory(mc.Name, dir)
		for _, alias := range mc.Aliases {
			if key := naming.CategoryKey(alias); key != "" {
				idx.aliases[key] = naming.CategoryKey(mc.Name)
			}
		}
		if err := collectDir(c, dir); err != nil {
			return err
		}
	}
	return nil
}

func (idx *Index) addDirectoryCategories() error {
	entries, err := os.ReadDir(idx.root)
	if err != nil {
		return fmt.Errorf("failed to list layer directory: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() || isHidden(e.Name()) {
			continue
		}
		dir := filepath.Join(idx.root, e.Name())
		c := idx.ensureCategory(e.Name(), dir)
		if err := collectDir(c, dir); err != nil {
			return err
		}
	}
	return nil
}

// addPrefixedFiles indexes root-level "<category><sep><value>.<ext>" files.
// With a manifest only declared categories accept prefixed files.
func (idx *Index) addPrefixedFiles(sep string, declaredOnly bool) error {
	entries, err := os.ReadDir(idx.root)
	if err != nil {
		return fmt.Errorf("failed to list layer directory: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || isHidden(e.Name()) || !isLayerFile(e.Name()) {
			continue
		}
		stem := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		catName, value, ok := strings.Cut(stem, sep)
		if !ok || strings.TrimSpace(catName) == "" || strings.TrimSpace(value) == "" {
			continue
		}
		key := idx.canonical(catName)
		c, exists := idx.categories[key]
		if !exists {
			if declaredOnly {
				continue
			}
			c = idx.ensureCategory(catName, idx.root)
		}
		c.add(Candidate{
			Category: c.name,
			Path:     filepath.Join(idx.root, e.Name()),
			Name:     value + filepath.Ext(e.Name()),
			Key:      naming.Normalize(value),
		})
	}
	return nil
}

func (idx *Index) ensureCategory(name, dir string) *category {
	key := naming.CategoryKey(name)
	if c, ok := idx.categories[key]; ok {
		return c
	}
	c := &category{name: name, dir: dir, byKey: make(map[string][]Candidate)}
	idx.categories[key] = c
	idx.order = append(idx.order, key)
	return c
}

func (idx *Index) canonical(name string) string {
	key := naming.CategoryKey(name)
	if target, ok := idx.aliases[key]; ok {
		return target
	}
	return key
}

func collectDir(c *category, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != dir && isHidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !isLayerFile(d.Name()) {
			return nil
		}
		c.add(Candidate{
			Category: c.name,
			Path:     path,
			Name:     d.Name(),
			Key:      naming.Normalize(d.Name()),
		})
		return nil
	})
}

func (c *category) add(cand Candidate) {
	if cand.Key == "" {
		return
	}
	c.candidates = append(c.candidates, cand)
	c.byKey[cand.Key] = append(c.byKey[cand.Key], cand)
}

// sortCandidates applies the tie-break order: shortest filename, then
// lexicographic filename, then path.
func sortCandidates(c *category) {
	for _, list := range c.byKey {
		sort.SliceStable(list, func(i, j int) bool {
			return candidateLess(list[i], list[j])
		})
	}
	sort.SliceStable(c.candidates, func(i, j int) bool {
		return candidateLess(c.candidates[i], c.candidates[j])
	})
}

func candidateLess(a, b Candidate) bool {
	if len(a.Name) != len(b.Name) {
		return len(a.Name) < len(b.Name)
	}
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	return a.Path < b.Path
}

// Resolve finds the layer file for one trait. Matching is exact on the
// normalized key and never leaves the trait's category. When several files
// share the key the tie-break winner is returned with the rest listed as
// Alternatives.
func (idx *Index) Resolve(categoryName, value string) (Resolution, error) {
	res := Resolution{Category: categoryName, Value: value}

	c, ok := idx.categories[idx.canonical(categoryName)]
	if !ok {
		return res, fmt.Errorf("%w: %q", ErrUnknownCategory, categoryName)
	}
	res.Category = c.name

	key := naming.Normalize(value)
	matches := c.byKey[key]
	if key == "" || len(matches) == 0 {
		return res, fmt.Errorf("%w: %s/%s", ErrTraitUnresolved, categoryName, value)
	}

	res.Candidate = matches[0]
	if len(matches) > 1 {
		res.Alternatives = append([]Candidate(nil), matches[1:]...)
	}
	return res, nil
}

// HasCategory reports whether the category (or an alias) is indexed.
func (idx *Index) HasCategory(name string) bool {
	_, ok := idx.categories[idx.canonical(name)]
	return ok
}

// Categories lists the indexed categories in discovery order.
func (idx *Index) Categories() []CategoryInfo {
	out := make([]CategoryInfo, 0, len(idx.order))
	for _, key := range idx.order {
		c := idx.categories[key]
		out = append(out, CategoryInfo{
			Name:       c.name,
			Key:        key,
			Dir:        c.dir,
			Candidates: len(c.candidates),
		})
	}
	return out
}

// Candidates returns a copy of the candidates of one category.
func (idx *Index) Candidates(categoryName string) []Candidate {
	c, ok := idx.categories[idx.canonical(categoryName)]
	if !ok {
		return nil
	}
	return append([]Candidate(nil), c.candidates...)
}

// Len returns the total number of indexed candidates.
func (idx *Index) Len() int {
	n := 0
	for _, c := range idx.categories {
		n += len(c.candidates)
	}
	return n
}

// Root returns the indexed directory.
func (idx *Index) Root() string {
	return idx.root
}

// IsMissingCategoryDir reports whether err is a manifest directory failure.
func IsMissingCategoryDir(err error) bool {
	return errors.Is(err, ErrMissingCategoryDir)
}

func isLayerFile(name string) bool {
	return SupportedExtensions[strings.ToLower(filepath.Ext(name))]
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
