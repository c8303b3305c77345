package layers

import (
	"errors"
	"fmt"
)

var (
	// ErrTraitUnresolved means no layer file in the category matches the trait value.
	ErrTraitUnresolved = errors.New("trait unresolved")
	// ErrUnknownCategory means the index has no layers for the trait category.
	ErrUnknownCategory = errors.New("unknown trait category")
	// ErrMissingCategoryDir means a manifest category points at a missing directory.
	ErrMissingCategoryDir = errors.New("category directory missing")
	// ErrNoLayers means the layer root holds no usable image files.
	ErrNoLayers = errors.New("no layer images found")
)

// SupportedExtensions are the layer image formats the compositor can decode.
var SupportedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
	".gif":  true,
}

// Candidate is one layer image that a trait value may resolve to.
type Candidate struct {
	// Category is the display name of the category the file belongs to.
	Category string `json:"category"`
	// Path is the file system path of the image.
	Path string `json:"path"`
	// Name is the original filename (or the value part for prefixed files).
	Name string `json:"name"`
	// Key is the normalized comparison key.
	Key string `json:"key"`
}

// Resolution is the outcome of resolving one trait.
type Resolution struct {
	Category  string    `json:"category"`
	Value     string    `json:"value"`
	Candidate Candidate `json:"candidate"`
	// Alternatives are other candidates sharing the same key, in tie-break order.
	Alternatives []Candidate `json:"alternatives,omitempty"`
}

// Ambiguous reports whether more than one file matched.
func (r Resolution) Ambiguous() bool {
	return len(r.Alternatives) > 0
}

// CategoryInfo summarizes one indexed category.
type CategoryInfo struct {
	Name       string `json:"name"`
	Key        string `json:"key"`
	Dir        string `json:"dir"`
	Candidates int    `json:"candidates"`
}

// CategoryDirError carries the category and path of a missing manifest directory.
type CategoryDirError struct {
	Category string
	Path     string
}

func (e *CategoryDirError) Error() string {
	return fmt.Sprintf("%s: category %q expects directory %s", ErrMissingCategoryDir, e.Category, e.Path)
}

func (e *CategoryDirError) Unwrap() error {
	return ErrMissingCategoryDir
}
