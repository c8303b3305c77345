package metadata

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultSkipValues are trait values that mean "no layer for this category".
var DefaultSkipValues = []string{"none"}

// ErrUnsupportedRecord is wrapped by ParseError when a file is valid JSON but
// carries no recognisable trait list.
var ErrUnsupportedRecord = errors.New("unsupported metadata record")

// Trait is one declared (category, value) pair.
type Trait struct {
	Category string `json:"category"`
	Value    string `json:"value"`
}

// Token is one metadata record. It is immutable after Load.
type Token struct {
	// ID names the output file.
	ID string `json:"id"`
	// Source is the metadata file the token was read from.
	Source string `json:"source"`
	// Traits are in declaration order, bottom layer first.
	Traits []Trait `json:"traits"`
	// Ignored counts traits dropped as empty or skip values.
	Ignored int `json:"ignored,omitempty"`
}

// ParseError reports a metadata file that could not be read or understood.
// Only the token fails; a run continues with the next file.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse metadata %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Options controls trait extraction.
type Options struct {
	// SkipValues are compared case-insensitively after trimming. Nil means
	// DefaultSkipValues; an empty non-nil slice disables skipping.
	SkipValues []string
}

func (o Options) skip(value string) bool {
	values := o.SkipValues
	if values == nil {
		values = DefaultSkipValues
	}
	v := strings.TrimSpace(value)
	for _, s := range values {
		if strings.EqualFold(v, strings.TrimSpace(s)) {
			return true
		}
	}
	return false
}

// Load reads and parses one metadata file. Any failure is a *ParseError.
func Load(path string, opts Options) (*Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	tok, err := Parse(data, Stem(path), opts)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	tok.Source = path
	return tok, nil
}

// Stem returns the file name without directory and without a trailing
// ".json" or ".txt" extension. Other dots are part of the name.
func Stem(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	switch strings.ToLower(ext) {
	case ".json", ".txt":
		return base[:len(base)-len(ext)]
	}
	return base
}
