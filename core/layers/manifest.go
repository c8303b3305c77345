package layers

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// DefaultPrefixSeparator splits "<category>__<value>.png" files kept at the layer root.
const DefaultPrefixSeparator = "__"

// Manifest declares the recognised categories and where their layers live.
//
//	prefix_separator = "__"
//
//	[[category]]
//	name = "Background"
//	dir = "bg"
//	aliases = ["Backdrop"]
type Manifest struct {
	// PrefixSeparator overrides DefaultPrefixSeparator for root-level files.
	PrefixSeparator string `toml:"prefix_separator"`
	// Categories maps trait categories to directories, in declaration order.
	Categories []ManifestCategory `toml:"category"`
}

// ManifestCategory maps one trait category to a directory relative to the layer root.
type ManifestCategory struct {
	Name    string   `toml:"name"`
	Dir     string   `toml:"dir"`
	Aliases []string `toml:"aliases"`
}

// LoadManifest reads a TOML manifest from disk.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read layer manifest: %w", err)
	}
	return ParseManifest(data)
}

// ParseManifest decodes and validates a TOML manifest.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid layer manifest: %w", err)
	}
	for i, c := range m.Categories {
		if strings.TrimSpace(c.Name) == "" {
			return nil, fmt.Errorf("invalid layer manifest: category #%d has no name", i+1)
		}
		if strings.TrimSpace(c.Dir) == "" {
			m.Categories[i].Dir = c.Name
		}
	}
	return &m, nil
}
