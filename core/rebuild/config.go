package rebuild

import "time"

// Config holds the rebuild defaults loaded from the environment.
// Flags and API requests override individual values.
type Config struct {
	// MetadataDir holds one metadata record per token.
	MetadataDir string `mapstructure:"metadata_dir" default:"metadata"`
	// LayersDir is the root of the layer tree.
	LayersDir string `mapstructure:"layers_dir" default:"layers"`
	// OutputDir receives the rebuilt images and the summary.
	OutputDir string `mapstructure:"output_dir" default:"output"`
	// Manifest is an optional TOML file mapping categories to directories.
	Manifest string `mapstructure:"manifest" default:""`
	// Width is the canvas width. Zero (with Height) means first layer size.
	Width int `mapstructure:"width" default:"1000"`
	// Height is the canvas height.
	Height int `mapstructure:"height" default:"1000"`
	// Fit is the size policy: stretch, fit or center.
	Fit string `mapstructure:"fit" default:"stretch"`
	// Background is an optional "#rrggbb" canvas fill.
	Background string `mapstructure:"background" default:""`
	// Format is the output format: png or jpeg.
	Format string `mapstructure:"format" default:"png"`
	// Workers is the number of tokens rendered in parallel. Zero means one per CPU.
	// Up to Workers tokens are already in flight when a stop arrives.
	Workers int `mapstructure:"workers" default:"0"`
	// SkipExisting leaves tokens whose output already exists untouched.
	SkipExisting bool `mapstructure:"skip_existing" default:"false"`
	// PrefixSeparator splits root-level "<category><sep><value>" layer files.
	PrefixSeparator string `mapstructure:"prefix_separator" default:"__"`
	// SkipValues are trait values meaning "no layer" (comma separated in env).
	SkipValues []string `mapstructure:"skip_values" default:"none"`
	// SummaryFile is the summary name inside OutputDir. Empty disables it.
	SummaryFile string `mapstructure:"summary_file" default:"_summary.json"`
	// IndexTTLSeconds is how long a layer index is reused in server mode.
	IndexTTLSeconds int `mapstructure:"index_ttl_seconds" default:"300"`
}

// IndexTTL returns IndexTTLSeconds as a duration.
func (c Config) IndexTTL() time.Duration {
	return time.Duration(c.IndexTTLSeconds) * time.Second
}

// Request returns a run request populated from the configuration.
func (c Config) Request() Request {
	return Request{
		MetadataDir:     c.MetadataDir,
		LayersDir:       c.LayersDir,
		OutputDir:       c.OutputDir,
		Manifest:        c.Manifest,
		Width:           c.Width,
		Height:          c.Height,
		Fit:             c.Fit,
		Background:      c.Background,
		Format:          c.Format,
		Workers:         c.Workers,
		SkipExisting:    c.SkipExisting,
		PrefixSeparator: c.PrefixSeparator,
		SkipValues:      append([]string(nil), c.SkipValues...),
		SummaryFile:     c.SummaryFile,
	}
}
