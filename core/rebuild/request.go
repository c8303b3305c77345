package rebuild

import (
	"fmt"
	"path/filepath"
	"runtime"

	"regen/core/compose"
	"regen/core/layers"
	"regen/core/metadata"
)

// Request describes one rebuild run.
type Request struct {
	MetadataDir     string   `json:"metadata_dir"`
	LayersDir       string   `json:"layers_dir"`
	OutputDir       string   `json:"output_dir"`
	Manifest        string   `json:"manifest,omitempty"`
	Width           int      `json:"width"`
	Height          int      `json:"height"`
	Fit             string   `json:"fit,omitempty"`
	Background      string   `json:"background,omitempty"`
	Format          string   `json:"format,omitempty"`
	Workers         int      `json:"workers,omitempty"`
	SkipExisting    bool     `json:"skip_existing,omitempty"`
	PrefixSeparator string   `json:"prefix_separator,omitempty"`
	SkipValues      []string `json:"skip_values,omitempty"`
	SummaryFile     string   `json:"summary_file,omitempty"`
}

// Merge returns r with every zero-valued field taken from base. Booleans
// are ORed.
func (r Request) Merge(base Request) Request {
	pick := func(v, d string) string {
		if v == "" {
			return d
		}
		return v
	}
	out := r
	out.MetadataDir = pick(r.MetadataDir, base.MetadataDir)
	out.LayersDir = pick(r.LayersDir, base.LayersDir)
	out.OutputDir = pick(r.OutputDir, base.OutputDir)
	out.Manifest = pick(r.Manifest, base.Manifest)
	out.Fit = pick(r.Fit, base.Fit)
	out.Background = pick(r.Background, base.Background)
	out.Format = pick(r.Format, base.Format)
	out.PrefixSeparator = pick(r.PrefixSeparator, base.PrefixSeparator)
	out.SummaryFile = pick(r.SummaryFile, base.SummaryFile)
	if r.Width == 0 && r.Height == 0 {
		out.Width, out.Height = base.Width, base.Height
	}
	if r.Workers == 0 {
		out.Workers = base.Workers
	}
	if r.SkipValues == nil {
		out.SkipValues = base.SkipValues
	}
	out.SkipExisting = r.SkipExisting || base.SkipExisting
	return out
}

// WorkerCount returns the effective worker count. When a stop arrives, up
// to this many tokens may already be in flight; they finish and are counted.
func (r Request) WorkerCount() int {
	if r.Workers > 0 {
		return r.Workers
	}
	return runtime.NumCPU()
}

// SummaryPath returns where the run summary is written, or "" when disabled.
func (r Request) SummaryPath() string {
	if r.SummaryFile == "" {
		return ""
	}
	if filepath.IsAbs(r.SummaryFile) {
		return r.SummaryFile
	}
	return filepath.Join(r.OutputDir, r.SummaryFile)
}

func (r Request) layerOptions() layers.Options {
	return layers.Options{ManifestPath: r.Manifest, PrefixSeparator: r.PrefixSeparator}
}

func (r Request) metadataOptions() metadata.Options {
	return metadata.Options{SkipValues: r.SkipValues}
}

func (r Request) compositor() (*compose.Compositor, compose.Format, error) {
	format, err := compose.ParseFormat(r.Format)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	c, err := compose.New(compose.Options{
		Width:      r.Width,
		Height:     r.Height,
		Fit:        compose.FitMode(r.Fit),
		Background: r.Background,
	})
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return c, format, nil
}
