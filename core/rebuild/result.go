package rebuild

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"regen/core/naming"
)

// Status is the outcome of one token.
type Status string

const (
	// StatusSuccess means every trait resolved and the image was written.
	StatusSuccess Status = "success"
	// StatusPartial means some traits were unresolved; the image was still written.
	StatusPartial Status = "partial"
	// StatusFailed means no image was written for the token.
	StatusFailed Status = "failed"
	// StatusSkipped means the output already existed and SkipExisting was set.
	StatusSkipped Status = "skipped"
)

// LayerRef is one resolved trait.
type LayerRef struct {
	Category string `json:"category"`
	Value    string `json:"value"`
	Path     string `json:"path"`
}

// Miss is one trait that did not resolve.
type Miss struct {
	Category string `json:"category"`
	Value    string `json:"value"`
	Reason   string `json:"reason"`
}

// Ambiguity records a trait that matched several files.
type Ambiguity struct {
	Category     string   `json:"category"`
	Value        string   `json:"value"`
	Chosen       string   `json:"chosen"`
	Alternatives []string `json:"alternatives"`
}

// Result is the outcome of one token.
type Result struct {
	// TokenID names the output file.
	TokenID string `json:"token_id"`
	// Source is the metadata file.
	Source string `json:"source"`
	// Status is the token outcome.
	Status Status `json:"status"`
	// Output is the written image, empty unless success or partial (or the
	// existing file when skipped).
	Output string `json:"output,omitempty"`
	// Layers are the resolved traits in paint order.
	Layers []LayerRef `json:"layers,omitempty"`
	// Unresolved lists traits with no matching layer.
	Unresolved []Miss `json:"unresolved,omitempty"`
	// Ambiguities lists traits resolved by tie-break.
	Ambiguities []Ambiguity `json:"ambiguities,omitempty"`
	// Warnings are non-fatal notes, such as a failed upload.
	Warnings []string `json:"warnings,omitempty"`
	// Reason explains a failed token.
	Reason string `json:"reason,omitempty"`
	// Duration is the wall time spent on the token.
	Duration time.Duration `json:"duration"`

	err error
}

// Err returns the error that failed the token, if any.
func (r Result) Err() error {
	return r.err
}

// Summary aggregates a run.
type Summary struct {
	RunID       string    `json:"run_id"`
	Total       int       `json:"total"`
	Processed   int       `json:"processed"`
	Success     int       `json:"success"`
	Partial     int       `json:"partial"`
	Failed      int       `json:"failed"`
	Skipped     int       `json:"skipped"`
	Cancelled   bool      `json:"cancelled"`
	Aborted     bool      `json:"aborted"`
	AbortReason string    `json:"abort_reason,omitempty"`
	Results     []Result  `json:"results"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}

func (s *Summary) add(r Result) {
	s.Processed++
	switch r.Status {
	case StatusSuccess:
		s.Success++
	case StatusPartial:
		s.Partial++
	case StatusFailed:
		s.Failed++
	case StatusSkipped:
		s.Skipped++
	}
	s.Results = append(s.Results, r)
}

// sortResults orders results by metadata file name, naturally.
func (s *Summary) sortResults() {
	sort.SliceStable(s.Results, func(i, j int) bool {
		return naming.NaturalLess(filepath.Base(s.Results[i].Source), filepath.Base(s.Results[j].Source))
	})
}

// Duration returns the run wall time.
func (s *Summary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// Unresolved returns every distinct category/value pair that failed to
// resolve during the run, in first-seen order.
func (s *Summary) Unresolved() []Miss {
	seen := make(map[Miss]bool)
	var out []Miss
	for _, r := range s.Results {
		for _, m := range r.Unresolved {
			key := Miss{Category: m.Category, Value: m.Value}
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, m)
		}
	}
	return out
}

// WriteFile stores the summary as indented JSON.
func (s *Summary) WriteFile(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// ReadSummary loads a summary written by WriteFile.
func ReadSummary(path string) (*Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Summary
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
