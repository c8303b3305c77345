package rebuild

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"regen/core/compose"
	"regen/core/layers"
	"regen/core/metadata"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Publisher ships finished files to a secondary destination. Failures are
// recorded as token warnings and never fail a token.
type Publisher interface {
	PublishImage(ctx context.Context, tokenID, path string) error
	PublishSummary(ctx context.Context, runID, path string) error
}

// Plan is the validated environment of a run.
type Plan struct {
	Request    Request
	Index      *layers.Index
	Compositor *compose.Compositor
	Format     compose.Format
	// Files are the metadata records in natural order. Empty for single-token plans.
	Files []string
}

// Driver runs collection rebuilds. One Driver may serve many sequential or
// concurrent runs; it holds no per-run state.
type Driver struct {
	logger    *zap.Logger
	cache     *layers.Cache
	publisher Publisher
	observers []Observer
}

// Option configures a Driver.
type Option func(*Driver)

// WithCache reuses layer indexes between runs.
func WithCache(c *layers.Cache) Option {
	return func(d *Driver) { d.cache = c }
}

// WithPublisher uploads every written image and the summary.
func WithPublisher(p Publisher) Option {
	return func(d *Driver) { d.publisher = p }
}

// WithObserver adds an event observer.
func WithObserver(o Observer) Option {
	return func(d *Driver) { d.observers = append(d.observers, o) }
}

// NewDriver creates a Driver.
func NewDriver(logger *zap.Logger, opts ...Option) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Driver{logger: logger}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Driver) notify(e Event) {
	for _, o := range d.observers {
		o.Notify(e)
	}
}

// Preflight performs every fatal check of a run without rendering anything:
// the input directories exist, the layer tree (and manifest) index cleanly,
// the output directory is writable and the render settings are valid.
func (d *Driver) Preflight(req Request) (*Plan, error) {
	plan, err := d.prepare(req)
	if err != nil {
		return nil, err
	}
	files, err := metadata.Discover(req.MetadataDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingInput, err)
	}
	plan.Files = files
	return plan, nil
}

func (d *Driver) prepare(req Request) (*Plan, error) {
	if err := requireDir(req.MetadataDir, "metadata"); err != nil {
		return nil, err
	}
	if err := requireDir(req.LayersDir, "layers"); err != nil {
		return nil, err
	}

	comp, format, err := req.compositor()
	if err != nil {
		return nil, err
	}

	var idx *layers.Index
	if d.cache != nil {
		idx, err = d.cache.GetOrBuild(req.LayersDir, req.layerOptions())
	} else {
		idx, err = layers.Build(req.LayersDir, req.layerOptions())
	}
	if err != nil {
		if errors.Is(err, layers.ErrNoLayers) {
			return nil, fmt.Errorf("%w: %v", ErrMissingInput, err)
		}
		return nil, err
	}

	if err := ensureWritable(req.OutputDir); err != nil {
		return nil, err
	}

	return &Plan{Request: req, Index: idx, Compositor: comp, Format: format}, nil
}

func requireDir(path, what string) error {
	if path == "" {
		return fmt.Errorf("%w: %s directory not set", ErrMissingInput, what)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %s directory %s: %v", ErrMissingInput, what, path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s path %s is not a directory", ErrMissingInput, what, path)
	}
	return nil
}

// ensureWritable creates dir if needed and proves a file can be created in it.
func ensureWritable(dir string) error {
	if dir == "" {
		return fmt.Errorf("%w: output directory not set", ErrOutputUnwritable)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrOutputUnwritable, err)
	}
	probe, err := os.CreateTemp(dir, ".regen-probe-*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOutputUnwritable, err)
	}
	name := probe.Name()
	probe.Close()
	os.Remove(name)
	return nil
}

// Run rebuilds every token of the request.
//
// Fatal environment problems are returned before any token is touched.
// Afterwards per-token failures are recorded in the Summary and the run
// continues. Cancellation (via cancel or ctx) is observed between tokens:
// tokens in flight complete, no new token starts and the Summary is marked
// Cancelled. If the output directory becomes unwritable the run stops the
// same way and returns the Summary together with ErrRunAborted.
func (d *Driver) Run(ctx context.Context, req Request, cancel *CancelToken) (*Summary, error) {
	return d.RunWithID(ctx, uuid.NewString(), req, cancel)
}

// RunWithID is Run with a caller-chosen run identifier.
func (d *Driver) RunWithID(ctx context.Context, runID string, req Request, cancel *CancelToken) (*Summary, error) {
	if cancel == nil {
		cancel = NewCancelToken()
	}
	plan, err := d.Preflight(req)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		RunID:     runID,
		Total:     len(plan.Files),
		Results:   []Result{},
		StartedAt: time.Now(),
	}
	d.notify(RunStarted{RunID: runID, Total: summary.Total})

	// Token work is not interrupted by ctx; only dispatch is.
	work := context.WithoutCancel(ctx)

	workers := min(req.WorkerCount(), max(1, len(plan.Files)))
	slots := make(chan struct{}, workers)
	jobs := make(chan string)
	results := make(chan Result)
	abort := make(chan struct{})
	var stopped atomic.Bool

	halted := func() bool {
		select {
		case <-abort:
			return true
		default:
		}
		return cancel.Cancelled() || ctx.Err() != nil
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				results <- d.rebuild(work, plan, path)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, path := range plan.Files {
			select {
			case slots <- struct{}{}:
			case <-cancel.Done():
				stopped.Store(true)
				return
			case <-ctx.Done():
				stopped.Store(true)
				return
			case <-abort:
				return
			}
			if halted() {
				stopped.Store(true)
				return
			}
			jobs <- path
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var abortErr error
	// A stop seen while results are still arriving marks the run cancelled,
	// even when every token had already been dispatched.
	var stopSeen bool
	for res := range results {
		if !stopSeen && (cancel.Cancelled() || ctx.Err() != nil) {
			stopSeen = true
		}
		summary.add(res)
		d.notify(TokenDone{RunID: runID, Done: summary.Processed, Total: summary.Total, Result: res})

		var werr *WriteError
		if abortErr == nil && errors.As(res.err, &werr) {
			if err := ensureWritable(req.OutputDir); err != nil {
				abortErr = err
				close(abort)
			}
		}
		<-slots
	}

	if abortErr != nil {
		summary.Aborted = true
		summary.AbortReason = abortErr.Error()
	} else if stopSeen || (stopped.Load() && summary.Processed < summary.Total) {
		summary.Cancelled = true
	}
	summary.sortResults()
	summary.FinishedAt = time.Now()

	d.writeSummary(work, req, summary)
	d.notify(RunFinished{Summary: summary})

	if abortErr != nil {
		return summary, fmt.Errorf("%w: %v", ErrRunAborted, abortErr)
	}
	return summary, nil
}

func (d *Driver) writeSummary(ctx context.Context, req Request, s *Summary) {
	path := req.SummaryPath()
	if path == "" {
		return
	}
	if err := s.WriteFile(path); err != nil {
		d.logger.Warn("Failed to write run summary", zap.String("path", path), zap.Error(err))
		return
	}
	if d.publisher != nil {
		if err := d.publisher.PublishSummary(ctx, s.RunID, path); err != nil {
			d.logger.Warn("Failed to publish run summary", zap.String("run_id", s.RunID), zap.Error(err))
		}
	}
}

// RebuildToken renders a single metadata file outside of a run. The
// returned error is the token's failure cause, also found in Result.Err.
func (d *Driver) RebuildToken(ctx context.Context, req Request, metadataPath string) (Result, error) {
	plan, err := d.prepare(req)
	if err != nil {
		return Result{}, err
	}
	res := d.rebuild(ctx, plan, metadataPath)
	d.notify(TokenDone{RunID: "single", Done: 1, Total: 1, Result: res})
	return res, res.err
}

// rebuild processes one token. It never panics on bad input and always
// returns a Result with a status.
func (d *Driver) rebuild(ctx context.Context, plan *Plan, path string) Result {
	start := time.Now()
	res := Result{TokenID: metadata.Stem(path), Source: path}

	fail := func(err error) Result {
		res.Status = StatusFailed
		res.Reason = err.Error()
		res.err = err
		res.Output = ""
		res.Duration = time.Since(start)
		return res
	}

	tok, err := metadata.Load(path, plan.Request.metadataOptions())
	if err != nil {
		return fail(err)
	}
	res.TokenID = tok.ID
	out := filepath.Join(plan.Request.OutputDir, tok.ID+plan.Format.Extension())

	if plan.Request.SkipExisting {
		if _, err := os.Stat(out); err == nil {
			res.Status = StatusSkipped
			res.Output = out
			res.Duration = time.Since(start)
			return res
		}
	}

	if len(tok.Traits) == 0 {
		return fail(ErrNoTraits)
	}

	stack := make([]compose.Layer, 0, len(tok.Traits))
	for _, tr := range tok.Traits {
		resolved, err := plan.Index.Resolve(tr.Category, tr.Value)
		if err != nil {
			res.Unresolved = append(res.Unresolved, Miss{Category: tr.Category, Value: tr.Value, Reason: err.Error()})
			continue
		}
		if resolved.Ambiguous() {
			alts := make([]string, len(resolved.Alternatives))
			for i, a := range resolved.Alternatives {
				alts[i] = a.Path
			}
			res.Ambiguities = append(res.Ambiguities, Ambiguity{
				Category:     tr.Category,
				Value:        tr.Value,
				Chosen:       resolved.Candidate.Path,
				Alternatives: alts,
			})
		}
		res.Layers = append(res.Layers, LayerRef{Category: tr.Category, Value: tr.Value, Path: resolved.Candidate.Path})
		stack = append(stack, compose.Layer{Category: resolved.Category, Path: resolved.Candidate.Path})
	}

	if len(stack) == 0 {
		return fail(ErrNothingResolved)
	}

	img, err := plan.Compositor.Composite(stack)
	if err != nil {
		return fail(err)
	}
	if err := compose.WriteFile(out, img, plan.Format); err != nil {
		return fail(&WriteError{Path: out, Err: err})
	}

	res.Output = out
	res.Status = StatusSuccess
	if len(res.Unresolved) > 0 {
		res.Status = StatusPartial
	}

	if d.publisher != nil {
		if err := d.publisher.PublishImage(ctx, tok.ID, out); err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("publish failed: %v", err))
		}
	}
	res.Duration = time.Since(start)
	return res
}
