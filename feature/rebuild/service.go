package rebuild

import (
	"context"
	"errors"
	"sync"
	"time"

	"regen/core/layers"
	core "regen/core/rebuild"
	"regen/core/reconcile"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrAlreadyRunning rejects a Start while another run is in progress.
	ErrAlreadyRunning = errors.New("a rebuild is already in progress")
	// ErrNotRunning rejects a Stop with no run in progress.
	ErrNotRunning = errors.New("no rebuild is running")
	// ErrHistoryDisabled is returned by history queries without a database.
	ErrHistoryDisabled = errors.New("run history is disabled")
)

// State is the lifecycle state shown in a Snapshot.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateStopping  State = "stopping"
	StateFinished  State = "finished"
	StateCancelled State = "cancelled"
	StateAborted   State = "aborted"
	StateFailed    State = "failed"
)

// Snapshot is the progress of the current or last run.
type Snapshot struct {
	RunID      string        `json:"run_id,omitempty"`
	State      State         `json:"state"`
	Total      int           `json:"total"`
	Done       int           `json:"done"`
	Success    int           `json:"success"`
	Partial    int           `json:"partial"`
	Failed     int           `json:"failed"`
	Skipped    int           `json:"skipped"`
	Percent    float64       `json:"percent"`
	Current    string        `json:"current,omitempty"`
	StartedAt  time.Time     `json:"started_at,omitempty"`
	FinishedAt time.Time     `json:"finished_at,omitempty"`
	Error      string        `json:"error,omitempty"`
	Summary    *core.Summary `json:"summary,omitempty"`
}

// Service owns at most one rebuild run at a time and exposes its progress.
type Service struct {
	base    core.Request
	logger  *zap.Logger
	cache   *layers.Cache
	history *History
	driver  *core.Driver

	publisher *BucketPublisher

	mu          sync.Mutex
	running     bool
	reconciling bool
	cancel      *core.CancelToken
	done        chan struct{}
	snapshot    Snapshot
}

// NewService creates a Service. base supplies every setting a Start request
// leaves empty. history and publisher may be nil. opts are passed to the
// Driver, after the service's own progress and log observers.
func NewService(base core.Request, logger *zap.Logger, cache *layers.Cache, history *History, publisher *BucketPublisher, opts ...core.Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		base:      base,
		logger:    logger,
		cache:     cache,
		history:   history,
		publisher: publisher,
		snapshot:  Snapshot{State: StateIdle},
	}
	all := []core.Option{
		core.WithObserver(s),
		core.WithObserver(core.LogObserver(logger)),
	}
	if cache != nil {
		all = append(all, core.WithCache(cache))
	}
	if publisher != nil {
		all = append(all, core.WithPublisher(publisher))
	}
	s.driver = core.NewDriver(logger, append(all, opts...)...)
	return s
}

// Driver returns the service's driver, for single-token renders.
func (s *Service) Driver() *core.Driver {
	return s.driver
}

// Base returns the default request.
func (s *Service) Base() core.Request {
	return s.base
}

// Start validates req (merged over the defaults) and launches the run in
// the background. Environment problems are returned here, before the run
// starts.
func (s *Service) Start(req core.Request) (string, error) {
	req = req.Merge(s.base)

	s.mu.Lock()
	if s.running || s.reconciling {
		s.mu.Unlock()
		return "", ErrAlreadyRunning
	}
	s.running = true
	s.mu.Unlock()

	plan, err := s.driver.Preflight(req)
	if err != nil {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return "", err
	}

	runID := uuid.NewString()
	cancel := core.NewCancelToken()
	done := make(chan struct{})

	s.mu.Lock()
	s.cancel = cancel
	s.done = done
	s.snapshot = Snapshot{
		RunID:     runID,
		State:     StateRunning,
		Total:     len(plan.Files),
		StartedAt: time.Now(),
	}
	s.mu.Unlock()

	go s.run(runID, req, cancel, done)
	return runID, nil
}

func (s *Service) run(runID string, req core.Request, cancel *core.CancelToken, done chan struct{}) {
	defer close(done)

	summary, err := s.driver.RunWithID(context.Background(), runID, req, cancel)
	if r, rerr := s.reconciler(); rerr == nil {
		r.Invalidate()
	}

	s.mu.Lock()
	s.running = false
	s.snapshot.FinishedAt = time.Now()
	switch {
	case summary == nil:
		s.snapshot.State = StateFailed
	case summary.Aborted:
		s.snapshot.State = StateAborted
	case summary.Cancelled:
		s.snapshot.State = StateCancelled
	default:
		s.snapshot.State = StateFinished
	}
	if err != nil {
		s.snapshot.Error = err.Error()
	}
	if summary != nil {
		s.snapshot.Summary = summary
	}
	s.mu.Unlock()

	if err != nil && summary == nil {
		s.logger.Error("Rebuild failed to start", zap.String("run_id", runID), zap.Error(err))
		return
	}
	if s.history != nil {
		if herr := s.history.Save(req, summary); herr != nil {
			s.logger.Warn("Failed to record run history", zap.String("run_id", runID), zap.Error(herr))
		}
	}
}

// Stop requests cancellation of the running rebuild. Tokens in flight
// complete; the run then finishes as cancelled.
func (s *Service) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running || s.cancel == nil {
		return ErrNotRunning
	}
	s.cancel.Cancel()
	if s.snapshot.State == StateRunning {
		s.snapshot.State = StateStopping
	}
	return nil
}

// Status returns a copy of the current progress.
func (s *Service) Status() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

// Running reports whether a run is in progress.
func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Wait blocks until the current run (if any) finishes or ctx ends and
// returns the final snapshot.
func (s *Service) Wait(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done == nil {
		return s.Status(), nil
	}
	select {
	case <-done:
		return s.Status(), nil
	case <-ctx.Done():
		return s.Status(), ctx.Err()
	}
}

// Notify implements core.Observer and keeps the snapshot current.
func (s *Service) Notify(e core.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev := e.(type) {
	case core.RunStarted:
		if ev.RunID != s.snapshot.RunID {
			return
		}
		s.snapshot.Total = ev.Total
	case core.TokenDone:
		if ev.RunID != s.snapshot.RunID {
			return
		}
		s.snapshot.Done = ev.Done
		s.snapshot.Total = ev.Total
		s.snapshot.Current = ev.Result.TokenID
		switch ev.Result.Status {
		case core.StatusSuccess:
			s.snapshot.Success++
		case core.StatusPartial:
			s.snapshot.Partial++
		case core.StatusFailed:
			s.snapshot.Failed++
		case core.StatusSkipped:
			s.snapshot.Skipped++
		}
		if ev.Total > 0 {
			s.snapshot.Percent = float64(ev.Done) * 100 / float64(ev.Total)
		}
	}
}

// Index returns the layer index for the default layer directory.
func (s *Service) Index() (*layers.Index, error) {
	opts := layers.Options{ManifestPath: s.base.Manifest, PrefixSeparator: s.base.PrefixSeparator}
	if s.cache != nil {
		return s.cache.GetOrBuild(s.base.LayersDir, opts)
	}
	return layers.Build(s.base.LayersDir, opts)
}

// Resolve resolves one trait against the default layer directory.
func (s *Service) Resolve(category, value string) (layers.Resolution, error) {
	idx, err := s.Index()
	if err != nil {
		return layers.Resolution{}, err
	}
	return idx.Resolve(category, value)
}

// Runs lists recorded runs, newest first.
func (s *Service) Runs(limit int) ([]RunRecord, error) {
	if s.history == nil {
		return nil, ErrHistoryDisabled
	}
	return s.history.List(limit)
}

// Run returns one recorded run with its tokens.
func (s *Service) Run(id string) (*RunRecord, error) {
	if s.history == nil {
		return nil, ErrHistoryDisabled
	}
	return s.history.Get(id)
}

func (s *Service) reconciler() (*Reconciler, error) {
	return NewReconciler(s.driver, s.base, s.publisher, s.logger)
}

// Reconcile compares the configured collection with its images and returns
// the plan. Confirmed repairs run synchronously and are refused while a
// rebuild is in progress.
func (s *Service) Reconcile(ctx context.Context, opts reconcile.Options) (*reconcile.Plan, int, error) {
	r, err := s.reconciler()
	if err != nil {
		return nil, 0, err
	}
	if !opts.Confirmed || opts.DryRun {
		plan, err := r.Plan(ctx, opts)
		return plan, 0, err
	}

	s.mu.Lock()
	if s.running || s.reconciling {
		s.mu.Unlock()
		return nil, 0, ErrAlreadyRunning
	}
	s.reconciling = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.reconciling = false
		s.mu.Unlock()
	}()
	return r.Apply(ctx, opts)
}

// ReconcileToken returns where one token is present.
func (s *Service) ReconcileToken(ctx context.Context, id string) (*reconcile.Result, error) {
	r, err := s.reconciler()
	if err != nil {
		return nil, err
	}
	return r.Lookup(ctx, id)
}
