package rebuild

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"regen/core/compose"
	"regen/core/metadata"
	core "regen/core/rebuild"
	"regen/core/reconcile"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// reconcileCacheTTL bounds how long source listings are reused between
// targeted lookups.
const reconcileCacheTTL = time.Minute

// ErrPublishingDisabled rejects bucket actions without a publisher.
var ErrPublishingDisabled = errors.New("publishing is disabled")

// Reconciler compares a collection's metadata records, rebuilt images and
// published copies, and repairs the drift. It implements reconcile.Mutator.
type Reconciler struct {
	driver    *core.Driver
	req       core.Request
	publisher *BucketPublisher
	logger    *zap.Logger
	spec      *reconcile.Spec
}

// NewReconciler creates a reconciler for req. publisher may be nil, which
// leaves the bucket out of every comparison.
func NewReconciler(driver *core.Driver, req core.Request, publisher *BucketPublisher, logger *zap.Logger) (*Reconciler, error) {
	format, err := compose.ParseFormat(req.Format)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidRequest, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	spec := &reconcile.Spec{
		Metadata: &reconcile.MetadataSource{Dir: req.MetadataDir, Options: metadata.Options{SkipValues: req.SkipValues}},
		Output:   &reconcile.DirSource{Dir: req.OutputDir, Extension: format.Extension()},
		CacheTTL: reconcileCacheTTL,
	}
	if publisher != nil {
		spec.Bucket = &reconcile.BucketSource{
			Client:    publisher.client,
			Bucket:    publisher.bucket,
			Prefix:    publisher.prefix,
			Extension: format.Extension(),
		}
	}

	return &Reconciler{driver: driver, req: req, publisher: publisher, logger: logger, spec: spec}, nil
}

// Plan reports drift and the actions opts would take, without running them.
func (r *Reconciler) Plan(ctx context.Context, opts reconcile.Options) (*reconcile.Plan, error) {
	return reconcile.ReconcileWithPlan(ctx, r.spec, opts)
}

// Apply plans and, when opts are confirmed, executes the actions.
func (r *Reconciler) Apply(ctx context.Context, opts reconcile.Options) (*reconcile.Plan, int, error) {
	plan, executed, err := reconcile.ReconcileAndApply(ctx, r.spec, r, opts)
	if err != nil {
		return plan, executed, err
	}
	r.logger.Info("Reconcile completed",
		zap.Int("total", plan.Summary.TotalItems),
		zap.Int("actions", len(plan.Actions)),
		zap.Int("executed", executed))
	return plan, executed, nil
}

// Execute runs the actions of a plan made earlier by Plan.
func (r *Reconciler) Execute(ctx context.Context, plan *reconcile.Plan, opts reconcile.Options) (int, error) {
	return reconcile.ApplyPlan(ctx, r.spec, r, plan, opts)
}

// Lookup returns the reconciliation result of one token.
func (r *Reconciler) Lookup(ctx context.Context, id string) (*reconcile.Result, error) {
	return reconcile.ReconcileOne(ctx, r.spec, id)
}

// Invalidate drops cached listings, e.g. after a run wrote new images.
func (r *Reconciler) Invalidate() {
	reconcile.InvalidateCache(r.spec)
}

// Rebuild renders one token. A token that fails to render is an error; a
// partial render is not.
func (r *Reconciler) Rebuild(ctx context.Context, action reconcile.Action) error {
	res, err := r.driver.RebuildToken(ctx, r.req, action.Path)
	if res.Status == core.StatusFailed || res.Status == "" {
		return err
	}
	return nil
}

// Publish uploads one local image.
func (r *Reconciler) Publish(ctx context.Context, action reconcile.Action) error {
	if r.publisher == nil {
		return ErrPublishingDisabled
	}
	return r.publisher.PublishImage(ctx, action.Key, action.Path)
}

// DeleteOutput removes one local image.
func (r *Reconciler) DeleteOutput(ctx context.Context, action reconcile.Action) error {
	if err := os.Remove(action.Path); err != nil && !os.IsNotExist(err) {
		return err
	}
	r.logger.Info("Removed orphaned image", zap.String("path", action.Path))
	return nil
}

// DeleteObject removes one published image.
func (r *Reconciler) DeleteObject(ctx context.Context, action reconcile.Action) error {
	if r.publisher == nil {
		return ErrPublishingDisabled
	}
	if err := r.publisher.client.RemoveObject(ctx, r.publisher.bucket, action.Path, minio.RemoveObjectOptions{}); err != nil {
		return err
	}
	r.logger.Info("Removed orphaned object", zap.String("key", action.Path))
	return nil
}
