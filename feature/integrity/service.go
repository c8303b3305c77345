package integrity

import (
	"context"
	"errors"

	"regen/core/layers"
	"regen/core/metadata"
	core "regen/core/rebuild"
	"regen/core/storage"
	"regen/feature/integrity/checks"
	"regen/feature/rebuild"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrStorageDisabled is returned by bucket checks without a storage client.
	ErrStorageDisabled = errors.New("storage is disabled")
	// ErrDatabaseDisabled is returned by schema checks without a database.
	ErrDatabaseDisabled = errors.New("database is disabled")
)

// Service handles integrity checks.
type Service struct {
	req     core.Request
	client  storage.Client
	storage storage.Config
	db      *gorm.DB
	logger  *zap.Logger
}

// NewService creates a new integrity service. client and db may be nil when
// publishing or history are disabled.
func NewService(req core.Request, client storage.Client, storageCfg storage.Config, db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{
		req:     req,
		client:  client,
		storage: storageCfg,
		db:      db,
		logger:  logger,
	}
}

func (s *Service) layerOptions() layers.Options {
	return layers.Options{ManifestPath: s.req.Manifest, PrefixSeparator: s.req.PrefixSeparator}
}

// CheckLayers reports the layer directory structure.
func (s *Service) CheckLayers() (*checks.LayerReport, error) {
	return checks.CheckLayers(s.req.LayersDir, s.layerOptions())
}

// FixLayers creates missing category directories.
func (s *Service) FixLayers(missing []string) error {
	return checks.FixLayers(s.logger, missing)
}

// CheckMetadata resolves every record's traits without rendering.
func (s *Service) CheckMetadata() (*checks.MetadataReport, error) {
	idx, err := layers.Build(s.req.LayersDir, s.layerOptions())
	if err != nil {
		return nil, err
	}
	return checks.CheckMetadata(s.req.MetadataDir, idx, metadata.Options{SkipValues: s.req.SkipValues})
}

// CheckOutput reports whether the output directory is writable.
func (s *Service) CheckOutput() *checks.OutputReport {
	return checks.CheckOutput(s.req.OutputDir)
}

// StoragePrefix returns the publish prefix inside the bucket.
func (s *Service) StoragePrefix() string {
	return s.storage.Prefix
}

// CheckBucket returns the publish folders missing from the bucket.
func (s *Service) CheckBucket(ctx context.Context) ([]string, error) {
	if s.client == nil {
		return nil, ErrStorageDisabled
	}
	return checks.CheckBucket(ctx, s.client, s.storage.Bucket, s.storage.Prefix)
}

// FixBucket creates the bucket and the missing folders.
func (s *Service) FixBucket(ctx context.Context, missing []string) error {
	if s.client == nil {
		return ErrStorageDisabled
	}
	return checks.FixBucket(ctx, s.client, s.storage.Bucket, s.storage.Region, s.logger, missing)
}

// CheckSchema verifies the run history tables.
func (s *Service) CheckSchema() (*checks.SchemaReport, error) {
	if s.db == nil {
		return nil, ErrDatabaseDisabled
	}
	return checks.CheckSchema(s.db, rebuild.HistoryTables)
}

// FixSchema migrates the run history tables.
func (s *Service) FixSchema() error {
	if s.db == nil {
		return ErrDatabaseDisabled
	}
	return rebuild.NewHistory(s.db).Migrate()
}

// Report runs every check. Disabled checks are reported as skipped.
func (s *Service) Report(ctx context.Context) map[string]any {
	report := make(map[string]any)

	if r, err := s.CheckLayers(); err != nil {
		report["layers"] = map[string]any{"status": "error", "error": err.Error()}
	} else {
		report["layers"] = r
	}

	if r, err := s.CheckMetadata(); err != nil {
		report["metadata"] = map[string]any{"status": "error", "error": err.Error()}
	} else {
		report["metadata"] = r
	}

	report["output"] = s.CheckOutput()

	switch missing, err := s.CheckBucket(ctx); {
	case errors.Is(err, ErrStorageDisabled):
		report["bucket"] = map[string]any{"status": "skipped"}
	case err != nil:
		report["bucket"] = map[string]any{"status": "error", "error": err.Error()}
	default:
		report["bucket"] = map[string]any{"status": "ok", "missing": missing}
	}

	switch r, err := s.CheckSchema(); {
	case errors.Is(err, ErrDatabaseDisabled):
		report["schema"] = map[string]any{"status": "skipped"}
	case err != nil:
		report["schema"] = map[string]any{"status": "error", "error": err.Error()}
	default:
		report["schema"] = r
	}

	return report
}
