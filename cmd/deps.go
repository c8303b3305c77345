package cmd

import (
	"context"
	"fmt"
	"time"

	"regen/core/config"
	"regen/core/database"
	"regen/core/logger"
	core "regen/core/rebuild"
	"regen/core/storage"
	"regen/feature/rebuild"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// setup loads the configuration named by --config and builds the logger.
func setup(cmd *cobra.Command) (*config.Config, *zap.Logger, error) {
	dir, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadConfig(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logg, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, logg, nil
}

// openDatabase connects to the history database when it is enabled.
// A failed connection is logged and returns nil.
func openDatabase(cfg *config.Config, logg *zap.Logger) *gorm.DB {
	if !cfg.Database.Enabled {
		return nil
	}
	db, err := database.Connect(cfg.Database)
	if err != nil {
		logg.Warn("Optional database connection failed", zap.Error(err))
		return nil
	}
	return db
}

// openHistory connects to the history database and migrates its tables.
// History stays off when either step fails.
func openHistory(cfg *config.Config, logg *zap.Logger) (*gorm.DB, *rebuild.History) {
	db := openDatabase(cfg, logg)
	if db == nil {
		return nil, nil
	}
	history := rebuild.NewHistory(db)
	if err := history.Migrate(); err != nil {
		logg.Warn("Failed to migrate run history tables", zap.Error(err))
		return db, nil
	}
	logg.Info("Run history enabled", zap.String("driver", cfg.Database.Driver))
	return db, history
}

// openStorage creates the bucket client when publishing is enabled.
func openStorage(ctx context.Context, cfg *config.Config, logg *zap.Logger) (storage.Client, error) {
	if !cfg.Storage.Enabled {
		return nil, nil
	}
	client, err := storage.NewClient(cfg.Storage)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Storage.TimeoutSeconds)*time.Second)
	defer cancel()
	if err := storage.EnsureBucket(ctx, client, cfg.Storage.Bucket, cfg.Storage.Region); err != nil {
		return nil, err
	}
	logg.Info("Publishing to bucket", zap.String("bucket", cfg.Storage.Bucket), zap.String("prefix", cfg.Storage.Prefix))
	return client, nil
}

// newPublisher returns the bucket publisher for client, or nil without one.
func newPublisher(cfg *config.Config, client storage.Client) *rebuild.BucketPublisher {
	if client == nil {
		return nil
	}
	return rebuild.NewBucketPublisher(client, cfg.Storage.Bucket, cfg.Storage.Prefix)
}

// publisherOption returns the driver option publishing through p, if any.
func publisherOption(p *rebuild.BucketPublisher) []core.Option {
	if p == nil {
		return nil
	}
	return []core.Option{core.WithPublisher(p)}
}
