package integrity

import (
	core "regen/core/rebuild"
	"regen/core/storage"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Feature implements the loader.Feature interface.
type Feature struct {
	service *Service
}

// NewFeature creates a new integrity feature.
func NewFeature(req core.Request, client storage.Client, storageCfg storage.Config, db *gorm.DB, logger *zap.Logger) *Feature {
	return &Feature{service: NewService(req, client, storageCfg, db, logger)}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "integrity"
}

// IsEnabled checks if the feature is enabled.
func (f *Feature) IsEnabled() bool {
	return true
}

// Load registers the feature's routes.
func (f *Feature) Load(app fiber.Router) error {
	NewHandler(f.service).RegisterRoutes(app)
	return nil
}
