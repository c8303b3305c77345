package integrity

import (
	"errors"

	"regen/core/logger"
	"regen/core/utils"
	"regen/feature/integrity/checks"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for integrity checks.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	// Force import for Swagger
	var _ = checks.SchemaReport{}
	return &Handler{service: service}
}

// RegisterRoutes registers the integrity routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/integrity")
	group.Get("/", h.HandleIntegrityCheck)
	group.Get("/layers", h.HandleLayersCheck)
	group.Get("/metadata", h.HandleMetadataCheck)
	group.Get("/output", h.HandleOutputCheck)
	group.Get("/bucket", h.HandleBucketCheck)
	group.Get("/schema", h.HandleSchemaCheck)
}

// HandleIntegrityCheck triggers all integrity checks.
// @Summary Run All Integrity Checks
// @Description Performs all available integrity checks (Layers, Metadata, Output, Bucket, Schema). The metadata check parses every record and may take a while.
// @Tags integrity
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{} "Combined Report"
// @Router /integrity [get]
func (h *Handler) HandleIntegrityCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	l.Info("Triggering all integrity checks")
	return c.JSON(h.service.Report(c.Context()))
}

// HandleLayersCheck checks and optionally fixes the layer directory.
// @Summary Check Layers
// @Description Checks manifest category directories, empty categories and files that normalize to the same name. Optionally creates missing category directories.
// @Tags integrity
// @Accept json
// @Produce json
// @Param fix query boolean false "Create missing category directories"
// @Success 200 {object} checks.LayerReport "Layer Report"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /integrity/layers [get]
func (h *Handler) HandleLayersCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	fix := utils.ToBool(c.Query("fix"))

	report, err := h.service.CheckLayers()
	if err != nil {
		l.Error("Layer check failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	if len(report.MissingDirs) > 0 {
		l.Warn("Missing category directories detected", zap.Strings("missing", report.MissingDirs))

		if fix {
			l.Info("Attempting to create missing category directories")
			if err := h.service.FixLayers(report.MissingDirs); err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error":   "Failed to fix layers",
					"details": err.Error(),
					"missing": report.MissingDirs,
				})
			}
			return c.JSON(fiber.Map{
				"status": "fixed",
				"fixed":  report.MissingDirs,
			})
		}
	}

	return c.JSON(report)
}

// HandleMetadataCheck dry-runs trait resolution.
// @Summary Check Metadata
// @Description Parses every metadata record and resolves its traits without rendering. Reports unparseable files, categories without a layer directory, unresolved traits and duplicate token ids.
// @Tags integrity
// @Accept json
// @Produce json
// @Success 200 {object} checks.MetadataReport "Metadata Report"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /integrity/metadata [get]
func (h *Handler) HandleMetadataCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	l.Info("Starting metadata check")

	report, err := h.service.CheckMetadata()
	if err != nil {
		l.Error("Metadata check failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	l.Info("Metadata check completed",
		zap.Int("files", report.Files),
		zap.Int("unresolved", len(report.Unresolved)))

	return c.JSON(report)
}

// HandleOutputCheck checks the output directory.
// @Summary Check Output
// @Description Verifies that the output directory exists and is writable.
// @Tags integrity
// @Accept json
// @Produce json
// @Success 200 {object} checks.OutputReport "Output Report"
// @Router /integrity/output [get]
func (h *Handler) HandleOutputCheck(c *fiber.Ctx) error {
	return c.JSON(h.service.CheckOutput())
}

// HandleBucketCheck checks and optionally fixes the publish bucket.
// @Summary Check Bucket
// @Description Checks that the publish bucket and its folders exist. Optionally creates them.
// @Tags integrity
// @Accept json
// @Produce json
// @Param fix query boolean false "Create the bucket and missing folders"
// @Success 200 {object} map[string]interface{} "Bucket Report"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Failure 503 {object} map[string]string "Storage disabled"
// @Router /integrity/bucket [get]
func (h *Handler) HandleBucketCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	fix := utils.ToBool(c.Query("fix"))

	missing, err := h.service.CheckBucket(c.Context())
	if errors.Is(err, ErrStorageDisabled) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		if !fix {
			l.Error("Bucket check failed", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		l.Warn("Bucket check failed, recreating bucket", zap.Error(err))
		missing = checks.RequiredFolderKeys(h.service.StoragePrefix())
	}

	if len(missing) > 0 {
		l.Warn("Missing bucket folders detected", zap.Strings("missing", missing))

		if fix {
			l.Info("Attempting to fix bucket")
			if err := h.service.FixBucket(c.Context(), missing); err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error":   "Failed to fix bucket",
					"details": err.Error(),
					"missing": missing,
				})
			}
			return c.JSON(fiber.Map{
				"status": "fixed",
				"fixed":  missing,
			})
		}
	}

	return c.JSON(fiber.Map{
		"status":  "checked",
		"missing": missing,
	})
}

// HandleSchemaCheck checks and optionally migrates the history schema.
// @Summary Check History Schema
// @Description Checks that the run history tables exist with every expected column. Optionally migrates them.
// @Tags integrity
// @Accept json
// @Produce json
// @Param fix query boolean false "Migrate the history tables"
// @Success 200 {object} checks.SchemaReport "Schema Report"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Failure 503 {object} map[string]string "Database disabled"
// @Router /integrity/schema [get]
func (h *Handler) HandleSchemaCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	fix := utils.ToBool(c.Query("fix"))

	report, err := h.service.CheckSchema()
	if errors.Is(err, ErrDatabaseDisabled) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		l.Error("Schema check failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	if !report.Matched && fix {
		l.Info("Migrating history tables")
		if err := h.service.FixSchema(); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error":   "Failed to migrate history tables",
				"details": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"status": "fixed"})
	}

	return c.JSON(report)
}
