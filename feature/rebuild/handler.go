package rebuild

import (
	"errors"

	"regen/core/layers"
	"regen/core/logger"
	"regen/core/naming"
	core "regen/core/rebuild"
	"regen/core/reconcile"
	"regen/core/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for rebuild runs.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the rebuild routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/rebuild")
	group.Post("/start", h.HandleStart)
	group.Post("/stop", h.HandleStop)
	group.Get("/status", h.HandleStatus)
	group.Get("/resolve", h.HandleResolve)
	group.Get("/layers", h.HandleLayers)
	group.Get("/runs", h.HandleRuns)
	group.Get("/runs/:id", h.HandleRun)
	group.Get("/reconcile", h.HandleReconcilePlan)
	group.Post("/reconcile", h.HandleReconcileApply)
	group.Get("/reconcile/:id", h.HandleReconcileToken)
}

// ResolveResponse is the outcome of a single trait lookup.
type ResolveResponse struct {
	Category     string             `json:"category"`
	Value        string             `json:"value"`
	Key          string             `json:"key"`
	Candidate    *layers.Candidate  `json:"candidate,omitempty"`
	Alternatives []layers.Candidate `json:"alternatives,omitempty"`
}

// HandleStart starts a rebuild run.
// @Summary Start Rebuild
// @Description Validates the inputs and starts rebuilding every token in the background. Empty fields fall back to the configured defaults.
// @Tags rebuild
// @Accept json
// @Produce json
// @Param request body core.Request false "Overrides of the configured rebuild settings"
// @Success 202 {object} map[string]string "Run started"
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 409 {object} map[string]string "A rebuild is already in progress"
// @Failure 422 {object} map[string]string "Inputs missing or invalid"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /rebuild/start [post]
func (h *Handler) HandleStart(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	var req core.Request
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body", "details": err.Error()})
		}
	}

	runID, err := h.service.Start(req)
	if err != nil {
		status := startErrorStatus(err)
		if status >= fiber.StatusInternalServerError {
			l.Error("Failed to start rebuild", zap.Error(err))
		} else {
			l.Warn("Rebuild rejected", zap.Error(err))
		}
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}

	l.Info("Rebuild started", zap.String("run_id", runID))
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"run_id": runID, "status": string(StateRunning)})
}

func startErrorStatus(err error) int {
	switch {
	case errors.Is(err, ErrAlreadyRunning):
		return fiber.StatusConflict
	case errors.Is(err, core.ErrInvalidRequest):
		return fiber.StatusBadRequest
	case errors.Is(err, core.ErrMissingInput), errors.Is(err, layers.ErrMissingCategoryDir):
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}

// HandleStop requests cancellation of the running rebuild.
// @Summary Stop Rebuild
// @Description Stops the running rebuild after the tokens in flight. Already written images are kept.
// @Tags rebuild
// @Produce json
// @Success 200 {object} map[string]string "Stopping"
// @Failure 409 {object} map[string]string "No rebuild is running"
// @Router /rebuild/stop [post]
func (h *Handler) HandleStop(c *fiber.Ctx) error {
	if err := h.service.Stop(); err != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	}
	logger.WithRayID(h.service.logger, c).Info("Rebuild stop requested")
	return c.JSON(fiber.Map{"status": string(StateStopping)})
}

// HandleStatus returns the progress of the current or last run.
// @Summary Rebuild Status
// @Description Returns counters and percentage of the current or last run. The full per-token summary is included with summary=true.
// @Tags rebuild
// @Produce json
// @Param summary query boolean false "Include the last run summary"
// @Success 200 {object} Snapshot "Progress"
// @Router /rebuild/status [get]
func (h *Handler) HandleStatus(c *fiber.Ctx) error {
	snap := h.service.Status()
	if !utils.ToBool(c.Query("summary")) {
		snap.Summary = nil
	}
	return c.JSON(snap)
}

// HandleResolve resolves one trait to a layer file.
// @Summary Resolve Trait
// @Description Shows which layer file a category/value pair resolves to, including tie-break alternatives.
// @Tags rebuild
// @Produce json
// @Param category query string true "Trait category"
// @Param value query string true "Trait value"
// @Success 200 {object} ResolveResponse "Resolved layer"
// @Failure 400 {object} map[string]string "Missing parameters"
// @Failure 404 {object} ResolveResponse "Trait not resolved"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /rebuild/resolve [get]
func (h *Handler) HandleResolve(c *fiber.Ctx) error {
	category, value := c.Query("category"), c.Query("value")
	if category == "" || value == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "category and value are required"})
	}

	resp := ResolveResponse{Category: category, Value: value, Key: naming.Normalize(value)}
	res, err := h.service.Resolve(category, value)
	switch {
	case errors.Is(err, layers.ErrTraitUnresolved), errors.Is(err, layers.ErrUnknownCategory):
		return c.Status(fiber.StatusNotFound).JSON(resp)
	case err != nil:
		logger.WithRayID(h.service.logger, c).Error("Failed to index layers", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	resp.Category = res.Category
	resp.Candidate = &res.Candidate
	resp.Alternatives = res.Alternatives
	return c.JSON(resp)
}

// HandleLayers lists the indexed layer categories.
// @Summary List Layers
// @Description Lists layer categories with candidate counts, or the candidates of one category.
// @Tags rebuild
// @Produce json
// @Param category query string false "Only list this category's candidates"
// @Success 200 {object} map[string]interface{} "Layer index"
// @Failure 404 {object} map[string]string "Unknown category"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /rebuild/layers [get]
func (h *Handler) HandleLayers(c *fiber.Ctx) error {
	idx, err := h.service.Index()
	if err != nil {
		logger.WithRayID(h.service.logger, c).Error("Failed to index layers", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	if category := c.Query("category"); category != "" {
		if !idx.HasCategory(category) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown category " + category})
		}
		return c.JSON(fiber.Map{"category": category, "candidates": idx.Candidates(category)})
	}

	return c.JSON(fiber.Map{
		"root":       idx.Root(),
		"total":      idx.Len(),
		"categories": idx.Categories(),
	})
}

// HandleRuns lists recorded runs.
// @Summary List Runs
// @Description Lists recorded rebuild runs, newest first. Requires the history database.
// @Tags rebuild
// @Produce json
// @Param limit query int false "Maximum number of runs (default 50)"
// @Success 200 {array} RunRecord "Runs"
// @Failure 503 {object} map[string]string "History disabled"
// @Router /rebuild/runs [get]
func (h *Handler) HandleRuns(c *fiber.Ctx) error {
	runs, err := h.service.Runs(c.QueryInt("limit", 50))
	if err != nil {
		return h.historyError(c, err)
	}
	return c.JSON(runs)
}

// HandleRun returns one recorded run with its tokens.
// @Summary Get Run
// @Description Returns one recorded run with per-token outcomes.
// @Tags rebuild
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} RunRecord "Run"
// @Failure 404 {object} map[string]string "Run not found"
// @Failure 503 {object} map[string]string "History disabled"
// @Router /rebuild/runs/{id} [get]
func (h *Handler) HandleRun(c *fiber.Ctx) error {
	run, err := h.service.Run(c.Params("id"))
	if err != nil {
		return h.historyError(c, err)
	}
	return c.JSON(run)
}

func (h *Handler) historyError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrHistoryDisabled):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrRunNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	default:
		logger.WithRayID(h.service.logger, c).Error("History query failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
}

// ReconcileResponse is a reconciliation plan and how many of its actions ran.
type ReconcileResponse struct {
	Plan     *reconcile.Plan `json:"plan"`
	Executed int             `json:"executed"`
}

// HandleReconcilePlan reports drift between metadata, images and bucket.
// @Summary Reconcile Plan
// @Description Compares metadata records, rebuilt images and published images and lists the actions the selected repairs would take. Nothing is changed.
// @Tags rebuild
// @Produce json
// @Param rebuild query boolean false "Plan renders of missing or stale images"
// @Param publish query boolean false "Plan uploads of unpublished images"
// @Param purge query boolean false "Plan deletion of images without metadata"
// @Success 200 {object} ReconcileResponse "Plan"
// @Failure 400 {object} map[string]string "Invalid rebuild settings"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /rebuild/reconcile [get]
func (h *Handler) HandleReconcilePlan(c *fiber.Ctx) error {
	opts := reconcile.Options{
		DoRebuild: utils.ToBool(c.Query("rebuild")),
		DoPublish: utils.ToBool(c.Query("publish")),
		DoPurge:   utils.ToBool(c.Query("purge")),
		DryRun:    true,
	}
	plan, _, err := h.service.Reconcile(c.Context(), opts)
	if err != nil {
		return h.reconcileError(c, err)
	}
	return c.JSON(ReconcileResponse{Plan: plan})
}

// HandleReconcileApply runs the selected repairs.
// @Summary Apply Reconcile
// @Description Plans and runs the selected repairs. Actions only run with confirmed=true and dry_run=false.
// @Tags rebuild
// @Accept json
// @Produce json
// @Param options body reconcile.Options true "Repairs to run"
// @Success 200 {object} ReconcileResponse "Plan and executed count"
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 409 {object} map[string]string "A rebuild is in progress"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /rebuild/reconcile [post]
func (h *Handler) HandleReconcileApply(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	var opts reconcile.Options
	if err := c.BodyParser(&opts); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body", "details": err.Error()})
	}

	plan, executed, err := h.service.Reconcile(c.Context(), opts)
	if err != nil {
		l.Error("Reconcile failed", zap.Int("executed", executed), zap.Error(err))
		return h.reconcileError(c, err)
	}
	l.Info("Reconcile applied", zap.Int("actions", len(plan.Actions)), zap.Int("executed", executed))
	return c.JSON(ReconcileResponse{Plan: plan, Executed: executed})
}

// HandleReconcileToken reports where one token is present.
// @Summary Reconcile Token
// @Description Shows whether one token has a metadata record, a rebuilt image and a published copy.
// @Tags rebuild
// @Produce json
// @Param id path string true "Token ID"
// @Success 200 {object} reconcile.Result "Token presence"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /rebuild/reconcile/{id} [get]
func (h *Handler) HandleReconcileToken(c *fiber.Ctx) error {
	res, err := h.service.ReconcileToken(c.Context(), c.Params("id"))
	if err != nil {
		return h.reconcileError(c, err)
	}
	return c.JSON(res)
}

func (h *Handler) reconcileError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrAlreadyRunning):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, core.ErrInvalidRequest):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	default:
		logger.WithRayID(h.service.logger, c).Error("Reconcile query failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
}
