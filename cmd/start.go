package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"regen/core/layers"
	"regen/core/loader"
	"regen/core/logger"
	"regen/core/middleware/auth"
	"regen/core/middleware/rayid"
	"regen/feature/integrity"
	"regen/feature/rebuild"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	_ "regen/docs/swagger"
)

// @title Regen API
// @version 1.0
// @description API for rebuilding NFT collection images from metadata and trait layers.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the rebuild server",
	Long:  `Starts the HTTP server exposing rebuild control, progress and integrity checks.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1. Load Configuration and Logger
		cfg, logg, err := setup(cmd)
		if err != nil {
			return err
		}
		defer logg.Sync()
		zap.ReplaceGlobals(logg)

		if err := cfg.Server.Validate(); err != nil {
			return err
		}

		// 2. Optional run history and publishing
		db, history := openHistory(cfg, logg)
		store, err := openStorage(cmd.Context(), cfg, logg)
		if err != nil {
			logg.Warn("Publishing disabled, storage unavailable", zap.Error(err))
			store = nil
		}

		// 3. Rebuild service
		cache := layers.NewCache(cfg.Rebuild.IndexTTL())
		svc := rebuild.NewService(cfg.Rebuild.Request(), logg, cache, history, newPublisher(cfg, store))

		// 4. Initialize Fiber App
		app := fiber.New(fiber.Config{
			DisableStartupMessage: true,
		})

		// 5. Register Features
		mgr := loader.NewManager()
		mgr.Register(rebuild.NewFeature(svc))
		mgr.Register(integrity.NewFeature(cfg.Rebuild.Request(), store, cfg.Storage, db, logg))

		// Middleware Registration
		// RayID first so every log line carries it
		app.Use(rayid.New())

		app.Use(func(c *fiber.Ctx) error {
			l := logger.WithRayID(logg, c)
			l.Info("Request started",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
			)
			err := c.Next()
			if err != nil {
				l.Error("Request error", zap.Error(err))
			}
			return err
		})

		// Swagger Documentation (Public)
		app.Get("/swagger/*", swagger.HandlerDefault)

		app.Use(auth.New(auth.Config{ApiKey: cfg.Server.ApiKey}))

		if err := mgr.LoadAll(app); err != nil {
			return err
		}

		// 6. Start Server
		go func() {
			logg.Info("Starting server", zap.String("port", cfg.Server.Port))
			if err := app.Listen(cfg.Server.Address()); err != nil {
				logg.Fatal("Server failed to start", zap.Error(err))
			}
		}()

		// 7. Graceful Shutdown
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logg.Info("Shutting down server...")

		budget := time.Duration(cfg.Server.ShutdownSeconds) * time.Second
		ctx, cancel := context.WithTimeout(context.Background(), budget)
		defer cancel()

		if svc.Running() {
			logg.Info("Stopping running rebuild")
			_ = svc.Stop()
			if snap, err := svc.Wait(ctx); err != nil {
				logg.Warn("Rebuild did not stop in time", zap.String("run_id", snap.RunID), zap.Error(err))
			}
		}
		return app.ShutdownWithContext(ctx)
	},
}

func init() {
	RootCmd.AddCommand(startCmd)
}
