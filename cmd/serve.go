package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"linkrental/internal/caching"
	"linkrental/internal/config"
	"linkrental/internal/handlers"
	"linkrental/internal/jobs"
	"linkrental/internal/jobs/background"
	"linkrental/internal/middleware"
	"linkrental/internal/repositories"
	"linkrental/internal/services"
	"linkrental/internal/slug"
	"linkrental/pkg/database"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and background jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			migrate, _ := cmd.Flags().GetBool("migrate")
			return serve(cmd.Context(), migrate)
		},
	}
	cmd.Flags().Bool("migrate", false, "apply pending migrations before serving")
	return cmd
}

func serve(parent context.Context, migrate bool) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	env, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer env.close()
	cfg, logger := env.cfg, env.logger

	if migrate {
		migrator, err := database.NewMigrator(env.pool, logger)
		if err != nil {
			return err
		}
		err = migrator.Up(ctx)
		_ = migrator.Close()
		if err != nil {
			return err
		}
	}

	catalog, err := config.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		return err
	}

	cacheSvc := caching.NewRedisCacheService(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger)
	defer cacheSvc.Close()

	var archiveSvc services.ArchiveService
	if cfg.ArchiveEnabled() {
		archiveSvc, err = services.NewMinioArchiveService(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioUseSSL, cfg.MinioBucket)
		if err != nil {
			return fmt.Errorf("create archive client: %w", err)
		}
		if err := archiveSvc.EnsureBucketExists(ctx); err != nil {
			logger.Warn("Audit archive bucket unavailable", zap.String("bucket", cfg.MinioBucket), zap.Error(err))
		}
	} else {
		logger.Info("Audit archive disabled, MINIO_ENDPOINT is not set")
	}

	clock := clockwork.NewRealClock()
	rentalRepo := repositories.NewRentalRepository(env.pool)
	rentalSvc := services.NewRentalService(rentalRepo, slug.NewGenerator(), catalog, cacheSvc, archiveSvc, clock, logger, cfg.ResolveCacheTTL)

	scheduler, err := background.NewJobScheduler(
		jobs.NewExpirySweepService(rentalRepo, clock, logger),
		clock, logger, cfg.SweepInterval, cfg.StalePendingAfter,
	)
	if err != nil {
		return err
	}
	scheduler.Start()
	defer func() {
		if err := scheduler.Stop(); err != nil {
			logger.Warn("Scheduler shutdown failed", zap.Error(err))
		}
	}()

	var storage handlers.Pinger
	if archiveSvc != nil {
		storage = archiveSvc
	}
	healthHandlers := handlers.NewHealthHandlers(env.pool, cacheSvc, storage, clock, version)
	rentalHandlers := handlers.NewRentalHandlers(rentalSvc, catalog, logger)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Pre(echoMiddleware.RemoveTrailingSlash())
	e.Use(echoMiddleware.RequestID())
	e.Use(middleware.RequestLogger(logger))
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORSWithConfig(echoMiddleware.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
	}))

	// Health endpoints
	e.GET("/health", healthHandlers.HealthCheck)
	e.GET("/health/ready", healthHandlers.ReadinessCheck)
	e.GET("/health/live", healthHandlers.LivenessCheck)
	e.GET("/health/jobs", func(c echo.Context) error {
		return c.JSON(http.StatusOK, scheduler.GetJobStatus())
	})

	// API routes
	versionMiddleware := middleware.NewVersionMiddleware()
	api := e.Group("/api", versionMiddleware.VersionHeader("v1"))
	submitLimiter := middleware.NewRateLimitMiddleware(cacheSvc, cfg.SubmitRateLimit, cfg.SubmitRateWindow, logger)
	rentalHandlers.Register(api, submitLimiter.Limit("submit"))

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", zap.Int("port", cfg.Port), zap.String("env", cfg.Environment))
		if err := e.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
