package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/cuongbtq/clipstack/internal/api/handler"
	"github.com/cuongbtq/clipstack/internal/api/router"
	"github.com/cuongbtq/clipstack/internal/api/service"
	"github.com/cuongbtq/clipstack/internal/blob"
	"github.com/cuongbtq/clipstack/internal/bootstrap"
	"github.com/cuongbtq/clipstack/internal/combiner"
	"github.com/cuongbtq/clipstack/internal/config"
	"github.com/cuongbtq/clipstack/internal/metrics"
	"github.com/cuongbtq/clipstack/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	defaultConfigPath := os.Getenv("API_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/api-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateAPIConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := bootstrap.InitLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger.Info("Starting API service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
		slog.String("mode", cfg.Server.Mode),
	)

	ctx := context.Background()
	m := metrics.New()

	deps := &handler.Dependencies{
		Logger:        appLogger.Logger,
		ServiceName:   cfg.App.Name,
		Mode:          cfg.Server.Mode,
		MaxUploadSize: cfg.Server.MaxUploadSize,
		Metrics:       m,
		HealthChecks:  map[string]handler.HealthChecker{},
	}

	var closers []func() error
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				appLogger.Error("Failed to release resource", slog.Any("error", err))
			}
		}
	}()

	var store blob.Store
	if cfg.Server.Mode != config.ModeSync {
		store, err = bootstrap.OpenBlobStore(ctx, &cfg.Storage)
		if err != nil {
			return fmt.Errorf("failed to initialize blob store: %w", err)
		}
		if local, ok := store.(*blob.LocalStore); ok {
			deps.Downloads = local
		}
		appLogger.Info("Blob store ready", slog.String("provider", cfg.Storage.Provider))
	}

	switch cfg.Server.Mode {
	case config.ModeAsync:
		dbClient, err := bootstrap.OpenDatabase(&cfg.Database, appLogger.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		closers = append(closers, dbClient.Close)
		deps.HealthChecks["database"] = dbClient.HealthCheck

		jobs := storage.NewStorage(dbClient.GetDB(), appLogger.Logger)
		if err := jobs.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("failed to prepare database schema: %w", err)
		}

		q, closeQueue, err := bootstrap.OpenQueue(ctx, cfg, appLogger.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize queue: %w", err)
		}
		closers = append(closers, closeQueue)
		appLogger.Info("Job queue ready", slog.String("provider", cfg.Queue.Provider))

		deps.Submitter = service.NewSubmissionService(store, jobs, q, m, appLogger.Logger)
		deps.Status = service.NewStatusService(jobs, store, appLogger.Logger)
	default:
		c := combiner.New(cfg.FFmpeg.Binary, cfg.FFmpeg.StderrLimit, appLogger.Logger)
		processing, err := service.NewProcessingService(c, store, cfg.Server.UploadDir, cfg.Server.OutputDir, appLogger.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize processing: %w", err)
		}
		deps.Processor = processing
	}

	r := initRouter(cfg.App.Environment, deps)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	appLogger.Info("Starting HTTP server",
		slog.String("address", addr),
		slog.Duration("read_timeout", cfg.Server.ReadTimeout),
		slog.Duration("write_timeout", cfg.Server.WriteTimeout),
	)

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		appLogger.Info("Shutting down server...", slog.String("signal", sig.String()))
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", slog.Any("error", err))
		return err
	}

	appLogger.Info("Server shutdown complete")
	return nil
}

// initRouter initializes the Gin router with all routes and middleware
func initRouter(environment string, deps *handler.Dependencies) *gin.Engine {
	if environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	return router.SetupRouter(deps)
}
