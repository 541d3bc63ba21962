package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/framecast/backend/internal/modules/encode"
	"github.com/framecast/backend/internal/modules/jobs"
	"github.com/framecast/backend/internal/shared/config"
	"github.com/framecast/backend/internal/shared/database"
	"github.com/framecast/backend/internal/shared/logging"
	"github.com/framecast/backend/internal/shared/metrics"
	"github.com/framecast/backend/internal/shared/storage"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := logging.NewLogger(cfg.LogLevel, cfg.Environment)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting Framecast Render Worker",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("environment", cfg.Environment),
	)

	// Initialize database
	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Initialize Redis
	redisClient, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()

	// Initialize storage
	storageService, err := storage.NewService(cfg.Storage)
	if err != nil {
		logger.Fatal("Failed to initialize storage", zap.Error(err))
	}

	// Create job handler
	jobHandler := jobs.NewHandler(jobs.HandlerConfig{
		DB:            db,
		Redis:         redisClient,
		Storage:       storageService,
		Encoder:       encode.NewEncoder(cfg.FFmpegPath, logger),
		Metrics:       metrics.New(),
		FFmpegPath:    cfg.FFmpegPath,
		AssetCacheDir: cfg.AssetCacheDir,
		Logger:        logger,
	})

	// Configure Asynq server
	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: cfg.RedisURL},
		asynq.Config{
			Concurrency: cfg.WorkerConcurrency,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("Task failed",
					zap.String("type", task.Type()),
					zap.Error(err),
				)
			}),
		},
	)

	// Register task handlers
	mux := asynq.NewServeMux()
	mux.HandleFunc(jobs.TypeRenderTimeline, jobHandler.HandleRenderTimeline)
	mux.HandleFunc(jobs.TypeCleanupFiles, jobHandler.HandleCleanupFiles)

	// Schedule periodic storage cleanup
	scheduler, err := jobs.ScheduleCleanup(cfg.RedisURL)
	if err != nil {
		logger.Fatal("Failed to create cleanup scheduler", zap.Error(err))
	}
	go func() {
		if err := scheduler.Run(); err != nil {
			logger.Error("Cleanup scheduler stopped", zap.Error(err))
		}
	}()

	// Start worker
	go func() {
		logger.Info("Worker started", zap.Int("concurrency", cfg.WorkerConcurrency))
		if err := srv.Run(mux); err != nil {
			logger.Fatal("Worker failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down worker...")
	scheduler.Shutdown()
	srv.Shutdown()
	logger.Info("Worker stopped")
}
