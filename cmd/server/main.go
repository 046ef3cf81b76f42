package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/replenish/internal/api"
	"github.com/andresuchdata/replenish/internal/cache"
	"github.com/andresuchdata/replenish/internal/config"
	"github.com/andresuchdata/replenish/internal/pipeline"
	"github.com/andresuchdata/replenish/internal/pipeline/replenishment"
	"github.com/andresuchdata/replenish/internal/service"
	"github.com/andresuchdata/replenish/internal/storage"
	"github.com/andresuchdata/replenish/pkg/logger"
)

func main() {
	cfg := config.Load()

	logger.SetLevel(cfg.App.LogLevel)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engineCfg, err := cfg.Engine.Replenishment()
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Invalid engine configuration")
	}
	engine, err := replenishment.NewEngine(engineCfg)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to create engine")
	}

	runnerCfg := pipeline.DefaultRunnerConfig()
	runnerCfg.WorkerCount = cfg.App.Workers
	runnerCfg.IntermediateDir = cfg.App.IntermediateDir
	runnerCfg.PersistDebugLayers = cfg.App.PersistDebugLayers
	runner := pipeline.NewRunner(engine, runnerCfg)

	reportCache, err := cache.NewReportCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Report cache unavailable, continuing without it")
		reportCache = cache.NewNoopReportCache()
	}

	// Workbooks are only archived when a bucket is configured.
	var store storage.ObjectStorage
	if cfg.Storage.Endpoint != "" && cfg.Storage.Bucket != "" {
		s3Client, err := storage.NewS3Client(cfg.Storage)
		if err != nil {
			logger.Log.Warn().Err(err).Msg("Object storage unavailable, reports will not be archived")
		} else {
			store = s3Client
		}
	}

	analysisService := service.NewAnalysisService(runner, reportCache, store, cfg.App.UploadDir, cfg.Storage.Prefix)
	router := api.NewRouter(&api.Services{AnalysisService: analysisService}, cfg.Server.AllowedOrigins)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Str("policy", string(engineCfg.Policy)).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
