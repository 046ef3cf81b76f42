package main

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/replenish/internal/config"
	"github.com/andresuchdata/replenish/internal/drive"
	"github.com/andresuchdata/replenish/internal/pipeline"
	"github.com/andresuchdata/replenish/internal/pipeline/replenishment"
	"github.com/andresuchdata/replenish/pkg/logger"
)

func main() {
	cfg := config.Load()
	logger.SetLevel(cfg.App.LogLevel)

	driveService, err := drive.NewService(context.Background(), cfg.Drive.CredentialsJSON)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize Google Drive service")
	}

	engineCfg, err := cfg.Engine.Replenishment()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid engine configuration")
	}
	engine, err := replenishment.NewEngine(engineCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create engine")
	}

	runnerCfg := pipeline.DefaultRunnerConfig()
	runnerCfg.WorkerCount = cfg.App.Workers
	runnerCfg.OutputDir = cfg.App.OutputDir
	runnerCfg.IntermediateDir = cfg.App.IntermediateDir
	runnerCfg.PersistDebugLayers = cfg.App.PersistDebugLayers
	runner := pipeline.NewRunner(engine, runnerCfg)

	analyzer := drive.NewFolderAnalyzer(driveService, runner, filepath.Join(cfg.App.UploadDir, "drive"))

	r := mux.NewRouter()
	driveHandler := drive.NewHandler(driveService, analyzer)
	driveHandler.RegisterRoutes(r)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Info().Str("addr", addr).Msg("Drive API server starting")
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatal().Err(err).Msg("Drive API server stopped")
	}
}
