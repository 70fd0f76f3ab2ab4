package main

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"propstack/server/config"
	"propstack/server/internal/api"
	"propstack/server/internal/dedup"
	"propstack/server/internal/engine"
	"propstack/server/internal/processor"
	"propstack/server/internal/queue"
	"propstack/server/internal/storage"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	// Local overrides; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Server.DatabasePath), 0755); err != nil {
		logger.WithError(err).Fatal("Failed to create database directory")
	}
	logger.Infof("Using database at: %s", cfg.Server.DatabasePath)

	store, err := storage.NewSQLiteStore(cfg.Server.DatabasePath, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize store")
	}

	areas, err := config.NewAreaStore(cfg.Server.AreasPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load search areas")
	}

	advanced := dedup.NewAdvancedDetector(store, logger, cfg.Dedup.GeohashPrecision)
	detectors := []dedup.Detector{
		dedup.NewBasicDetector(logger),
		advanced,
	}

	eng := engine.New(store, detectors, time.Duration(cfg.Recompute.DebounceMillis)*time.Millisecond, logger)
	defer eng.Stop()

	logger.Info("Building listing spatial index...")
	if err := eng.RefreshListingIndex(context.Background()); err != nil {
		logger.WithError(err).Error("Failed to build listing index")
	}

	dedupQueue := queue.NewListingQueue(cfg.Dedup.QueueSize, logger)
	dedupProcessor := processor.NewDedupProcessor(store, advanced, dedupQueue, cfg, logger)
	dedupProcessor.Start()
	defer dedupProcessor.Stop()

	handler := api.NewHandler(eng, areas, dedupQueue, logger)

	router := gin.Default()
	api.SetupRoutes(router, handler)

	logger.Infof("Starting server on port %s", cfg.Server.Port)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		logger.WithError(err).Fatal("Server failed to start")
	}
}
