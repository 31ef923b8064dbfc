package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/woodpower/baselinker-sync-backend/internal/adapters/baselinker"
	"github.com/woodpower/baselinker-sync-backend/internal/api"
	"github.com/woodpower/baselinker-sync-backend/internal/application/priority"
	"github.com/woodpower/baselinker-sync-backend/internal/application/service"
	"github.com/woodpower/baselinker-sync-backend/internal/application/sync"
	"github.com/woodpower/baselinker-sync-backend/internal/domain/status"
	"github.com/woodpower/baselinker-sync-backend/internal/infrastructure/config"
	"github.com/woodpower/baselinker-sync-backend/internal/infrastructure/logging"
	"github.com/woodpower/baselinker-sync-backend/internal/infrastructure/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg := config.LoadOrEnvWithPath(*configPath)
	logger := logging.NewLoggerWithSystem(cfg.Observability.Logging, "api")

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	store, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Error("failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	client := baselinker.NewClient(cfg.Baselinker, logging.NewLoggerWithSystem(cfg.Observability.Logging, "baselinker"))
	resolver := status.NewResolver(store, logging.NewLoggerWithSystem(cfg.Observability.Logging, "status"))
	priorities := priority.NewRecalculator(store, logging.NewLoggerWithSystem(cfg.Observability.Logging, "priority"))
	orchestrator := sync.NewOrchestrator(cfg, client, store, resolver, priorities,
		logging.NewLoggerWithSystem(cfg.Observability.Logging, "sync"))
	svc := service.NewSyncService(orchestrator, store, logger)

	ctx := context.Background()
	svc.StartBackgroundCleanup(ctx, 5*time.Minute)

	// Mirror the remote status definitions locally; resolution falls back
	// to its hardcoded table if this fails, so a failure is not fatal.
	if _, err := sync.RefreshStatusConfigs(ctx, client, store, cfg.Production.TargetStatusID, logger); err != nil {
		logger.Warn("failed to refresh status configs", "error", err)
	}

	gin.SetMode(gin.ReleaseMode)
	server := api.NewServer(svc, store, cfg, logger)
	router := server.Router()

	addr := fmt.Sprintf(":%d", cfg.API.Port)
	logger.Info("starting API server", "addr", addr)
	if err := router.Run(addr); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
