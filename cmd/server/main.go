package main

import (
	"log"
	"net/http"

	"github.com/foodtruck/salesync/internal/api"
	"github.com/foodtruck/salesync/internal/config"
	"github.com/foodtruck/salesync/internal/logger"
	"github.com/foodtruck/salesync/internal/repository"
	"github.com/foodtruck/salesync/internal/scheduler"
	"github.com/foodtruck/salesync/internal/square"
	"github.com/foodtruck/salesync/internal/syncer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.Init(cfg.LogLevel)

	// A store failure here is fatal: no run ever begins against a broken
	// store. This handle serves API reads; sync runs open their own.
	logger.L.Info("Initializing database", "path", cfg.DatabasePath)
	store, err := repository.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to init store: %v", err)
	}
	defer store.Close()

	client := square.NewClient(cfg.SquareBaseURL, cfg.SquareAccessToken,
		cfg.SquareVersion, cfg.RequestsPerSecond)

	openRunStore := func() (*repository.Store, error) {
		return repository.Open(cfg.DatabasePath)
	}
	syncSvc := syncer.NewService(client, openRunStore, cfg.SyncEpoch)

	sched := scheduler.New()
	if err := sched.Add(cfg.SyncSchedule, cfg.RunTimeout, syncSvc); err != nil {
		log.Fatalf("Invalid SYNC_SCHEDULE %q: %v", cfg.SyncSchedule, err)
	}
	sched.Start()
	defer sched.Stop()

	router := api.NewRouter(store, syncSvc)

	logger.L.Info("Food Truck Square Order Sync")
	logger.L.Info("Listening", "addr", "http://localhost:"+cfg.Port)
	logger.L.Info("Sync schedule", "cron", cfg.SyncSchedule)
	logger.L.Info("Endpoints:")
	logger.L.Info("  POST   /api/v1/sync/run")
	logger.L.Info("  GET    /api/v1/sync/status")
	logger.L.Info("  GET    /api/v1/sync/watermark")
	logger.L.Info("  GET    /api/v1/records")
	logger.L.Info("  GET    /api/v1/records/summary")
	logger.L.Info("  GET    /api/v1/healthz")

	if err := http.ListenAndServe(":"+cfg.Port, router); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
