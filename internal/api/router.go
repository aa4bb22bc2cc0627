package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/foodtruck/salesync/internal/repository"
	"github.com/foodtruck/salesync/internal/syncer"
)

// NewRouter creates the Chi router with all API routes mounted.
func NewRouter(store *repository.Store, syncSvc *syncer.Service) http.Handler {
	h := &Handlers{
		store:   store,
		syncSvc: syncSvc,
	}

	r := chi.NewRouter()

	// Middleware.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.SetHeader("Content-Type", "application/json"))

	r.Route("/api/v1", func(r chi.Router) {
		// Sync.
		r.Post("/sync/run", h.RunSync)
		r.Get("/sync/status", h.GetSyncStatus)
		r.Get("/sync/watermark", h.GetWatermark)

		// Records.
		r.Get("/records", h.ListRecords)
		r.Get("/records/summary", h.GetSummary)

		// Health.
		r.Get("/healthz", h.Healthz)
	})

	return r
}
