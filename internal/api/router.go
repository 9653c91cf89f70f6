package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/starford/semindex/internal/vaultservice"
)

// NewRouter creates a chi router with all API routes mounted.
func NewRouter(svc *vaultservice.Service, logger *slog.Logger) chi.Router {
	if logger == nil {
		logger = slog.Default()
	}
	h := NewHandler(svc, logger)

	r := chi.NewRouter()
	r.Use(RequestLogger(logger))

	r.Get("/scan", h.Scan)
	r.Get("/notes/*", h.GetNote)
	r.Put("/entries/*", h.UpdateEntry)
	r.Get("/search", h.Search)
	r.Post("/misses", h.RecordMiss)
	r.Get("/misses", h.ListMisses)
	r.Get("/stats", h.Stats)
	r.Post("/prune", h.Prune)

	return r
}
