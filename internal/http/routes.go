// Package httpx serves the agent's read-only operator API.
package httpx

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// RouterServices holds everything the ops router serves.
type RouterServices struct {
	Stats   StatsSource
	Jobs    JobFetcher
	Journal JournalReader
	// Ready lists the dependencies probed by /readyz, keyed by name.
	Ready  map[string]HealthChecker
	Logger *slog.Logger
}

// NewRouter builds the ops router with request id, logging and recovery.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ops := &OpsHandlers{Stats: services.Stats, Jobs: services.Jobs, Journal: services.Journal, Logger: logger}

	r := chi.NewRouter()
	r.Use(Recover(logger))
	r.Use(middleware.RequestID)
	r.Use(Logging(logger))

	r.Get("/healthz", healthHandler)
	r.Head("/healthz", healthHandler)
	r.Get("/readyz", readyHandler(services.Ready))

	r.Route("/v1", func(r chi.Router) {
		r.Get("/dispatch/stats", ops.dispatchStats)
		if services.Jobs != nil {
			r.Get("/jobs/{jobID}", ops.getJob)
		}
		r.Get("/transactions/recent", ops.recentTransactions)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "message": "route not found"})
	})
	return r
}
