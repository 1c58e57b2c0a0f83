package routes

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MrSnakeDoc/shipcheck/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shipcheck/internal/httpserver/handlers"
)

func init() { Register("reports", registerReports, middleware.NoCache) }

func registerReports(r chi.Router, d deps.Deps) {
	r.Route("/api/reports", func(r chi.Router) {
		r.Get("/", handlers.LatestReports(d))
		r.Get("/{target}", handlers.TargetReports(d))
	})
}
