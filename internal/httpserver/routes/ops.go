package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/shipcheck/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shipcheck/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/shipcheck/internal/httpserver/mw"
)

func init() { Register("ops", registerOps) }

func registerOps(r chi.Router, d deps.Deps) {
	ops := r.With(mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger))
	ops.Post("/api/verify", handlers.Verify(d))
	ops.Get("/api/infra", handlers.Infra(d))
	ops.Method("GET", "/metrics", d.Metrics.Handler())
}
