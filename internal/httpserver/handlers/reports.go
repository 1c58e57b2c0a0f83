package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/shipcheck/internal/domain"
	"github.com/MrSnakeDoc/shipcheck/internal/httpserver/deps"
)

type reportsResponse struct {
	Count   int              `json:"count"`
	Reports []*domain.Report `json:"reports"`
}

// LatestReports returns the newest report of every target.
func LatestReports(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reports := d.MemoryIndex.LatestAll()
		writeJSON(w, d, http.StatusOK, reportsResponse{Count: len(reports), Reports: reports})
	}
}

// TargetReports returns the report history of one target, newest first.
// ?limit=N caps the result; the default is d.HistoryLimit.
func TargetReports(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "target")

		limit := d.HistoryLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				writeJSON(w, d, http.StatusBadRequest, errorResponse{Error: "limit must be a non-negative integer"})
				return
			}
			limit = n
		}

		reports, ok := d.MemoryIndex.History(name, limit)
		if !ok && !isConfigured(d, name) {
			writeJSON(w, d, http.StatusNotFound, errorResponse{Error: "unknown target " + strconv.Quote(name)})
			return
		}
		if reports == nil {
			reports = []*domain.Report{}
		}
		writeJSON(w, d, http.StatusOK, reportsResponse{Count: len(reports), Reports: reports})
	}
}

func isConfigured(d deps.Deps, name string) bool {
	for _, t := range d.MemoryIndex.Targets() {
		if t.Name == name {
			return true
		}
	}
	return false
}
