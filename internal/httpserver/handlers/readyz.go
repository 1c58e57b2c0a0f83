package handlers

import (
	"net/http"
	"time"

	"github.com/MrSnakeDoc/shipcheck/internal/httpserver/deps"
)

type readyzResponse struct {
	Ready     bool   `json:"ready"`
	Targets   int    `json:"targets"`
	LastRound string `json:"last_round,omitempty"`
}

// Readyz is ready once the first verification round has completed.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		last := d.MemoryIndex.LastRound()
		resp := readyzResponse{
			Ready:   !last.IsZero(),
			Targets: len(d.MemoryIndex.Targets()),
		}

		status := http.StatusServiceUnavailable
		if resp.Ready {
			status = http.StatusOK
			resp.LastRound = last.UTC().Format(time.RFC3339)
		}
		writeJSON(w, d, status, resp)
	}
}
