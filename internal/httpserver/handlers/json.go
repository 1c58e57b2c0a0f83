package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/MrSnakeDoc/shipcheck/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shipcheck/internal/logger"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, d deps.Deps, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		d.Logger.Debug("failed to write response", logger.Error(err))
	}
}
