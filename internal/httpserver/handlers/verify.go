package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/shipcheck/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shipcheck/internal/logger"
)

type verifyResponse struct {
	Triggered bool   `json:"triggered"`
	Message   string `json:"message"`
}

// Verify queues an immediate verification round.
// A round already queued answers 429.
func Verify(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		select {
		case d.VerifyTrigger <- struct{}{}:
			d.Logger.Info("manual verification triggered via endpoint",
				logger.String("remote_ip", r.RemoteAddr))
			writeJSON(w, d, http.StatusAccepted, verifyResponse{
				Triggered: true,
				Message:   "verification round queued",
			})
		default:
			d.Logger.Warn("verification round already queued",
				logger.String("remote_ip", r.RemoteAddr))
			w.Header().Set("Retry-After", "10")
			writeJSON(w, d, http.StatusTooManyRequests, verifyResponse{
				Message: "verification already queued, please wait",
			})
		}
	}
}
