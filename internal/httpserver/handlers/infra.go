package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/shipcheck/internal/domain"
	"github.com/MrSnakeDoc/shipcheck/internal/httpserver/deps"
)

const (
	modeOK       = "ok"
	modeDegraded = "degraded"
	modeCritical = "critical"
)

type componentStatus struct {
	OK            bool           `json:"ok"`
	TargetsLoaded *int           `json:"targets_loaded,omitempty"`
	LastRound     string         `json:"last_round,omitempty"`
	Kind          string         `json:"kind,omitempty"`
	Mode          string         `json:"mode,omitempty"`
	Impact        string         `json:"impact,omitempty"`
	Outcomes      map[string]int `json:"outcomes,omitempty"`
	Error         string         `json:"error,omitempty"`
}

type infraResponse struct {
	Mode       string                     `json:"mode"`
	Components map[string]componentStatus `json:"components"`
}

func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		targetsCount := len(d.MemoryIndex.Targets())
		lastRound := d.MemoryIndex.LastRound()
		lastRoundStr := "never"
		if !lastRound.IsZero() {
			lastRoundStr = lastRound.UTC().Format(time.RFC3339)
		}

		components := map[string]componentStatus{
			"targets": {
				OK:            targetsCount > 0,
				TargetsLoaded: &targetsCount,
				LastRound:     lastRoundStr,
			},
			"channel": {
				OK:   d.ChannelKind != "",
				Kind: d.ChannelKind,
			},
			"redis":         checkRedis(r.Context(), d),
			"verifications": summarizeOutcomes(d),
		}

		writeJSON(w, d, http.StatusOK, infraResponse{
			Mode:       determineMode(components),
			Components: components,
		})
	}
}

func determineMode(components map[string]componentStatus) string {
	if t, ok := components["targets"]; ok && !t.OK {
		return modeCritical
	}
	if v, ok := components["verifications"]; ok && !v.OK {
		return modeCritical
	}
	if rs, ok := components["redis"]; ok && !rs.OK {
		return modeDegraded
	}
	if v, ok := components["verifications"]; ok && v.Mode == modeDegraded {
		return modeDegraded
	}
	return modeOK
}

// summarizeOutcomes counts the latest outcome per target. A target that did
// not start is critical; an unstable one or a degraded health check degrades.
func summarizeOutcomes(d deps.Deps) componentStatus {
	outcomes := map[string]int{}
	status := componentStatus{OK: true, Mode: modeOK, Outcomes: outcomes}

	for _, rep := range d.MemoryIndex.LatestAll() {
		outcomes[string(rep.Outcome)]++
		switch {
		case rep.Outcome == domain.OutcomeDidNotStart:
			status.OK = false
			status.Mode = modeCritical
		case status.OK && (rep.Outcome == domain.OutcomeUnstable ||
			rep.Health.Outcome == domain.HealthOutcomeDegraded ||
			rep.Health.Outcome == domain.HealthOutcomeUnverified):
			status.Mode = modeDegraded
		}
	}
	return status
}

func checkRedis(ctx context.Context, d deps.Deps) componentStatus {
	if d.Store == nil {
		return componentStatus{
			OK:     true,
			Mode:   "disabled",
			Impact: "history-in-memory-only",
		}
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := d.Store.Ping(ctx); err != nil {
		return componentStatus{
			OK:     false,
			Mode:   modeDegraded,
			Impact: "history-not-persisted",
			Error:  err.Error(),
		}
	}

	return componentStatus{
		OK:     true,
		Mode:   "optimal",
		Impact: "history-persisted",
	}
}
