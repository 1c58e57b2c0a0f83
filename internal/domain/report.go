package domain

import (
	"time"

	"github.com/google/uuid"
)

// Outcome is the verdict on whether the service process came up.
type Outcome string

const (
	OutcomeRunning     Outcome = "running"
	OutcomeDidNotStart Outcome = "did_not_start"
	OutcomeUnstable    Outcome = "unstable"
	OutcomeCancelled   Outcome = "cancelled"
)

// HealthOutcome classifies CheckHealth. Only Healthy is a clean pass; the
// others are accepted with a warning.
type HealthOutcome string

const (
	HealthOutcomeUnchecked  HealthOutcome = "unchecked"
	HealthOutcomeHealthy    HealthOutcome = "healthy"
	HealthOutcomeDegraded   HealthOutcome = "degraded"
	HealthOutcomeUnverified HealthOutcome = "unverified"
)

// ProbeResult is the outcome of a direct HTTP request to the external host.
type ProbeResult struct {
	URL        string        `json:"url"`
	StatusCode int           `json:"status_code,omitempty"`
	Healthy    bool          `json:"healthy"`
	Body       string        `json:"body,omitempty"`
	Latency    time.Duration `json:"latency"`
	Error      string        `json:"error,omitempty"`
}

// HealthResult is what CheckHealth observed.
type HealthResult struct {
	Outcome      HealthOutcome `json:"outcome"`
	Status       HealthStatus  `json:"status"`
	PrimaryBody  string        `json:"primary_body,omitempty"`
	FallbackBody string        `json:"fallback_body,omitempty"`
	External     *ProbeResult  `json:"external,omitempty"`
}

// StabilityResult covers the re-checks made after the first Running status.
type StabilityResult struct {
	Checks   int                   `json:"checks"`
	Stable   bool                  `json:"stable"`
	Attempts []VerificationAttempt `json:"attempts,omitempty"`
}

// Report is the record of one verification run against one target.
type Report struct {
	ID             string                `json:"id"`
	Target         string                `json:"target"`
	InstanceID     string                `json:"instance_id"`
	StartedAt      time.Time             `json:"started_at"`
	FinishedAt     time.Time             `json:"finished_at"`
	Outcome        Outcome               `json:"outcome"`
	Attempts       []VerificationAttempt `json:"attempts"`
	Health         HealthResult          `json:"health"`
	Stability      *StabilityResult      `json:"stability,omitempty"`
	DiagnosticLog  string                `json:"diagnostic_log,omitempty"`
	DiagnosticsRun bool                  `json:"diagnostics_run"`
	Warnings       []string              `json:"warnings,omitempty"`
}

// NewReport starts a report for target at now.
func NewReport(t Target, now time.Time) *Report {
	return &Report{
		ID:         uuid.NewString(),
		Target:     t.Name,
		InstanceID: t.InstanceID,
		StartedAt:  now,
		Health:     HealthResult{Outcome: HealthOutcomeUnchecked},
	}
}

// Warn appends a human-readable warning.
func (r *Report) Warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// Duration is zero until the report is finished.
func (r *Report) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Failed reports whether this run is build-fatal.
func (r *Report) Failed() bool {
	return r.Outcome == OutcomeDidNotStart || r.Outcome == OutcomeUnstable
}
