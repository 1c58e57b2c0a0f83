package domain

import (
	"strings"
	"time"
)

// Markers looked for in remote command output.
const (
	MarkerUp         = "Up"
	MarkerNotRunning = "Service not running"
	MarkerHealthy    = "healthy"
	MarkerRunning    = "running"
)

// ServiceStatus is the state of the service process as seen by the status command.
type ServiceStatus int

const (
	StatusUnknown ServiceStatus = iota
	StatusNotRunning
	StatusRunning
)

func (s ServiceStatus) String() string {
	switch s {
	case StatusNotRunning:
		return "not_running"
	case StatusRunning:
		return "running"
	default:
		return "unknown"
	}
}

func (s ServiceStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *ServiceStatus) UnmarshalText(b []byte) error {
	switch string(b) {
	case "running":
		*s = StatusRunning
	case "not_running":
		*s = StatusNotRunning
	default:
		*s = StatusUnknown
	}
	return nil
}

// HealthStatus is the result of the primary health endpoint check.
type HealthStatus int

const (
	HealthUnchecked HealthStatus = iota
	HealthHealthy
	HealthDegradedOrUnknown
)

func (h HealthStatus) String() string {
	switch h {
	case HealthHealthy:
		return "healthy"
	case HealthDegradedOrUnknown:
		return "degraded_or_unknown"
	default:
		return "unchecked"
	}
}

func (h HealthStatus) MarshalText() ([]byte, error) { return []byte(h.String()), nil }

func (h *HealthStatus) UnmarshalText(b []byte) error {
	switch string(b) {
	case "healthy":
		*h = HealthHealthy
	case "degraded_or_unknown":
		*h = HealthDegradedOrUnknown
	default:
		*h = HealthUnchecked
	}
	return nil
}

// VerificationAttempt records one polling cycle of the status command.
type VerificationAttempt struct {
	AttemptNumber int           `json:"attempt_number"`
	ServiceStatus ServiceStatus `json:"service_status"`
	HealthStatus  HealthStatus  `json:"health_status"`
	Output        string        `json:"output,omitempty"`
	Error         string        `json:"error,omitempty"`
	At            time.Time     `json:"at"`
}

// ClassifyStatus maps status command output to a ServiceStatus.
// Empty output is Unknown; anything without the Up marker is NotRunning.
func ClassifyStatus(output string) ServiceStatus {
	out := strings.TrimSpace(output)
	if out == "" {
		return StatusUnknown
	}
	if strings.Contains(out, MarkerUp) && !strings.Contains(out, MarkerNotRunning) {
		return StatusRunning
	}
	return StatusNotRunning
}

// IsHealthy reports whether a health endpoint body carries the healthy marker.
func IsHealthy(body string) bool {
	return strings.Contains(body, MarkerHealthy)
}

// IsRunning reports whether a root endpoint body carries the running marker.
func IsRunning(body string) bool {
	return strings.Contains(body, MarkerRunning)
}
