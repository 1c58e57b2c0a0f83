package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrSnakeDoc/shipcheck/internal/domain"
)

const namespace = "shipcheck"

// Metrics holds the verification collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry      *prometheus.Registry
	verifications *prometheus.CounterVec
	attempts      *prometheus.CounterVec
	health        *prometheus.CounterVec
	duration      *prometheus.HistogramVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verifications_total",
			Help:      "Verification runs by target and outcome.",
		}, []string{"target", "outcome"}),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_attempts_total",
			Help:      "Status polling attempts by target and observed service status.",
		}, []string{"target", "status"}),
		health: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "health_checks_total",
			Help:      "Health checks by target and outcome.",
		}, []string{"target", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "verification_duration_seconds",
			Help:      "Wall time of a verification run.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
		}, []string{"target"}),
	}
	m.registry.MustRegister(m.verifications, m.attempts, m.health, m.duration)
	return m
}

func (m *Metrics) ObserveAttempt(target string, status domain.ServiceStatus) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(target, status.String()).Inc()
}

func (m *Metrics) ObserveHealth(target string, outcome domain.HealthOutcome) {
	if m == nil {
		return
	}
	m.health.WithLabelValues(target, string(outcome)).Inc()
}

func (m *Metrics) ObserveReport(r *domain.Report) {
	if m == nil || r == nil {
		return
	}
	m.verifications.WithLabelValues(r.Target, string(r.Outcome)).Inc()
	m.duration.WithLabelValues(r.Target).Observe(r.Duration().Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Timeout: 5 * time.Second})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
