package verifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrSnakeDoc/shipcheck/internal/clock"
	"github.com/MrSnakeDoc/shipcheck/internal/domain"
	"github.com/MrSnakeDoc/shipcheck/internal/logger"
	"github.com/MrSnakeDoc/shipcheck/internal/metrics"
	"github.com/MrSnakeDoc/shipcheck/internal/remote"
)

const (
	DefaultMaxRetries        = 10
	DefaultDelay             = 10 * time.Second
	DefaultStabilityInterval = 5 * time.Second
)

// Options tunes the polling loop.
type Options struct {
	MaxRetries        int           // status attempts before giving up (ex: 10)
	Delay             time.Duration // wait between attempts (ex: 10s, 0 in tests)
	StabilityChecks   int           // extra status checks after the first Running (0 = off)
	StabilityInterval time.Duration // wait between stability checks
	FailOnUnstable    bool          // treat a failed stability check as fatal
}

// Prober performs the optional direct request to a target's external host.
type Prober interface {
	Check(ctx context.Context, url string) (domain.ProbeResult, error)
}

// PollResult is what PollUntilRunning observed.
type PollResult struct {
	Attempts       []domain.VerificationAttempt
	DiagnosticLog  string
	DiagnosticsRun bool
}

// Last returns the final attempt, or a zero attempt if none ran.
func (p PollResult) Last() domain.VerificationAttempt {
	if len(p.Attempts) == 0 {
		return domain.VerificationAttempt{}
	}
	return p.Attempts[len(p.Attempts)-1]
}

// Verifier confirms that a deployed service is running and answering health
// checks. It never deploys anything itself. All commands are issued one at a
// time and awaited before the next one is sent.
type Verifier struct {
	channel remote.Channel
	clock   clock.Interface
	prober  Prober
	metrics *metrics.Metrics
	logger  logger.Logger
	opts    Options
}

// Option customises a Verifier.
type Option func(*Verifier)

func WithClock(c clock.Interface) Option     { return func(v *Verifier) { v.clock = c } }
func WithProber(p Prober) Option             { return func(v *Verifier) { v.prober = p } }
func WithMetrics(m *metrics.Metrics) Option { return func(v *Verifier) { v.metrics = m } }

// New creates a Verifier. Non-positive MaxRetries falls back to DefaultMaxRetries.
func New(ch remote.Channel, log logger.Logger, opts Options, options ...Option) *Verifier {
	if opts.MaxRetries < 1 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.Delay < 0 {
		opts.Delay = 0
	}
	if opts.StabilityChecks < 0 {
		opts.StabilityChecks = 0
	}
	if opts.StabilityInterval < 0 {
		opts.StabilityInterval = 0
	}

	v := &Verifier{
		channel: ch,
		clock:   clock.System(),
		logger:  log,
		opts:    opts,
	}
	for _, o := range options {
		o(v)
	}
	return v
}

// Options returns the effective options after defaults.
func (v *Verifier) Options() Options { return v.opts }

// Verify runs the full sequence for one target: poll until running, the
// optional stability window, then the health check. The returned error is
// non-nil only when the service never started, the stability window failed
// with FailOnUnstable, or ctx ended.
func (v *Verifier) Verify(ctx context.Context, target domain.Target) (*domain.Report, error) {
	log := v.logger.With(logger.String("target", target.Name))
	report := domain.NewReport(target, v.clock.Now())
	defer func() {
		report.FinishedAt = v.clock.Now()
		v.metrics.ObserveReport(report)
	}()

	log.Info("verifying deployment",
		logger.String("instance_id", target.InstanceID),
		logger.Int("max_retries", v.opts.MaxRetries),
		logger.Duration("delay", v.opts.Delay))

	poll, err := v.PollUntilRunning(ctx, target)
	report.Attempts = poll.Attempts
	report.DiagnosticLog = poll.DiagnosticLog
	report.DiagnosticsRun = poll.DiagnosticsRun
	if err != nil {
		if errors.Is(err, domain.ErrServiceDidNotStart) {
			report.Outcome = domain.OutcomeDidNotStart
		} else {
			report.Outcome = domain.OutcomeCancelled
		}
		return report, err
	}
	report.Outcome = domain.OutcomeRunning

	if v.opts.StabilityChecks > 0 {
		stability, err := v.CheckStability(ctx, target)
		report.Stability = &stability
		if err != nil {
			report.Outcome = domain.OutcomeCancelled
			return report, err
		}
		if !stability.Stable {
			report.Warn(domain.ErrServiceUnstable.Error())
			if v.opts.FailOnUnstable {
				report.Outcome = domain.OutcomeUnstable
				return report, fmt.Errorf("%s: %w", target.Name, domain.ErrServiceUnstable)
			}
		}
	}

	health := v.CheckHealth(ctx, target)
	report.Health = health
	if n := len(report.Attempts); n > 0 {
		report.Attempts[n-1].HealthStatus = health.Status
	}
	switch health.Outcome {
	case domain.HealthOutcomeDegraded:
		report.Warn(domain.ErrHealthCheckDegraded.Error())
	case domain.HealthOutcomeUnverified:
		report.Warn("health endpoint not confirmed, service may still be initializing")
	}
	if health.External != nil && health.External.Error != "" {
		report.Warn(domain.ErrExternalCheckUnreachable.Error())
	}

	log.Info("deployment verified",
		logger.String("outcome", string(report.Outcome)),
		logger.String("health", string(health.Outcome)),
		logger.Int("attempts", len(report.Attempts)))
	return report, nil
}

// PollUntilRunning issues the status command up to MaxRetries times, waiting
// Delay between attempts, and stops at the first Running status. When every
// attempt fails it fetches the diagnostic log best-effort and returns an error
// wrapping domain.ErrServiceDidNotStart.
func (v *Verifier) PollUntilRunning(ctx context.Context, target domain.Target) (PollResult, error) {
	var res PollResult
	maxRetries := v.opts.MaxRetries

	for attempt := 1; attempt <= maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		a := v.statusAttempt(ctx, target, attempt)
		res.Attempts = append(res.Attempts, a)
		if err := ctx.Err(); err != nil {
			return res, err
		}

		if a.ServiceStatus == domain.StatusRunning {
			v.logger.Info("service is running",
				logger.String("target", target.Name),
				logger.Int("attempt", attempt),
				logger.String("status", strings.TrimSpace(a.Output)))
			return res, nil
		}

		if attempt == maxRetries {
			break
		}

		v.logger.Info("service not running yet, retrying",
			logger.String("target", target.Name),
			logger.Int("attempt", attempt),
			logger.Int("max_retries", maxRetries),
			logger.Duration("next_retry_in", v.opts.Delay))

		if err := clock.Sleep(ctx, v.clock, v.opts.Delay); err != nil {
			return res, err
		}
	}

	if err := ctx.Err(); err != nil {
		return res, err
	}
	res.DiagnosticLog, res.DiagnosticsRun = v.fetchDiagnostics(ctx, target)
	v.logger.Error("service failed to start",
		logger.String("target", target.Name),
		logger.Int("attempts", len(res.Attempts)),
		logger.String("diagnostic_log", res.DiagnosticLog))

	return res, fmt.Errorf("%s after %d attempts: %w", target.Name, len(res.Attempts), domain.ErrServiceDidNotStart)
}

// CheckHealth queries the local health endpoint, then the root endpoint when
// the first is inconclusive. Shortfalls are logged, never returned: once the
// process runs, the deployment is accepted.
func (v *Verifier) CheckHealth(ctx context.Context, target domain.Target) domain.HealthResult {
	res := domain.HealthResult{Status: domain.HealthDegradedOrUnknown}

	primary, err := remote.Run(ctx, v.channel, target, target.HealthCmd())
	if err != nil {
		v.logger.Debug("health command reported an error",
			logger.String("target", target.Name),
			logger.Error(err))
	}
	res.PrimaryBody = strings.TrimSpace(primary)

	if domain.IsHealthy(primary) {
		res.Status = domain.HealthHealthy
		res.Outcome = domain.HealthOutcomeHealthy
		v.logger.Info("health check passed",
			logger.String("target", target.Name),
			logger.String("body", res.PrimaryBody))
	} else {
		fallback, err := remote.Run(ctx, v.channel, target, target.FallbackCmd())
		if err != nil {
			v.logger.Debug("fallback command reported an error",
				logger.String("target", target.Name),
				logger.Error(err))
		}
		res.FallbackBody = strings.TrimSpace(fallback)

		if domain.IsRunning(fallback) {
			res.Outcome = domain.HealthOutcomeDegraded
			v.logger.Warn("health endpoint inconclusive, root endpoint reports running",
				logger.String("target", target.Name),
				logger.String("health_body", res.PrimaryBody),
				logger.String("root_body", res.FallbackBody),
				logger.Error(domain.ErrHealthCheckDegraded))
		} else {
			res.Outcome = domain.HealthOutcomeUnverified
			v.logger.Warn("health check inconclusive, service may still be initializing",
				logger.String("target", target.Name),
				logger.String("health_body", res.PrimaryBody),
				logger.String("root_body", res.FallbackBody))
		}
	}

	if url := target.ExternalHealthURL(); url != "" && v.prober != nil {
		ext, err := v.prober.Check(ctx, url)
		if err != nil {
			if ext.Error == "" {
				ext.Error = err.Error()
			}
			v.logger.Warn("external health check unreachable",
				logger.String("target", target.Name),
				logger.String("url", url),
				logger.Error(fmt.Errorf("%w: %v", domain.ErrExternalCheckUnreachable, err)))
		} else {
			v.logger.Info("external health check",
				logger.String("target", target.Name),
				logger.String("url", url),
				logger.Int("status_code", ext.StatusCode),
				logger.Bool("healthy", ext.Healthy),
				logger.Duration("latency", ext.Latency))
		}
		res.External = &ext
	}

	v.metrics.ObserveHealth(target.Name, res.Outcome)
	return res
}

// CheckStability re-runs the status command StabilityChecks times after the
// service was first seen running. It stops at the first non-running status.
func (v *Verifier) CheckStability(ctx context.Context, target domain.Target) (domain.StabilityResult, error) {
	res := domain.StabilityResult{Stable: true}

	for i := 1; i <= v.opts.StabilityChecks; i++ {
		if err := clock.Sleep(ctx, v.clock, v.opts.StabilityInterval); err != nil {
			return res, err
		}

		a := v.statusAttempt(ctx, target, i)
		res.Checks++
		res.Attempts = append(res.Attempts, a)

		if a.ServiceStatus != domain.StatusRunning {
			res.Stable = false
			v.logger.Warn("service stopped running after start",
				logger.String("target", target.Name),
				logger.Int("check", i),
				logger.String("status", strings.TrimSpace(a.Output)))
			break
		}
	}
	return res, nil
}

func (v *Verifier) statusAttempt(ctx context.Context, target domain.Target, n int) domain.VerificationAttempt {
	a := domain.VerificationAttempt{AttemptNumber: n, At: v.clock.Now()}

	out, err := remote.Run(ctx, v.channel, target, target.StatusCmd())
	a.Output = out
	if err != nil {
		a.Error = err.Error()
		v.logger.Debug("status command reported an error",
			logger.String("target", target.Name),
			logger.Int("attempt", n),
			logger.Error(err))
	}
	a.ServiceStatus = domain.ClassifyStatus(out)

	v.metrics.ObserveAttempt(target.Name, a.ServiceStatus)
	return a
}

func (v *Verifier) fetchDiagnostics(ctx context.Context, target domain.Target) (string, bool) {
	out, err := remote.Run(ctx, v.channel, target, target.DiagnosticCmd())
	if err != nil {
		v.logger.Warn("failed to fetch diagnostic log",
			logger.String("target", target.Name),
			logger.Error(err))
	}
	return strings.TrimSpace(out), true
}
