package verifier

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/shipcheck/internal/clock/clocktest"
	"github.com/MrSnakeDoc/shipcheck/internal/domain"
	"github.com/MrSnakeDoc/shipcheck/internal/logger"
	"github.com/MrSnakeDoc/shipcheck/internal/metrics"
)

const notRunning = "Service not running"

var testTarget = domain.Target{
	Name:       "api",
	InstanceID: "i-0123456789",
	Container:  "api",
	Port:       8000,
}.WithDefaults(domain.DefaultHealthPath)

func newTestVerifier(ch *fakeChannel, opts Options, extra ...Option) (*Verifier, *clocktest.Fake) {
	fake := clocktest.NewFake(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC))
	options := append([]Option{WithClock(fake)}, extra...)
	return New(ch, logger.Nop(), opts, options...), fake
}

func TestPollUntilRunning_SucceedsOnThirdAttempt(t *testing.T) {
	ch := newFakeChannel().script(testTarget.StatusCmd(), notRunning, notRunning, "Up and running")
	v, fake := newTestVerifier(ch, Options{MaxRetries: 3, Delay: 0})

	res, err := v.PollUntilRunning(context.Background(), testTarget)

	require.NoError(t, err)
	require.Len(t, res.Attempts, 3)
	assert.Equal(t, domain.StatusRunning, res.Last().ServiceStatus)
	assert.Len(t, fake.Sleeps(), 2, "one delay between each pair of attempts")
	assert.False(t, res.DiagnosticsRun)
	assert.Zero(t, ch.count(testTarget.DiagnosticCmd()))
}

func TestPollUntilRunning_StopsAtFirstRunningAttempt(t *testing.T) {
	const maxRetries = 5
	for k := 1; k <= maxRetries; k++ {
		outputs := make([]string, 0, k)
		for i := 1; i < k; i++ {
			outputs = append(outputs, notRunning)
		}
		outputs = append(outputs, "Up 4 seconds")

		ch := newFakeChannel().script(testTarget.StatusCmd(), outputs...)
		v, fake := newTestVerifier(ch, Options{MaxRetries: maxRetries, Delay: 10 * time.Second})

		res, err := v.PollUntilRunning(context.Background(), testTarget)

		require.NoError(t, err, "k=%d", k)
		assert.Len(t, res.Attempts, k, "k=%d", k)
		assert.Equal(t, k, ch.count(testTarget.StatusCmd()), "k=%d", k)
		assert.Equal(t, time.Duration(k-1)*10*time.Second, fake.Elapsed(), "k=%d", k)
		for i, a := range res.Attempts {
			assert.Equal(t, i+1, a.AttemptNumber)
		}
	}
}

func TestPollUntilRunning_ExhaustsRetries(t *testing.T) {
	ch := newFakeChannel().
		script(testTarget.StatusCmd(), notRunning, notRunning).
		script(testTarget.DiagnosticCmd(), "panic: missing DATABASE_URL")
	v, fake := newTestVerifier(ch, Options{MaxRetries: 2, Delay: 0})

	res, err := v.PollUntilRunning(context.Background(), testTarget)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrServiceDidNotStart))
	assert.Len(t, res.Attempts, 2)
	assert.Equal(t, 2, ch.count(testTarget.StatusCmd()))
	assert.Equal(t, 1, ch.count(testTarget.DiagnosticCmd()), "diagnostic log fetched exactly once")
	assert.True(t, res.DiagnosticsRun)
	assert.Equal(t, "panic: missing DATABASE_URL", res.DiagnosticLog)
	assert.Len(t, fake.Sleeps(), 1, "no delay after the final attempt")
}

func TestPollUntilRunning_ChannelErrorsConsumeAttempts(t *testing.T) {
	ch := newFakeChannel()
	ch.sendErrs[testTarget.StatusCmd()] = errors.New("InvalidInstanceId")
	ch.sendErrs[testTarget.DiagnosticCmd()] = errors.New("InvalidInstanceId")
	v, _ := newTestVerifier(ch, Options{MaxRetries: 3})

	res, err := v.PollUntilRunning(context.Background(), testTarget)

	assert.ErrorIs(t, err, domain.ErrServiceDidNotStart)
	require.Len(t, res.Attempts, 3)
	for _, a := range res.Attempts {
		assert.Equal(t, domain.StatusUnknown, a.ServiceStatus)
		assert.Contains(t, a.Error, "InvalidInstanceId")
	}
	assert.True(t, res.DiagnosticsRun, "diagnostic fetch is attempted even if it fails")
}

func TestPollUntilRunning_Cancelled(t *testing.T) {
	ch := newFakeChannel().script(testTarget.StatusCmd(), notRunning)
	v, _ := newTestVerifier(ch, Options{MaxRetries: 10})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := v.PollUntilRunning(ctx, testTarget)

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, errors.Is(err, domain.ErrServiceDidNotStart))
	assert.Empty(t, res.Attempts)
}

// cancellingChannel cancels the run when the status command is sent for the nth time.
type cancellingChannel struct {
	*fakeChannel
	cancel context.CancelFunc
	cmd    string
	at     int
}

func (c *cancellingChannel) Send(ctx context.Context, t domain.Target, cmd string) (string, error) {
	id, err := c.fakeChannel.Send(ctx, t, cmd)
	if cmd == c.cmd && c.fakeChannel.count(cmd) == c.at {
		c.cancel()
	}
	return id, err
}

func TestPollUntilRunning_CancelledDuringFinalAttempt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := &cancellingChannel{
		fakeChannel: newFakeChannel().script(testTarget.StatusCmd(), notRunning),
		cancel:      cancel,
		cmd:         testTarget.StatusCmd(),
		at:          2,
	}
	fake := clocktest.NewFake(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC))
	v := New(ch, logger.Nop(), Options{MaxRetries: 2}, WithClock(fake))

	res, err := v.PollUntilRunning(ctx, testTarget)

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, errors.Is(err, domain.ErrServiceDidNotStart))
	assert.Len(t, res.Attempts, 2)
	assert.False(t, res.DiagnosticsRun)
	assert.Zero(t, ch.count(testTarget.DiagnosticCmd()))

	report, err := New(&cancellingChannel{
		fakeChannel: newFakeChannel().script(testTarget.StatusCmd(), notRunning),
		cancel:      func() {},
	}, logger.Nop(), Options{MaxRetries: 1}, WithClock(fake)).Verify(ctx, testTarget)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, domain.OutcomeCancelled, report.Outcome)
}

func TestNew_Defaults(t *testing.T) {
	v := New(newFakeChannel(), logger.Nop(), Options{MaxRetries: 0, Delay: -time.Second})
	assert.Equal(t, DefaultMaxRetries, v.Options().MaxRetries)
	assert.Equal(t, time.Duration(0), v.Options().Delay)
}

func TestCheckHealth(t *testing.T) {
	tests := []struct {
		name         string
		primary      string
		fallback     string
		want         domain.HealthOutcome
		wantStatus   domain.HealthStatus
		wantFallback bool
	}{
		{"healthy", "status: healthy", "", domain.HealthOutcomeHealthy, domain.HealthHealthy, false},
		{"starting falls back to running root", "status: starting", "API is running", domain.HealthOutcomeDegraded, domain.HealthDegradedOrUnknown, true},
		{"no marker anywhere", "status: starting", "root check failed", domain.HealthOutcomeUnverified, domain.HealthDegradedOrUnknown, true},
		{"health command failed", "health check failed", "API is running", domain.HealthOutcomeDegraded, domain.HealthDegradedOrUnknown, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := newFakeChannel().
				script(testTarget.HealthCmd(), tt.primary).
				script(testTarget.FallbackCmd(), tt.fallback)
			v, _ := newTestVerifier(ch, Options{})

			res := v.CheckHealth(context.Background(), testTarget)

			assert.Equal(t, tt.want, res.Outcome)
			assert.Equal(t, tt.wantStatus, res.Status)
			if tt.wantFallback {
				assert.Equal(t, 1, ch.count(testTarget.FallbackCmd()))
			} else {
				assert.Zero(t, ch.count(testTarget.FallbackCmd()))
			}
			assert.Nil(t, res.External)
		})
	}
}

func TestCheckHealth_Idempotent(t *testing.T) {
	ch := newFakeChannel().
		script(testTarget.HealthCmd(), "status: starting").
		script(testTarget.FallbackCmd(), "API is running")
	v, _ := newTestVerifier(ch, Options{})

	first := v.CheckHealth(context.Background(), testTarget)
	second := v.CheckHealth(context.Background(), testTarget)

	assert.Equal(t, first, second)
}

func TestCheckHealth_ExternalCheckIsInformational(t *testing.T) {
	target := testTarget
	target.ExternalHost = "203.0.113.10"

	ch := newFakeChannel().script(target.HealthCmd(), "status: healthy")
	prober := &fakeProber{err: errors.New("connection refused")}
	v, _ := newTestVerifier(ch, Options{}, WithProber(prober))

	res := v.CheckHealth(context.Background(), target)

	assert.Equal(t, domain.HealthOutcomeHealthy, res.Outcome)
	require.NotNil(t, res.External)
	assert.Equal(t, "connection refused", res.External.Error)
	assert.Equal(t, []string{"http://203.0.113.10/api/health"}, prober.urls)
}

func TestVerify_Report(t *testing.T) {
	target := testTarget
	target.ExternalHost = "203.0.113.10"

	ch := newFakeChannel().
		script(target.StatusCmd(), notRunning, "Up 2 seconds").
		script(target.HealthCmd(), "status: starting").
		script(target.FallbackCmd(), "API is running")
	prober := &fakeProber{err: errors.New("timeout")}
	m := metrics.New()
	v, _ := newTestVerifier(ch, Options{MaxRetries: 10, Delay: 10 * time.Second}, WithProber(prober), WithMetrics(m))

	report, err := v.Verify(context.Background(), target)

	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeRunning, report.Outcome)
	assert.Equal(t, domain.HealthOutcomeDegraded, report.Health.Outcome)
	assert.Len(t, report.Attempts, 2)
	assert.Equal(t, domain.HealthDegradedOrUnknown, report.Attempts[1].HealthStatus)
	assert.Equal(t, 10*time.Second, report.Duration())
	assert.Contains(t, report.Warnings, domain.ErrHealthCheckDegraded.Error())
	assert.Contains(t, report.Warnings, domain.ErrExternalCheckUnreachable.Error())
	assert.False(t, report.Failed())
}

func TestVerify_DidNotStart(t *testing.T) {
	ch := newFakeChannel().script(testTarget.StatusCmd(), notRunning)
	v, _ := newTestVerifier(ch, Options{MaxRetries: 2})

	report, err := v.Verify(context.Background(), testTarget)

	assert.ErrorIs(t, err, domain.ErrServiceDidNotStart)
	assert.Equal(t, domain.OutcomeDidNotStart, report.Outcome)
	assert.True(t, report.Failed())
	assert.Equal(t, domain.HealthOutcomeUnchecked, report.Health.Outcome)
	assert.Zero(t, ch.count(testTarget.HealthCmd()), "health is not checked when the service never started")
}

func TestVerify_StabilityWindow(t *testing.T) {
	script := func() *fakeChannel {
		return newFakeChannel().
			script(testTarget.StatusCmd(), "Up 1 second", "Up 6 seconds", "Restarting (1) 1 second ago").
			script(testTarget.HealthCmd(), "status: healthy")
	}

	t.Run("warns by default", func(t *testing.T) {
		v, fake := newTestVerifier(script(), Options{MaxRetries: 3, StabilityChecks: 3, StabilityInterval: 5 * time.Second})

		report, err := v.Verify(context.Background(), testTarget)

		require.NoError(t, err)
		require.NotNil(t, report.Stability)
		assert.False(t, report.Stability.Stable)
		assert.Equal(t, 2, report.Stability.Checks)
		assert.Equal(t, domain.OutcomeRunning, report.Outcome)
		assert.Contains(t, report.Warnings, domain.ErrServiceUnstable.Error())
		assert.Equal(t, 10*time.Second, fake.Elapsed())
	})

	t.Run("fails when configured", func(t *testing.T) {
		v, _ := newTestVerifier(script(), Options{MaxRetries: 3, StabilityChecks: 3, FailOnUnstable: true})

		report, err := v.Verify(context.Background(), testTarget)

		assert.ErrorIs(t, err, domain.ErrServiceUnstable)
		assert.Equal(t, domain.OutcomeUnstable, report.Outcome)
		assert.True(t, report.Failed())
	})

	t.Run("stable service", func(t *testing.T) {
		ch := newFakeChannel().
			script(testTarget.StatusCmd(), "Up 1 second").
			script(testTarget.HealthCmd(), "status: healthy")
		v, _ := newTestVerifier(ch, Options{StabilityChecks: 2})

		report, err := v.Verify(context.Background(), testTarget)

		require.NoError(t, err)
		assert.True(t, report.Stability.Stable)
		assert.Equal(t, 2, report.Stability.Checks)
		assert.Empty(t, report.Warnings)
	})
}
