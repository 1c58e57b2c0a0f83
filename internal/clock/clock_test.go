package clock_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/shipcheck/internal/clock"
	"github.com/MrSnakeDoc/shipcheck/internal/clock/clocktest"
)

func TestSleepFake(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	fake := clocktest.NewFake(start)

	require.NoError(t, clock.Sleep(context.Background(), fake, 10*time.Second))
	require.NoError(t, clock.Sleep(context.Background(), fake, 0))

	assert.Equal(t, []time.Duration{10 * time.Second, 0}, fake.Sleeps())
	assert.Equal(t, start.Add(10*time.Second), fake.Now())
	assert.Equal(t, 10*time.Second, fake.Elapsed())
}

func TestSleepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := clock.Sleep(ctx, clock.System(), time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSleepSystem(t *testing.T) {
	start := time.Now()
	require.NoError(t, clock.Sleep(context.Background(), clock.System(), 5*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)
}
