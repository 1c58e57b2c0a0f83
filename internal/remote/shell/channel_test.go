package shell

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/shipcheck/internal/domain"
	"github.com/MrSnakeDoc/shipcheck/internal/logger"
	"github.com/MrSnakeDoc/shipcheck/internal/remote"
)

var target = domain.Target{Name: "local", InstanceID: "localhost"}

func TestRun(t *testing.T) {
	ch := New(logger.Nop())

	out, err := remote.Run(context.Background(), ch, target, "echo 'Up 3 seconds'")
	require.NoError(t, err)
	assert.Equal(t, "Up 3 seconds\n", out)
	assert.Empty(t, ch.jobs, "fetched commands should be forgotten")
}

func TestRunNonZeroExit(t *testing.T) {
	ch := New(logger.Nop())

	out, err := remote.Run(context.Background(), ch, target, "echo partial; exit 3")
	assert.ErrorIs(t, err, remote.ErrCommandFailed)
	assert.Equal(t, "partial\n", out)
}

func TestRunCancelledForgetsCommand(t *testing.T) {
	ch := New(logger.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := remote.Run(ctx, ch, target, "sleep 5")

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	ch.mu.Lock()
	defer ch.mu.Unlock()
	assert.Empty(t, ch.jobs, "cancelled commands should be forgotten")
}

func TestUnknownCommandID(t *testing.T) {
	ch := New(logger.Nop())

	err := ch.AwaitCompletion(context.Background(), target, "missing")
	assert.Error(t, err)

	_, err = ch.FetchOutput(context.Background(), target, "missing")
	assert.Error(t, err)
}
