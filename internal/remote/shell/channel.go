// Package shell implements remote.Channel by running commands through the
// local shell. It stands in for SSM when the verifier runs on the target host
// itself or in development.
package shell

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"sync"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/shipcheck/internal/domain"
	"github.com/MrSnakeDoc/shipcheck/internal/logger"
	"github.com/MrSnakeDoc/shipcheck/internal/remote"
)

type job struct {
	done chan struct{}
	out  bytes.Buffer
	err  error
}

// Channel runs each command with `sh -c`.
type Channel struct {
	shell  string
	logger logger.Logger

	mu   sync.Mutex
	jobs map[string]*job
}

var _ remote.Channel = (*Channel)(nil)

func New(log logger.Logger) *Channel {
	return &Channel{
		shell:  "sh",
		logger: log,
		jobs:   make(map[string]*job),
	}
}

func (c *Channel) Send(ctx context.Context, target domain.Target, command string) (string, error) {
	j := &job{done: make(chan struct{})}
	cmd := exec.CommandContext(ctx, c.shell, "-c", command)
	cmd.Stdout = &j.out
	cmd.Stderr = &j.out

	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("start %q: %w", command, err)
	}

	id := uuid.NewString()
	c.mu.Lock()
	c.jobs[id] = j
	c.mu.Unlock()

	go func() {
		j.err = cmd.Wait()
		close(j.done)
	}()

	c.logger.Debug("shell command started",
		logger.String("target", target.Name),
		logger.String("command_id", id))
	return id, nil
}

func (c *Channel) AwaitCompletion(ctx context.Context, _ domain.Target, commandID string) error {
	j, err := c.lookup(commandID)
	if err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		c.forget(commandID)
		return ctx.Err()
	case <-j.done:
		// A cancelled context kills the process, so done may win the race.
		if err := ctx.Err(); err != nil {
			c.forget(commandID)
			return err
		}
		return j.err
	}
}

// FetchOutput returns combined stdout and stderr and forgets the command.
func (c *Channel) FetchOutput(ctx context.Context, _ domain.Target, commandID string) (string, error) {
	j, err := c.lookup(commandID)
	if err != nil {
		return "", err
	}

	select {
	case <-ctx.Done():
		c.forget(commandID)
		return "", ctx.Err()
	case <-j.done:
	}

	c.forget(commandID)
	return j.out.String(), nil
}

func (c *Channel) forget(commandID string) {
	c.mu.Lock()
	delete(c.jobs, commandID)
	c.mu.Unlock()
}

func (c *Channel) lookup(commandID string) (*job, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	j, ok := c.jobs[commandID]
	if !ok {
		return nil, fmt.Errorf("unknown command id: %s", commandID)
	}
	return j, nil
}
