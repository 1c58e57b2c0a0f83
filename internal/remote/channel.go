// Package remote runs shell commands on a deployed host without an
// interactive session.
package remote

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrSnakeDoc/shipcheck/internal/domain"
)

// Channel dispatches a command to the target's host and retrieves its output.
// Calls are made strictly one after another: Send, then AwaitCompletion, then
// FetchOutput for the returned id.
type Channel interface {
	Send(ctx context.Context, target domain.Target, command string) (string, error)
	AwaitCompletion(ctx context.Context, target domain.Target, commandID string) error
	FetchOutput(ctx context.Context, target domain.Target, commandID string) (string, error)
}

// Kind names a Channel implementation in configuration.
type Kind string

const (
	KindSSM   Kind = "ssm"
	KindShell Kind = "shell"
)

// ErrCommandFailed is returned with whatever output was fetched when the
// remote command completed unsuccessfully.
var ErrCommandFailed = errors.New("remote command did not complete successfully")

// Run sends command, waits for it and returns its output.
//
// A failed wait does not discard the output: the command may have exited
// non-zero while still printing something useful, so the output is fetched
// anyway and returned alongside an error wrapping ErrCommandFailed.
func Run(ctx context.Context, ch Channel, target domain.Target, command string) (string, error) {
	id, err := ch.Send(ctx, target, command)
	if err != nil {
		return "", fmt.Errorf("send command to %s: %w", target.InstanceID, err)
	}

	waitErr := ch.AwaitCompletion(ctx, target, id)
	if waitErr != nil && ctx.Err() != nil {
		return "", ctx.Err()
	}

	out, err := ch.FetchOutput(ctx, target, id)
	if err != nil {
		if waitErr != nil {
			return "", fmt.Errorf("command %s: %w: %v (fetch: %v)", id, ErrCommandFailed, waitErr, err)
		}
		return "", fmt.Errorf("fetch output of command %s: %w", id, err)
	}

	if waitErr != nil {
		return out, fmt.Errorf("command %s: %w: %v", id, ErrCommandFailed, waitErr)
	}
	return out, nil
}
