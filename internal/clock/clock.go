package clock

import (
	"context"
	"time"
)

// Interface is the subset of the time package the verifier and schedulers depend on.
type Interface interface {
	Now() time.Time
	NewTimer(time.Duration) Timer
}

// Timer is the analog of time.Timer.
type Timer interface {
	C() <-chan time.Time
	Stop() bool
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) NewTimer(d time.Duration) Timer {
	return systemTimer{time.NewTimer(d)}
}

type systemTimer struct {
	*time.Timer
}

func (st systemTimer) C() <-chan time.Time { return st.Timer.C }

// System returns a clock backed by the time package.
func System() Interface {
	return systemClock{}
}

// Sleep blocks for d on c, returning early with ctx.Err() if ctx ends first.
func Sleep(ctx context.Context, c Interface, d time.Duration) error {
	timer := c.NewTimer(d)
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.C():
		return nil
	}
}
