// Package clocktest provides a deterministic clock for tests.
package clocktest

import (
	"sync"
	"time"

	"github.com/MrSnakeDoc/shipcheck/internal/clock"
)

// Fake is a clock whose timers fire immediately. Each timer advances Now by
// its duration and is recorded, so tests can assert on the simulated delays.
type Fake struct {
	mu     sync.Mutex
	now    time.Time
	timers []time.Duration
}

var _ clock.Interface = (*Fake)(nil)

func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) NewTimer(d time.Duration) clock.Timer {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.timers = append(f.timers, d)
	at := f.now
	f.mu.Unlock()

	ch := make(chan time.Time, 1)
	ch <- at
	return firedTimer{ch: ch}
}

// Sleeps returns the durations of every timer created so far.
func (f *Fake) Sleeps() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Duration(nil), f.timers...)
}

// Elapsed is the sum of all timer durations.
func (f *Fake) Elapsed() time.Duration {
	var total time.Duration
	for _, d := range f.Sleeps() {
		total += d
	}
	return total
}

type firedTimer struct {
	ch chan time.Time
}

func (t firedTimer) C() <-chan time.Time { return t.ch }
func (t firedTimer) Stop() bool         { return false }
