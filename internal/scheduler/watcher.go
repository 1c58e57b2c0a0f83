package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/shipcheck/internal/domain"
	"github.com/MrSnakeDoc/shipcheck/internal/index"
	"github.com/MrSnakeDoc/shipcheck/internal/logger"
)

// Watcher re-verifies every configured target periodically or on demand.
type Watcher struct {
	verifier      TargetVerifier
	store         ReportStore
	index         *index.MemoryIndex
	logger        logger.Logger
	interval      time.Duration
	stopCh        chan struct{}
	done          chan struct{}
	manualTrigger chan struct{}
}

// NewWatcher creates a new watcher. store may be nil.
func NewWatcher(
	v TargetVerifier,
	store ReportStore,
	idx *index.MemoryIndex,
	log logger.Logger,
	interval time.Duration,
	manualTrigger chan struct{},
) *Watcher {
	return &Watcher{
		verifier:      v,
		store:         store,
		index:         idx,
		logger:        log,
		interval:      interval,
		stopCh:        make(chan struct{}),
		done:          make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start runs a first round in the background and then one per interval or
// manual trigger. Rounds never overlap.
func (w *Watcher) Start(ctx context.Context) error {
	if len(w.index.Targets()) == 0 {
		return errors.New("no targets to watch")
	}
	if w.interval <= 0 {
		return fmt.Errorf("watch interval must be > 0, got %v", w.interval)
	}

	go func() {
		defer close(w.done)

		w.runRound(ctx)

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				w.runRound(ctx)
			case <-w.manualTrigger:
				w.logger.Info("manual verification triggered")
				w.runRound(ctx)
			case <-w.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the watcher and waits for the current round to return
func (w *Watcher) Stop() {
	close(w.stopCh)
	<-w.done
}

func (w *Watcher) runRound(ctx context.Context) {
	if _, err := w.Round(ctx); err != nil && ctx.Err() == nil {
		w.logger.Error("verification round failed", logger.Error(err))
	}
}

// Round verifies every target once, sequentially, and records the reports.
// It returns how many targets failed verification.
func (w *Watcher) Round(ctx context.Context) (int, error) {
	targets := w.index.Targets()
	w.logger.Info("starting verification round", logger.Int("targets", len(targets)))

	failed := 0
	for _, t := range targets {
		report, err := w.verifier.Verify(ctx, t)
		if ctx.Err() != nil {
			return failed, ctx.Err()
		}
		if report == nil {
			return failed, fmt.Errorf("verify %s: no report: %w", t.Name, err)
		}
		if report.Failed() {
			failed++
		}

		w.index.AddReport(report)

		// Update Redis store (best effort)
		if w.store != nil {
			if err := w.store.SaveReport(ctx, report); err != nil {
				w.logger.Warn("failed to save report to redis",
					logger.String("target", t.Name),
					logger.Error(err))
			}
		}

		if err != nil && !errors.Is(err, domain.ErrServiceDidNotStart) && !errors.Is(err, domain.ErrServiceUnstable) {
			w.logger.Warn("verification ended with error",
				logger.String("target", t.Name),
				logger.Error(err))
		}
	}

	w.index.MarkRound(time.Now())
	w.logger.Info("verification round completed",
		logger.Int("targets", len(targets)),
		logger.Int("failed", failed))
	return failed, nil
}
