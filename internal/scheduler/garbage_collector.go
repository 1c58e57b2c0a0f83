package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/shipcheck/internal/clock"
	"github.com/MrSnakeDoc/shipcheck/internal/index"
	"github.com/MrSnakeDoc/shipcheck/internal/logger"
)

const (
	// DefaultRetention is how long reports are kept when none is configured
	DefaultRetention = 7 * 24 * time.Hour
)

// GarbageCollector drops reports older than the retention window
type GarbageCollector struct {
	store     ReportStore
	index     *index.MemoryIndex
	logger    logger.Logger
	clock     clock.Interface
	interval  time.Duration
	retention time.Duration
	stopCh    chan struct{}
	done      chan struct{}
}

// NewGarbageCollector creates a new garbage collector. store may be nil.
func NewGarbageCollector(
	store ReportStore,
	idx *index.MemoryIndex,
	log logger.Logger,
	c clock.Interface,
	interval time.Duration,
	retention time.Duration,
) *GarbageCollector {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if c == nil {
		c = clock.System()
	}

	return &GarbageCollector{
		store:     store,
		index:     idx,
		logger:    log,
		clock:     c,
		interval:  interval,
		retention: retention,
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start begins the periodic garbage collection process
func (gc *GarbageCollector) Start(ctx context.Context) error {
	if gc.interval <= 0 {
		return fmt.Errorf("gc interval must be > 0, got %v", gc.interval)
	}

	// Run immediately on start
	if _, err := gc.Collect(ctx); err != nil {
		gc.logger.Warn("initial garbage collection failed",
			logger.Error(err))
	}

	ticker := time.NewTicker(gc.interval)
	go func() {
		defer close(gc.done)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := gc.Collect(ctx); err != nil {
					gc.logger.Error("garbage collection failed",
						logger.Error(err))
				}
			case <-gc.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the garbage collector
func (gc *GarbageCollector) Stop() {
	close(gc.stopCh)
	<-gc.done
}

// Collect removes reports that started before now minus retention and
// returns how many were removed from the index.
func (gc *GarbageCollector) Collect(ctx context.Context) (int, error) {
	cutoff := gc.clock.Now().Add(-gc.retention)
	gc.logger.Debug("running report garbage collection",
		logger.String("cutoff", cutoff.Format(time.RFC3339)))

	deleted := 0
	for _, r := range gc.index.All() {
		if r.StartedAt.Before(cutoff) {
			gc.index.DeleteReport(r.Target, r.ID)
			deleted++
		}
	}

	// Prune Redis indexes (best effort)
	var pruned int64
	if gc.store != nil {
		names, err := gc.store.Targets(ctx)
		if err != nil {
			return deleted, err
		}
		for _, name := range names {
			n, err := gc.store.DeleteOlderThan(ctx, name, cutoff)
			if err != nil {
				gc.logger.Warn("failed to prune reports in redis",
					logger.String("target", name),
					logger.Error(err))
				continue
			}
			pruned += n
		}
	}

	if deleted > 0 || pruned > 0 {
		gc.logger.Info("garbage collection completed",
			logger.Int("reports_deleted", deleted),
			logger.Int("redis_entries_pruned", int(pruned)))
	} else {
		gc.logger.Debug("no reports to garbage collect")
	}

	return deleted, nil
}
