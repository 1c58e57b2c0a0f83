package scheduler

import (
	"context"

	"github.com/MrSnakeDoc/shipcheck/internal/index"
	"github.com/MrSnakeDoc/shipcheck/internal/logger"
)

// RedisSyncer loads report history from Redis into the memory index on startup
type RedisSyncer struct {
	store     ReportStore
	index     *index.MemoryIndex
	logger    logger.Logger
	perTarget int
}

// NewRedisSyncer creates a new Redis syncer
func NewRedisSyncer(
	store ReportStore,
	idx *index.MemoryIndex,
	log logger.Logger,
	perTarget int,
) *RedisSyncer {
	return &RedisSyncer{
		store:     store,
		index:     idx,
		logger:    log,
		perTarget: perTarget,
	}
}

// Sync loads reports from Redis and replaces the memory index content
func (rs *RedisSyncer) Sync(ctx context.Context) error {
	rs.logger.Info("syncing reports from redis to memory")

	reports, err := rs.store.AllReports(ctx, rs.perTarget)
	if err != nil {
		return err
	}

	if len(reports) == 0 {
		rs.logger.Info("no reports found in redis")
		return nil
	}

	rs.index.Load(reports)

	rs.logger.Info("synced reports from redis",
		logger.Int("count", len(reports)))

	return nil
}
