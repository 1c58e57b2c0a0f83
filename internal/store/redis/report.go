package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/shipcheck/internal/domain"
)

// DefaultReportTTL is used when the store is created without a retention.
const DefaultReportTTL = 7 * 24 * time.Hour

// ErrReportNotFound is returned by GetReport for unknown IDs.
var ErrReportNotFound = errors.New("report not found")

// Store persists verification reports in Redis.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore creates a new Redis store. Reports expire after ttl.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultReportTTL
	}
	return &Store{
		client: client,
		ttl:    ttl,
	}
}

// SaveReport stores a report and indexes it under its target
func (s *Store) SaveReport(ctx context.Context, report *domain.Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, ReportKey(report.ID), data, s.ttl)
	pipe.ZAdd(ctx, TargetReportsKey(report.Target), redis.Z{
		Score:  float64(report.StartedAt.UnixNano()),
		Member: report.ID,
	})
	pipe.SAdd(ctx, AllTargetsKey(), report.Target)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

// GetReport retrieves a report by ID
func (s *Store) GetReport(ctx context.Context, id string) (*domain.Report, error) {
	data, err := s.client.Get(ctx, ReportKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", ErrReportNotFound, id)
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	var report domain.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &report, nil
}

// ListReports returns up to limit reports for target, newest first.
// IDs whose document has expired are dropped from the index on the way.
func (s *Store) ListReports(ctx context.Context, target string, limit int) ([]*domain.Report, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}

	ids, err := s.client.ZRevRange(ctx, TargetReportsKey(target), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list reports for %s: %w", target, err)
	}

	reports := make([]*domain.Report, 0, len(ids))
	for _, id := range ids {
		report, err := s.GetReport(ctx, id)
		if err != nil {
			if errors.Is(err, ErrReportNotFound) {
				_ = s.client.ZRem(ctx, TargetReportsKey(target), id).Err()
			}
			continue
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// Targets returns every target name that has reports
func (s *Store) Targets(ctx context.Context) ([]string, error) {
	names, err := s.client.SMembers(ctx, AllTargetsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get targets: %w", err)
	}
	return names, nil
}

// AllReports returns up to perTarget reports for every known target
func (s *Store) AllReports(ctx context.Context, perTarget int) ([]*domain.Report, error) {
	names, err := s.Targets(ctx)
	if err != nil {
		return nil, err
	}

	var all []*domain.Report
	for _, name := range names {
		reports, err := s.ListReports(ctx, name, perTarget)
		if err != nil {
			return nil, err
		}
		all = append(all, reports...)
	}
	return all, nil
}

// DeleteReport removes a report and its index entry
func (s *Store) DeleteReport(ctx context.Context, target, id string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, ReportKey(id))
	pipe.ZRem(ctx, TargetReportsKey(target), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}
	return nil
}

// DeleteOlderThan drops index entries started before cutoff and returns how many went.
// The documents themselves expire through their TTL.
func (s *Store) DeleteOlderThan(ctx context.Context, target string, cutoff time.Time) (int64, error) {
	upper := strconv.FormatInt(cutoff.UnixNano(), 10)
	n, err := s.client.ZRemRangeByScore(ctx, TargetReportsKey(target), "-inf", "("+upper).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to prune reports for %s: %w", target, err)
	}
	return n, nil
}

// Ping checks connectivity, for the infra endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
