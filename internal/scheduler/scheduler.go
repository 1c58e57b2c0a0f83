package scheduler

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/shipcheck/internal/domain"
)

// TargetVerifier runs one verification against a target.
type TargetVerifier interface {
	Verify(ctx context.Context, target domain.Target) (*domain.Report, error)
}

// ReportStore is the persistence the schedulers mirror reports into.
type ReportStore interface {
	SaveReport(ctx context.Context, report *domain.Report) error
	Targets(ctx context.Context) ([]string, error)
	AllReports(ctx context.Context, perTarget int) ([]*domain.Report, error)
	DeleteOlderThan(ctx context.Context, target string, cutoff time.Time) (int64, error)
}
