package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/MrSnakeDoc/shipcheck/internal/config"
	"github.com/MrSnakeDoc/shipcheck/internal/domain"
	"github.com/MrSnakeDoc/shipcheck/internal/logger"
	"github.com/MrSnakeDoc/shipcheck/internal/version"
)

// VerifyOptions are the flags of `shipcheck verify`.
type VerifyOptions struct {
	TargetsFile string // overrides cfg.TargetsFile
	ReportFile  string // JSON summary path, empty = none
}

// RunSummary is the content of the report file.
type RunSummary struct {
	Version     string           `json:"version"`
	GeneratedAt time.Time        `json:"generated_at"`
	Failed      int              `json:"failed"`
	Reports     []*domain.Report `json:"reports"`
}

// Verify checks every target once, in order, and returns the summary.
// The error joins every fatal verification error, so errors.Is matches
// domain.ErrServiceDidNotStart when any target did not start.
func Verify(ctx context.Context, cfg *config.Config, log logger.Logger, opts VerifyOptions) (*RunSummary, error) {
	file := opts.TargetsFile
	if file == "" {
		file = cfg.TargetsFile
	}

	list, err := loadTargets(cfg, file)
	if err != nil {
		return nil, err
	}

	ch, err := newChannel(cfg, log)
	if err != nil {
		return nil, err
	}
	v := newVerifier(cfg, ch, log, nil)

	log.Info("verifying deployment",
		logger.Int("targets", len(list)),
		logger.String("channel", cfg.Channel),
		logger.Int("max_retries", v.Options().MaxRetries),
		logger.Duration("delay", v.Options().Delay))

	summary := &RunSummary{Version: version.Version}
	var errs []error
	for _, t := range list {
		report, err := v.Verify(ctx, t)
		if report != nil {
			summary.Reports = append(summary.Reports, report)
			logReport(log, report)
			if report.Failed() {
				summary.Failed++
			}
		}
		if err != nil {
			errs = append(errs, err)
		}
		if ctx.Err() != nil {
			break
		}
	}
	summary.GeneratedAt = time.Now().UTC()

	if opts.ReportFile != "" {
		if werr := writeSummary(opts.ReportFile, summary); werr != nil {
			errs = append(errs, werr)
		} else {
			log.Info("report written", logger.String("file", opts.ReportFile))
		}
	}

	if len(errs) > 0 {
		return summary, errors.Join(errs...)
	}
	log.Info("🎉 deployment verified", logger.Int("targets", len(summary.Reports)))
	return summary, nil
}

func logReport(log logger.Logger, r *domain.Report) {
	fields := []logger.Field{
		logger.String("target", r.Target),
		logger.String("outcome", string(r.Outcome)),
		logger.String("health", string(r.Health.Outcome)),
		logger.Int("attempts", len(r.Attempts)),
		logger.Duration("duration", r.Duration()),
	}
	if len(r.Warnings) > 0 {
		fields = append(fields, logger.Strings("warnings", r.Warnings))
	}

	if r.Failed() {
		log.Error("❌ verification failed", fields...)
		if r.DiagnosticLog != "" {
			log.Error("container logs", logger.String("target", r.Target), logger.String("log", r.DiagnosticLog))
		}
		return
	}
	log.Info("✅ verification passed", fields...)
}

func writeSummary(path string, s *RunSummary) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
