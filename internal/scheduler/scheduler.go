package scheduler

import (
	"context"
	"log/slog"
	"time"

	"strava_sync/internal/domain"
)

// Exporter defines the interface for export runs.
type Exporter interface {
	Export(ctx context.Context) (*domain.ExportStats, error)
}

type Scheduler struct {
	exporter   Exporter
	interval   time.Duration
	runTimeout time.Duration
	logger     *slog.Logger
}

// NewScheduler runs an export every interval. A runTimeout of zero lets a run
// take as long as it needs, which a rate-limited run may well do.
func NewScheduler(exporter Exporter, interval, runTimeout time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		exporter:   exporter,
		interval:   interval,
		runTimeout: runTimeout,
		logger:     logger,
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval, "run_timeout", s.runTimeout)

	s.runExport(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runExport(ctx)
		}
	}
}

func (s *Scheduler) runExport(ctx context.Context) {
	runCtx := ctx
	if s.runTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.runTimeout)
		defer cancel()
	}

	if _, err := s.exporter.Export(runCtx); err != nil {
		s.logger.Error("export failed", "error", err)
	}
}
