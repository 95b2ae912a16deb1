package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"strava_sync/internal/domain"
	"strava_sync/internal/metrics"
	"strava_sync/internal/source/strava"
)

// ReaderFactory opens a remote activity sequence limited by opts.
type ReaderFactory func(opts strava.ReaderOptions) ActivityReader

// ExportService appends remote activities older than anything already in the
// store. The store is expected to hold a contiguous suffix of the remote
// history, so its oldest start time is where the next run resumes.
type ExportService struct {
	store     ActivityStore
	newReader ReaderFactory
	publisher Publisher
	recorder  RunRecorder
	logger    *slog.Logger
}

// NewExportService creates the export orchestrator. publisher and recorder
// are optional.
func NewExportService(
	store ActivityStore,
	newReader ReaderFactory,
	publisher Publisher,
	recorder RunRecorder,
	logger *slog.Logger,
) *ExportService {
	return &ExportService{
		store:     store,
		newReader: newReader,
		publisher: publisher,
		recorder:  recorder,
		logger:    logger.With("component", "export"),
	}
}

// Export runs one export. It stops at the first read or store error; rows
// appended before that stay in the store and the next run resumes after them.
func (s *ExportService) Export(ctx context.Context) (*domain.ExportStats, error) {
	startTime := time.Now()
	stats := &domain.ExportStats{RunID: uuid.NewString()}
	logger := s.logger.With("run_id", stats.RunID)

	oldest, err := s.store.FindOldest(ctx)
	if err != nil {
		return nil, fmt.Errorf("find oldest activity: %w", err)
	}

	var opts strava.ReaderOptions
	if oldest != nil {
		boundary := oldest.StartedAt
		opts.Before = &boundary
		stats.Boundary = &boundary
		logger.Info("resuming export", "before", boundary, "oldest_id", oldest.ID)
	} else {
		logger.Info("store is empty, exporting all activities")
	}

	reader := s.newReader(opts)
	for {
		activity, err := reader.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			stats.Duration = time.Since(startTime)
			return stats, fmt.Errorf("read activities: %w", err)
		}
		stats.Fetched++

		if err := s.store.Append(ctx, &activity); err != nil {
			stats.Duration = time.Since(startTime)
			return stats, fmt.Errorf("append activity %d: %w", activity.ID, err)
		}
		stats.Appended++
		metrics.ActivitiesExported.Inc()

		if s.publisher != nil {
			if err := s.publisher.PublishActivity(ctx, stats.RunID, &activity); err != nil {
				stats.PublishErrors++
				logger.Warn("failed to publish activity", "activity_id", activity.ID, "error", err)
			}
		}
	}

	stats.Duration = time.Since(startTime)
	metrics.LastExportTimestamp.SetToCurrentTime()

	if s.recorder != nil {
		if err := s.recorder.Record(ctx, stats); err != nil {
			return stats, fmt.Errorf("record export run: %w", err)
		}
	}

	logger.Info("export completed",
		"fetched", stats.Fetched,
		"appended", stats.Appended,
		"publish_errors", stats.PublishErrors,
		"duration", stats.Duration,
	)

	return stats, nil
}
