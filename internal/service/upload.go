package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"strava_sync/internal/config"
	"strava_sync/internal/domain"
	"strava_sync/internal/fitfile"
	"strava_sync/internal/metrics"
	"strava_sync/internal/retry"
)

// DefaultConcurrency is the number of files uploaded at the same time.
const DefaultConcurrency = 5

type UploadService struct {
	uploader    Uploader
	updater     ActivityUpdater
	classifier  FileClassifier
	executor    *retry.Executor
	publisher   Publisher
	gear        config.GearConfig
	concurrency int
	logger      *slog.Logger

	outMu sync.Mutex
	out   io.Writer
}

type UploadOption func(*UploadService)

// WithPublisher publishes every upload outcome.
func WithPublisher(p Publisher) UploadOption {
	return func(s *UploadService) { s.publisher = p }
}

func WithConcurrency(n int) UploadOption {
	return func(s *UploadService) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

func NewUploadService(
	uploader Uploader,
	updater ActivityUpdater,
	classifier FileClassifier,
	executor *retry.Executor,
	gear config.GearConfig,
	out io.Writer,
	logger *slog.Logger,
	opts ...UploadOption,
) *UploadService {
	s := &UploadService{
		uploader:    uploader,
		updater:     updater,
		classifier:  classifier,
		executor:    executor,
		gear:        gear,
		concurrency: DefaultConcurrency,
		out:         out,
		logger:      logger.With("component", "upload"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UploadAll uploads every file with bounded concurrency. A failing file never
// stops the others; its error is part of the report. An error is returned
// only when ctx is cancelled before all files were dispatched.
func (s *UploadService) UploadAll(ctx context.Context, paths []string) (*domain.UploadReport, error) {
	startTime := time.Now()
	report := &domain.UploadReport{
		RunID:    uuid.NewString(),
		Outcomes: make([]domain.UploadOutcome, len(paths)),
	}
	logger := s.logger.With("run_id", report.RunID)
	logger.Info("starting upload", "files", len(paths), "concurrency", s.concurrency)

	var g errgroup.Group
	g.SetLimit(s.concurrency)

	dispatched := 0
	var dispatchErr error
	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			dispatchErr = fmt.Errorf("dispatch uploads: %w", err)
			break
		}
		g.Go(func() error {
			outcome := s.process(ctx, path, logger)
			report.Outcomes[i] = outcome
			s.finish(ctx, report.RunID, &outcome, logger)
			return nil
		})
		dispatched++
	}
	_ = g.Wait()

	report.Outcomes = report.Outcomes[:dispatched]
	for _, o := range report.Outcomes {
		if o.Failed() {
			report.Failed++
		} else {
			report.Succeeded++
		}
		if o.Patched {
			report.Patched++
		}
	}
	report.Duration = time.Since(startTime)

	logger.Info("upload completed",
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"patched", report.Patched,
		"duration", report.Duration,
	)

	return report, dispatchErr
}

func (s *UploadService) process(ctx context.Context, path string, logger *slog.Logger) (outcome domain.UploadOutcome) {
	startTime := time.Now()
	outcome.Task = domain.UploadTask{FilePath: path}
	defer func() { outcome.Duration = time.Since(startTime) }()

	task, err := s.buildTask(path, logger)
	if err != nil {
		outcome.Err = err
		return outcome
	}
	outcome.Task = task

	result, err := retry.Do(ctx, s.executor, "upload", func(ctx context.Context) (*domain.UploadResult, error) {
		return s.uploader.Upload(ctx, task)
	})
	if err != nil {
		outcome.Err = fmt.Errorf("upload: %w", err)
		return outcome
	}
	outcome.Result = result

	logger.Debug("file processed", "file", path, "activity_id", result.ActivityID)

	if result.ActivityID == 0 || !task.WantsPatch() {
		return outcome
	}

	update := updateFor(task)
	err = retry.Run(ctx, s.executor, "update_activity", func(ctx context.Context) error {
		return s.updater.UpdateActivity(ctx, result.ActivityID, update)
	})
	if err != nil {
		outcome.Err = fmt.Errorf("update activity %d: %w", result.ActivityID, err)
		return outcome
	}
	outcome.Patched = true
	metrics.ActivitiesPatched.Inc()

	return outcome
}

// buildTask derives the data type from the file name and the activity
// properties from the file content. A file that cannot be decoded is still
// uploaded, only without properties from its content.
func (s *UploadService) buildTask(path string, logger *slog.Logger) (domain.UploadTask, error) {
	name := filepath.Base(path)

	dataType, err := domain.ParseDataType(name)
	if err != nil {
		return domain.UploadTask{}, fmt.Errorf("%s: %w", name, err)
	}

	summary, err := s.classifier.Classify(path)
	if err != nil {
		logger.Debug("could not classify file", "file", name, "error", err)
		summary = nil
	}

	activityType, gearID, trainer := fitfile.Properties(name, summary, s.gear)
	task := domain.UploadTask{
		FilePath:     path,
		DataType:     dataType,
		ActivityType: activityType,
		GearID:       gearID,
	}
	if trainer {
		task.Trainer = &trainer
	}
	return task, nil
}

func updateFor(task domain.UploadTask) domain.ActivityUpdate {
	var update domain.ActivityUpdate
	if task.ActivityType != "" {
		activityType := task.ActivityType
		update.Type = &activityType
	}
	if task.GearID != "" {
		gearID := task.GearID
		update.GearID = &gearID
	}
	update.Trainer = task.Trainer
	return update
}

func (s *UploadService) finish(ctx context.Context, runID string, outcome *domain.UploadOutcome, logger *slog.Logger) {
	status := "succeeded"
	if outcome.Failed() {
		status = "failed"
	}
	metrics.Uploads.WithLabelValues(status).Inc()

	s.writeLine(outcome)

	if outcome.Err != nil {
		logger.Error("upload failed", "file", outcome.Task.FilePath, "error", outcome.Err)
	}

	if s.publisher != nil {
		if err := s.publisher.PublishUpload(ctx, runID, outcome); err != nil {
			logger.Warn("failed to publish upload", "file", outcome.Task.FilePath, "error", err)
		}
	}
}

// writeLine prints "<file>: <result json>" or "<file>: error: <message>".
func (s *UploadService) writeLine(outcome *domain.UploadOutcome) {
	name := filepath.Base(outcome.Task.FilePath)

	line := fmt.Sprintf("%s: error: %v\n", name, outcome.Err)
	if outcome.Err == nil {
		data, err := json.Marshal(outcome.Result)
		if err != nil {
			line = fmt.Sprintf("%s: error: %v\n", name, err)
		} else {
			line = fmt.Sprintf("%s: %s\n", name, data)
		}
	}

	s.outMu.Lock()
	defer s.outMu.Unlock()
	_, _ = io.WriteString(s.out, line)
}
