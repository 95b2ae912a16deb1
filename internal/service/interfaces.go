package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"strava_sync/internal/domain"
	"strava_sync/internal/fitfile"
)

type ActivityStore interface {
	// FindOldest returns the stored activity with the earliest start, or nil
	// when the store is empty.
	FindOldest(ctx context.Context) (*domain.Activity, error)
	Append(ctx context.Context, activity *domain.Activity) error
}

type ActivityReader interface {
	Next(ctx context.Context) (domain.Activity, error)
}

type Uploader interface {
	Upload(ctx context.Context, task domain.UploadTask) (*domain.UploadResult, error)
}

type ActivityUpdater interface {
	UpdateActivity(ctx context.Context, id int64, update domain.ActivityUpdate) error
}

type FileClassifier interface {
	Classify(path string) (*fitfile.Summary, error)
}

type RunRecorder interface {
	Record(ctx context.Context, stats *domain.ExportStats) error
}

type Publisher interface {
	PublishActivity(ctx context.Context, runID string, activity *domain.Activity) error
	PublishUpload(ctx context.Context, runID string, outcome *domain.UploadOutcome) error
	Close() error
}
