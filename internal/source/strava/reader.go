package strava

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"strava_sync/internal/domain"
	"strava_sync/internal/metrics"
)

// PageSize is the number of activities requested per page, the API maximum.
const PageSize = 200

type ActivityLister interface {
	ListActivities(ctx context.Context, params ListParams) ([]APIActivity, error)
}

type ReaderOptions struct {
	// Before limits the sequence to activities started strictly before it.
	Before *time.Time
	After  *time.Time
}

// Reader is a lazy, finite sequence of activities. It holds at most one page
// in memory and only fetches the next page once the previous one is drained.
// A Reader cannot be restarted.
type Reader struct {
	lister   ActivityLister
	opts     ReaderOptions
	buffer   []domain.Activity
	nextPage int
	err      error
	logger   *slog.Logger
}

func NewReader(lister ActivityLister, opts ReaderOptions, logger *slog.Logger) *Reader {
	return &Reader{
		lister:   lister,
		opts:     opts,
		nextPage: 1,
		logger:   logger,
	}
}

// Next returns the next activity. It returns io.EOF once a page comes back
// empty. Any other error ends the sequence and is returned by every later call.
func (r *Reader) Next(ctx context.Context) (domain.Activity, error) {
	if r.err != nil {
		return domain.Activity{}, r.err
	}

	if len(r.buffer) == 0 {
		if err := r.fill(ctx); err != nil {
			r.err = err
			return domain.Activity{}, err
		}
		if len(r.buffer) == 0 {
			r.err = io.EOF
			return domain.Activity{}, io.EOF
		}
	}

	activity := r.buffer[0]
	r.buffer = r.buffer[1:]
	return activity, nil
}

// Pages returns the number of pages fetched so far.
func (r *Reader) Pages() int {
	return r.nextPage - 1
}

func (r *Reader) fill(ctx context.Context) error {
	page := r.nextPage
	data, err := r.lister.ListActivities(ctx, ListParams{
		Page:    page,
		PerPage: PageSize,
		Before:  r.opts.Before,
		After:   r.opts.After,
	})
	if err != nil {
		return fmt.Errorf("fetch page %d: %w", page, err)
	}

	activities := make([]domain.Activity, 0, len(data))
	for _, item := range data {
		activity, err := Transform(item)
		if err != nil {
			return fmt.Errorf("page %d: %w", page, err)
		}
		activities = append(activities, activity)
	}

	r.buffer = activities
	r.nextPage++
	metrics.PagesFetched.Inc()

	r.logger.Info("fetched page",
		"page", page,
		"activities", len(activities),
	)

	return nil
}

// Transform maps an API activity onto the domain record.
func Transform(a APIActivity) (domain.Activity, error) {
	startedAt, err := time.Parse(time.RFC3339, a.StartDate)
	if err != nil {
		return domain.Activity{}, fmt.Errorf("activity %d: parse start date %q: %w", a.ID, a.StartDate, err)
	}

	activity := domain.Activity{
		ID:                   a.ID,
		Type:                 domain.ActivityType(a.Type),
		StartedAt:            startedAt.UTC(),
		MovingTime:           a.MovingTime,
		ElapsedTime:          a.ElapsedTime,
		Distance:             a.Distance,
		AverageSpeed:         a.AverageSpeed,
		AverageWatts:         a.AverageWatts,
		WeightedAverageWatts: a.WeightedAverageWatts,
		DeviceWatts:          a.DeviceWatts,
		AverageHeartRate:     a.AverageHeartRate,
		AverageCadence:       a.AverageCadence,
		TotalElevationGain:   a.TotalElevationGain,
		Trainer:              a.Trainer,
		Name:                 a.Name,
	}
	if a.GearID != nil {
		activity.GearID = *a.GearID
	}

	return activity, nil
}
