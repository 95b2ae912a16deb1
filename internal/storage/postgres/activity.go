package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"strava_sync/internal/domain"
)

// ActivityStore mirrors the record file in Postgres. It implements the same
// find-oldest / append contract.
type ActivityStore struct {
	db *sqlx.DB
}

func NewActivityStore(db *sqlx.DB) *ActivityStore {
	return &ActivityStore{db: db}
}

type activityRow struct {
	ID                   int64           `db:"id"`
	Type                 string          `db:"activity_type"`
	StartedAt            time.Time       `db:"started_at"`
	MovingTime           int             `db:"moving_time"`
	ElapsedTime          int             `db:"elapsed_time"`
	Distance             float64         `db:"distance"`
	AverageSpeed         float64         `db:"average_speed"`
	AverageWatts         sql.NullFloat64 `db:"average_watts"`
	WeightedAverageWatts sql.NullFloat64 `db:"weighted_average_watts"`
	DeviceWatts          bool            `db:"device_watts"`
	AverageHeartRate     sql.NullFloat64 `db:"average_heart_rate"`
	AverageCadence       sql.NullFloat64 `db:"average_cadence"`
	TotalElevationGain   float64         `db:"total_elevation_gain"`
	Trainer              bool            `db:"trainer"`
}

func (s *ActivityStore) FindOldest(ctx context.Context) (*domain.Activity, error) {
	query := `
		SELECT id, activity_type, started_at, moving_time, elapsed_time, distance,
			average_speed, average_watts, weighted_average_watts, device_watts,
			average_heart_rate, average_cadence, total_elevation_gain, trainer
		FROM activities
		ORDER BY started_at ASC
		LIMIT 1`

	var row activityRow
	err := s.db.GetContext(ctx, &row, query)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	activity := row.toDomain()
	return &activity, nil
}

func (s *ActivityStore) Append(ctx context.Context, activity *domain.Activity) error {
	query := `
		INSERT INTO activities (
			id, activity_type, started_at, moving_time, elapsed_time, distance,
			average_speed, average_watts, weighted_average_watts, device_watts,
			average_heart_rate, average_cadence, total_elevation_gain, trainer
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		)`

	_, err := s.db.ExecContext(ctx, query,
		activity.ID,
		string(activity.Type),
		activity.StartedAt.UTC(),
		activity.MovingTime,
		activity.ElapsedTime,
		activity.Distance,
		activity.AverageSpeed,
		activity.AverageWatts,
		activity.WeightedAverageWatts,
		activity.DeviceWatts,
		activity.AverageHeartRate,
		activity.AverageCadence,
		activity.TotalElevationGain,
		activity.Trainer,
	)
	return err
}

// Count returns the number of stored activities.
func (s *ActivityStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM activities")
	return count, err
}

func (r activityRow) toDomain() domain.Activity {
	return domain.Activity{
		ID:                   r.ID,
		Type:                 domain.ActivityType(r.Type),
		StartedAt:            r.StartedAt.UTC(),
		MovingTime:           r.MovingTime,
		ElapsedTime:          r.ElapsedTime,
		Distance:             r.Distance,
		AverageSpeed:         r.AverageSpeed,
		AverageWatts:         nullFloat(r.AverageWatts),
		WeightedAverageWatts: nullFloat(r.WeightedAverageWatts),
		DeviceWatts:          r.DeviceWatts,
		AverageHeartRate:     nullFloat(r.AverageHeartRate),
		AverageCadence:       nullFloat(r.AverageCadence),
		TotalElevationGain:   r.TotalElevationGain,
		Trainer:              r.Trainer,
	}
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
