package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"strava_sync/internal/domain"
)

// ExportRunStore keeps a log of finished export runs. It is informational
// only, the resume boundary is always derived from the activities.
type ExportRunStore struct {
	db *sqlx.DB
}

func NewExportRunStore(db *sqlx.DB) *ExportRunStore {
	return &ExportRunStore{db: db}
}

type exportRunRow struct {
	RunID         string       `db:"run_id"`
	Boundary      sql.NullTime `db:"boundary"`
	Fetched       int          `db:"fetched"`
	Appended      int          `db:"appended"`
	PublishErrors int          `db:"publish_errors"`
	DurationMS    int64        `db:"duration_ms"`
}

func (s *ExportRunStore) Record(ctx context.Context, stats *domain.ExportStats) error {
	query := `
		INSERT INTO export_runs (run_id, boundary, fetched, appended, publish_errors, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (run_id) DO UPDATE SET
			fetched = EXCLUDED.fetched,
			appended = EXCLUDED.appended,
			publish_errors = EXCLUDED.publish_errors,
			duration_ms = EXCLUDED.duration_ms,
			finished_at = NOW()`

	var boundary sql.NullTime
	if stats.Boundary != nil {
		boundary = sql.NullTime{Time: stats.Boundary.UTC(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, query,
		stats.RunID,
		boundary,
		stats.Fetched,
		stats.Appended,
		stats.PublishErrors,
		stats.Duration.Milliseconds(),
	)
	return err
}

// Last returns the most recently finished run, or nil if none was recorded.
func (s *ExportRunStore) Last(ctx context.Context) (*domain.ExportStats, error) {
	query := `
		SELECT run_id, boundary, fetched, appended, publish_errors, duration_ms
		FROM export_runs
		ORDER BY finished_at DESC
		LIMIT 1`

	var row exportRunRow
	err := s.db.GetContext(ctx, &row, query)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	stats := &domain.ExportStats{
		RunID:         row.RunID,
		Fetched:       row.Fetched,
		Appended:      row.Appended,
		PublishErrors: row.PublishErrors,
		Duration:      time.Duration(row.DurationMS) * time.Millisecond,
	}
	if row.Boundary.Valid {
		boundary := row.Boundary.Time.UTC()
		stats.Boundary = &boundary
	}
	return stats, nil
}
