package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"strava_sync/internal/config"
	"strava_sync/internal/domain"
	"strava_sync/internal/fitfile"
	"strava_sync/internal/retry"
	"strava_sync/internal/source/strava"
)

// noGear clears the gear of an activity.
const noGear = "none"

// FixService corrects type, gear and trainer flag of already uploaded
// activities.
type FixService struct {
	newReader ReaderFactory
	updater   ActivityUpdater
	executor  *retry.Executor
	gear      config.GearConfig
	cutoff    time.Time
	logger    *slog.Logger
}

func NewFixService(
	newReader ReaderFactory,
	updater ActivityUpdater,
	executor *retry.Executor,
	gear config.GearConfig,
	fixCfg config.FixConfig,
	logger *slog.Logger,
) *FixService {
	return &FixService{
		newReader: newReader,
		updater:   updater,
		executor:  executor,
		gear:      gear,
		cutoff:    fixCfg.RunGearCutoff,
		logger:    logger.With("component", "fix"),
	}
}

// Fix walks the activities started in (after, before) and updates the ones
// whose properties differ from the fixed ones.
func (s *FixService) Fix(ctx context.Context, after, before time.Time) (*domain.FixStats, error) {
	stats := &domain.FixStats{}
	reader := s.newReader(strava.ReaderOptions{After: &after, Before: &before})

	for {
		activity, err := reader.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("read activities: %w", err)
		}
		stats.Scanned++

		update := FixActivity(activity, s.gear, s.cutoff)
		if update.Empty() {
			continue
		}

		err = retry.Run(ctx, s.executor, "fix_activity", func(ctx context.Context) error {
			return s.updater.UpdateActivity(ctx, activity.ID, update)
		})
		if err != nil {
			return stats, fmt.Errorf("update activity %d: %w", activity.ID, err)
		}
		stats.Updated++

		s.logger.Info("updated activity", "activity_id", activity.ID, "update", update)
	}

	s.logger.Info("fix completed", "scanned", stats.Scanned, "updated", stats.Updated)
	return stats, nil
}

// FixActivity returns the changes needed for a remote activity. Only fields
// that differ from the current values are set.
func FixActivity(activity domain.Activity, gear config.GearConfig, runGearCutoff time.Time) domain.ActivityUpdate {
	var update domain.ActivityUpdate

	fixedType := fixedType(activity)
	if fixedType != activity.Type {
		update.Type = &fixedType
	}

	fixedGear := fixedGearID(fixedType, activity, gear, runGearCutoff)
	if fixedGear != activity.GearID {
		if fixedGear == "" {
			fixedGear = noGear
		}
		update.GearID = &fixedGear
	}

	trainer := fixedType == domain.ActivityTypeWorkout && activity.Distance == 0
	if trainer != activity.Trainer {
		update.Trainer = &trainer
	}

	return update
}

func fixedType(activity domain.Activity) domain.ActivityType {
	name := strings.ToLower(activity.Name)
	if strings.Contains(name, "golf") || strings.Contains(name, "triathlon") {
		return domain.ActivityTypeWorkout
	}
	if activity.Type == domain.ActivityTypeWorkout && activity.Distance > 0 {
		return domain.ActivityTypeRun
	}
	return activity.Type
}

func fixedGearID(activityType domain.ActivityType, activity domain.Activity, gear config.GearConfig, runGearCutoff time.Time) string {
	switch activityType {
	case domain.ActivityTypeRun:
		if activity.StartedAt.After(runGearCutoff) {
			return activity.GearID
		}
		return fitfile.GearID(domain.ActivityTypeRun, gear)
	case domain.ActivityTypeRide:
		return fitfile.GearID(domain.ActivityTypeRide, gear)
	case domain.ActivityTypeHike:
		// hikes are done in running shoes
		return fitfile.GearID(domain.ActivityTypeRun, gear)
	default:
		return ""
	}
}
