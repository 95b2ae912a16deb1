package fitfile

import (
	"strings"

	"strava_sync/internal/config"
	"strava_sync/internal/domain"
)

// Properties derives the activity type, gear and trainer flag to set on an
// uploaded activity. Sports recorded in the file win over hints in the file
// name. The summary may be nil when the file could not be decoded, in which
// case only the file name is used and no type is returned without a hint.
func Properties(fileName string, summary *Summary, gear config.GearConfig) (domain.ActivityType, string, bool) {
	activityType := activityType(strings.ToLower(fileName), summary)
	trainer := activityType == domain.ActivityTypeWorkout && summary != nil && summary.Distance == 0
	return activityType, GearID(activityType, gear), trainer
}

func activityType(fileName string, summary *Summary) domain.ActivityType {
	has := func(sport string) bool {
		return summary != nil && summary.HasSport(sport)
	}

	switch {
	case has("running") || strings.Contains(fileName, "juoksu"):
		return domain.ActivityTypeRun
	case has("cycling") || strings.Contains(fileName, "pyöräily"):
		return domain.ActivityTypeRide
	case has("hiking"):
		return domain.ActivityTypeHike
	case has("nordic skiing"):
		return domain.ActivityTypeNordicSki
	case strings.Contains(fileName, "uinti"):
		return domain.ActivityTypeSwim
	case strings.Contains(fileName, "kävely"):
		return domain.ActivityTypeWalk
	case summary == nil:
		return ""
	case summary.Distance > 0:
		return domain.ActivityTypeRun
	case summary.Multisport:
		return ""
	default:
		return domain.ActivityTypeWorkout
	}
}

// GearID returns the gear assigned to new activities of the given type.
func GearID(activityType domain.ActivityType, gear config.GearConfig) string {
	switch activityType {
	case domain.ActivityTypeRun:
		return gear.Run
	case domain.ActivityTypeRide:
		return gear.Ride
	default:
		return ""
	}
}
