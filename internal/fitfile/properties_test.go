package fitfile

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"strava_sync/internal/config"
	"strava_sync/internal/domain"
)

func TestProperties(t *testing.T) {
	gear := config.GearConfig{Run: "g1", Ride: "b1"}

	tests := []struct {
		name     string
		fileName string
		summary  *Summary
		wantType domain.ActivityType
		wantGear string
		wantTrn  bool
	}{
		{
			name:     "running session",
			fileName: "2019-01-01.fit",
			summary:  &Summary{Sports: []string{"running"}, Distance: 5000},
			wantType: domain.ActivityTypeRun,
			wantGear: "g1",
		},
		{
			name:     "running hint in name",
			fileName: "2014-05-01 JUOKSU.fit",
			summary:  &Summary{Sports: []string{"generic"}},
			wantType: domain.ActivityTypeRun,
			wantGear: "g1",
		},
		{
			name:     "cycling session",
			fileName: "ride.fit",
			summary:  &Summary{Sports: []string{"cycling"}, Distance: 30000},
			wantType: domain.ActivityTypeRide,
			wantGear: "b1",
		},
		{
			name:     "cycling hint without summary",
			fileName: "pyöräily.tcx",
			wantType: domain.ActivityTypeRide,
			wantGear: "b1",
		},
		{
			name:     "hiking",
			fileName: "a.fit",
			summary:  &Summary{Sports: []string{"hiking"}, Distance: 12000},
			wantType: domain.ActivityTypeHike,
		},
		{
			name:     "nordic skiing",
			fileName: "a.fit",
			summary:  &Summary{Sports: []string{"nordic skiing"}, Distance: 12000},
			wantType: domain.ActivityTypeNordicSki,
		},
		{
			name:     "swim hint",
			fileName: "uinti.fit",
			summary:  &Summary{Sports: []string{"generic"}, Distance: 1000},
			wantType: domain.ActivityTypeSwim,
		},
		{
			name:     "walk hint",
			fileName: "kävely.fit",
			summary:  &Summary{Sports: []string{"generic"}, Distance: 3000},
			wantType: domain.ActivityTypeWalk,
		},
		{
			name:     "unknown sport with distance",
			fileName: "a.fit",
			summary:  &Summary{Sports: []string{"generic"}, Distance: 8000},
			wantType: domain.ActivityTypeRun,
			wantGear: "g1",
		},
		{
			name:     "multisport without distance",
			fileName: "a.fit",
			summary:  &Summary{Sports: []string{"swimming", "generic"}, Multisport: true},
		},
		{
			name:     "indoor workout",
			fileName: "gym.fit",
			summary:  &Summary{Sports: []string{"training"}},
			wantType: domain.ActivityTypeWorkout,
			wantTrn:  true,
		},
		{
			name:     "undecodable file without hint",
			fileName: "broken.fit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			activityType, gearID, trainer := Properties(tt.fileName, tt.summary, gear)
			assert.Equal(t, tt.wantType, activityType)
			assert.Equal(t, tt.wantGear, gearID)
			assert.Equal(t, tt.wantTrn, trainer)
		})
	}
}
