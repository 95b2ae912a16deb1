package domain

import (
	"errors"
	"strings"
	"time"
)

type ActivityType string

const (
	ActivityTypeHike      ActivityType = "Hike"
	ActivityTypeNordicSki ActivityType = "NordicSki"
	ActivityTypeRide      ActivityType = "Ride"
	ActivityTypeRun       ActivityType = "Run"
	ActivityTypeSwim      ActivityType = "Swim"
	ActivityTypeWalk      ActivityType = "Walk"
	ActivityTypeWorkout   ActivityType = "Workout"
)

// Activity is a single remote activity as captured in the record store.
// StartedAt is always UTC and is the only ordering key used for resuming.
type Activity struct {
	ID                   int64        `json:"id"`
	Type                 ActivityType `json:"type"`
	StartedAt            time.Time    `json:"startedAt"`
	MovingTime           int          `json:"movingTime"`
	ElapsedTime          int          `json:"elapsedTime"`
	Distance             float64      `json:"distance"`
	AverageSpeed         float64      `json:"averageSpeed"`
	AverageWatts         *float64     `json:"averageWatts,omitempty"`
	WeightedAverageWatts *float64     `json:"weightedAverageWatts,omitempty"`
	DeviceWatts          bool         `json:"deviceWatts"`
	AverageHeartRate     *float64     `json:"averageHeartRate,omitempty"`
	AverageCadence       *float64     `json:"averageCadence,omitempty"`
	TotalElevationGain   float64      `json:"totalElevationGain"`
	Trainer              bool         `json:"trainer"`

	// not persisted, only filled when read from the remote API
	Name   string `json:"-"`
	GearID string `json:"-"`
}

type DataType string

const (
	DataTypeFit   DataType = "fit"
	DataTypeFitGz DataType = "fit.gz"
	DataTypeTcx   DataType = "tcx"
	DataTypeTcxGz DataType = "tcx.gz"
	DataTypeGpx   DataType = "gpx"
	DataTypeGpxGz DataType = "gpx.gz"
)

var ErrUnknownDataType = errors.New("unknown data type")

var dataTypes = []DataType{
	DataTypeFitGz, DataTypeTcxGz, DataTypeGpxGz,
	DataTypeFit, DataTypeTcx, DataTypeGpx,
}

// ParseDataType derives the upload data type from a file name, e.g.
// "morning.FIT.gz" -> fit.gz.
func ParseDataType(fileName string) (DataType, error) {
	lower := strings.ToLower(fileName)
	for _, dt := range dataTypes {
		if strings.HasSuffix(lower, "."+string(dt)) {
			return dt, nil
		}
	}
	return "", ErrUnknownDataType
}

func (d DataType) Compressed() bool {
	return strings.HasSuffix(string(d), ".gz")
}
