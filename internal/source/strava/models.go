package strava

// APIActivity is a summary activity as returned by GET /athlete/activities.
type APIActivity struct {
	ID                   int64    `json:"id"`
	Name                 string   `json:"name"`
	Type                 string   `json:"type"`
	StartDate            string   `json:"start_date"`
	MovingTime           int      `json:"moving_time"`
	ElapsedTime          int      `json:"elapsed_time"`
	Distance             float64  `json:"distance"`
	AverageSpeed         float64  `json:"average_speed"`
	AverageWatts         *float64 `json:"average_watts"`
	WeightedAverageWatts *float64 `json:"weighted_average_watts"`
	DeviceWatts          bool     `json:"device_watts"`
	AverageHeartRate     *float64 `json:"average_heartrate"`
	AverageCadence       *float64 `json:"average_cadence"`
	TotalElevationGain   float64  `json:"total_elevation_gain"`
	Trainer              bool     `json:"trainer"`
	GearID               *string  `json:"gear_id"`
}

// APIUpload is the status document of an upload, POST /uploads and
// GET /uploads/{id}.
type APIUpload struct {
	ID         int64   `json:"id"`
	IDStr      string  `json:"id_str"`
	ExternalID string  `json:"external_id"`
	Error      *string `json:"error"`
	Status     string  `json:"status"`
	ActivityID *int64  `json:"activity_id"`
}

type apiFault struct {
	Message string `json:"message"`
	Errors  []struct {
		Resource string `json:"resource"`
		Field    string `json:"field"`
		Code     string `json:"code"`
	} `json:"errors"`
}
