package publisher

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"strava_sync/internal/domain"
)

func TestNewUploadEvent(t *testing.T) {
	tests := []struct {
		name     string
		outcome  domain.UploadOutcome
		expected UploadEvent
	}{
		{
			name: "processed",
			outcome: domain.UploadOutcome{
				Task:     domain.UploadTask{FilePath: "/tmp/uploads/a.fit.gz", DataType: domain.DataTypeFitGz},
				Result:   &domain.UploadResult{ActivityID: 5, ExternalID: "a.fit.gz"},
				Duration: 1500 * time.Millisecond,
			},
			expected: UploadEvent{File: "a.fit.gz", DataType: "fit.gz", ActivityID: 5, ExternalID: "a.fit.gz", DurationMS: 1500},
		},
		{
			name: "rejected by remote",
			outcome: domain.UploadOutcome{
				Task:   domain.UploadTask{FilePath: "b.tcx", DataType: domain.DataTypeTcx},
				Result: &domain.UploadResult{ExternalID: "b.tcx", Error: "duplicate"},
			},
			expected: UploadEvent{File: "b.tcx", DataType: "tcx", ExternalID: "b.tcx", Error: "duplicate"},
		},
		{
			name: "failed before result",
			outcome: domain.UploadOutcome{
				Task: domain.UploadTask{FilePath: "c.gpx", DataType: domain.DataTypeGpx},
				Err:  errors.New("boom"),
			},
			expected: UploadEvent{File: "c.gpx", DataType: "gpx", Error: "boom"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, &tt.expected, NewUploadEvent(&tt.outcome))
		})
	}
}
