// Package fitfile inspects local activity files before they are uploaded.
package fitfile

import (
	"bufio"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tormoder/fit"

	"strava_sync/internal/domain"
)

var ErrUnsupported = errors.New("unsupported file format")

const (
	invalidUint32 = 0xFFFFFFFF

	distanceScale = 100  // centimeters
	durationScale = 1000 // milliseconds
)

// Summary is what an activity file tells about itself.
type Summary struct {
	StartTime  time.Time
	Distance   float64 // meters
	Duration   time.Duration
	Sports     []string
	Multisport bool
}

// HasSport reports whether any session of the file is of the given sport.
func (s *Summary) HasSport(sport string) bool {
	for _, sp := range s.Sports {
		if sp == sport {
			return true
		}
	}
	return false
}

type Decoder struct{}

func NewDecoder() *Decoder {
	return &Decoder{}
}

// Classify decodes a .fit or .fit.gz activity file. Any other format returns
// ErrUnsupported.
func (d *Decoder) Classify(path string) (*Summary, error) {
	dataType, err := domain.ParseDataType(filepath.Base(path))
	if err != nil || (dataType != domain.DataTypeFit && dataType != domain.DataTypeFitGz) {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrUnsupported)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open activity file: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if dataType.Compressed() {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("decompress %s: %w", filepath.Base(path), err)
		}
		defer gz.Close()
		r = gz
	}

	file, err := fit.Decode(bufio.NewReader(r))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}

	activity, err := file.Activity()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}

	return summarize(activity), nil
}

func summarize(activity *fit.ActivityFile) *Summary {
	summary := &Summary{
		Multisport: len(activity.Sessions) > 1,
	}

	for _, session := range activity.Sessions {
		if summary.StartTime.IsZero() && !session.StartTime.IsZero() {
			summary.StartTime = session.StartTime.UTC()
		}
		if session.TotalDistance != invalidUint32 {
			summary.Distance += float64(session.TotalDistance) / distanceScale
		}
		if session.TotalElapsedTime != invalidUint32 {
			summary.Duration += time.Duration(session.TotalElapsedTime) * time.Second / durationScale
		}

		name := sportName(session.Sport)
		if !summary.HasSport(name) {
			summary.Sports = append(summary.Sports, name)
		}
	}

	if summary.StartTime.IsZero() && activity.Activity != nil {
		summary.StartTime = activity.Activity.Timestamp.UTC()
	}

	return summary
}

func sportName(sport fit.Sport) string {
	switch sport {
	case fit.SportRunning:
		return "running"
	case fit.SportCycling:
		return "cycling"
	case fit.SportHiking:
		return "hiking"
	case fit.SportCrossCountrySkiing:
		return "nordic skiing"
	case fit.SportSwimming:
		return "swimming"
	case fit.SportWalking:
		return "walking"
	case fit.SportTraining:
		return "training"
	case fit.SportFitnessEquipment:
		return "fitness equipment"
	case fit.SportTransition:
		return "transition"
	case fit.SportGeneric:
		return "generic"
	default:
		return strings.ToLower(sport.String())
	}
}
