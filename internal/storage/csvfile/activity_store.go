// Package csvfile keeps activities in a flat, append-only CSV file without a
// header. The file is both the export output and the input for resuming.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"sync"
	"time"

	"strava_sync/internal/domain"
)

// Columns is the fixed column order of the record file.
var Columns = []string{
	"id",
	"type",
	"startedAt",
	"movingTime",
	"elapsedTime",
	"distance",
	"averageSpeed",
	"averageWatts",
	"weightedAverageWatts",
	"deviceWatts",
	"averageHeartRate",
	"averageCadence",
	"totalElevationGain",
	"trainer",
}

// TimeLayout is UTC with millisecond precision, e.g. 2020-01-02T03:04:05.000Z.
const TimeLayout = "2006-01-02T15:04:05.000Z"

const (
	boolTrue  = "True"
	boolFalse = "False"
)

type ActivityStore struct {
	path string

	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

func NewActivityStore(path string) *ActivityStore {
	return &ActivityStore{path: path}
}

// FindOldest scans the whole file and returns the activity with the smallest
// start time. A missing or empty file yields nil without error.
func (s *ActivityStore) FindOldest(_ context.Context) (*domain.Activity, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open record file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(Columns)
	r.ReuseRecord = true

	var oldest *domain.Activity
	for line := 1; ; line++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record file: %w", err)
		}
		if line == 1 && record[0] == Columns[0] {
			continue
		}

		activity, err := decode(record)
		if err != nil {
			return nil, fmt.Errorf("record file line %d: %w", line, err)
		}
		if oldest == nil || activity.StartedAt.Before(oldest.StartedAt) {
			oldest = &activity
		}
	}

	return oldest, nil
}

// Append adds one activity to the end of the file. The row is flushed before
// Append returns.
func (s *ActivityStore) Append(_ context.Context, activity *domain.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.writer == nil {
		f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open record file: %w", err)
		}
		s.file = f
		s.writer = csv.NewWriter(f)
	}

	if err := s.writer.Write(encode(activity)); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		return fmt.Errorf("flush record: %w", err)
	}
	return nil
}

func (s *ActivityStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	syncErr := s.file.Sync()
	closeErr := s.file.Close()
	s.file, s.writer = nil, nil
	if syncErr != nil {
		return fmt.Errorf("sync record file: %w", syncErr)
	}
	return closeErr
}

func encode(a *domain.Activity) []string {
	return []string{
		strconv.FormatInt(a.ID, 10),
		string(a.Type),
		a.StartedAt.UTC().Format(TimeLayout),
		strconv.Itoa(a.MovingTime),
		strconv.Itoa(a.ElapsedTime),
		formatFloat(a.Distance),
		formatFloat(a.AverageSpeed),
		formatOptional(a.AverageWatts),
		formatOptional(a.WeightedAverageWatts),
		formatBool(a.DeviceWatts),
		formatOptional(a.AverageHeartRate),
		formatOptional(a.AverageCadence),
		formatFloat(a.TotalElevationGain),
		formatBool(a.Trainer),
	}
}

func decode(record []string) (domain.Activity, error) {
	var a domain.Activity
	p := parser{record: record}
	a.ID = p.int64At(0)
	a.Type = domain.ActivityType(record[1])
	a.StartedAt = p.timeAt(2)
	a.MovingTime = p.intAt(3)
	a.ElapsedTime = p.intAt(4)
	a.Distance = p.floatAt(5)
	a.AverageSpeed = p.floatAt(6)
	a.AverageWatts = p.optionalAt(7)
	a.WeightedAverageWatts = p.optionalAt(8)
	a.DeviceWatts = p.boolAt(9)
	a.AverageHeartRate = p.optionalAt(10)
	a.AverageCadence = p.optionalAt(11)
	a.TotalElevationGain = p.floatAt(12)
	a.Trainer = p.boolAt(13)

	return a, p.err
}

// parser keeps the first conversion error so decode stays linear.
type parser struct {
	record []string
	err    error
}

func (p *parser) fail(i int, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("column %s: %w", Columns[i], err)
	}
}

func (p *parser) int64At(i int) int64 {
	v, err := strconv.ParseInt(p.record[i], 10, 64)
	if err != nil {
		p.fail(i, err)
	}
	return v
}

func (p *parser) intAt(i int) int {
	if p.record[i] == "" {
		return 0
	}
	v, err := strconv.Atoi(p.record[i])
	if err != nil {
		p.fail(i, err)
	}
	return v
}

func (p *parser) floatAt(i int) float64 {
	if p.record[i] == "" {
		return 0
	}
	v, err := strconv.ParseFloat(p.record[i], 64)
	if err != nil {
		p.fail(i, err)
	}
	return v
}

func (p *parser) optionalAt(i int) *float64 {
	if p.record[i] == "" {
		return nil
	}
	v := p.floatAt(i)
	return &v
}

func (p *parser) boolAt(i int) bool {
	switch p.record[i] {
	case boolTrue:
		return true
	case boolFalse, "":
		return false
	default:
		p.fail(i, fmt.Errorf("invalid boolean %q", p.record[i]))
		return false
	}
}

func (p *parser) timeAt(i int) time.Time {
	t, err := time.Parse(time.RFC3339Nano, p.record[i])
	if err != nil {
		p.fail(i, err)
	}
	return t.UTC()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func formatBool(v bool) string {
	if v {
		return boolTrue
	}
	return boolFalse
}
