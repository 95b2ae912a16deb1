package fitfile

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
)

type Classifier interface {
	Classify(path string) (*Summary, error)
}

// WriteSummaryCSV writes one fully quoted row per file:
// file, startDate, types, distance, duration. Files that cannot be decoded
// get a row with "error" as their types.
func WriteSummaryCSV(w io.Writer, paths []string, classifier Classifier, logger *slog.Logger) error {
	bw := bufio.NewWriter(w)

	for _, path := range paths {
		name := filepath.Base(path)

		row := []string{name, "", "error", "", ""}
		summary, err := classifier.Classify(path)
		if err != nil {
			logger.Warn("failed to parse activity file", "file", name, "error", err)
		} else {
			row = []string{
				name,
				summary.StartTime.UTC().Format("2006-01-02T15:04:05.000Z"),
				strings.Join(summary.Sports, ", "),
				fmt.Sprintf("%.2f km", summary.Distance/1000),
				formatDuration(summary.Duration),
			}
		}

		if err := writeQuoted(bw, row); err != nil {
			return fmt.Errorf("write row for %s: %w", name, err)
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush summary: %w", err)
	}
	return nil
}

func writeQuoted(w *bufio.Writer, fields []string) error {
	for i, field := range fields {
		if i > 0 {
			if err := w.WriteByte(','); err != nil {
				return err
			}
		}
		if _, err := w.WriteString(`"` + strings.ReplaceAll(field, `"`, `""`) + `"`); err != nil {
			return err
		}
	}
	return w.WriteByte('\n')
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	return fmt.Sprintf("%d:%02d:%02d", h, m, s)
}
