package domain

import "time"

// ExportStats holds statistics about an export run.
type ExportStats struct {
	RunID         string
	Boundary      *time.Time
	Fetched       int
	Appended      int
	PublishErrors int
	Duration      time.Duration
}

// UploadReport summarises a batch of uploads.
type UploadReport struct {
	RunID     string
	Outcomes  []UploadOutcome
	Succeeded int
	Failed    int
	Patched   int
	Duration  time.Duration
}

// FixStats holds statistics about a fix run.
type FixStats struct {
	Scanned int
	Updated int
}
