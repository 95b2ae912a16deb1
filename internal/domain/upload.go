package domain

import "time"

type UploadTask struct {
	FilePath     string
	DataType     DataType
	ActivityType ActivityType
	GearID       string
	Trainer      *bool
}

// WantsPatch reports whether the uploaded activity needs a metadata update
// once the remote side has processed it.
func (t UploadTask) WantsPatch() bool {
	return t.ActivityType != "" || t.GearID != "" || t.Trainer != nil
}

type UploadResult struct {
	ActivityID int64  `json:"activityId,omitempty"`
	ExternalID string `json:"externalId"`
	Error      string `json:"error,omitempty"`
}

// ActivityUpdate holds the fields sent when patching a remote activity.
// Nil fields are left untouched.
type ActivityUpdate struct {
	Type    *ActivityType `json:"type,omitempty"`
	GearID  *string       `json:"gear_id,omitempty"`
	Trainer *bool         `json:"trainer,omitempty"`
}

func (u ActivityUpdate) Empty() bool {
	return u.Type == nil && u.GearID == nil && u.Trainer == nil
}

type UploadOutcome struct {
	Task     UploadTask
	Result   *UploadResult
	Patched  bool
	Err      error
	Duration time.Duration
}

func (o UploadOutcome) Failed() bool {
	return o.Err != nil || (o.Result != nil && o.Result.Error != "")
}
