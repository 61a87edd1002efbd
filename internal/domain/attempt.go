package domain

import (
	"time"

	"github.com/google/uuid"
)

// DownloadOutcome is the terminal state of one download attempt.
type DownloadOutcome string

const (
	OutcomeCompleted DownloadOutcome = "completed"
	OutcomeFailed    DownloadOutcome = "failed"
)

// DownloadRecord is one row of download history.
type DownloadRecord struct {
	ID           string          `json:"id" gorm:"primaryKey"`
	ClipID       string          `json:"clip_id" gorm:"not null;index"`
	Title        string          `json:"title"`
	Filename     string          `json:"filename"`
	RunID        string          `json:"run_id" gorm:"index"`
	Outcome      DownloadOutcome `json:"outcome" gorm:"not null;index"`
	ErrorMessage string          `json:"error_message,omitempty"`
	CreatedAt    time.Time       `json:"created_at" gorm:"autoCreateTime"`
}

// NewDownloadRecord creates a history row for a finished attempt.
func NewDownloadRecord(clip Clip, filename, runID string, outcome DownloadOutcome, err error) *DownloadRecord {
	rec := &DownloadRecord{
		ID:       uuid.New().String(),
		ClipID:   clip.ID,
		Title:    clip.Title,
		Filename: filename,
		RunID:    runID,
		Outcome:  outcome,
	}
	if err != nil {
		rec.ErrorMessage = err.Error()
	}
	return rec
}

// ClipFailure tracks consecutive failures for one clip. A successful download
// deletes the row.
type ClipFailure struct {
	ClipID    string    `json:"clip_id" gorm:"primaryKey"`
	Count     int       `json:"count" gorm:"not null"`
	LastError string    `json:"last_error"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// AttemptStats summarizes the ledger.
type AttemptStats struct {
	Total     int64 `json:"total"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Failing   int64 `json:"failing_clips"`
}
