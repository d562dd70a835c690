package models

import (
	"time"

	"github.com/google/uuid"
)

// SyncRun statuses
const (
	SyncStatusRunning             = "running"
	SyncStatusCompleted           = "completed"
	SyncStatusCompletedWithErrors = "completed_with_errors"
	SyncStatusFailed              = "failed"
	SyncStatusTimedOut            = "timed_out"
)

// SyncTypeDriveImages is the only run type the media sync job records
const SyncTypeDriveImages = "drive_images"

// FileError records a single per-file failure inside a run
type FileError struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

// SyncRun is one row of the run ledger. It is created in the running state and
// receives exactly one terminal update.
type SyncRun struct {
	ID           string      `json:"id"`
	Type         string      `json:"type"`
	StartedAt    time.Time   `json:"started_at"`
	CompletedAt  *time.Time  `json:"completed_at,omitempty"`
	Status       string      `json:"status"`
	FilesFound   int         `json:"files_found"`
	FilesSynced  int         `json:"files_synced"`
	FilesSkipped int         `json:"files_skipped"`
	FilesErrored int         `json:"files_errored"`
	ErrorDetails []FileError `json:"error_details"`
}

// NewSyncRun creates a run in the running state
func NewSyncRun(syncType string) *SyncRun {
	return &SyncRun{
		ID:           uuid.New().String(),
		Type:         syncType,
		StartedAt:    time.Now().UTC(),
		Status:       SyncStatusRunning,
		ErrorDetails: []FileError{},
	}
}

// IsTerminal reports whether status is a final ledger status
func IsTerminal(status string) bool {
	switch status {
	case SyncStatusCompleted, SyncStatusCompletedWithErrors, SyncStatusFailed, SyncStatusTimedOut:
		return true
	}
	return false
}
