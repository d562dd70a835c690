package models

import "time"

// SyncResult is the aggregate payload returned by POST /api/sync/drive
type SyncResult struct {
	FilesFound      int         `json:"files_found"`
	FilesSynced     int         `json:"files_synced"`
	FilesSkipped    int         `json:"files_skipped"`
	FilesErrored    int         `json:"files_errored"`
	Errors          []FileError `json:"errors"`
	CategoriesFound []string    `json:"categories_found"`
}

// NewSyncResult returns an empty result with non-nil slices so JSON renders [] not null
func NewSyncResult() *SyncResult {
	return &SyncResult{
		Errors:          []FileError{},
		CategoriesFound: []string{},
	}
}

// SyncFailureResponse is returned with HTTP 500 when a run dies on a fatal error
type SyncFailureResponse struct {
	Error string `json:"error"`
	*SyncResult
}

// SyncRunListResponse for GET /api/sync/runs
type SyncRunListResponse struct {
	Runs  []*SyncRun `json:"runs"`
	Limit int        `json:"limit"`
}

// GalleryListResponse for GET /api/gallery
type GalleryListResponse struct {
	Images   []*GalleryImage `json:"images"`
	Category string          `json:"category,omitempty"`
	Count    int             `json:"count"`
}

// HealthResponse for GET /health
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorResponse is the generic JSON error body
type ErrorResponse struct {
	Error string `json:"error"`
}
