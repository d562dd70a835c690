package models

import (
	"strings"
	"time"
)

// GalleryImage is one catalog row for an image copied from the file provider.
// Rows are created exactly once per DriveFileID and never updated by the sync job.
type GalleryImage struct {
	ID                  int64     `json:"id"`
	DriveFileID         string    `json:"drive_file_id"`
	FileName            string    `json:"file_name"`
	DriveModifiedTime   time.Time `json:"drive_modified_time"`
	Category            string    `json:"category"`
	CategoryDisplayName string    `json:"category_display_name"`
	StoragePath         string    `json:"storage_path"`
	PublicURL           string    `json:"public_url"`
	Title               string    `json:"title"`
	Width               *int      `json:"width,omitempty"`
	Height              *int      `json:"height,omitempty"`
	SizeBytes           *int64    `json:"size_bytes,omitempty"`
	MimeType            string    `json:"mime_type"`
	CreatedAt           time.Time `json:"created_at"`
}

// NewGalleryImage creates a GalleryImage with validation
func NewGalleryImage(file RemoteFile, category, categoryDisplayName, storagePath, publicURL, title string) (*GalleryImage, error) {
	if strings.TrimSpace(file.ID) == "" {
		return nil, ErrEmptyDriveFileID
	}
	if strings.TrimSpace(file.Name) == "" {
		return nil, ErrEmptyFilename
	}
	if strings.TrimSpace(category) == "" {
		return nil, ErrEmptyCategory
	}
	if strings.TrimSpace(storagePath) == "" {
		return nil, ErrEmptyStoredPath
	}

	return &GalleryImage{
		DriveFileID:         file.ID,
		FileName:            file.Name,
		DriveModifiedTime:   file.ModifiedTime.UTC(),
		Category:            category,
		CategoryDisplayName: categoryDisplayName,
		StoragePath:         storagePath,
		PublicURL:           publicURL,
		Title:               title,
		Width:               file.Width,
		Height:              file.Height,
		SizeBytes:           file.SizeBytes,
		MimeType:            file.MimeType,
		CreatedAt:           time.Now().UTC(),
	}, nil
}

// Errors
type CatalogError struct {
	Message string
}

func (e CatalogError) Error() string {
	return e.Message
}

var (
	ErrEmptyDriveFileID = CatalogError{"drive file id cannot be empty"}
	ErrEmptyFilename    = CatalogError{"file name cannot be empty"}
	ErrEmptyCategory    = CatalogError{"category cannot be empty"}
	ErrEmptyStoredPath  = CatalogError{"storage path cannot be empty"}
	ErrDuplicateImage   = CatalogError{"image already cataloged"}
	ErrObjectExists     = CatalogError{"object already exists at storage path"}
	ErrRunNotFound      = CatalogError{"sync run not found"}
	ErrRunFinalized     = CatalogError{"sync run already finalized"}
	ErrPathTraversal    = CatalogError{"invalid path - path traversal detected"}
)
