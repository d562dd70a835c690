package models

import "time"

// CategoryFolder is a direct subfolder of the configured provider root folder.
type CategoryFolder struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// RemoteFile is an image discovered under a CategoryFolder, captured at enumeration time.
type RemoteFile struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	MimeType     string    `json:"mime_type"`
	ModifiedTime time.Time `json:"modified_time"`
	SizeBytes    *int64    `json:"size_bytes,omitempty"`
	Width        *int      `json:"width,omitempty"`
	Height       *int      `json:"height,omitempty"`
}

// HasDimensions reports whether the provider returned both width and height
func (f RemoteFile) HasDimensions() bool {
	return f.Width != nil && f.Height != nil
}
