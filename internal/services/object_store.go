package services

import (
	"context"
	"strings"
)

// ObjectStore holds the image bytes behind public gallery URLs.
// Upload never overwrites: an existing object yields models.ErrObjectExists.
type ObjectStore interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) error
	PublicURL(path string) string
}

// joinURL appends an object path to a base URL
func joinURL(base, objectPath string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(objectPath, "/")
}
