package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/homeservices/mediasync/internal/models"
)

// LocalObjectStore stores objects under a directory on disk
type LocalObjectStore struct {
	basePath  string
	publicURL string
}

// NewLocalObjectStore creates the base directory if needed. publicURL is the
// prefix under which basePath is served.
func NewLocalObjectStore(basePath, publicURL string) (*LocalObjectStore, error) {
	if strings.TrimSpace(basePath) == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}

	absPath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(absPath, 0755); err != nil {
		return nil, err
	}

	if publicURL == "" {
		publicURL = "/media"
	}
	return &LocalObjectStore{basePath: absPath, publicURL: publicURL}, nil
}

// Upload writes data at objectPath, failing if the file already exists
func (s *LocalObjectStore) Upload(ctx context.Context, objectPath string, data []byte, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	fullPath, err := s.FullPath(objectPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return err
	}

	file, err := os.OpenFile(fullPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: %s", models.ErrObjectExists, objectPath)
		}
		return err
	}

	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(fullPath) // Clean up on error
		return err
	}
	return file.Close()
}

// PublicURL returns the URL the object is served from
func (s *LocalObjectStore) PublicURL(objectPath string) string {
	return joinURL(s.publicURL, objectPath)
}

// BasePath is the directory objects are written under
func (s *LocalObjectStore) BasePath() string {
	return s.basePath
}

// FullPath resolves objectPath inside the base directory
func (s *LocalObjectStore) FullPath(objectPath string) (string, error) {
	if strings.TrimSpace(objectPath) == "" {
		return "", fmt.Errorf("object path cannot be empty")
	}

	fullPath, err := filepath.Abs(filepath.Join(s.basePath, filepath.FromSlash(objectPath)))
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(fullPath, s.basePath+string(os.PathSeparator)) {
		return "", models.ErrPathTraversal
	}
	return fullPath, nil
}
