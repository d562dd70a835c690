package repository

import (
	"context"

	"github.com/homeservices/mediasync/internal/models"
)

// GalleryImageRepo defines catalog persistence. Implementations enforce drive_file_id
// uniqueness and report violations as models.ErrDuplicateImage.
type GalleryImageRepo interface {
	ListDriveFileIDs(ctx context.Context) ([]string, error)
	GetByDriveFileID(ctx context.Context, driveFileID string) (*models.GalleryImage, error)
	ListByCategory(ctx context.Context, category string, limit int) ([]*models.GalleryImage, error)
	Add(ctx context.Context, image *models.GalleryImage) error
}

// SyncRunRepo defines run ledger persistence
type SyncRunRepo interface {
	Create(ctx context.Context, run *models.SyncRun) error
	Finish(ctx context.Context, run *models.SyncRun) error
	GetByID(ctx context.Context, id string) (*models.SyncRun, error)
	ListRecent(ctx context.Context, limit int) ([]*models.SyncRun, error)
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}
