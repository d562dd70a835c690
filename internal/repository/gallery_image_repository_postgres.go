package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/homeservices/mediasync/internal/models"
)

// GalleryImageRepositoryPostgres handles catalog persistence for PostgreSQL
type GalleryImageRepositoryPostgres struct {
	db *sql.DB
}

// NewGalleryImageRepositoryPostgres creates a new GalleryImageRepositoryPostgres
func NewGalleryImageRepositoryPostgres(db *sql.DB) *GalleryImageRepositoryPostgres {
	return &GalleryImageRepositoryPostgres{db: db}
}

// ListDriveFileIDs returns every cataloged drive file id
func (r *GalleryImageRepositoryPostgres) ListDriveFileIDs(ctx context.Context) ([]string, error) {
	return queryDriveFileIDs(ctx, r.db)
}

// GetByDriveFileID retrieves a catalog row by its provider id
func (r *GalleryImageRepositoryPostgres) GetByDriveFileID(ctx context.Context, driveFileID string) (*models.GalleryImage, error) {
	query := `SELECT ` + galleryImageColumns + ` FROM gallery_images WHERE drive_file_id = $1`

	image, err := scanGalleryImage(r.db.QueryRowContext(ctx, query, driveFileID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return image, nil
}

// ListByCategory returns the newest images first. An empty category lists all.
func (r *GalleryImageRepositoryPostgres) ListByCategory(ctx context.Context, category string, limit int) ([]*models.GalleryImage, error) {
	query := `SELECT ` + galleryImageColumns + ` FROM gallery_images
		WHERE ($1 = '' OR category = $1)
		ORDER BY drive_modified_time DESC, id DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, category, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectGalleryImages(rows)
}

// Add inserts a catalog row and sets image.ID
func (r *GalleryImageRepositoryPostgres) Add(ctx context.Context, image *models.GalleryImage) error {
	query := `
		INSERT INTO gallery_images (drive_file_id, file_name, drive_modified_time, category, category_display_name,
			storage_path, public_url, title, width, height, size_bytes, mime_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`

	err := r.db.QueryRowContext(ctx, query, galleryImageArgs(image)...).Scan(&image.ID)
	if err != nil {
		if isPostgresUniqueViolation(err) {
			return fmt.Errorf("%w: %s", models.ErrDuplicateImage, image.DriveFileID)
		}
		return err
	}
	return nil
}
