package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/homeservices/mediasync/internal/models"
)

const galleryImageColumns = `id, drive_file_id, file_name, drive_modified_time, category, category_display_name,
	storage_path, public_url, title, width, height, size_bytes, mime_type, created_at`

// GalleryImageRepository handles catalog persistence for SQLite
type GalleryImageRepository struct {
	db *sql.DB
}

// NewGalleryImageRepository creates a new GalleryImageRepository
func NewGalleryImageRepository(db *sql.DB) *GalleryImageRepository {
	return &GalleryImageRepository{db: db}
}

// ListDriveFileIDs returns every cataloged drive file id
func (r *GalleryImageRepository) ListDriveFileIDs(ctx context.Context) ([]string, error) {
	return queryDriveFileIDs(ctx, r.db)
}

// GetByDriveFileID retrieves a catalog row by its provider id
func (r *GalleryImageRepository) GetByDriveFileID(ctx context.Context, driveFileID string) (*models.GalleryImage, error) {
	query := `SELECT ` + galleryImageColumns + ` FROM gallery_images WHERE drive_file_id = ?`

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
func (r *GalleryImageRepository) ListByCategory(ctx context.Context, category string, limit int) ([]*models.GalleryImage, error) {
	query := `SELECT ` + galleryImageColumns + ` FROM gallery_images
		WHERE (? = '' OR category = ?)
		ORDER BY drive_modified_time DESC, id DESC
		LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, category, category, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectGalleryImages(rows)
}

// Add inserts a catalog row and sets image.ID
func (r *GalleryImageRepository) Add(ctx context.Context, image *models.GalleryImage) error {
	query := `
		INSERT INTO gallery_images (drive_file_id, file_name, drive_modified_time, category, category_display_name,
			storage_path, public_url, title, width, height, size_bytes, mime_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	res, err := r.db.ExecContext(ctx, query, galleryImageArgs(image)...)
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return fmt.Errorf("%w: %s", models.ErrDuplicateImage, image.DriveFileID)
		}
		return err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	image.ID = id
	return nil
}

func galleryImageArgs(image *models.GalleryImage) []any {
	return []any{
		image.DriveFileID,
		image.FileName,
		image.DriveModifiedTime.UTC(),
		image.Category,
		image.CategoryDisplayName,
		image.StoragePath,
		image.PublicURL,
		image.Title,
		image.Width,
		image.Height,
		image.SizeBytes,
		image.MimeType,
		image.CreatedAt.UTC(),
	}
}

func queryDriveFileIDs(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT drive_file_id FROM gallery_images`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanGalleryImage(row rowScanner) (*models.GalleryImage, error) {
	var (
		image     models.GalleryImage
		width     sql.NullInt64
		height    sql.NullInt64
		sizeBytes sql.NullInt64
	)
	err := row.Scan(
		&image.ID,
		&image.DriveFileID,
		&image.FileName,
		&image.DriveModifiedTime,
		&image.Category,
		&image.CategoryDisplayName,
		&image.StoragePath,
		&image.PublicURL,
		&image.Title,
		&width,
		&height,
		&sizeBytes,
		&image.MimeType,
		&image.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if width.Valid {
		w := int(width.Int64)
		image.Width = &w
	}
	if height.Valid {
		h := int(height.Int64)
		image.Height = &h
	}
	if sizeBytes.Valid {
		image.SizeBytes = &sizeBytes.Int64
	}
	return &image, nil
}

func collectGalleryImages(rows *sql.Rows) ([]*models.GalleryImage, error) {
	images := []*models.GalleryImage{}
	for rows.Next() {
		image, err := scanGalleryImage(rows)
		if err != nil {
			return nil, err
		}
		images = append(images, image)
	}
	return images, rows.Err()
}
