package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/homeservices/mediasync/internal/models"
)

const syncRunColumns = `id, sync_type, started_at, completed_at, status,
	files_found, files_synced, files_skipped, files_errored, error_details`

// SyncRunRepository handles run ledger persistence for SQLite
type SyncRunRepository struct {
	db *sql.DB
}

// NewSyncRunRepository creates a new SyncRunRepository
func NewSyncRunRepository(db *sql.DB) *SyncRunRepository {
	return &SyncRunRepository{db: db}
}

// Create inserts a new run in the running state
func (r *SyncRunRepository) Create(ctx context.Context, run *models.SyncRun) error {
	query := `
		INSERT INTO sync_log (id, sync_type, started_at, status)
		VALUES (?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query, run.ID, run.Type, run.StartedAt.UTC(), run.Status)
	return err
}

// Finish writes the terminal state. Only a running row can be finished.
func (r *SyncRunRepository) Finish(ctx context.Context, run *models.SyncRun) error {
	details, err := encodeErrorDetails(run.ErrorDetails)
	if err != nil {
		return err
	}

	query := `
		UPDATE sync_log
		SET completed_at = ?, status = ?, files_found = ?, files_synced = ?, files_skipped = ?,
			files_errored = ?, error_details = ?
		WHERE id = ? AND status = ?
	`
	res, err := r.db.ExecContext(ctx, query,
		completedAtArg(run.CompletedAt), run.Status,
		run.FilesFound, run.FilesSynced, run.FilesSkipped, run.FilesErrored, details,
		run.ID, models.SyncStatusRunning,
	)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	existing, err := r.GetByID(ctx, run.ID)
	if err != nil {
		return err
	}
	return finishRejected(run.ID, existing)
}

// finishRejected explains why a terminal update matched no running row
func finishRejected(id string, existing *models.SyncRun) error {
	if existing == nil {
		return fmt.Errorf("%w: %s", models.ErrRunNotFound, id)
	}
	return fmt.Errorf("%w: %s is %s", models.ErrRunFinalized, id, existing.Status)
}

// GetByID retrieves a run by its ID
func (r *SyncRunRepository) GetByID(ctx context.Context, id string) (*models.SyncRun, error) {
	query := `SELECT ` + syncRunColumns + ` FROM sync_log WHERE id = ?`

	run, err := scanSyncRun(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRecent returns the most recently started runs first
func (r *SyncRunRepository) ListRecent(ctx context.Context, limit int) ([]*models.SyncRun, error) {
	query := `SELECT ` + syncRunColumns + ` FROM sync_log ORDER BY started_at DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectSyncRuns(rows)
}

func encodeErrorDetails(details []models.FileError) (string, error) {
	if details == nil {
		details = []models.FileError{}
	}
	data, err := json.Marshal(details)
	if err != nil {
		return "", fmt.Errorf("encode error details: %w", err)
	}
	return string(data), nil
}

func completedAtArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func scanSyncRun(row rowScanner) (*models.SyncRun, error) {
	var (
		run         models.SyncRun
		completedAt sql.NullTime
		details     []byte
	)
	err := row.Scan(
		&run.ID,
		&run.Type,
		&run.StartedAt,
		&completedAt,
		&run.Status,
		&run.FilesFound,
		&run.FilesSynced,
		&run.FilesSkipped,
		&run.FilesErrored,
		&details,
	)
	if err != nil {
		return nil, err
	}

	if completedAt.Valid {
		t := completedAt.Time
		run.CompletedAt = &t
	}
	run.ErrorDetails = []models.FileError{}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &run.ErrorDetails); err != nil {
			return nil, fmt.Errorf("decode error details for run %s: %w", run.ID, err)
		}
	}
	return &run, nil
}

func collectSyncRuns(rows *sql.Rows) ([]*models.SyncRun, error) {
	runs := []*models.SyncRun{}
	for rows.Next() {
		run, err := scanSyncRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
