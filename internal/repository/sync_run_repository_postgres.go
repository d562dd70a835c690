package repository

import (
	"context"
	"database/sql"

	"github.com/homeservices/mediasync/internal/models"
)

// SyncRunRepositoryPostgres handles run ledger persistence for PostgreSQL
type SyncRunRepositoryPostgres struct {
	db *sql.DB
}

// NewSyncRunRepositoryPostgres creates a new SyncRunRepositoryPostgres
func NewSyncRunRepositoryPostgres(db *sql.DB) *SyncRunRepositoryPostgres {
	return &SyncRunRepositoryPostgres{db: db}
}

// Create inserts a new run in the running state
func (r *SyncRunRepositoryPostgres) Create(ctx context.Context, run *models.SyncRun) error {
	query := `
		INSERT INTO sync_log (id, sync_type, started_at, status)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.ExecContext(ctx, query, run.ID, run.Type, run.StartedAt.UTC(), run.Status)
	return err
}

// Finish writes the terminal state. Only a running row can be finished.
func (r *SyncRunRepositoryPostgres) Finish(ctx context.Context, run *models.SyncRun) error {
	details, err := encodeErrorDetails(run.ErrorDetails)
	if err != nil {
		return err
	}

	query := `
		UPDATE sync_log
		SET completed_at = $1, status = $2, files_found = $3, files_synced = $4, files_skipped = $5,
			files_errored = $6, error_details = $7::jsonb
		WHERE id = $8 AND status = $9
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

// GetByID retrieves a run by its ID
func (r *SyncRunRepositoryPostgres) GetByID(ctx context.Context, id string) (*models.SyncRun, error) {
	query := `SELECT ` + syncRunColumns + ` FROM sync_log WHERE id = $1`

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
func (r *SyncRunRepositoryPostgres) ListRecent(ctx context.Context, limit int) ([]*models.SyncRun, error) {
	query := `SELECT ` + syncRunColumns + ` FROM sync_log ORDER BY started_at DESC LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectSyncRuns(rows)
}
