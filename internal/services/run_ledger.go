package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/homeservices/mediasync/internal/models"
	"github.com/homeservices/mediasync/internal/observability"
	"github.com/homeservices/mediasync/internal/repository"
)

const ledgerWriteTimeout = 10 * time.Second

// RunLedger records one SyncRun per job invocation
type RunLedger struct {
	runs repository.SyncRunRepo
	now  func() time.Time
}

// NewRunLedger creates a new RunLedger
func NewRunLedger(runs repository.SyncRunRepo) *RunLedger {
	return &RunLedger{runs: runs, now: time.Now}
}

// Start persists a new run in the running state
func (l *RunLedger) Start(ctx context.Context) (*models.SyncRun, error) {
	run := models.NewSyncRun(models.SyncTypeDriveImages)
	run.StartedAt = l.now().UTC()
	if err := l.runs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("create sync run: %w", err)
	}
	return run, nil
}

// Finish copies the result into run and writes the terminal status. It is best-effort:
// failures are logged and returned for inspection but must not change the caller's response.
func (l *RunLedger) Finish(ctx context.Context, run *models.SyncRun, result *models.SyncResult, status string) error {
	log := observability.WithContext(ctx).WithField("run_id", run.ID)

	if models.IsTerminal(run.Status) {
		err := fmt.Errorf("%w: %s is %s", models.ErrRunFinalized, run.ID, run.Status)
		log.Warnf("Skipping second terminal write: %v", err)
		return err
	}

	completed := l.now().UTC()
	run.CompletedAt = &completed
	run.Status = status
	run.FilesFound = result.FilesFound
	run.FilesSynced = result.FilesSynced
	run.FilesSkipped = result.FilesSkipped
	run.FilesErrored = result.FilesErrored
	run.ErrorDetails = append([]models.FileError{}, result.Errors...)

	// the run deadline may already have expired; the terminal write gets its own budget
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ledgerWriteTimeout)
	defer cancel()

	if err := l.runs.Finish(writeCtx, run); err != nil {
		log.Errorf("Failed to finalize sync run as %s: %v", status, err)
		return err
	}
	return nil
}

// TerminalStatus derives the final ledger status from the aggregate result and the
// error that ended the run, if any.
func TerminalStatus(result *models.SyncResult, runErr error) string {
	switch {
	case runErr == nil && result.FilesErrored == 0:
		return models.SyncStatusCompleted
	case runErr == nil:
		return models.SyncStatusCompletedWithErrors
	case errors.Is(runErr, context.DeadlineExceeded):
		return models.SyncStatusTimedOut
	default:
		return models.SyncStatusFailed
	}
}
