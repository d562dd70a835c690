package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homeservices/mediasync/internal/models"
)

func TestTerminalStatus(t *testing.T) {
	clean := models.NewSyncResult()
	partial := models.NewSyncResult()
	partial.FilesErrored = 2

	tests := []struct {
		name   string
		result *models.SyncResult
		err    error
		want   string
	}{
		{"no errors", clean, nil, models.SyncStatusCompleted},
		{"file errors only", partial, nil, models.SyncStatusCompletedWithErrors},
		{"fatal", partial, &FatalSyncError{Stage: StageAuth, Err: errors.New("401")}, models.SyncStatusFailed},
		{"deadline", clean, &FatalSyncError{Stage: StageDeadline, Err: fmt.Errorf("wrap: %w", context.DeadlineExceeded)}, models.SyncStatusTimedOut},
		{"cancelled", clean, &FatalSyncError{Stage: StageCancelled, Err: context.Canceled}, models.SyncStatusFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TerminalStatus(tt.result, tt.err))
		})
	}
}

func TestRunLedger_StartAndFinish(t *testing.T) {
	ctx := context.Background()
	runs := newFakeRuns()
	ledger := NewRunLedger(runs)
	fixed := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	ledger.now = func() time.Time { return fixed }

	run, err := ledger.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusRunning, run.Status)
	assert.Equal(t, models.SyncTypeDriveImages, run.Type)
	assert.Equal(t, fixed, run.StartedAt)

	result := models.NewSyncResult()
	result.FilesFound, result.FilesSynced, result.FilesErrored = 3, 2, 1
	result.Errors = append(result.Errors, models.FileError{File: "bad.jpg", Error: "download: 500"})

	require.NoError(t, ledger.Finish(ctx, run, result, models.SyncStatusCompletedWithErrors))

	stored, history := runs.only()
	assert.Equal(t, []string{models.SyncStatusRunning, models.SyncStatusCompletedWithErrors}, history)
	assert.Equal(t, 3, stored.FilesFound)
	assert.Equal(t, 2, stored.FilesSynced)
	assert.Equal(t, result.Errors, stored.ErrorDetails)
	require.NotNil(t, stored.CompletedAt)

	t.Run("only one terminal write", func(t *testing.T) {
		err := ledger.Finish(ctx, run, result, models.SyncStatusCompleted)
		assert.ErrorIs(t, err, models.ErrRunFinalized)
		_, history := runs.only()
		assert.Len(t, history, 2)
	})
}

func TestRunLedger_StartFailure(t *testing.T) {
	runs := newFakeRuns()
	runs.createErr = errors.New("database is locked")

	_, err := NewRunLedger(runs).Start(context.Background())
	assert.ErrorContains(t, err, "database is locked")
}

func TestRunLedger_FinishFailureIsReported(t *testing.T) {
	ctx := context.Background()
	runs := newFakeRuns()
	ledger := NewRunLedger(runs)

	run, err := ledger.Start(ctx)
	require.NoError(t, err)

	runs.finishErr = errors.New("connection refused")
	err = ledger.Finish(ctx, run, models.NewSyncResult(), models.SyncStatusCompleted)
	assert.ErrorContains(t, err, "connection refused")
}

func TestRunLedger_FinishAfterCancelledContext(t *testing.T) {
	runs := newFakeRuns()
	ledger := NewRunLedger(runs)

	run, err := ledger.Start(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, ledger.Finish(ctx, run, models.NewSyncResult(), models.SyncStatusTimedOut))

	_, history := runs.only()
	assert.Equal(t, models.SyncStatusTimedOut, history[len(history)-1])
}
