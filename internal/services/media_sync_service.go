package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/api/drive/v3"

	"github.com/homeservices/mediasync/internal/models"
	"github.com/homeservices/mediasync/internal/observability"
	"github.com/homeservices/mediasync/internal/repository"
)

// Fatal error stages
const (
	StageConfig      = "config"
	StageAuth        = "auth"
	StageLoadIndex   = "load_index"
	StageListFolders = "list_folders"
	StageListFiles   = "list_files"
	StageCancelled   = "cancelled"
	StageDeadline    = "deadline"
)

// ErrLedgerUnavailable means the run could not be recorded, so no work was attempted
var ErrLedgerUnavailable = errors.New("sync ledger unavailable")

// FatalSyncError aborts a run. The partial result gathered so far is still returned.
type FatalSyncError struct {
	Stage string
	Err   error
}

func (e *FatalSyncError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *FatalSyncError) Unwrap() error {
	return e.Err
}

// DriveScopes are the scopes requested for the provider token
var DriveScopes = []string{drive.DriveReadonlyScope}

// MediaSyncConfig is the job's explicit configuration, built once by the caller
type MediaSyncConfig struct {
	ServiceAccountJSON []byte
	RootFolderID       string
	MaxFilesPerFolder  int
	Workers            int
	FileTimeout        time.Duration
	RunTimeout         time.Duration
}

// MediaSyncService copies new images from the file provider into the object store
// and catalog, recording each invocation in the run ledger.
type MediaSyncService struct {
	cfg       MediaSyncConfig
	auth      Authenticator
	providers ProviderFactory
	store     ObjectStore
	images    repository.GalleryImageRepo
	ledger    *RunLedger
	metrics   *observability.SyncMetrics
}

// NewMediaSyncService creates a new MediaSyncService. metrics may be nil.
func NewMediaSyncService(
	cfg MediaSyncConfig,
	auth Authenticator,
	providers ProviderFactory,
	store ObjectStore,
	images repository.GalleryImageRepo,
	ledger *RunLedger,
	metrics *observability.SyncMetrics,
) *MediaSyncService {
	if cfg.MaxFilesPerFolder <= 0 {
		cfg.MaxFilesPerFolder = 100
	}
	// One listing page per folder
	if cfg.MaxFilesPerFolder > MaxListPageSize {
		cfg.MaxFilesPerFolder = MaxListPageSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &MediaSyncService{
		cfg:       cfg,
		auth:      auth,
		providers: providers,
		store:     store,
		images:    images,
		ledger:    ledger,
		metrics:   metrics,
	}
}

type category struct {
	slug        string
	displayName string
}

// runTally accumulates the result across workers
type runTally struct {
	mu     sync.Mutex
	result *models.SyncResult
}

func (t *runTally) synced() {
	t.mu.Lock()
	t.result.FilesSynced++
	t.mu.Unlock()
}

func (t *runTally) skipped() {
	t.mu.Lock()
	t.result.FilesSkipped++
	t.mu.Unlock()
}

func (t *runTally) errored(file string, err error) {
	t.mu.Lock()
	t.result.FilesErrored++
	t.result.Errors = append(t.result.Errors, models.FileError{File: file, Error: err.Error()})
	t.mu.Unlock()
}

// Run executes one sync. It returns ErrLedgerUnavailable (and no result) when the
// run cannot be recorded, a *FatalSyncError with the partial result when the run
// aborts, and the result with a nil error otherwise, even if some files failed.
func (s *MediaSyncService) Run(ctx context.Context) (*models.SyncResult, error) {
	ctx, span := observability.StartServiceSpan(ctx, "media_sync", "run")
	defer span.End()
	started := time.Now()

	run, err := s.ledger.Start(ctx)
	if err != nil {
		observability.RecordError(span, err)
		observability.WithContext(ctx).Errorf("Cannot start sync run: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
	}
	span.SetAttributes(observability.RunID(run.ID))
	log := observability.WithContext(ctx).WithField("run_id", run.ID)
	log.Info("Media sync started")

	runCtx := ctx
	if s.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.cfg.RunTimeout)
		defer cancel()
	}

	tally := &runTally{result: models.NewSyncResult()}
	runErr := s.execute(runCtx, tally)
	result := tally.result

	status := TerminalStatus(result, runErr)
	_ = s.ledger.Finish(ctx, run, result, status)
	s.metrics.RecordRun(ctx, status, time.Since(started).Seconds())

	span.SetAttributes(
		observability.Duration(time.Since(started)),
		attribute.String("sync.status", status),
		attribute.Int("sync.files_found", result.FilesFound),
		attribute.Int("sync.files_synced", result.FilesSynced),
		attribute.Int("sync.files_skipped", result.FilesSkipped),
		attribute.Int("sync.files_errored", result.FilesErrored),
	)

	if runErr != nil {
		observability.RecordError(span, runErr)
		log.Errorf("Media sync %s after %s: %v", status, time.Since(started).Round(time.Millisecond), runErr)
		return result, runErr
	}

	observability.SetSuccess(span)
	log.Infof("Media sync %s in %s: found=%d synced=%d skipped=%d errored=%d",
		status, time.Since(started).Round(time.Millisecond),
		result.FilesFound, result.FilesSynced, result.FilesSkipped, result.FilesErrored)
	return result, nil
}

func (s *MediaSyncService) execute(ctx context.Context, tally *runTally) error {
	if len(strings.TrimSpace(string(s.cfg.ServiceAccountJSON))) == 0 {
		return &FatalSyncError{Stage: StageConfig, Err: errors.New("service account credentials are not configured")}
	}
	if strings.TrimSpace(s.cfg.RootFolderID) == "" {
		return &FatalSyncError{Stage: StageConfig, Err: errors.New("root folder id is not configured")}
	}
	cred, err := ParseServiceCredential(s.cfg.ServiceAccountJSON)
	if err != nil {
		return &FatalSyncError{Stage: StageConfig, Err: err}
	}

	client, err := s.auth.Authorize(ctx, cred)
	if err != nil {
		return fatal(ctx, StageAuth, err)
	}
	provider, err := s.providers(ctx, client)
	if err != nil {
		return fatal(ctx, StageAuth, err)
	}

	ids, err := s.images.ListDriveFileIDs(ctx)
	if err != nil {
		return fatal(ctx, StageLoadIndex, err)
	}
	index := NewDedupIndex(ids)

	folders, err := provider.ListSubfolders(ctx, s.cfg.RootFolderID)
	if err != nil {
		return fatal(ctx, StageListFolders, err)
	}

	for _, folder := range folders {
		if err := ctx.Err(); err != nil {
			return fatal(ctx, StageCancelled, err)
		}

		cat := category{slug: Slugify(folder.DisplayName), displayName: folder.DisplayName}
		if cat.slug == "" {
			cat.slug = strings.ToLower(folder.ID)
		}
		tally.mu.Lock()
		tally.result.CategoriesFound = append(tally.result.CategoriesFound, folder.DisplayName)
		tally.mu.Unlock()

		if err := s.syncFolder(ctx, provider, index, cat, folder, tally); err != nil {
			return err
		}
	}

	if err := ctx.Err(); err != nil {
		return fatal(ctx, StageCancelled, err)
	}
	return nil
}

func (s *MediaSyncService) syncFolder(ctx context.Context, provider FileProvider, index *DedupIndex, cat category, folder models.CategoryFolder, tally *runTally) error {
	ctx, span := observability.StartServiceSpan(ctx, "media_sync", "folder", observability.Category(cat.slug))
	defer span.End()

	files, err := provider.ListImageFiles(ctx, folder.ID, s.cfg.MaxFilesPerFolder)
	if err != nil {
		observability.RecordError(span, err)
		return fatal(ctx, StageListFiles, fmt.Errorf("%s: %w", folder.DisplayName, err))
	}

	tally.mu.Lock()
	tally.result.FilesFound += len(files)
	tally.mu.Unlock()

	if len(files) == s.cfg.MaxFilesPerFolder {
		observability.WithContext(ctx).Warnf("Category %s hit the %d file listing cap; older files are not enumerated",
			cat.slug, s.cfg.MaxFilesPerFolder)
	}

	jobs := make(chan models.RemoteFile)
	var wg sync.WaitGroup
	for i := 0; i < s.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for file := range jobs {
				s.transferFile(ctx, provider, index, cat, file, tally)
			}
		}()
	}

	for _, file := range files {
		if ctx.Err() != nil {
			break
		}
		jobs <- file
	}
	close(jobs)
	wg.Wait()

	span.SetAttributes(attribute.Int("sync.files_listed", len(files)))
	observability.SetSuccess(span)
	return nil
}

// transferFile runs the pipeline for one file and records its outcome. Failures stay local to the file.
func (s *MediaSyncService) transferFile(ctx context.Context, provider FileProvider, index *DedupIndex, cat category, file models.RemoteFile, tally *runTally) {
	if !index.Reserve(file.ID) {
		tally.skipped()
		s.metrics.RecordFile(ctx, cat.slug, "skipped")
		return
	}

	if s.cfg.FileTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.FileTimeout)
		defer cancel()
	}
	ctx, span := observability.StartServiceSpan(ctx, "media_sync", "transfer",
		observability.DriveFileID(file.ID), observability.Category(cat.slug))
	defer span.End()

	err := s.transfer(ctx, provider, cat, file)
	switch {
	case err == nil:
		index.Record(file.ID)
		tally.synced()
		s.metrics.RecordFile(ctx, cat.slug, "synced")
		observability.SetSuccess(span)
	case errors.Is(err, models.ErrDuplicateImage):
		// another run cataloged it first
		index.Record(file.ID)
		tally.skipped()
		s.metrics.RecordFile(ctx, cat.slug, "skipped")
	default:
		index.Release(file.ID)
		tally.errored(file.Name, err)
		s.metrics.RecordFile(ctx, cat.slug, "errored")
		observability.RecordError(span, err)
		observability.WithContext(ctx).WithFields(map[string]interface{}{
			"drive_file_id": file.ID,
			"category":      cat.slug,
		}).Warnf("Failed to sync %s: %v", file.Name, err)
	}
}

func (s *MediaSyncService) transfer(ctx context.Context, provider FileProvider, cat category, file models.RemoteFile) error {
	dctx, dspan := observability.StartClientSpan(ctx, "drive", "download", observability.DriveFileID(file.ID))
	data, err := provider.DownloadFile(dctx, file.ID)
	if err != nil {
		observability.RecordError(dspan, err)
		dspan.End()
		return fmt.Errorf("download: %w", err)
	}
	dspan.End()

	if file.SizeBytes == nil {
		size := int64(len(data))
		file.SizeBytes = &size
	}
	if !file.HasDimensions() {
		file.Width, file.Height = ProbeDimensions(data)
	}

	objectPath := ObjectPath(cat.slug, file.ID, file.MimeType, file.Name)
	uctx, uspan := observability.StartClientSpan(ctx, "object_store", "upload",
		attribute.String("object.path", objectPath), attribute.Int("object.size", len(data)))
	if err := s.store.Upload(uctx, objectPath, data, file.MimeType); err != nil {
		observability.RecordError(uspan, err)
		uspan.End()
		return fmt.Errorf("upload: %w", err)
	}
	uspan.End()
	s.metrics.RecordUpload(ctx, int64(len(data)))

	image, err := models.NewGalleryImage(file, cat.slug, cat.displayName, objectPath,
		s.store.PublicURL(objectPath), TitleFromFilename(file.Name))
	if err != nil {
		return err
	}
	if err := s.images.Add(ctx, image); err != nil {
		return fmt.Errorf("catalog insert: %w", err)
	}
	return nil
}

// fatal wraps err for stage, reporting an expired run deadline as its own stage
func fatal(ctx context.Context, stage string, err error) *FatalSyncError {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		if !errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
		}
		stage = StageDeadline
	}
	return &FatalSyncError{Stage: stage, Err: err}
}
