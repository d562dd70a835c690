package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/homeservices/mediasync/internal/models"
)

// fakeAuth hands out http.DefaultClient or fails
type fakeAuth struct {
	err   error
	calls int
}

func (a *fakeAuth) Authorize(ctx context.Context, cred *models.ServiceCredential) (*http.Client, error) {
	a.calls++
	if a.err != nil {
		return nil, a.err
	}
	return http.DefaultClient, nil
}

// fakeProvider serves folders and files from memory
type fakeProvider struct {
	mu           sync.Mutex
	folders      []models.CategoryFolder
	files        map[string][]models.RemoteFile
	contents     map[string][]byte
	downloadErr  map[string]error
	folderErr    error
	filesErr     error
	blockOn      string
	downloads    map[string]int
	listedLimits []int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		files:       map[string][]models.RemoteFile{},
		contents:    map[string][]byte{},
		downloadErr: map[string]error{},
		downloads:   map[string]int{},
	}
}

func (p *fakeProvider) addFile(folderID string, file models.RemoteFile, data []byte) {
	p.files[folderID] = append(p.files[folderID], file)
	p.contents[file.ID] = data
}

func (p *fakeProvider) ListSubfolders(ctx context.Context, rootID string) ([]models.CategoryFolder, error) {
	if p.folderErr != nil {
		return nil, p.folderErr
	}
	return p.folders, nil
}

func (p *fakeProvider) ListImageFiles(ctx context.Context, folderID string, limit int) ([]models.RemoteFile, error) {
	p.mu.Lock()
	p.listedLimits = append(p.listedLimits, limit)
	p.mu.Unlock()
	if p.filesErr != nil {
		return nil, p.filesErr
	}
	files := p.files[folderID]
	if len(files) > limit {
		files = files[:limit]
	}
	return files, nil
}

func (p *fakeProvider) DownloadFile(ctx context.Context, fileID string) ([]byte, error) {
	p.mu.Lock()
	p.downloads[fileID]++
	p.mu.Unlock()

	if fileID == p.blockOn {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err := p.downloadErr[fileID]; err != nil {
		return nil, err
	}
	data, ok := p.contents[fileID]
	if !ok {
		return nil, fmt.Errorf("file %s not found", fileID)
	}
	return data, nil
}

func (p *fakeProvider) downloadCount(fileID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.downloads[fileID]
}

func (p *fakeProvider) factory() ProviderFactory {
	return func(ctx context.Context, client *http.Client) (FileProvider, error) {
		return p, nil
	}
}

// fakeStore is an in-memory ObjectStore honouring no-overwrite
type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	failOn  map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}, failOn: map[string]error{}}
}

func (s *fakeStore) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failOn[path]; err != nil {
		return err
	}
	if _, ok := s.objects[path]; ok {
		return fmt.Errorf("%w: %s", models.ErrObjectExists, path)
	}
	s.objects[path] = data
	return nil
}

func (s *fakeStore) PublicURL(path string) string {
	return "https://storage.example.com/gallery/" + path
}

func (s *fakeStore) has(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[path]
	return ok
}

// fakeImages is an in-memory GalleryImageRepo with a unique drive_file_id
type fakeImages struct {
	mu      sync.Mutex
	rows    map[string]*models.GalleryImage
	nextID  int64
	listErr error
	addErr  map[string]error
}

func newFakeImages(existing ...string) *fakeImages {
	f := &fakeImages{rows: map[string]*models.GalleryImage{}, addErr: map[string]error{}}
	for _, id := range existing {
		f.nextID++
		f.rows[id] = &models.GalleryImage{ID: f.nextID, DriveFileID: id}
	}
	return f
}

func (f *fakeImages) ListDriveFileIDs(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	ids := make([]string, 0, len(f.rows))
	for id := range f.rows {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (f *fakeImages) GetByDriveFileID(ctx context.Context, driveFileID string) (*models.GalleryImage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[driveFileID], nil
}

func (f *fakeImages) ListByCategory(ctx context.Context, category string, limit int) ([]*models.GalleryImage, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeImages) Add(ctx context.Context, image *models.GalleryImage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.addErr[image.DriveFileID]; err != nil {
		return err
	}
	if _, ok := f.rows[image.DriveFileID]; ok {
		return fmt.Errorf("%w: %s", models.ErrDuplicateImage, image.DriveFileID)
	}
	f.nextID++
	image.ID = f.nextID
	f.rows[image.DriveFileID] = image
	return nil
}

func (f *fakeImages) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

// fakeRuns is an in-memory SyncRunRepo recording every status written
type fakeRuns struct {
	mu        sync.Mutex
	runs      map[string]*models.SyncRun
	history   map[string][]string
	createErr error
	finishErr error
}

func newFakeRuns() *fakeRuns {
	return &fakeRuns{runs: map[string]*models.SyncRun{}, history: map[string][]string{}}
}

func (r *fakeRuns) Create(ctx context.Context, run *models.SyncRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	cp := *run
	r.runs[run.ID] = &cp
	r.history[run.ID] = append(r.history[run.ID], run.Status)
	return nil
}

func (r *fakeRuns) Finish(ctx context.Context, run *models.SyncRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finishErr != nil {
		return r.finishErr
	}
	stored, ok := r.runs[run.ID]
	if !ok {
		return models.ErrRunNotFound
	}
	if stored.Status != models.SyncStatusRunning {
		return models.ErrRunFinalized
	}
	cp := *run
	r.runs[run.ID] = &cp
	r.history[run.ID] = append(r.history[run.ID], run.Status)
	return nil
}

func (r *fakeRuns) GetByID(ctx context.Context, id string) (*models.SyncRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runs[id], nil
}

func (r *fakeRuns) ListRecent(ctx context.Context, limit int) ([]*models.SyncRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	runs := make([]*models.SyncRun, 0, len(r.runs))
	for _, run := range r.runs {
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].StartedAt.After(runs[j].StartedAt) })
	if len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// only returns the single run recorded so far
func (r *fakeRuns) only() (*models.SyncRun, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, run := range r.runs {
		return run, r.history[id]
	}
	return nil, nil
}

func remoteFile(id, name string, modified time.Time) models.RemoteFile {
	return models.RemoteFile{ID: id, Name: name, MimeType: "image/jpeg", ModifiedTime: modified}
}
