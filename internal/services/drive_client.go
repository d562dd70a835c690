package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/homeservices/mediasync/internal/models"
)

const (
	folderMimeType   = "application/vnd.google-apps.folder"
	maxDownloadBytes = 200 << 20
)

// MaxListPageSize is the largest page the Drive files.list call returns
const MaxListPageSize = 1000

// FileProvider is the external file store the sync job reads from
type FileProvider interface {
	ListSubfolders(ctx context.Context, rootID string) ([]models.CategoryFolder, error)
	ListImageFiles(ctx context.Context, folderID string, limit int) ([]models.RemoteFile, error)
	DownloadFile(ctx context.Context, fileID string) ([]byte, error)
}

// ProviderFactory builds a FileProvider on top of an authorized HTTP client
type ProviderFactory func(ctx context.Context, client *http.Client) (FileProvider, error)

// DriveClient implements FileProvider over the Google Drive v3 API
type DriveClient struct {
	service *drive.Service
}

// NewDriveClient creates a Drive client. endpoint overrides the API base URL when set.
func NewDriveClient(ctx context.Context, client *http.Client, endpoint string) (*DriveClient, error) {
	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}

	srv, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Drive client: %w", err)
	}
	return &DriveClient{service: srv}, nil
}

// DriveProviderFactory returns a ProviderFactory producing DriveClients against endpoint
func DriveProviderFactory(endpoint string) ProviderFactory {
	return func(ctx context.Context, client *http.Client) (FileProvider, error) {
		return NewDriveClient(ctx, client, endpoint)
	}
}

// ListSubfolders lists the direct subfolders of rootID ordered by name, in one page
func (d *DriveClient) ListSubfolders(ctx context.Context, rootID string) ([]models.CategoryFolder, error) {
	q := fmt.Sprintf("'%s' in parents and mimeType = '%s' and trashed = false", escapeQuery(rootID), folderMimeType)

	r, err := d.service.Files.List().
		Context(ctx).
		Q(q).
		OrderBy("name").
		PageSize(MaxListPageSize).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Fields(googleapi.Field("files(id, name)")).
		Do()
	if err != nil {
		return nil, fmt.Errorf("unable to list folders of %s: %w", rootID, err)
	}

	folders := make([]models.CategoryFolder, 0, len(r.Files))
	for i, f := range r.Files {
		if f.Id == "" || f.Name == "" {
			return nil, fmt.Errorf("folder %d under %s: missing id or name", i, rootID)
		}
		folders = append(folders, models.CategoryFolder{ID: f.Id, DisplayName: f.Name})
	}
	return folders, nil
}

// ListImageFiles lists whitelisted images in folderID, newest first, at most limit of them.
// There is no follow-up page: files beyond limit are not returned.
func (d *DriveClient) ListImageFiles(ctx context.Context, folderID string, limit int) ([]models.RemoteFile, error) {
	if limit <= 0 || limit > MaxListPageSize {
		limit = MaxListPageSize
	}
	mimeClauses := make([]string, 0, len(ImageMimeTypes()))
	for _, mt := range ImageMimeTypes() {
		mimeClauses = append(mimeClauses, fmt.Sprintf("mimeType = '%s'", mt))
	}
	q := fmt.Sprintf("'%s' in parents and trashed = false and (%s)",
		escapeQuery(folderID), strings.Join(mimeClauses, " or "))

	r, err := d.service.Files.List().
		Context(ctx).
		Q(q).
		OrderBy("modifiedTime desc").
		PageSize(int64(limit)).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Fields(googleapi.Field("files(id, name, mimeType, modifiedTime, size, imageMediaMetadata(width, height))")).
		Do()
	if err != nil {
		return nil, fmt.Errorf("unable to list files of %s: %w", folderID, err)
	}

	files := make([]models.RemoteFile, 0, len(r.Files))
	for _, f := range r.Files {
		rf, err := toRemoteFile(f)
		if err != nil {
			return nil, fmt.Errorf("folder %s: %w", folderID, err)
		}
		files = append(files, rf)
	}
	if len(files) > limit {
		files = files[:limit]
	}
	return files, nil
}

// DownloadFile fetches the raw bytes of fileID
func (d *DriveClient) DownloadFile(ctx context.Context, fileID string) ([]byte, error) {
	resp, err := d.service.Files.Get(fileID).
		Context(ctx).
		SupportsAllDrives(true).
		Download()
	if err != nil {
		return nil, fmt.Errorf("unable to download %s: %w", fileID, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", fileID, err)
	}
	if len(data) > maxDownloadBytes {
		return nil, fmt.Errorf("file %s exceeds %d bytes", fileID, maxDownloadBytes)
	}
	return data, nil
}

// toRemoteFile converts a Drive file, rejecting entries missing required fields
func toRemoteFile(f *drive.File) (models.RemoteFile, error) {
	if f.Id == "" {
		return models.RemoteFile{}, fmt.Errorf("file %q: missing id", f.Name)
	}
	if f.Name == "" || f.MimeType == "" {
		return models.RemoteFile{}, fmt.Errorf("file %s: missing name or mimeType", f.Id)
	}
	modified, err := time.Parse(time.RFC3339, f.ModifiedTime)
	if err != nil {
		return models.RemoteFile{}, fmt.Errorf("file %s: bad modifiedTime %q: %w", f.Id, f.ModifiedTime, err)
	}

	rf := models.RemoteFile{
		ID:           f.Id,
		Name:         f.Name,
		MimeType:     f.MimeType,
		ModifiedTime: modified.UTC(),
	}
	if f.Size > 0 {
		size := f.Size
		rf.SizeBytes = &size
	}
	if m := f.ImageMediaMetadata; m != nil && m.Width > 0 && m.Height > 0 {
		w, h := int(m.Width), int(m.Height)
		rf.Width, rf.Height = &w, &h
	}
	return rf, nil
}

func escapeQuery(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, `\`, `\\`), `'`, `\'`)
}
