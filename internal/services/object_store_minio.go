package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/homeservices/mediasync/internal/models"
)

// MinioObjectStore stores objects in a MinIO (or S3-compatible) bucket
type MinioObjectStore struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// MinioOptions configures NewMinioObjectStore
type MinioOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	PublicURL string
}

// NewMinioObjectStore creates a MinIO client for the bucket
func NewMinioObjectStore(opts MinioOptions) (*MinioObjectStore, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure:       opts.UseSSL,
		Region:       opts.Region,
		BucketLookup: minio.BucketLookupAuto,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MinIO client: %w", err)
	}

	publicURL := opts.PublicURL
	if publicURL == "" {
		publicURL = client.EndpointURL().String() + "/" + opts.Bucket
	}
	return &MinioObjectStore{client: client, bucket: opts.Bucket, publicURL: publicURL}, nil
}

// Upload puts data at objectPath unless an object is already there.
// The existence check and the put are not atomic; the catalog constraint is the final guard.
func (s *MinioObjectStore) Upload(ctx context.Context, objectPath string, data []byte, contentType string) error {
	_, err := s.client.StatObject(ctx, s.bucket, objectPath, minio.StatObjectOptions{})
	if err == nil {
		return fmt.Errorf("%w: %s", models.ErrObjectExists, objectPath)
	}
	if !isMinioNotFound(err) {
		return fmt.Errorf("stat %s: %w", objectPath, err)
	}

	_, err = s.client.PutObject(ctx, s.bucket, objectPath, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		var minioErr minio.ErrorResponse
		if errors.As(err, &minioErr) {
			return fmt.Errorf("upload %s: %s: %s", objectPath, minioErr.Code, minioErr.Message)
		}
		return fmt.Errorf("upload %s: %w", objectPath, err)
	}
	return nil
}

// PublicURL returns the URL the object is served from
func (s *MinioObjectStore) PublicURL(objectPath string) string {
	return joinURL(s.publicURL, objectPath)
}

func isMinioNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound
}
