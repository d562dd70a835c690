package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homeservices/mediasync/internal/models"
)

func TestLocalObjectStore_Upload(t *testing.T) {
	ctx := context.Background()

	t.Run("writes object under category folder", func(t *testing.T) {
		store, err := NewLocalObjectStore(t.TempDir(), "https://cdn.example.com/gallery/")
		require.NoError(t, err)

		require.NoError(t, store.Upload(ctx, "bathrooms/abc123.jpg", []byte("image"), "image/jpeg"))

		data, err := os.ReadFile(filepath.Join(store.BasePath(), "bathrooms", "abc123.jpg"))
		require.NoError(t, err)
		assert.Equal(t, []byte("image"), data)
		assert.Equal(t, "https://cdn.example.com/gallery/bathrooms/abc123.jpg", store.PublicURL("bathrooms/abc123.jpg"))
	})

	t.Run("never overwrites", func(t *testing.T) {
		store, err := NewLocalObjectStore(t.TempDir(), "")
		require.NoError(t, err)

		require.NoError(t, store.Upload(ctx, "decks/x.png", []byte("first"), "image/png"))
		err = store.Upload(ctx, "decks/x.png", []byte("second"), "image/png")
		assert.ErrorIs(t, err, models.ErrObjectExists)

		data, err := os.ReadFile(filepath.Join(store.BasePath(), "decks", "x.png"))
		require.NoError(t, err)
		assert.Equal(t, []byte("first"), data)
	})

	t.Run("rejects traversal", func(t *testing.T) {
		store, err := NewLocalObjectStore(t.TempDir(), "")
		require.NoError(t, err)

		err = store.Upload(ctx, "../escape.jpg", []byte("x"), "image/jpeg")
		assert.ErrorIs(t, err, models.ErrPathTraversal)
	})

	t.Run("empty base path", func(t *testing.T) {
		_, err := NewLocalObjectStore(" ", "")
		assert.Error(t, err)
	})
}

type fakeS3 struct {
	input *s3.PutObjectInput
	err   error
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestS3ObjectStore_Upload(t *testing.T) {
	ctx := context.Background()

	t.Run("sends conditional put", func(t *testing.T) {
		api := &fakeS3{}
		store := &S3ObjectStore{client: api, bucket: "gallery", publicURL: "https://cdn.example.com"}

		require.NoError(t, store.Upload(ctx, "bathrooms/abc.jpg", []byte("img"), "image/jpeg"))
		require.NotNil(t, api.input)
		assert.Equal(t, "gallery", *api.input.Bucket)
		assert.Equal(t, "bathrooms/abc.jpg", *api.input.Key)
		assert.Equal(t, "*", *api.input.IfNoneMatch)
		assert.Equal(t, "image/jpeg", *api.input.ContentType)
		assert.Equal(t, "https://cdn.example.com/bathrooms/abc.jpg", store.PublicURL("bathrooms/abc.jpg"))
	})

	t.Run("precondition failure means object exists", func(t *testing.T) {
		api := &fakeS3{err: &smithy.GenericAPIError{Code: "PreconditionFailed", Message: "At least one of the pre-conditions you specified did not hold"}}
		store := &S3ObjectStore{client: api, bucket: "gallery", publicURL: "https://cdn.example.com"}

		err := store.Upload(ctx, "bathrooms/abc.jpg", []byte("img"), "image/jpeg")
		assert.ErrorIs(t, err, models.ErrObjectExists)
	})

	t.Run("other errors pass through", func(t *testing.T) {
		boom := errors.New("connection reset")
		store := &S3ObjectStore{client: &fakeS3{err: boom}, bucket: "gallery"}

		err := store.Upload(ctx, "a/b.jpg", []byte("img"), "image/jpeg")
		assert.ErrorIs(t, err, boom)
		assert.NotErrorIs(t, err, models.ErrObjectExists)
	})
}
