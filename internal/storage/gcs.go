package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	gcs "cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"

	"rentdesk-backend/internal/domain"
	"rentdesk-backend/internal/logger"
)

// BucketStore keeps artifacts in a Cloud Storage bucket.
type BucketStore struct {
	bucket *gcs.BucketHandle
}

func NewBucketStore(bucket *gcs.BucketHandle) *BucketStore {
	return &BucketStore{bucket: bucket}
}

// NewFirebaseBucketStore uses the app's default bucket, or name when set.
func NewFirebaseBucketStore(ctx context.Context, app *firebase.App, name string) (*BucketStore, error) {
	client, err := app.Storage(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase storage client: %w", err)
	}
	var bucket *gcs.BucketHandle
	if name != "" {
		bucket, err = client.Bucket(name)
	} else {
		bucket, err = client.DefaultBucket()
	}
	if err != nil {
		return nil, fmt.Errorf("firebase storage bucket: %w", err)
	}
	return NewBucketStore(bucket), nil
}

func (s *BucketStore) Put(ctx context.Context, key, contentType string, r io.Reader) error {
	logger.ExternalServiceCall("gcs", "put", "key", key)
	w := s.bucket.Object(key).NewWriter(ctx)
	w.ContentType = contentType
	_, err := io.Copy(w, r)
	if closeErr := w.Close(); err == nil {
		err = closeErr
	}
	logger.ExternalServiceResult("gcs", "put", err, "key", key)
	if err != nil {
		return domain.Upstream("gcs", err)
	}
	return nil
}

func (s *BucketStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	r, err := s.bucket.Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil, domain.NotFoundf("artifact %s", key)
		}
		return nil, domain.Upstream("gcs", err)
	}
	return r, nil
}

func (s *BucketStore) Exists(ctx context.Context, key string) (bool, int64, error) {
	attrs, err := s.bucket.Object(key).Attrs(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return false, 0, nil
		}
		return false, 0, domain.Upstream("gcs", err)
	}
	return true, attrs.Size, nil
}

func (s *BucketStore) Delete(ctx context.Context, key string) error {
	err := s.bucket.Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return domain.Upstream("gcs", err)
	}
	return nil
}
