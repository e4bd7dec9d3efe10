package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	apperrors "orpheus_go_backend/internal/errors"
	"orpheus_go_backend/internal/utils/storagepath"

	"cloud.google.com/go/storage"
	"github.com/rs/zerolog/log"
)

// GCSBucketAPI is the subset of bucket operations the store needs.
// gcsBucketHandle adapts *storage.BucketHandle to it.
type GCSBucketAPI interface {
	Name() string
	Attrs(ctx context.Context) (*storage.BucketAttrs, error)
	Create(ctx context.Context, projectID string, attrs *storage.BucketAttrs) error
	Write(ctx context.Context, object string, data []byte, attrs storage.ObjectAttrs) error
	NewReader(ctx context.Context, object string) (io.ReadCloser, error)
	Delete(ctx context.Context, object string) error
	SignedURL(object string, opts *storage.SignedURLOptions) (string, error)
}

type gcsBucketHandle struct {
	handle *storage.BucketHandle
	name   string
}

func (b gcsBucketHandle) Name() string { return b.name }

func (b gcsBucketHandle) Attrs(ctx context.Context) (*storage.BucketAttrs, error) {
	return b.handle.Attrs(ctx)
}

func (b gcsBucketHandle) Create(ctx context.Context, projectID string, attrs *storage.BucketAttrs) error {
	return b.handle.Create(ctx, projectID, attrs)
}

func (b gcsBucketHandle) Write(ctx context.Context, object string, data []byte, attrs storage.ObjectAttrs) error {
	writer := b.handle.Object(object).NewWriter(ctx)
	writer.ContentType = attrs.ContentType
	writer.CacheControl = attrs.CacheControl
	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return err
	}
	return writer.Close()
}

func (b gcsBucketHandle) NewReader(ctx context.Context, object string) (io.ReadCloser, error) {
	return b.handle.Object(object).NewReader(ctx)
}

func (b gcsBucketHandle) Delete(ctx context.Context, object string) error {
	return b.handle.Object(object).Delete(ctx)
}

func (b gcsBucketHandle) SignedURL(object string, opts *storage.SignedURLOptions) (string, error) {
	return b.handle.SignedURL(object, opts)
}

// GCSObjectStore keeps podcast media in a Google Cloud Storage bucket.
type GCSObjectStore struct {
	bucket GCSBucketAPI
	closer io.Closer
	layout storagepath.Layout
	now    func() time.Time
}

func NewGCSObjectStore(ctx context.Context, bucket, publicBase string) (*GCSObjectStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	store := newGCSObjectStore(gcsBucketHandle{handle: client.Bucket(bucket), name: bucket}, publicBase)
	store.closer = client
	return store, nil
}

func newGCSObjectStore(bucket GCSBucketAPI, publicBase string) *GCSObjectStore {
	if publicBase == "" {
		publicBase = "https://storage.googleapis.com/" + bucket.Name()
	}
	return &GCSObjectStore{
		bucket: bucket,
		layout: storagepath.Layout{PublicBase: publicBase, Bucket: bucket.Name()},
		now:    time.Now,
	}
}

// EnsureBucket creates the bucket in location when it does not exist yet.
func (s *GCSObjectStore) EnsureBucket(ctx context.Context, projectID, location string) error {
	attrs, err := s.bucket.Attrs(ctx)
	if errors.Is(err, storage.ErrBucketNotExist) {
		log.Info().Str("bucket", s.layout.Bucket).Str("location", location).Msg("Bucket does not exist, creating")
		if err := s.bucket.Create(ctx, projectID, &storage.BucketAttrs{Location: location}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get bucket attributes: %w", err)
	}
	if location != "" && attrs.Location != location {
		log.Warn().Str("bucket", s.layout.Bucket).Str("location", attrs.Location).Msg("Existing bucket is in a different location")
	}
	return nil
}

func (s *GCSObjectStore) BucketExists(ctx context.Context) (bool, error) {
	_, err := s.bucket.Attrs(ctx)
	if errors.Is(err, storage.ErrBucketNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get bucket attributes: %w", err)
	}
	return true, nil
}

func (s *GCSObjectStore) Upload(ctx context.Context, path string, data []byte, opts UploadOptions) error {
	attrs := storage.ObjectAttrs{ContentType: opts.ContentType}
	if opts.CacheControl != "" {
		attrs.CacheControl = "public, max-age=" + opts.CacheControl
	}
	if err := s.bucket.Write(ctx, path, data, attrs); err != nil {
		return fmt.Errorf("upload %s: %w", path, err)
	}
	return nil
}

func (s *GCSObjectStore) SignedURL(_ context.Context, path string, expiry time.Duration) (string, error) {
	if path == "" {
		return "", apperrors.Validationf("object path is required")
	}
	url, err := s.bucket.SignedURL(path, &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  "GET",
		Expires: s.now().Add(expiry),
	})
	if err != nil {
		return "", fmt.Errorf("sign %s: %w", path, err)
	}
	return url, nil
}

func (s *GCSObjectStore) Download(ctx context.Context, path string) ([]byte, error) {
	reader, err := s.bucket.NewReader(ctx, path)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", path, err)
	}
	defer reader.Close()
	return io.ReadAll(reader)
}

func (s *GCSObjectStore) Remove(ctx context.Context, path string) error {
	if err := s.bucket.Delete(ctx, path); err != nil {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

func (s *GCSObjectStore) PublicURL(path string) string {
	return s.layout.PublicURL(path)
}

func (s *GCSObjectStore) ObjectPath(stored string) string {
	return s.layout.ObjectPath(stored)
}

func (s *GCSObjectStore) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
