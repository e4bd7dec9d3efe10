package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	apperrors "orpheus_go_backend/internal/errors"
	"orpheus_go_backend/internal/utils/storagepath"

	storage_go "github.com/supabase-community/storage-go"
)

// SupabaseStorageAPI is the subset of *storage_go.Client used here.
type SupabaseStorageAPI interface {
	GetBucket(id string) (storage_go.Bucket, error)
	UploadFile(bucketId string, relativePath string, data io.Reader, fileOptions ...storage_go.FileOptions) (storage_go.FileUploadResponse, error)
	CreateSignedUrl(bucketId string, filePath string, expiresIn int) (storage_go.SignedUrlResponse, error)
	DownloadFile(bucketId string, filePath string, urlOptions ...storage_go.UrlOptions) ([]byte, error)
	RemoveFile(bucketId string, paths []string) ([]storage_go.FileUploadResponse, error)
}

type SupabaseObjectStore struct {
	client SupabaseStorageAPI
	layout storagepath.Layout
}

func NewSupabaseObjectStore(client SupabaseStorageAPI, projectURL, bucket string) *SupabaseObjectStore {
	return &SupabaseObjectStore{
		client: client,
		layout: storagepath.SupabaseLayout(projectURL, bucket),
	}
}

func (s *SupabaseObjectStore) BucketExists(_ context.Context) (bool, error) {
	bucket, err := s.client.GetBucket(s.layout.Bucket)
	if err != nil {
		msg := strings.ToLower(err.Error())
		if strings.Contains(msg, "not found") || strings.Contains(msg, "404") {
			return false, nil
		}
		return false, fmt.Errorf("get bucket %s: %w", s.layout.Bucket, err)
	}
	return bucket.Name == s.layout.Bucket || bucket.Id == s.layout.Bucket, nil
}

func (s *SupabaseObjectStore) Upload(_ context.Context, path string, data []byte, opts UploadOptions) error {
	upsert := false
	fileOpts := storage_go.FileOptions{Upsert: &upsert}
	if opts.ContentType != "" {
		fileOpts.ContentType = &opts.ContentType
	}
	if opts.CacheControl != "" {
		fileOpts.CacheControl = &opts.CacheControl
	}
	if _, err := s.client.UploadFile(s.layout.Bucket, path, bytes.NewReader(data), fileOpts); err != nil {
		return fmt.Errorf("upload %s: %w", path, err)
	}
	return nil
}

func (s *SupabaseObjectStore) SignedURL(_ context.Context, path string, expiry time.Duration) (string, error) {
	if path == "" {
		return "", apperrors.Validationf("object path is required")
	}
	resp, err := s.client.CreateSignedUrl(s.layout.Bucket, path, int(expiry.Seconds()))
	if err != nil {
		return "", fmt.Errorf("sign %s: %w", path, err)
	}
	if resp.SignedURL == "" {
		return "", fmt.Errorf("sign %s: empty signed url", path)
	}
	return resp.SignedURL, nil
}

func (s *SupabaseObjectStore) Download(_ context.Context, path string) ([]byte, error) {
	data, err := s.client.DownloadFile(s.layout.Bucket, path)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", path, err)
	}
	return data, nil
}

func (s *SupabaseObjectStore) Remove(_ context.Context, path string) error {
	if _, err := s.client.RemoveFile(s.layout.Bucket, []string{path}); err != nil {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

func (s *SupabaseObjectStore) PublicURL(path string) string {
	return s.layout.PublicURL(path)
}

func (s *SupabaseObjectStore) ObjectPath(stored string) string {
	return s.layout.ObjectPath(stored)
}
