// Package gcsuploader stores entry backups in Google Cloud Storage.
package gcsuploader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

const uploadTimeout = 2 * time.Minute

// GCSStorageService is the concrete implementation of StorageService that
// interacts with Google Cloud Storage. It assumes Application Default
// Credentials unless options say otherwise.
type GCSStorageService struct {
	client *storage.Client
}

// NewGCSStorageService creates a storage client.
func NewGCSStorageService(ctx context.Context, opts ...option.ClientOption) (*GCSStorageService, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCSStorageService{client: client}, nil
}

// Close closes the storage client.
func (s *GCSStorageService) Close() error {
	return s.client.Close()
}

// Upload implements StorageService.
func (s *GCSStorageService) Upload(ctx context.Context, bucket, object string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := s.client.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = "application/x-ndjson"

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return fmt.Errorf("copy backup to GCS writer: %w", err)
	}
	// Close finalizes the upload.
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize upload: %w", err)
	}
	return nil
}

// Download implements StorageService.
func (s *GCSStorageService) Download(ctx context.Context, bucket, object string) ([]byte, error) {
	r, err := s.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open GCS object reader %s/%s: %w", bucket, object, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read GCS object: %w", err)
	}
	return data, nil
}

// ParseURI splits gs://bucket/path/to/object into bucket and object.
func ParseURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}

// URI is the inverse of ParseURI.
func URI(bucket, object string) string {
	return "gs://" + bucket + "/" + object
}

// Ensure GCSStorageService implements StorageService interface.
var _ StorageService = (*GCSStorageService)(nil)
