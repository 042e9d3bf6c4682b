package gcsuploader

import "context"

// StorageService provides the object storage operations used for backups.
// This interface enables mocking and testing of storage functionality.
type StorageService interface {
	// Upload writes data to bucket/object, replacing any existing object.
	Upload(ctx context.Context, bucket, object string, data []byte) error

	// Download reads the whole object.
	Download(ctx context.Context, bucket, object string) ([]byte, error)
}
