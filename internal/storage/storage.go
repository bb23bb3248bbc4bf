// Package storage provides object storage abstractions for publishing
// artifacts to a directory tree or to S3.
package storage

import (
	"context"
	"errors"

	poperrors "github.com/popreader/popreader/internal/errors"
)

// Common errors for storage operations. Upload and download failures are
// retryable PopErrors; a missing object is not.
var (
	ErrObjectNotFound = errors.New("object not found")
	ErrUploadFailed   = poperrors.New(poperrors.ErrCategoryIO, poperrors.CodeUploadFailed, "upload failed")
	ErrDownloadFailed = poperrors.New(poperrors.ErrCategoryIO, poperrors.CodeDownloadFailed, "download failed")
	ErrDeleteFailed   = errors.New("delete failed")
)

// ObjectStorage abstracts object storage operations.
// Implementations are the local filesystem and S3.
type ObjectStorage interface {
	// Upload uploads a file to object storage.
	// localPath is the path to the local file to upload.
	// objectPath is the destination path in object storage.
	Upload(ctx context.Context, localPath, objectPath string) error

	// Download downloads a file from object storage.
	// objectPath is the source path in object storage.
	// localPath is the destination path on the local filesystem.
	Download(ctx context.Context, objectPath, localPath string) error

	// Delete removes an object from storage. Deleting a missing object is not an error.
	Delete(ctx context.Context, objectPath string) error

	// Exists checks if an object exists in storage.
	Exists(ctx context.Context, objectPath string) (bool, error)

	// ListObjects returns all object paths under the given prefix.
	ListObjects(ctx context.Context, prefix string) ([]string, error)
}

func uploadError(objectPath string, err error) error {
	return poperrors.NewStorageError(poperrors.CodeUploadFailed, "upload "+objectPath, err)
}

func downloadError(objectPath string, err error) error {
	return poperrors.NewStorageError(poperrors.CodeDownloadFailed, "download "+objectPath, err)
}
