// Package storage keeps uploaded media and rendered outputs on local disk
// and optionally publishes outputs to S3.
package storage

import (
	"context"
	"io"
)

// Upload describes a stored upload.
type Upload struct {
	// ID is the random hex identifier the file is stored under.
	ID string
	// Name is the sanitized client filename.
	Name string
	// Ext is the lowercased extension of Name, including the dot.
	Ext string
	// Path is the location of the stored file.
	Path string
}

// Storage defines the file storage used by request processing.
type Storage interface {
	// SaveUpload stores data as <id><ext> in the upload directory, where ext
	// comes from the sanitized filename.
	SaveUpload(ctx context.Context, filename string, data io.Reader) (Upload, error)

	// SaveIndexedUpload stores data as <id>_<index><ext>. It is used for the
	// clips of a multi-file request.
	SaveIndexedUpload(ctx context.Context, filename string, index int, data io.Reader) (Upload, error)

	// OutputPath resolves a bare output file name inside the output directory.
	// Returns ErrInvalidName for names that would escape it.
	OutputPath(name string) (string, error)

	// CleanupTemp removes the specified files.
	// It continues cleanup even if some files fail to delete.
	CleanupTemp(ctx context.Context, paths []string) error

	// UploadToS3 uploads data to S3 and returns the public URL.
	// Returns ErrS3NotConfigured if S3 is not configured.
	UploadToS3(ctx context.Context, key string, data io.Reader) (url string, err error)
}
