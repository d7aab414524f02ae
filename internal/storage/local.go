package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/maauso/mediaedit-api/internal/job/id"
)

var (
	// ErrS3NotConfigured is returned when S3 operations are attempted
	// without proper configuration.
	ErrS3NotConfigured = errors.New("S3 storage is not configured")
	// ErrInvalidName is returned for output names that are not a plain file name.
	ErrInvalidName = errors.New("invalid file name")
)

// Compile-time check that LocalStorage implements Storage.
var _ Storage = (*LocalStorage)(nil)

// LocalStorage implements the Storage interface using local disk.
// Uploads and outputs live in separate directories. S3 operations are not
// supported unless wrapped with S3Storage.
type LocalStorage struct {
	uploadDir string
	outputDir string
}

// NewLocalStorage creates a new LocalStorage instance.
// Empty directories default to "uploads" and "outputs" under os.TempDir().
// Both directories are created if they don't exist.
func NewLocalStorage(uploadDir, outputDir string) (*LocalStorage, error) {
	if uploadDir == "" {
		uploadDir = filepath.Join(os.TempDir(), "mediaedit", "uploads")
	}
	if outputDir == "" {
		outputDir = filepath.Join(os.TempDir(), "mediaedit", "outputs")
	}

	for _, dir := range []string{uploadDir, outputDir} {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	return &LocalStorage{uploadDir: uploadDir, outputDir: outputDir}, nil
}

// UploadDir returns the upload directory path.
func (s *LocalStorage) UploadDir() string {
	return s.uploadDir
}

// OutputDir returns the output directory path.
func (s *LocalStorage) OutputDir() string {
	return s.outputDir
}

// SaveUpload stores data under a fresh random id.
func (s *LocalStorage) SaveUpload(ctx context.Context, filename string, data io.Reader) (Upload, error) {
	return s.save(ctx, filename, "", data)
}

// SaveIndexedUpload stores data under a fresh random id suffixed with index.
func (s *LocalStorage) SaveIndexedUpload(ctx context.Context, filename string, index int, data io.Reader) (Upload, error) {
	return s.save(ctx, filename, "_"+strconv.Itoa(index), data)
}

func (s *LocalStorage) save(ctx context.Context, filename, suffix string, data io.Reader) (Upload, error) {
	select {
	case <-ctx.Done():
		return Upload{}, fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	name := SanitizeFilename(filename)
	u := Upload{
		ID:   id.Hex(),
		Name: name,
		Ext:  Ext(name),
	}
	u.Path = filepath.Join(s.uploadDir, u.ID+suffix+u.Ext)

	f, err := os.OpenFile(u.Path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600) // #nosec G304 - name is generated
	if err != nil {
		return Upload{}, fmt.Errorf("create upload file: %w", err)
	}

	if _, err := io.Copy(f, data); err != nil {
		_ = f.Close()
		_ = os.Remove(u.Path)
		return Upload{}, fmt.Errorf("write upload file: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(u.Path)
		return Upload{}, fmt.Errorf("close upload file: %w", err)
	}

	return u, nil
}

// OutputPath joins name onto the output directory after checking that name
// is a single path element.
func (s *LocalStorage) OutputPath(name string) (string, error) {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(s.outputDir, name), nil
}

// CleanupTemp removes the specified files.
// It continues cleanup even if some files fail to delete,
// returning the first error encountered.
func (s *LocalStorage) CleanupTemp(ctx context.Context, paths []string) error {
	var firstErr error
	for _, p := range paths {
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			if firstErr == nil {
				firstErr = fmt.Errorf("remove file %s: %w", p, err)
			}
		}
	}
	return firstErr
}

// UploadToS3 is not supported by LocalStorage and returns ErrS3NotConfigured.
func (s *LocalStorage) UploadToS3(_ context.Context, _ string, _ io.Reader) (string, error) {
	return "", ErrS3NotConfigured
}
