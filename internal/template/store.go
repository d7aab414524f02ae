package template

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Store persists user-created templates. Built-in templates are never stored.
type Store interface {
	// List returns the stored templates in creation order.
	List(ctx context.Context) ([]Template, error)

	// Add appends a template to the store.
	Add(ctx context.Context, t Template) error
}

// Compile-time check that FileStore implements Store.
var _ Store = (*FileStore)(nil)

// FileStore keeps templates as a JSON array in a single file.
// Writes are serialized and published atomically with a rename.
type FileStore struct {
	mu     sync.Mutex
	path   string
	logger *slog.Logger
}

// NewFileStore creates a FileStore backed by path. The file is created lazily.
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{path: path, logger: logger}
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// List reads the stored templates. A missing file yields no templates;
// a file that is not valid JSON is logged and treated as empty.
func (s *FileStore) List(ctx context.Context) ([]Template, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}
	return s.read()
}

// Add appends t and rewrites the store file.
func (s *FileStore) Add(ctx context.Context, t Template) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.read()
	if err != nil {
		return err
	}
	existing = append(existing, t)

	data, err := json.MarshalIndent(existing, "", "  ")
	if err != nil {
		return fmt.Errorf("encode templates: %w", err)
	}
	return s.write(data)
}

func (s *FileStore) read() ([]Template, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []Template{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read template store: %w", err)
	}

	var templates []Template
	if err := json.Unmarshal(data, &templates); err != nil {
		s.logger.Warn("template store is not valid JSON, ignoring contents",
			slog.String("path", s.path),
			slog.String("error", err.Error()),
		)
		return []Template{}, nil
	}
	return templates, nil
}

func (s *FileStore) write(data []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("create template store directory: %w", err)
	}

	f, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmp := f.Name()

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("publish template store: %w", err)
	}
	return nil
}
