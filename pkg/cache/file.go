package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// DefaultDir is the file backend root used when none is configured.
const DefaultDir = ".newcache"

// FileBackend stores each entry as a JSON file under dir, laid out as
// {dir}/api/{table}/list/{page}.json.
type FileBackend struct {
	dir string
}

// NewFileBackend creates the root directory if needed.
func NewFileBackend(dir string) (*FileBackend, error) {
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &FileBackend{dir: dir}, nil
}

func (b *FileBackend) Name() string { return "file" }

// Dir returns the root directory.
func (b *FileBackend) Dir() string { return b.dir }

func (b *FileBackend) path(key Key) string {
	return filepath.Join(b.dir, filepath.FromSlash(key.Path()))
}

func (b *FileBackend) Read(_ context.Context, key Key) ([]byte, error) {
	data, err := os.ReadFile(b.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// Write replaces the entry through a temp file and rename, so readers never
// observe a partially written file.
func (b *FileBackend) Write(_ context.Context, key Key, data []byte) error {
	path := b.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	tmpPath := path + ".tmp." + uuid.NewString()
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

func (b *FileBackend) Delete(_ context.Context, key Key) error {
	err := os.Remove(b.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	return err
}

// Ping verifies the root directory is still present.
func (b *FileBackend) Ping(_ context.Context) error {
	info, err := os.Stat(b.dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("cache dir %s is not a directory", b.dir)
	}
	return nil
}

func (b *FileBackend) Close() error { return nil }
