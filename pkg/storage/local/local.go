package local

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/envkeeper/envkeeper/pkg/storage"
)

type Backend struct {
	name     string
	basePath string
}

func init() {
	storage.RegisterBackend("local", func(ctx context.Context, cfg storage.Config) (storage.Backend, error) {
		return New(cfg)
	})
}

// New creates a new local filesystem backend
func New(cfg storage.Config) (*Backend, error) {
	path, _ := cfg.Options["path"].(string)
	if path == "" {
		path = cfg.BaseDir
	}
	if path == "" {
		return nil, fmt.Errorf("missing required option: path")
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	return &Backend{
		name:     cfg.Name,
		basePath: path,
	}, nil
}

func (b *Backend) Name() string { return b.name }
func (b *Backend) Type() string { return "local" }

// Write stores content in a file under the base path
func (b *Backend) Write(ctx context.Context, path string, content []byte, opts storage.WriteOptions) error {
	fullPath := filepath.Join(b.basePath, path)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return storage.WrapError(b.name, "write", err)
	}

	// Owner-only, dotenv files hold secrets
	if err := os.WriteFile(fullPath, content, 0o600); err != nil {
		return storage.WrapError(b.name, "write", err)
	}

	return nil
}

// Read returns the content of a file under the base path
func (b *Backend) Read(ctx context.Context, path string) ([]byte, error) {
	fullPath := filepath.Join(b.basePath, path)

	content, err := os.ReadFile(fullPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, storage.WrapError(b.name, "read", storage.ErrNotFound)
		}
		return nil, storage.WrapError(b.name, "read", err)
	}

	return content, nil
}

// Delete removes a file from the backend
func (b *Backend) Delete(ctx context.Context, path string) error {
	fullPath := filepath.Join(b.basePath, path)
	if err := os.Remove(fullPath); err != nil {
		return storage.WrapError(b.name, "delete", err)
	}
	return nil
}

// List returns files matching the pattern
func (b *Backend) List(ctx context.Context, pattern string) ([]storage.FileInfo, error) {
	globPattern := filepath.Join(b.basePath, pattern)
	matches, err := filepath.Glob(globPattern)
	if err != nil {
		return nil, storage.WrapError(b.name, "list", err)
	}

	var files []storage.FileInfo
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil || info.IsDir() {
			continue
		}

		relPath, err := filepath.Rel(b.basePath, match)
		if err != nil {
			relPath = filepath.Base(match)
		}

		files = append(files, storage.FileInfo{
			Path:    relPath,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	// Sort by modification time (newest first)
	sort.Slice(files, func(i, j int) bool {
		return files[i].ModTime.After(files[j].ModTime)
	})

	return files, nil
}

// Stat returns metadata about a file
func (b *Backend) Stat(ctx context.Context, path string) (*storage.FileInfo, error) {
	fullPath := filepath.Join(b.basePath, path)
	info, err := os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.ErrNotFound
		}
		return nil, storage.WrapError(b.name, "stat", err)
	}

	return &storage.FileInfo{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// Exists checks if a file exists
func (b *Backend) Exists(ctx context.Context, path string) (bool, error) {
	fullPath := filepath.Join(b.basePath, path)
	_, err := os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, storage.WrapError(b.name, "exists", err)
	}
	return true, nil
}

// Close is a no-op for local backend
func (b *Backend) Close() error {
	return nil
}
