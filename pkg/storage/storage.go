package storage

import (
	"context"
	"time"
)

// Backend represents a storage backend that can store and manage dotenv files
type Backend interface {
	// Name returns a human-readable name for this backend (e.g., "s3_prod", "b2_offsite")
	Name() string

	// Type returns the backend type (presigned, s3, backblaze, sftp, local)
	Type() string

	// Write stores content at the given path
	// path: relative object path in the backend (e.g., "myapp/.env.prod")
	Write(ctx context.Context, path string, content []byte, opts WriteOptions) error

	// Read returns the content stored at the given path
	Read(ctx context.Context, path string) ([]byte, error)

	// Delete removes an object from the backend
	Delete(ctx context.Context, path string) error

	// List returns all objects whose path matches the glob pattern
	// (e.g., "myapp/.env.*", "myapp/history/*")
	// Returns objects sorted by modification time (newest first)
	List(ctx context.Context, pattern string) ([]FileInfo, error)

	// Stat returns metadata about a specific object
	Stat(ctx context.Context, path string) (*FileInfo, error)

	// Exists checks if an object exists in the backend
	Exists(ctx context.Context, path string) (bool, error)

	// Close releases resources (connections, sessions)
	Close() error
}

// WriteOptions carries optional metadata applied when storing an object.
// The zero value is valid.
type WriteOptions struct {
	// ContentType of the object. Backends default to "text/plain" when
	// empty, since dotenv files are line-oriented text.
	ContentType string

	// ServerSideEncryption algorithm the platform should apply, when the
	// backend supports one (e.g., "AES256").
	ServerSideEncryption string
}

// FileInfo represents metadata about a stored object
type FileInfo struct {
	Path    string    // Relative path in backend
	Size    int64     // Size in bytes
	ModTime time.Time // Last modification time
}

// Config represents storage backend configuration
type Config struct {
	Name    string                 `json:"name"`     // User-friendly name (e.g., "s3_prod")
	Type    string                 `json:"type"`     // Backend type: presigned, s3, backblaze, sftp, local
	Enabled bool                   `json:"enabled"`  // Whether this backend is active
	BaseDir string                 `json:"base_dir"` // Base directory/prefix for objects
	Options map[string]interface{} `json:"options"`  // Backend-specific options
}

// Result represents outcome of a storage operation
type Result struct {
	BackendName string
	BackendType string
	Success     bool
	Error       error
	Duration    time.Duration
}
