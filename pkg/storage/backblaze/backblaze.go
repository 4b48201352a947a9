package backblaze

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/kurin/blazer/b2"

	"github.com/envkeeper/envkeeper/pkg/storage"
)

type Backend struct {
	name   string
	client *b2.Client
	bucket *b2.Bucket
	prefix string
}

func init() {
	storage.RegisterBackend("backblaze", func(ctx context.Context, cfg storage.Config) (storage.Backend, error) {
		return New(ctx, cfg)
	})
}

// New creates a new Backblaze B2 backend
func New(ctx context.Context, cfg storage.Config) (*Backend, error) {
	b2Cfg, err := parseConfig(cfg.Options)
	if err != nil {
		return nil, err
	}

	client, err := b2.NewClient(ctx, b2Cfg.AccountID, b2Cfg.ApplicationKey)
	if err != nil {
		return nil, storage.WrapError(cfg.Name, "init", storage.ErrAuthFailed)
	}

	bucket, err := client.Bucket(ctx, b2Cfg.BucketName)
	if err != nil {
		return nil, storage.WrapError(cfg.Name, "get bucket", err)
	}

	return &Backend{
		name:   cfg.Name,
		client: client,
		bucket: bucket,
		prefix: strings.TrimPrefix(path.Join(b2Cfg.Prefix, cfg.BaseDir), "/"),
	}, nil
}

func (b *Backend) Name() string { return b.name }
func (b *Backend) Type() string { return "backblaze" }

// Write uploads content to B2
func (b *Backend) Write(ctx context.Context, objectPath string, content []byte, opts storage.WriteOptions) error {
	return storage.WithRetry(ctx, storage.DefaultRetryConfig(), func() error {
		obj := b.bucket.Object(b.key(objectPath))

		var attrs b2.Attrs
		if opts.ContentType != "" {
			attrs.ContentType = opts.ContentType
		}
		writer := obj.NewWriter(ctx, b2.WithAttrsOption(&attrs))

		if _, err := io.Copy(writer, bytes.NewReader(content)); err != nil {
			writer.Close()
			return storage.WrapError(b.name, "upload", err)
		}
		if err := writer.Close(); err != nil {
			return storage.WrapError(b.name, "upload", err)
		}
		return nil
	})
}

// Read downloads an object from B2
func (b *Backend) Read(ctx context.Context, objectPath string) ([]byte, error) {
	obj := b.bucket.Object(b.key(objectPath))

	reader := obj.NewReader(ctx)
	defer reader.Close()

	content, err := io.ReadAll(reader)
	if err != nil {
		if b2.IsNotExist(err) {
			return nil, storage.WrapError(b.name, "download", storage.ErrNotFound)
		}
		return nil, storage.WrapError(b.name, "download", err)
	}
	return content, nil
}

// Delete removes an object from B2
func (b *Backend) Delete(ctx context.Context, objectPath string) error {
	obj := b.bucket.Object(b.key(objectPath))
	if err := obj.Delete(ctx); err != nil {
		return storage.WrapError(b.name, "delete", err)
	}
	return nil
}

// List returns objects matching pattern
func (b *Backend) List(ctx context.Context, pattern string) ([]storage.FileInfo, error) {
	fullPrefix := path.Join(b.prefix, extractPrefix(pattern))

	var files []storage.FileInfo

	iter := b.bucket.List(ctx, b2.ListPrefix(fullPrefix))
	for iter.Next() {
		obj := iter.Object()

		relPath := strings.TrimPrefix(obj.Name(), b.prefix)
		relPath = strings.TrimPrefix(relPath, "/")

		if !matchesGlob(relPath, pattern) {
			continue
		}

		attrs, err := obj.Attrs(ctx)
		if err != nil {
			continue
		}

		files = append(files, storage.FileInfo{
			Path:    relPath,
			Size:    attrs.Size,
			ModTime: attrs.UploadTimestamp,
		})
	}

	if err := iter.Err(); err != nil {
		return nil, storage.WrapError(b.name, "list", err)
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].ModTime.After(files[j].ModTime)
	})

	return files, nil
}

// Stat returns object metadata
func (b *Backend) Stat(ctx context.Context, objectPath string) (*storage.FileInfo, error) {
	obj := b.bucket.Object(b.key(objectPath))

	attrs, err := obj.Attrs(ctx)
	if err != nil {
		if b2.IsNotExist(err) {
			return nil, storage.WrapError(b.name, "stat", storage.ErrNotFound)
		}
		return nil, storage.WrapError(b.name, "stat", err)
	}

	return &storage.FileInfo{
		Path:    objectPath,
		Size:    attrs.Size,
		ModTime: attrs.UploadTimestamp,
	}, nil
}

// Exists checks if object exists
func (b *Backend) Exists(ctx context.Context, objectPath string) (bool, error) {
	_, err := b.Stat(ctx, objectPath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Close releases resources
func (b *Backend) Close() error {
	return nil
}

func (b *Backend) key(objectPath string) string {
	return path.Join(b.prefix, objectPath)
}

func parseConfig(options map[string]interface{}) (*Config, error) {
	cfg := &Config{}

	if v, ok := options["account_id"].(string); ok {
		cfg.AccountID = v
	} else {
		return nil, fmt.Errorf("missing required option: account_id")
	}
	if v, ok := options["application_key"].(string); ok {
		cfg.ApplicationKey = v
	} else {
		return nil, fmt.Errorf("missing required option: application_key")
	}
	if v, ok := options["bucket_name"].(string); ok {
		cfg.BucketName = v
	} else {
		return nil, fmt.Errorf("missing required option: bucket_name")
	}
	if v, ok := options["prefix"].(string); ok {
		cfg.Prefix = v
	}

	return cfg, nil
}

func extractPrefix(pattern string) string {
	if idx := strings.Index(pattern, "*"); idx >= 0 {
		return pattern[:idx]
	}
	return pattern
}

func matchesGlob(path, pattern string) bool {
	if strings.HasPrefix(pattern, "*") {
		suffix := strings.TrimPrefix(pattern, "*")
		return strings.HasSuffix(path, suffix)
	}
	if strings.HasSuffix(pattern, "*") {
		prefix := strings.TrimSuffix(pattern, "*")
		return strings.HasPrefix(path, prefix)
	}
	if strings.Contains(pattern, "*") {
		parts := strings.Split(pattern, "*")
		return strings.HasPrefix(path, parts[0]) && strings.HasSuffix(path, parts[1])
	}
	return path == pattern
}
