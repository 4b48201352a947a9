package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/envkeeper/envkeeper/pkg/storage"
)

type Backend struct {
	name       string
	client     *s3.Client
	bucket     string
	prefix     string
	uploader   *manager.Uploader
	downloader *manager.Downloader
}

func init() {
	storage.RegisterBackend("s3", func(ctx context.Context, cfg storage.Config) (storage.Backend, error) {
		return New(ctx, cfg)
	})
}

// New creates a new S3 backend
func New(ctx context.Context, cfg storage.Config) (*Backend, error) {
	s3Cfg, err := parseConfig(cfg.Options)
	if err != nil {
		return nil, err
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(s3Cfg.Region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				s3Cfg.AccessKeyID,
				s3Cfg.SecretAccessKey,
				s3Cfg.SessionToken,
			),
		),
	)
	if err != nil {
		return nil, storage.WrapError(cfg.Name, "init", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if s3Cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(s3Cfg.Endpoint)
		}
		o.UsePathStyle = s3Cfg.ForcePathStyle
	})

	// Test connection
	_, err = client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s3Cfg.Bucket),
	})
	if err != nil {
		return nil, storage.WrapError(cfg.Name, "connection test", storage.ErrConnFailed)
	}

	return &Backend{
		name:       cfg.Name,
		client:     client,
		bucket:     s3Cfg.Bucket,
		prefix:     strings.TrimPrefix(path.Join(s3Cfg.Prefix, cfg.BaseDir), "/"),
		uploader:   manager.NewUploader(client),
		downloader: manager.NewDownloader(client),
	}, nil
}

func (b *Backend) Name() string { return b.name }
func (b *Backend) Type() string { return "s3" }

// Write uploads content to S3
func (b *Backend) Write(ctx context.Context, objectPath string, content []byte, opts storage.WriteOptions) error {
	return storage.WithRetry(ctx, storage.DefaultRetryConfig(), func() error {
		input := &s3.PutObjectInput{
			Bucket: aws.String(b.bucket),
			Key:    aws.String(b.key(objectPath)),
			Body:   bytes.NewReader(content),
		}
		if opts.ContentType != "" {
			input.ContentType = aws.String(opts.ContentType)
		}
		if opts.ServerSideEncryption != "" {
			input.ServerSideEncryption = types.ServerSideEncryption(opts.ServerSideEncryption)
		}

		if _, err := b.uploader.Upload(ctx, input); err != nil {
			return storage.WrapError(b.name, "upload", err)
		}
		return nil
	})
}

// Read downloads an object from S3
func (b *Backend) Read(ctx context.Context, objectPath string) ([]byte, error) {
	buf := manager.NewWriteAtBuffer(nil)

	_, err := b.downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(objectPath)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, storage.WrapError(b.name, "download", storage.ErrNotFound)
		}
		return nil, storage.WrapError(b.name, "download", err)
	}

	return buf.Bytes(), nil
}

// Delete removes an object from S3
func (b *Backend) Delete(ctx context.Context, objectPath string) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(objectPath)),
	})
	if err != nil {
		return storage.WrapError(b.name, "delete", err)
	}
	return nil
}

// List returns objects matching the pattern
func (b *Backend) List(ctx context.Context, pattern string) ([]storage.FileInfo, error) {
	// Everything before the first wildcard narrows the server-side listing
	fullPrefix := path.Join(b.prefix, extractPrefix(pattern))

	var files []storage.FileInfo

	paginator := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(fullPrefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, storage.WrapError(b.name, "list", err)
		}

		for _, obj := range page.Contents {
			relPath := strings.TrimPrefix(*obj.Key, b.prefix)
			relPath = strings.TrimPrefix(relPath, "/")

			if !matchesGlob(relPath, pattern) {
				continue
			}

			files = append(files, storage.FileInfo{
				Path:    relPath,
				Size:    aws.ToInt64(obj.Size),
				ModTime: aws.ToTime(obj.LastModified),
			})
		}
	}

	// Sort by modification time (newest first)
	sort.Slice(files, func(i, j int) bool {
		return files[i].ModTime.After(files[j].ModTime)
	})

	return files, nil
}

// Stat returns metadata about an object
func (b *Backend) Stat(ctx context.Context, objectPath string) (*storage.FileInfo, error) {
	result, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(objectPath)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, storage.WrapError(b.name, "stat", storage.ErrNotFound)
		}
		return nil, storage.WrapError(b.name, "stat", err)
	}

	return &storage.FileInfo{
		Path:    objectPath,
		Size:    aws.ToInt64(result.ContentLength),
		ModTime: aws.ToTime(result.LastModified),
	}, nil
}

// Exists checks if an object exists
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

// Close is a no-op for S3
func (b *Backend) Close() error {
	return nil
}

func (b *Backend) key(objectPath string) string {
	return path.Join(b.prefix, objectPath)
}

// isNotFound recognizes the missing-object responses S3 returns: NoSuchKey
// for GET and a bare 404 "NotFound" for HEAD.
func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "NotFound"
}

// Helper functions

func parseConfig(options map[string]interface{}) (*Config, error) {
	cfg := &Config{}

	if v, ok := options["endpoint"].(string); ok {
		cfg.Endpoint = v
	}
	if v, ok := options["region"].(string); ok {
		cfg.Region = v
	} else {
		return nil, fmt.Errorf("missing required option: region")
	}
	if v, ok := options["bucket"].(string); ok {
		cfg.Bucket = v
	} else {
		return nil, fmt.Errorf("missing required option: bucket")
	}
	if v, ok := options["prefix"].(string); ok {
		cfg.Prefix = v
	}
	if v, ok := options["access_key_id"].(string); ok {
		cfg.AccessKeyID = v
	} else {
		return nil, fmt.Errorf("missing required option: access_key_id")
	}
	if v, ok := options["secret_access_key"].(string); ok {
		cfg.SecretAccessKey = v
	} else {
		return nil, fmt.Errorf("missing required option: secret_access_key")
	}
	if v, ok := options["session_token"].(string); ok {
		cfg.SessionToken = v
	}
	if v, ok := options["force_path_style"].(bool); ok {
		cfg.ForcePathStyle = v
	}

	return cfg, nil
}

func extractPrefix(pattern string) string {
	// Extract prefix before first wildcard
	// "myapp/.env.*" -> "myapp/.env."
	if idx := strings.Index(pattern, "*"); idx >= 0 {
		return pattern[:idx]
	}
	return pattern
}

func matchesGlob(path, pattern string) bool {
	// Simple glob matching for dotenv object patterns
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
