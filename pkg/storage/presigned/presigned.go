// Package presigned implements a storage backend that talks to any
// S3-compatible service using nothing but presigned requests. It needs no
// provider SDK on the wire: every operation is a plain HTTP request whose
// authorization was computed locally.
package presigned

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/envkeeper/envkeeper/pkg/awssig"
	"github.com/envkeeper/envkeeper/pkg/storage"
)

const defaultExpires = 60

type Backend struct {
	name      string
	presigner *awssig.Presigner
	config    *awssig.BucketConfig
	client    *http.Client
	prefix    string
	expires   int
	endpoint  *url.URL
}

func init() {
	storage.RegisterBackend("presigned", func(ctx context.Context, cfg storage.Config) (storage.Backend, error) {
		return New(cfg)
	})
}

// New creates a presigned backend
func New(cfg storage.Config) (*Backend, error) {
	pCfg, err := parseConfig(cfg.Options)
	if err != nil {
		return nil, err
	}

	bucketCfg, err := awssig.New(awssig.Params{
		AccessKey:    pCfg.AccessKey,
		SecretKey:    pCfg.SecretKey,
		SessionToken: sessionTokenParam(cfg.Options),
		BucketHost:   pCfg.BucketHost,
		BucketName:   pCfg.BucketName,
		BucketRegion: pCfg.BucketRegion,

		FallbackToDefaultRegion: true,
	})
	if err != nil {
		return nil, storage.WrapError(cfg.Name, "init", err)
	}

	expires := pCfg.Expires
	if expires == 0 {
		expires = defaultExpires
	}

	var endpoint *url.URL
	if pCfg.Endpoint != "" {
		endpoint, err = url.Parse(pCfg.Endpoint)
		if err != nil {
			return nil, storage.WrapError(cfg.Name, "init", fmt.Errorf("invalid endpoint: %w", err))
		}
	}

	return &Backend{
		name:      cfg.Name,
		presigner: awssig.NewPresigner(bucketCfg),
		config:    bucketCfg,
		client:    &http.Client{Timeout: 60 * time.Second},
		prefix:    strings.TrimPrefix(path.Join(pCfg.Prefix, cfg.BaseDir), "/"),
		expires:   expires,
		endpoint:  endpoint,
	}, nil
}

func (b *Backend) Name() string { return b.name }
func (b *Backend) Type() string { return "presigned" }

// Write uploads content with a presigned POST when the bucket name is
// known, since POST policies must name the bucket. Otherwise it falls back
// to a presigned PUT, which only needs the host.
func (b *Backend) Write(ctx context.Context, objectPath string, content []byte, opts storage.WriteOptions) error {
	if opts.ContentType == "" {
		opts.ContentType = "text/plain"
	}

	return storage.WithRetry(ctx, storage.DefaultRetryConfig(), func() error {
		if b.config.BucketName() == "" {
			return b.writePUT(ctx, objectPath, content, opts)
		}
		return b.writePOST(ctx, objectPath, content, opts)
	})
}

func (b *Backend) writePOST(ctx context.Context, objectPath string, content []byte, opts storage.WriteOptions) error {
	postURL, formData, err := b.presigner.PresignPOST(b.key(objectPath), b.expires, awssig.PostOptions{
		ContentLength:        int64(len(content)),
		ContentType:          opts.ContentType,
		ServerSideEncryption: opts.ServerSideEncryption,
	})
	if err != nil {
		return storage.WrapError(b.name, "presign post", err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for field, value := range formData {
		if err := writer.WriteField(field, value); err != nil {
			return storage.WrapError(b.name, "upload", err)
		}
	}
	// The file part must come last, S3 ignores fields after it
	part, err := writer.CreateFormFile("file", path.Base(objectPath))
	if err != nil {
		return storage.WrapError(b.name, "upload", err)
	}
	if _, err := part.Write(content); err != nil {
		return storage.WrapError(b.name, "upload", err)
	}
	if err := writer.Close(); err != nil {
		return storage.WrapError(b.name, "upload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, postURL.String(), &body)
	if err != nil {
		return storage.WrapError(b.name, "upload", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := b.do(req)
	if err != nil {
		return storage.WrapError(b.name, "upload", storage.ErrConnFailed)
	}
	defer resp.Body.Close()

	return b.checkStatus("upload", resp)
}

func (b *Backend) writePUT(ctx context.Context, objectPath string, content []byte, opts storage.WriteOptions) error {
	u, err := b.presigner.PresignURL(http.MethodPut, b.key(objectPath), b.expires)
	if err != nil {
		return storage.WrapError(b.name, "presign put", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u.String(), bytes.NewReader(content))
	if err != nil {
		return storage.WrapError(b.name, "upload", err)
	}
	req.Header.Set("Content-Type", opts.ContentType)
	if opts.ServerSideEncryption != "" {
		req.Header.Set("x-amz-server-side-encryption", opts.ServerSideEncryption)
	}

	resp, err := b.do(req)
	if err != nil {
		return storage.WrapError(b.name, "upload", storage.ErrConnFailed)
	}
	defer resp.Body.Close()

	return b.checkStatus("upload", resp)
}

// Read downloads an object with a presigned GET
func (b *Backend) Read(ctx context.Context, objectPath string) ([]byte, error) {
	u, err := b.presigner.PresignURL(http.MethodGet, b.key(objectPath), b.expires)
	if err != nil {
		return nil, storage.WrapError(b.name, "presign get", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, storage.WrapError(b.name, "download", err)
	}

	resp, err := b.do(req)
	if err != nil {
		return nil, storage.WrapError(b.name, "download", storage.ErrConnFailed)
	}
	defer resp.Body.Close()

	if err := b.checkStatus("download", resp); err != nil {
		return nil, err
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, storage.WrapError(b.name, "download", err)
	}
	return content, nil
}

// Delete is not supported; deletion needs an inventory-capable backend
func (b *Backend) Delete(ctx context.Context, objectPath string) error {
	return storage.WrapError(b.name, "delete", storage.ErrUnsupported)
}

// List is not supported; listing needs an inventory-capable backend
func (b *Backend) List(ctx context.Context, pattern string) ([]storage.FileInfo, error) {
	return nil, storage.WrapError(b.name, "list", storage.ErrUnsupported)
}

// Stat checks an object with a presigned HEAD request
func (b *Backend) Stat(ctx context.Context, objectPath string) (*storage.FileInfo, error) {
	u, err := b.presigner.PresignURL(http.MethodHead, b.key(objectPath), b.expires)
	if err != nil {
		return nil, storage.WrapError(b.name, "presign head", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, u.String(), nil)
	if err != nil {
		return nil, storage.WrapError(b.name, "stat", err)
	}

	resp, err := b.do(req)
	if err != nil {
		return nil, storage.WrapError(b.name, "stat", storage.ErrConnFailed)
	}
	defer resp.Body.Close()

	if err := b.checkStatus("stat", resp); err != nil {
		return nil, err
	}

	info := &storage.FileInfo{Path: objectPath}
	if length := resp.Header.Get("Content-Length"); length != "" {
		info.Size, _ = strconv.ParseInt(length, 10, 64)
	}
	if modified := resp.Header.Get("Last-Modified"); modified != "" {
		info.ModTime, _ = http.ParseTime(modified)
	}
	return info, nil
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

// Close releases idle connections
func (b *Backend) Close() error {
	b.client.CloseIdleConnections()
	return nil
}

func (b *Backend) key(objectPath string) string {
	return path.Join(b.prefix, objectPath)
}

// do performs the request, retargeting it at the configured endpoint when
// one is set. The Host header stays on the bucket host it was signed for.
func (b *Backend) do(req *http.Request) (*http.Response, error) {
	if b.endpoint != nil {
		req.Host = req.URL.Host
		req.URL.Scheme = b.endpoint.Scheme
		req.URL.Host = b.endpoint.Host
	}
	return b.client.Do(req)
}

func (b *Backend) checkStatus(operation string, resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return storage.WrapError(b.name, operation, storage.ErrNotFound)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return storage.WrapError(b.name, operation, storage.ErrAuthFailed)
	default:
		return storage.WrapError(b.name, operation, fmt.Errorf("unexpected status %s", resp.Status))
	}
}

func parseConfig(options map[string]interface{}) (*Config, error) {
	cfg := &Config{}

	if v, ok := options["access_key"].(string); ok {
		cfg.AccessKey = v
	}
	if v, ok := options["secret_key"].(string); ok {
		cfg.SecretKey = v
	}
	if v, ok := options["bucket_host"].(string); ok {
		cfg.BucketHost = v
	}
	if v, ok := options["bucket_name"].(string); ok {
		cfg.BucketName = v
	}
	if v, ok := options["bucket_region"].(string); ok {
		cfg.BucketRegion = v
	}
	if v, ok := options["prefix"].(string); ok {
		cfg.Prefix = v
	}
	if v, ok := options["expires"].(float64); ok {
		cfg.Expires = int(v)
	}
	if v, ok := options["endpoint"].(string); ok {
		cfg.Endpoint = v
	}
	if cfg.BucketHost == "" && cfg.BucketName == "" {
		return nil, fmt.Errorf("missing required option: bucket_host or bucket_name")
	}

	return cfg, nil
}

// sessionTokenParam distinguishes an absent session_token (fall back to the
// environment) from one explicitly set, including set to empty to disable
// the environment fallback.
func sessionTokenParam(options map[string]interface{}) *string {
	v, ok := options["session_token"]
	if !ok {
		return nil
	}
	token, ok := v.(string)
	if !ok {
		return nil
	}
	return &token
}
