package sftp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/envkeeper/envkeeper/pkg/storage"
)

type Backend struct {
	name       string
	sshClient  *ssh.Client
	sftpClient *sftp.Client
	remotePath string
}

func init() {
	storage.RegisterBackend("sftp", func(ctx context.Context, cfg storage.Config) (storage.Backend, error) {
		return New(cfg)
	})
}

// New creates a new SFTP backend
func New(cfg storage.Config) (*Backend, error) {
	sftpCfg, err := parseConfig(cfg.Options)
	if err != nil {
		return nil, err
	}

	clientConfig := &ssh.ClientConfig{
		User:            sftpCfg.User,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), // TODO: Add host key verification
		Timeout:         30 * time.Second,
	}

	if sftpCfg.Password != "" {
		clientConfig.Auth = append(clientConfig.Auth, ssh.Password(sftpCfg.Password))
	}

	if sftpCfg.KeyPath != "" {
		key, err := os.ReadFile(sftpCfg.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read SSH key: %w", err)
		}

		var signer ssh.Signer
		if sftpCfg.KeyPassphrase != "" {
			signer, err = ssh.ParsePrivateKeyWithPassphrase(key, []byte(sftpCfg.KeyPassphrase))
		} else {
			signer, err = ssh.ParsePrivateKey(key)
		}

		if err != nil {
			return nil, fmt.Errorf("failed to parse SSH key: %w", err)
		}

		clientConfig.Auth = append(clientConfig.Auth, ssh.PublicKeys(signer))
	}

	if sftpCfg.Port == 0 {
		sftpCfg.Port = 22
	}

	addr := fmt.Sprintf("%s:%d", sftpCfg.Host, sftpCfg.Port)
	sshClient, err := ssh.Dial("tcp", addr, clientConfig)
	if err != nil {
		return nil, storage.WrapError(cfg.Name, "connect", storage.ErrConnFailed)
	}

	sftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		sshClient.Close()
		return nil, storage.WrapError(cfg.Name, "sftp init", err)
	}

	remotePath := path.Join(sftpCfg.RemotePath, cfg.BaseDir)
	if err := sftpClient.MkdirAll(remotePath); err != nil {
		sftpClient.Close()
		sshClient.Close()
		return nil, storage.WrapError(cfg.Name, "mkdir", err)
	}

	return &Backend{
		name:       cfg.Name,
		sshClient:  sshClient,
		sftpClient: sftpClient,
		remotePath: remotePath,
	}, nil
}

func (b *Backend) Name() string { return b.name }
func (b *Backend) Type() string { return "sftp" }

// Write stores content at a remote path via SFTP
func (b *Backend) Write(ctx context.Context, objectPath string, content []byte, opts storage.WriteOptions) error {
	return storage.WithRetry(ctx, storage.DefaultRetryConfig(), func() error {
		remotePath := path.Join(b.remotePath, objectPath)

		if err := b.sftpClient.MkdirAll(path.Dir(remotePath)); err != nil {
			return storage.WrapError(b.name, "mkdir", err)
		}

		remoteFile, err := b.sftpClient.Create(remotePath)
		if err != nil {
			return storage.WrapError(b.name, "create", err)
		}
		defer remoteFile.Close()

		// Dotenv files hold secrets, keep them owner-only
		if err := remoteFile.Chmod(0o600); err != nil {
			return storage.WrapError(b.name, "chmod", err)
		}

		if _, err := remoteFile.Write(content); err != nil {
			return storage.WrapError(b.name, "upload", err)
		}

		return nil
	})
}

// Read returns remote file content via SFTP
func (b *Backend) Read(ctx context.Context, objectPath string) ([]byte, error) {
	remotePath := path.Join(b.remotePath, objectPath)

	remoteFile, err := b.sftpClient.Open(remotePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, storage.WrapError(b.name, "download", storage.ErrNotFound)
		}
		return nil, storage.WrapError(b.name, "download", err)
	}
	defer remoteFile.Close()

	content, err := io.ReadAll(remoteFile)
	if err != nil {
		return nil, storage.WrapError(b.name, "download", err)
	}
	return content, nil
}

// Delete removes a remote file via SFTP
func (b *Backend) Delete(ctx context.Context, objectPath string) error {
	remotePath := path.Join(b.remotePath, objectPath)

	if err := b.sftpClient.Remove(remotePath); err != nil {
		return storage.WrapError(b.name, "delete", err)
	}

	return nil
}

// List returns remote files matching pattern
func (b *Backend) List(ctx context.Context, pattern string) ([]storage.FileInfo, error) {
	matches, err := b.sftpClient.Glob(path.Join(b.remotePath, pattern))
	if err != nil {
		return nil, storage.WrapError(b.name, "list", err)
	}

	var files []storage.FileInfo
	for _, match := range matches {
		info, err := b.sftpClient.Stat(match)
		if err != nil || info.IsDir() {
			continue
		}

		relPath := strings.TrimPrefix(strings.TrimPrefix(match, b.remotePath), "/")
		files = append(files, storage.FileInfo{
			Path:    relPath,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].ModTime.After(files[j].ModTime)
	})

	return files, nil
}

// Stat returns remote file metadata
func (b *Backend) Stat(ctx context.Context, objectPath string) (*storage.FileInfo, error) {
	remotePath := path.Join(b.remotePath, objectPath)

	info, err := b.sftpClient.Stat(remotePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, storage.WrapError(b.name, "stat", storage.ErrNotFound)
		}
		return nil, storage.WrapError(b.name, "stat", err)
	}

	return &storage.FileInfo{
		Path:    objectPath,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// Exists checks if remote file exists
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
	if b.sftpClient != nil {
		b.sftpClient.Close()
	}
	if b.sshClient != nil {
		b.sshClient.Close()
	}
	return nil
}

func parseConfig(options map[string]interface{}) (*Config, error) {
	cfg := &Config{Port: 22}

	if v, ok := options["host"].(string); ok {
		cfg.Host = v
	} else {
		return nil, fmt.Errorf("missing required option: host")
	}
	if v, ok := options["user"].(string); ok {
		cfg.User = v
	} else {
		return nil, fmt.Errorf("missing required option: user")
	}
	if v, ok := options["remote_path"].(string); ok {
		cfg.RemotePath = v
	} else {
		return nil, fmt.Errorf("missing required option: remote_path")
	}
	if v, ok := options["password"].(string); ok {
		cfg.Password = v
	}
	if v, ok := options["key_path"].(string); ok {
		cfg.KeyPath = v
	}
	if v, ok := options["key_passphrase"].(string); ok {
		cfg.KeyPassphrase = v
	}
	if v, ok := options["port"].(float64); ok {
		cfg.Port = int(v)
	}

	return cfg, nil
}
