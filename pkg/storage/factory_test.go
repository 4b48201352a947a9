package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBackend struct {
	name   string
	closed bool
}

func (s *stubBackend) Name() string { return s.name }
func (s *stubBackend) Type() string { return "stub" }
func (s *stubBackend) Write(ctx context.Context, path string, content []byte, opts WriteOptions) error {
	return nil
}
func (s *stubBackend) Read(ctx context.Context, path string) ([]byte, error) { return nil, ErrNotFound }
func (s *stubBackend) Delete(ctx context.Context, path string) error         { return nil }
func (s *stubBackend) List(ctx context.Context, pattern string) ([]FileInfo, error) {
	return nil, nil
}
func (s *stubBackend) Stat(ctx context.Context, path string) (*FileInfo, error) {
	return nil, ErrNotFound
}
func (s *stubBackend) Exists(ctx context.Context, path string) (bool, error) { return false, nil }
func (s *stubBackend) Close() error {
	s.closed = true
	return nil
}

func TestFactoryCreate(t *testing.T) {
	RegisterBackend("stub-create", func(ctx context.Context, cfg Config) (Backend, error) {
		return &stubBackend{name: cfg.Name}, nil
	})

	factory := NewFactory()
	backend, err := factory.Create(context.Background(), Config{
		Name:    "primary",
		Type:    "stub-create",
		Enabled: true,
	})

	require.NoError(t, err)
	assert.Equal(t, "primary", backend.Name())
}

func TestFactoryCreateDisabled(t *testing.T) {
	factory := NewFactory()
	_, err := factory.Create(context.Background(), Config{
		Name:    "off",
		Type:    "stub-create",
		Enabled: false,
	})

	assert.ErrorContains(t, err, "disabled")
}

func TestFactoryCreateUnknownType(t *testing.T) {
	factory := NewFactory()
	_, err := factory.Create(context.Background(), Config{
		Name:    "mystery",
		Type:    "does-not-exist",
		Enabled: true,
	})

	assert.ErrorContains(t, err, "unknown backend type")
}

func TestFactoryCreateAllSkipsDisabled(t *testing.T) {
	RegisterBackend("stub-all", func(ctx context.Context, cfg Config) (Backend, error) {
		return &stubBackend{name: cfg.Name}, nil
	})

	factory := NewFactory()
	backends, err := factory.CreateAll(context.Background(), []Config{
		{Name: "one", Type: "stub-all", Enabled: true},
		{Name: "two", Type: "stub-all", Enabled: false},
		{Name: "three", Type: "stub-all", Enabled: true},
	})

	require.NoError(t, err)
	require.Len(t, backends, 2)
	assert.Equal(t, "one", backends[0].Name())
	assert.Equal(t, "three", backends[1].Name())
}

func TestFactoryCreateAllClosesOnFailure(t *testing.T) {
	created := &stubBackend{name: "first"}
	RegisterBackend("stub-ok", func(ctx context.Context, cfg Config) (Backend, error) {
		return created, nil
	})
	RegisterBackend("stub-fail", func(ctx context.Context, cfg Config) (Backend, error) {
		return nil, errors.New("connection refused")
	})

	factory := NewFactory()
	_, err := factory.CreateAll(context.Background(), []Config{
		{Name: "first", Type: "stub-ok", Enabled: true},
		{Name: "second", Type: "stub-fail", Enabled: true},
	})

	assert.ErrorContains(t, err, "failed to create backend second")
	assert.True(t, created.closed)
}
