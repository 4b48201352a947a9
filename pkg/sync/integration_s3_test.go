//go:build integration
// +build integration

package sync

import (
	"context"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/localstack"

	"github.com/envkeeper/envkeeper/pkg/storage"
	_ "github.com/envkeeper/envkeeper/pkg/storage/presigned"
	_ "github.com/envkeeper/envkeeper/pkg/storage/s3"
)

const (
	integrationBucket = "test-environments"
	integrationRegion = "us-east-1"
)

func TestSyncThroughLocalStack(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	endpoint := setupLocalStack(ctx, t)
	createBucket(ctx, t, endpoint)

	factory := storage.NewFactory()

	// Inventory-capable backend using the provider SDK
	s3Backend, err := factory.Create(ctx, storage.Config{
		Name:    "integration_s3",
		Type:    "s3",
		Enabled: true,
		Options: map[string]interface{}{
			"endpoint":          endpoint,
			"region":            integrationRegion,
			"bucket":            integrationBucket,
			"access_key_id":     "test",
			"secret_access_key": "test",
			"force_path_style":  true,
		},
	})
	require.NoError(t, err)
	defer s3Backend.Close()

	// SDK-free backend built on locally computed presigned requests,
	// retargeted at the LocalStack endpoint
	presignedBackend, err := factory.Create(ctx, storage.Config{
		Name:    "integration_presigned",
		Type:    "presigned",
		Enabled: true,
		Options: map[string]interface{}{
			"access_key":    "test",
			"secret_key":    "test",
			"session_token": "",
			"bucket_host":   fmt.Sprintf("%s.s3.%s.amazonaws.com", integrationBucket, integrationRegion),
			"bucket_region": integrationRegion,
			"endpoint":      endpoint,
		},
	})
	require.NoError(t, err)
	defer presignedBackend.Close()

	content := []byte("APP_DEBUG=true\nAPP_SECRET=s3cr3t\n")
	syncer := New(zerolog.Nop(), 2)

	t.Run("push_to_both_backends", func(t *testing.T) {
		results, err := syncer.Push(ctx, []storage.Backend{s3Backend, presignedBackend},
			"myapp/.env", content, PushOptions{Snapshot: true})
		require.NoError(t, err)
		require.Len(t, results, 2)
		for _, result := range results {
			assert.True(t, result.Success, "push failed on %s: %v", result.BackendName, result.Error)
		}
	})

	t.Run("read_back_via_presigned_get", func(t *testing.T) {
		got, err := presignedBackend.Read(ctx, "myapp/.env")
		require.NoError(t, err)
		assert.Equal(t, content, got)
	})

	t.Run("pull_parses_environment", func(t *testing.T) {
		t.Setenv("APP_DEBUG", "")
		t.Setenv("APP_SECRET", "")

		d, err := syncer.Pull(ctx, presignedBackend, "myapp/.env")
		require.NoError(t, err)

		value, ok := d.Get("APP_SECRET")
		require.True(t, ok)
		assert.Equal(t, "s3cr3t", value)
	})

	t.Run("stat_and_exists_via_presigned_head", func(t *testing.T) {
		info, err := presignedBackend.Stat(ctx, "myapp/.env")
		require.NoError(t, err)
		assert.Equal(t, int64(len(content)), info.Size)

		exists, err := presignedBackend.Exists(ctx, "myapp/.env.missing")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("snapshot_listed_and_pruned_via_s3", func(t *testing.T) {
		files, err := s3Backend.List(ctx, SnapshotPattern("myapp/.env"))
		require.NoError(t, err)
		require.Len(t, files, 1)

		deleted, err := syncer.Prune(ctx, s3Backend, "myapp/.env", 0)
		require.NoError(t, err)
		assert.Len(t, deleted, 1)

		files, err = s3Backend.List(ctx, SnapshotPattern("myapp/.env"))
		require.NoError(t, err)
		assert.Empty(t, files)
	})
}

// setupLocalStack starts a LocalStack container with S3 and returns its
// endpoint
func setupLocalStack(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := localstack.RunContainer(ctx,
		testcontainers.WithImage("localstack/localstack:3.0"),
		testcontainers.WithEnv(map[string]string{
			"SERVICES": "s3",
		}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { container.Terminate(ctx) })

	mappedPort, err := container.MappedPort(ctx, "4566/tcp")
	require.NoError(t, err)
	host, err := container.Host(ctx)
	require.NoError(t, err)

	return fmt.Sprintf("http://%s:%s", host, mappedPort.Port())
}

func createBucket(ctx context.Context, t *testing.T, endpoint string) {
	t.Helper()

	cfg, err := awsConfig.LoadDefaultConfig(ctx,
		awsConfig.WithRegion(integrationRegion),
		awsConfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider("test", "test", ""),
		),
	)
	require.NoError(t, err)

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	_, err = client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(integrationBucket),
	})
	require.NoError(t, err)
}
