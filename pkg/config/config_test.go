package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `{
  "env_file": ".env.production",
  "max_concurrent_pushes": 2,
  "snapshot_keep": 5,
  "log_level": "debug",
  "log_format": "console",
  "profiles": [
    {
      "name": "s3_prod",
      "type": "presigned",
      "base_dir": "myapp",
      "options": {
        "bucket_host": "mybucket.s3.us-east-1.amazonaws.com",
        "bucket_region": "us-east-1"
      }
    },
    {
      "name": "b2_offsite",
      "type": "backblaze",
      "enabled": false,
      "options": {
        "account_id": "abc",
        "application_key": "def",
        "bucket_name": "mybucket"
      }
    }
  ]
}`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, ".env.production", cfg.GetEnvFile())
	assert.Equal(t, 2, cfg.GetMaxConcurrentPushes())
	assert.Equal(t, 5, cfg.GetSnapshotKeep())
	assert.Equal(t, "debug", cfg.GetLogLevel())
	assert.Equal(t, "console", cfg.GetLogFormat())
	require.Len(t, cfg.Profiles, 2)
}

func TestParseConfigMissingFile(t *testing.T) {
	_, err := ParseConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestDefaults(t *testing.T) {
	cfg, err := ParseConfig(writeConfig(t, `{"profiles": [{"name": "local", "type": "local"}]}`))
	require.NoError(t, err)

	assert.Equal(t, ".env", cfg.GetEnvFile())
	assert.Equal(t, 4, cfg.GetMaxConcurrentPushes())
	assert.Equal(t, 10, cfg.GetSnapshotKeep())
	assert.Equal(t, "info", cfg.GetLogLevel())
	assert.Equal(t, "json", cfg.GetLogFormat())
}

func TestProfileEnabledDefaultsToTrue(t *testing.T) {
	cfg, err := ParseConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.True(t, cfg.Profiles[0].IsEnabled())
	assert.False(t, cfg.Profiles[1].IsEnabled())

	enabled := cfg.EnabledProfiles()
	require.Len(t, enabled, 1)
	assert.Equal(t, "s3_prod", enabled[0].Name)
	assert.Equal(t, "presigned", enabled[0].Type)
	assert.Equal(t, "myapp", enabled[0].BaseDir)
}

func TestFindProfile(t *testing.T) {
	cfg, err := ParseConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	profile := cfg.FindProfile("b2_offsite")
	require.NotNil(t, profile)
	assert.Equal(t, "backblaze", profile.Type)

	assert.Nil(t, cfg.FindProfile("unknown"))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(writeConfig(t, sampleConfig)))
}

func TestValidateRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no profiles", `{"profiles": []}`},
		{"missing profile type", `{"profiles": [{"name": "x"}]}`},
		{"unknown backend type", `{"profiles": [{"name": "x", "type": "ftp"}]}`},
		{"bad log level", `{"log_level": "verbose", "profiles": [{"name": "x", "type": "local"}]}`},
		{"bad profile name", `{"profiles": [{"name": "bad name!", "type": "local"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}
