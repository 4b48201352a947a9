package dotenv

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAndDumpRoundTrip(t *testing.T) {
	claimEnv(t, "APP_DEBUG", "APP_SECRET")

	dir := t.TempDir()
	source := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(source, []byte("APP_DEBUG=true\nAPP_SECRET=\"s3cr3t\"\n"), 0o600))

	d, err := Load(source)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"APP_DEBUG": "true", "APP_SECRET": "s3cr3t"}, d.Values())

	copied := filepath.Join(dir, ".env.copy")
	require.NoError(t, Dump(d, copied))

	info, err := os.Stat(copied)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	reloaded, err := Load(copied)
	require.NoError(t, err)
	assert.Equal(t, d.Values(), reloaded.Values())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), ".env"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFindWalksUp(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".env"), []byte("APP_DEBUG=true\n"), 0o600))

	nested := filepath.Join(root, "services", "api")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	found, err := Find(".env", nested)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, ".env"), found)
}

func TestFindPrefersNearestFile(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "services", "api")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".env"), []byte("SCOPE=root\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(nested, ".env"), []byte("SCOPE=api\n"), 0o600))

	found, err := Find(".env", nested)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(nested, ".env"), found)
}

func TestFindNotFound(t *testing.T) {
	_, err := Find(".env.does-not-exist", t.TempDir())
	assert.ErrorIs(t, err, ErrFileNotFound)
}
