package dotenv

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// claimEnv registers the keys with the test framework so mutations made
// through DotEnv are rolled back when the test ends.
func claimEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestSetNormalizes(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		value     string
		wantKey   string
		wantValue string
	}{
		{"plain", "APP_DEBUG", "true", "APP_DEBUG", "true"},
		{"lowercase key", "app_debug", "true", "APP_DEBUG", "true"},
		{"padded key", "  APP_DEBUG ", "true", "APP_DEBUG", "true"},
		{"double quoted value", "APP_SECRET", `"s3cr3t"`, "APP_SECRET", "s3cr3t"},
		{"single quoted value", "APP_SECRET", "'s3cr3t'", "APP_SECRET", "s3cr3t"},
		{"padded value", "APP_SECRET", "  s3cr3t  ", "APP_SECRET", "s3cr3t"},
		{"empty value", "APP_SECRET", "", "APP_SECRET", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claimEnv(t, tt.wantKey)

			d := New()
			require.NoError(t, d.Set(tt.key, tt.value))

			got, ok := d.Get(tt.wantKey)
			require.True(t, ok)
			assert.Equal(t, tt.wantValue, got)
			assert.Equal(t, tt.wantValue, os.Getenv(tt.wantKey))
		})
	}
}

func TestNewFromAssignments(t *testing.T) {
	claimEnv(t, "APP_DEBUG", "APP_SECRET")

	d := New("app_debug=true", "APP_SECRET='s3cr3t'", "not an assignment")
	assert.Equal(t, 2, d.Len())
	assert.Equal(t, []string{"APP_DEBUG", "APP_SECRET"}, d.Keys())
	assert.Equal(t, map[string]string{"APP_DEBUG": "true", "APP_SECRET": "s3cr3t"}, d.Values())
}

func TestGetUnsetKey(t *testing.T) {
	d := New()
	_, ok := d.Get("MISSING")
	assert.False(t, ok)
}

func TestSetOverwriteKeepsPosition(t *testing.T) {
	claimEnv(t, "FIRST", "SECOND")

	d := New()
	require.NoError(t, d.Set("FIRST", "1"))
	require.NoError(t, d.Set("SECOND", "2"))
	require.NoError(t, d.Set("FIRST", "one"))

	assert.Equal(t, []string{"FIRST", "SECOND"}, d.Keys())
	got, _ := d.Get("FIRST")
	assert.Equal(t, "one", got)
	assert.Equal(t, "one", os.Getenv("FIRST"))
}

func TestDelete(t *testing.T) {
	claimEnv(t, "APP_DEBUG")

	d := New("APP_DEBUG=true")
	require.NoError(t, d.Delete("app_debug"))

	assert.Equal(t, 0, d.Len())
	_, present := os.LookupEnv("APP_DEBUG")
	assert.False(t, present)

	assert.ErrorIs(t, d.Delete("APP_DEBUG"), ErrVariableNotSet)
}

func TestMerge(t *testing.T) {
	claimEnv(t, "APP_DEBUG", "APP_SECRET")

	base := New("APP_DEBUG=true")
	overlay := New("APP_DEBUG=false", "APP_SECRET=s3cr3t")
	require.NoError(t, base.Merge(overlay))

	assert.Equal(t, map[string]string{"APP_DEBUG": "false", "APP_SECRET": "s3cr3t"}, base.Values())
	assert.Equal(t, "false", os.Getenv("APP_DEBUG"))
}

func TestParse(t *testing.T) {
	claimEnv(t, "APP_DEBUG", "APP_SECRET", "EMPTY")

	content := "# comment\n" +
		"APP_DEBUG=true\n" +
		"APP_SECRET=\"s3cr3t\"\n" +
		"EMPTY=\n"
	d, err := Parse(content)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"APP_DEBUG":  "true",
		"APP_SECRET": "s3cr3t",
		"EMPTY":      "",
	}, d.Values())
	assert.Equal(t, "true", os.Getenv("APP_DEBUG"))
	assert.Equal(t, "s3cr3t", os.Getenv("APP_SECRET"))
}

func TestString(t *testing.T) {
	claimEnv(t, "FIRST", "SECOND")

	d := New("FIRST=1", "SECOND=two words")
	assert.Equal(t, "FIRST=1\nSECOND=two words\n", d.String())
}
