package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotNameRoundTrip(t *testing.T) {
	timestamp := time.Date(2026, 8, 31, 10, 30, 0, 0, time.UTC)

	name := SnapshotName("myapp/prod", timestamp)
	assert.Equal(t, "myapp/prod--2026-08-31T10-30-00.env", name)

	parsed, err := ParseSnapshotTime(name)
	require.NoError(t, err)
	assert.Equal(t, timestamp, parsed)
}

func TestSnapshotNameWithSeparatorInName(t *testing.T) {
	timestamp := time.Date(2026, 8, 31, 10, 30, 0, 0, time.UTC)

	// The last "--" wins, so names containing the separator still parse
	name := SnapshotName("my--app", timestamp)
	parsed, err := ParseSnapshotTime(name)
	require.NoError(t, err)
	assert.Equal(t, timestamp, parsed)
}

func TestSnapshotPattern(t *testing.T) {
	assert.Equal(t, "myapp/prod--*.env", SnapshotPattern("myapp/prod"))
}

func TestParseSnapshotTimeInvalid(t *testing.T) {
	tests := []struct {
		name       string
		objectPath string
	}{
		{"no separator", "myapp.env"},
		{"garbage timestamp", "myapp--not-a-time.env"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSnapshotTime(tt.objectPath)
			assert.Error(t, err)
		})
	}
}
