package sync

import (
	"fmt"
	"path"
	"strings"
	"time"
)

const (
	// Timestamp layout used in snapshot object names. Colons are avoided
	// so names stay valid on filesystem-backed targets.
	snapshotTimeLayout = "2006-01-02T15-04-05"

	// Separator between the environment name and the timestamp. "--" is
	// unlikely to appear in an environment name.
	snapshotSeparator = "--"

	snapshotExtension = ".env"
)

// SnapshotName builds the object name for a timestamped snapshot of an
// environment, like "myapp/prod--2026-08-31T10-30-00.env".
func SnapshotName(name string, timestamp time.Time) string {
	return name + snapshotSeparator + timestamp.UTC().Format(snapshotTimeLayout) + snapshotExtension
}

// SnapshotPattern returns the glob pattern matching all snapshots of an
// environment.
func SnapshotPattern(name string) string {
	return name + snapshotSeparator + "*" + snapshotExtension
}

// ParseSnapshotTime extracts the timestamp from a snapshot object name.
func ParseSnapshotTime(objectPath string) (time.Time, error) {
	base := strings.TrimSuffix(path.Base(objectPath), snapshotExtension)

	idx := strings.LastIndex(base, snapshotSeparator)
	if idx < 0 {
		return time.Time{}, fmt.Errorf("no timestamp in snapshot name %s", objectPath)
	}

	timestamp, err := time.Parse(snapshotTimeLayout, base[idx+len(snapshotSeparator):])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp in snapshot name %s: %w", objectPath, err)
	}
	return timestamp, nil
}
