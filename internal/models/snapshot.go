package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// SnapshotLayout is the time layout used for snapshot directory names.
// Format: HH-MM_DD-MM-YYYY, always in UTC
const SnapshotLayout = "15-04_02-01-2006"

// VersionDirPrefix prefixes every version directory under the data root.
const VersionDirPrefix = "v_"

// Snapshot identifies one immutable index build of a version
type Snapshot struct {
	Version   string
	Name      string
	Path      string
	Timestamp time.Time
}

// SnapshotName generates the directory name for a snapshot created at timestamp
func SnapshotName(timestamp time.Time) string {
	return timestamp.UTC().Format(SnapshotLayout)
}

// ParseSnapshotName parses a snapshot directory name back into its UTC timestamp
func ParseSnapshotName(name string) (time.Time, error) {
	ts, err := time.Parse(SnapshotLayout, name)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid snapshot name %q: %w", name, err)
	}
	return ts, nil
}

// ErrInvalidVersionLabel is returned for labels that cannot name a single
// directory under the data root
var ErrInvalidVersionLabel = errors.New("invalid version label")

// ValidateVersionLabel checks that label maps to exactly one version
// directory directly below the data root
func ValidateVersionLabel(label string) error {
	if label == "" || label == "." || label == ".." || strings.ContainsAny(label, "/\\\x00") {
		return fmt.Errorf("%w: %q", ErrInvalidVersionLabel, label)
	}
	return nil
}

// VersionDirName returns the directory name for a version label
func VersionDirName(version string) string {
	return VersionDirPrefix + version
}

// ParseVersionDirName extracts the version label from a directory name.
// ok is false for directories that are not version directories.
func ParseVersionDirName(name string) (version string, ok bool) {
	if len(name) <= len(VersionDirPrefix) || name[:len(VersionDirPrefix)] != VersionDirPrefix {
		return "", false
	}
	return name[len(VersionDirPrefix):], true
}
