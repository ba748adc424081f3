// Package snapshot maps (version, timestamp) pairs to snapshot directories on
// disk and owns their lifecycle: create, discover, list and roll back.
package snapshot

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/pders01/docchat/internal/models"
)

// ErrSnapshotExists is returned when a snapshot directory with the same
// timestamp name is already present. Snapshots are never overwritten.
var ErrSnapshotExists = errors.New("snapshot already exists")

// Store creates and discovers timestamp-named snapshot directories
type Store struct {
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Store
type Option func(*Store)

// WithClock overrides the clock used to name new snapshots
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithLogger sets the logger used for skipped entries
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore creates a snapshot store
func NewStore(opts ...Option) *Store {
	s := &Store{
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init creates a fresh snapshot directory under versionRoot named by the
// current time. It fails with ErrSnapshotExists on a name collision.
func (s *Store) Init(versionRoot string) (models.Snapshot, error) {
	timestamp := s.now().UTC().Truncate(time.Minute)
	name := models.SnapshotName(timestamp)
	path := filepath.Join(versionRoot, name)

	if err := os.MkdirAll(versionRoot, 0755); err != nil {
		return models.Snapshot{}, fmt.Errorf("failed to create version directory: %w", err)
	}

	// Mkdir (not MkdirAll) so an existing directory is reported, not reused
	if err := os.Mkdir(path, 0755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return models.Snapshot{}, fmt.Errorf("%w: %s", ErrSnapshotExists, path)
		}
		return models.Snapshot{}, fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	s.logger.Debug("snapshot created", "path", path)

	return models.Snapshot{
		Version:   versionFromRoot(versionRoot),
		Name:      name,
		Path:      path,
		Timestamp: timestamp,
	}, nil
}

// Latest returns the snapshot with the greatest timestamp under versionRoot.
// ok is false when the version root does not exist or holds no snapshots.
func (s *Store) Latest(versionRoot string) (snap models.Snapshot, ok bool, err error) {
	snapshots, err := s.List(versionRoot)
	if err != nil {
		return models.Snapshot{}, false, err
	}
	if len(snapshots) == 0 {
		return models.Snapshot{}, false, nil
	}
	return snapshots[len(snapshots)-1], true, nil
}

// List returns every snapshot under versionRoot, oldest first.
// A missing version root yields no snapshots.
func (s *Store) List(versionRoot string) ([]models.Snapshot, error) {
	entries, err := os.ReadDir(versionRoot)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read version directory: %w", err)
	}

	version := versionFromRoot(versionRoot)

	var snapshots []models.Snapshot
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		ts, err := models.ParseSnapshotName(entry.Name())
		if err != nil {
			s.logger.Warn("skipping unrecognized directory", "path", filepath.Join(versionRoot, entry.Name()))
			continue
		}
		snapshots = append(snapshots, models.Snapshot{
			Version:   version,
			Name:      entry.Name(),
			Path:      filepath.Join(versionRoot, entry.Name()),
			Timestamp: ts,
		})
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].Timestamp.Before(snapshots[j].Timestamp)
	})

	return snapshots, nil
}

// Delete recursively removes a snapshot directory. It is only used to roll
// back a snapshot that was never exposed as active.
func (s *Store) Delete(snapshotPath string) error {
	if _, err := models.ParseSnapshotName(filepath.Base(snapshotPath)); err != nil {
		return fmt.Errorf("refusing to delete non-snapshot directory %s: %w", snapshotPath, err)
	}
	if err := os.RemoveAll(snapshotPath); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	s.logger.Debug("snapshot deleted", "path", snapshotPath)
	return nil
}

// ListVersions returns the version labels found under the data root, sorted.
// A missing data root yields no versions.
func (s *Store) ListVersions(dataRoot string) ([]string, error) {
	entries, err := os.ReadDir(dataRoot)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read data directory: %w", err)
	}

	var versions []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if version, ok := models.ParseVersionDirName(entry.Name()); ok {
			versions = append(versions, version)
		}
	}
	sort.Strings(versions)
	return versions, nil
}

func versionFromRoot(versionRoot string) string {
	version, _ := models.ParseVersionDirName(filepath.Base(versionRoot))
	return version
}
