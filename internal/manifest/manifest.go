// Package manifest records the modification time of every file in a corpus
// and diffs two such records to find what needs re-indexing.
package manifest

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/pders01/docchat/internal/snapshot"
)

// Manifest maps a file path to its modification time observed at build time
type Manifest map[string]time.Time

// ResolveRoot returns the absolute path of the corpus directory root with
// symlinks resolved, the form recorded as provenance and used as the prefix
// of every manifest key
func ResolveRoot(root string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("failed to resolve source path: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return "", fmt.Errorf("failed to stat source path: %w", err)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf("failed to stat source path: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("source path is not a directory: %s", absRoot)
	}
	return resolved, nil
}

// Build walks root recursively and records the modification time of every
// regular file. Paths are absolute and below the symlink-resolved root, so
// manifests built through different paths to the same corpus compare equal.
func Build(root string) (Manifest, error) {
	absRoot, err := ResolveRoot(root)
	if err != nil {
		return nil, err
	}

	m := make(Manifest)
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		m[path] = fi.ModTime()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk source path: %w", err)
	}

	return m, nil
}

// Diff returns the paths of current that are new or strictly newer than in
// previous, sorted. A nil previous means everything changed.
//
// Paths present in previous but missing from current are not reported: the
// index is append-only and has no way to forget content.
func Diff(current, previous Manifest) []string {
	changed := make([]string, 0, len(current))
	for path, modTime := range current {
		if previous == nil {
			changed = append(changed, path)
			continue
		}
		prevTime, ok := previous[path]
		if !ok || modTime.After(prevTime) {
			changed = append(changed, path)
		}
	}
	sort.Strings(changed)
	return changed
}

// Deleted returns the paths of previous that no longer exist in current, sorted
func Deleted(current, previous Manifest) []string {
	var deleted []string
	for path := range previous {
		if _, ok := current[path]; !ok {
			deleted = append(deleted, path)
		}
	}
	sort.Strings(deleted)
	return deleted
}

// Paths returns all paths in the manifest, sorted
func (m Manifest) Paths() []string {
	paths := make([]string, 0, len(m))
	for path := range m {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// Save writes the manifest as files_details.json
func Save(path string, m Manifest) error {
	if m == nil {
		m = Manifest{}
	}
	return snapshot.WriteJSON(path, m)
}

// Load reads a manifest written by Save
func Load(path string) (Manifest, error) {
	m := make(Manifest)
	if err := snapshot.ReadJSON(path, snapshot.ManifestSchema, &m); err != nil {
		return nil, err
	}
	return m, nil
}
