package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TempCorpus is a throwaway source directory with control over file mtimes
type TempCorpus struct {
	Path string
	T    *testing.T

	clock time.Time
}

// NewTempCorpus creates an empty corpus directory removed at test cleanup.
// Path has symlinks resolved so it matches recorded provenance.
func NewTempCorpus(t *testing.T) *TempCorpus {
	t.Helper()
	path, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatalf("failed to resolve temp dir: %v", err)
	}
	return &TempCorpus{
		Path:  path,
		T:     t,
		clock: time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC),
	}
}

// CreateFile writes a file and gives it a modification time later than any
// file written before, so change detection never depends on filesystem
// timestamp granularity
func (c *TempCorpus) CreateFile(name, content string) string {
	c.T.Helper()
	path := filepath.Join(c.Path, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		c.T.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		c.T.Fatalf("failed to create file: %v", err)
	}
	c.Touch(name)
	return path
}

// Touch advances the modification time of an existing file
func (c *TempCorpus) Touch(name string) {
	c.T.Helper()
	c.clock = c.clock.Add(time.Minute)
	c.SetModTime(name, c.clock)
}

// SetModTime sets the modification time of an existing file
func (c *TempCorpus) SetModTime(name string, mtime time.Time) {
	c.T.Helper()
	if err := os.Chtimes(filepath.Join(c.Path, name), mtime, mtime); err != nil {
		c.T.Fatalf("failed to set mtime: %v", err)
	}
}

// Remove deletes a file from the corpus
func (c *TempCorpus) Remove(name string) {
	c.T.Helper()
	if err := os.Remove(filepath.Join(c.Path, name)); err != nil {
		c.T.Fatalf("failed to remove file: %v", err)
	}
}

// Link creates a symlink to the corpus in a separate temp dir and returns it
func (c *TempCorpus) Link() string {
	c.T.Helper()
	link := filepath.Join(c.T.TempDir(), "corpus-link")
	if err := os.Symlink(c.Path, link); err != nil {
		c.T.Fatalf("failed to link corpus: %v", err)
	}
	return link
}

// Clock returns a clock starting at start that advances one minute per call
func Clock(start time.Time) func() time.Time {
	now := start.Add(-time.Minute)
	return func() time.Time {
		now = now.Add(time.Minute)
		return now
	}
}
