package manifest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)

// tempRoot returns a fresh directory with symlinks in its path resolved
func tempRoot(t *testing.T) string {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	return root
}

func writeFile(t *testing.T, root, name string, mtime time.Time) string {
	t.Helper()
	path := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(name), 0644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
	return path
}

func TestBuild(t *testing.T) {
	root := tempRoot(t)
	a := writeFile(t, root, "a.txt", base)
	b := writeFile(t, root, "nested/deeper/b.pdf", base.Add(time.Hour))
	require.NoError(t, os.Mkdir(filepath.Join(root, "empty"), 0755))

	m, err := Build(root)
	require.NoError(t, err)

	require.Len(t, m, 2, "directories are not recorded")
	assert.True(t, m[a].Equal(base))
	assert.True(t, m[b].Equal(base.Add(time.Hour)))
	assert.Equal(t, []string{a, b}, m.Paths())
}

func TestBuildErrors(t *testing.T) {
	root := tempRoot(t)
	file := writeFile(t, root, "a.txt", base)

	_, err := Build(filepath.Join(root, "missing"))
	assert.Error(t, err)

	_, err = Build(file)
	assert.Error(t, err)
}

func TestBuildSymlinkedRoot(t *testing.T) {
	target := tempRoot(t)
	a := writeFile(t, target, "a.txt", base)
	b := writeFile(t, target, "docs/b.md", base)

	link := filepath.Join(tempRoot(t), "notes")
	require.NoError(t, os.Symlink(target, link))

	m, err := Build(link)
	require.NoError(t, err)
	assert.Equal(t, []string{a, b}, m.Paths(), "keys are under the resolved root")

	direct, err := Build(target)
	require.NoError(t, err)
	assert.Empty(t, Diff(m, direct))

	resolved, err := ResolveRoot(link)
	require.NoError(t, err)
	assert.Equal(t, target, resolved)
}

func TestDiffUnchangedDirectoryIsEmpty(t *testing.T) {
	root := tempRoot(t)
	writeFile(t, root, "a.txt", base)
	writeFile(t, root, "b/c.md", base)

	prev, err := Build(root)
	require.NoError(t, err)
	cur, err := Build(root)
	require.NoError(t, err)

	assert.Empty(t, Diff(cur, prev))
}

func TestDiff(t *testing.T) {
	previous := Manifest{
		"/src/same.txt":    base,
		"/src/newer.txt":   base,
		"/src/older.txt":   base,
		"/src/deleted.txt": base,
		"/src/nanos.txt":   base,
	}
	current := Manifest{
		"/src/same.txt":  base,
		"/src/newer.txt": base.Add(time.Second),
		"/src/older.txt": base.Add(-time.Hour),
		"/src/added.txt": base.Add(-24 * time.Hour),
		"/src/nanos.txt": base.Add(time.Nanosecond),
	}

	tests := []struct {
		name     string
		current  Manifest
		previous Manifest
		want     []string
	}{
		{
			name:     "no previous manifest rebuilds everything",
			current:  current,
			previous: nil,
			want:     []string{"/src/added.txt", "/src/nanos.txt", "/src/newer.txt", "/src/older.txt", "/src/same.txt"},
		},
		{
			name:     "added and strictly newer files only",
			current:  current,
			previous: previous,
			want:     []string{"/src/added.txt", "/src/nanos.txt", "/src/newer.txt"},
		},
		{
			name:     "identical manifests",
			current:  previous,
			previous: previous,
			want:     []string{},
		},
		{
			name:     "empty current",
			current:  Manifest{},
			previous: previous,
			want:     []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Diff(tt.current, tt.previous))
		})
	}
}

func TestDeleted(t *testing.T) {
	previous := Manifest{"/src/a": base, "/src/b": base, "/src/c": base}
	current := Manifest{"/src/b": base, "/src/d": base}

	assert.Equal(t, []string{"/src/a", "/src/c"}, Deleted(current, previous))
	assert.Empty(t, Diff(Manifest{}, previous), "deletions never show up as changes")
}

func TestDiffTracksFilesystemChanges(t *testing.T) {
	root := tempRoot(t)
	writeFile(t, root, "a.txt", base)
	b := writeFile(t, root, "b.txt", base)

	prev, err := Build(root)
	require.NoError(t, err)

	added := writeFile(t, root, "c.txt", base)
	require.NoError(t, os.Chtimes(b, base.Add(time.Minute), base.Add(time.Minute)))

	cur, err := Build(root)
	require.NoError(t, err)
	assert.Equal(t, []string{b, added}, Diff(cur, prev))

	// Moving a timestamp backwards is not a change
	require.NoError(t, os.Chtimes(b, base.Add(-time.Minute), base.Add(-time.Minute)))
	back, err := Build(root)
	require.NoError(t, err)
	assert.Empty(t, Diff(back, cur))
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "files_details.json")
	m := Manifest{
		"/src/a.txt": base.Add(123456789 * time.Nanosecond),
		"/src/b.txt": base.In(time.FixedZone("CET", 3600)),
	}

	require.NoError(t, Save(path, m))
	loaded, err := Load(path)
	require.NoError(t, err)

	require.Len(t, loaded, 2)
	for p, ts := range m {
		assert.True(t, loaded[p].Equal(ts), "timestamp for %s lost precision", p)
	}
	assert.Empty(t, Diff(loaded, m))
}
