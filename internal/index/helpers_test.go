package index

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// letterEmbedder embeds text as letter counts plus a constant component,
// so texts sharing letters end up close together
type letterEmbedder struct {
	mu       sync.Mutex
	embedded []string
	err      error
}

func (e *letterEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	e.embedded = append(e.embedded, texts...)

	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, 27)
		vec[26] = 1
		for _, r := range strings.ToLower(text) {
			if r >= 'a' && r <= 'z' {
				vec[r-'a']++
			}
		}
		out[i] = vec
	}
	return out, nil
}

func (e *letterEmbedder) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.embedded)
}

var errEmbed = errors.New("embedding backend down")

func writeCorpusFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}
