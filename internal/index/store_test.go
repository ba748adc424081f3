package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var corpus = []Chunk{
	{Source: "/src/fruit.txt", Text: "apple apple apple"},
	{Source: "/src/animals.txt", Text: "zebra"},
	{Source: "/src/physics.txt", Location: "page 2", Text: "quantum mechanics"},
}

func TestStoreCreateAndSearch(t *testing.T) {
	ctx := context.Background()
	embedder := &letterEmbedder{}
	store := NewStore(embedder, WithEmbedModel("letters"))

	dir := filepath.Join(t.TempDir(), "vector_store")
	h, err := store.Create(ctx, dir, corpus)
	require.NoError(t, err)
	defer h.Close()

	assert.Equal(t, 3, h.Len())
	assert.Equal(t, 27, h.Dimension())
	assert.Equal(t, "letters", h.EmbedModel())
	assert.Equal(t, dir, h.Dir())
	assert.Equal(t, 3, embedder.count())

	results, err := h.Search(ctx, "apple", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "/src/fruit.txt", results[0].Source)
	assert.Equal(t, "apple apple apple", results[0].Text)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
	assert.Len(t, results[0].Vector, 27)

	all, err := h.Search(ctx, "quantum", 10)
	require.NoError(t, err)
	require.Len(t, all, 3, "k is capped at the index size")
	assert.Equal(t, "page 2", all[0].Location)
}

func TestStoreOpen(t *testing.T) {
	ctx := context.Background()
	store := NewStore(&letterEmbedder{})

	dir := filepath.Join(t.TempDir(), "vector_store")
	h, err := store.Create(ctx, dir, corpus)
	require.NoError(t, err)
	require.NoError(t, h.Close())
	require.NoError(t, h.Close(), "closing twice is a no-op")

	reopened, err := store.Open(ctx, dir)
	require.NoError(t, err)
	defer reopened.Close()

	assert.Equal(t, 3, reopened.Len())
	results, err := reopened.Search(ctx, "zebra", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "/src/animals.txt", results[0].Source)
}

func TestStoreExtend(t *testing.T) {
	ctx := context.Background()
	embedder := &letterEmbedder{}
	store := NewStore(embedder)
	root := t.TempDir()

	base, err := store.Create(ctx, filepath.Join(root, "v1"), corpus[:2])
	require.NoError(t, err)
	defer base.Close()
	require.Equal(t, 2, embedder.count())

	extended, err := store.Extend(ctx, base, filepath.Join(root, "v2"), corpus[2:])
	require.NoError(t, err)
	defer extended.Close()

	assert.Equal(t, 3, embedder.count(), "only the new chunk is embedded")
	assert.Equal(t, 3, extended.Len())
	assert.Equal(t, 2, base.Len(), "base index is untouched")

	results, err := extended.Search(ctx, "apple", 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "/src/fruit.txt", results[0].Source)

	results, err = extended.Search(ctx, "quantum", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "/src/physics.txt", results[0].Source)

	baseResults, err := base.Search(ctx, "quantum", 3)
	require.NoError(t, err)
	assert.Len(t, baseResults, 2)
}

func TestStoreEmpty(t *testing.T) {
	ctx := context.Background()
	store := NewStore(&letterEmbedder{})
	root := t.TempDir()

	empty, err := store.Create(ctx, filepath.Join(root, "empty"), nil)
	require.NoError(t, err)
	defer empty.Close()

	assert.Equal(t, 0, empty.Len())
	assert.Equal(t, 0, empty.Dimension())
	_, err = os.Stat(filepath.Join(root, "empty", EngineDir))
	assert.True(t, os.IsNotExist(err))

	results, err := empty.Search(ctx, "anything", 4)
	require.NoError(t, err)
	assert.Empty(t, results)

	grown, err := store.Extend(ctx, empty, filepath.Join(root, "grown"), corpus[:1])
	require.NoError(t, err)
	defer grown.Close()
	assert.Equal(t, 1, grown.Len())
	assert.Equal(t, 27, grown.Dimension())
}

func TestStoreErrors(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	t.Run("embedder failure", func(t *testing.T) {
		store := NewStore(&letterEmbedder{err: errEmbed})
		_, err := store.Create(ctx, filepath.Join(root, "fail"), corpus)
		assert.ErrorIs(t, err, errEmbed)
	})

	t.Run("embedding model changed", func(t *testing.T) {
		base, err := NewStore(&letterEmbedder{}, WithEmbedModel("a")).Create(ctx, filepath.Join(root, "model-a"), corpus[:1])
		require.NoError(t, err)
		defer base.Close()

		_, err = NewStore(&letterEmbedder{}, WithEmbedModel("b")).Extend(ctx, base, filepath.Join(root, "model-b"), corpus[1:])
		assert.Error(t, err)
	})

	t.Run("missing index", func(t *testing.T) {
		_, err := NewStore(&letterEmbedder{}).Open(ctx, filepath.Join(root, "nothing"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("query dimension mismatch", func(t *testing.T) {
		h, err := NewStore(&letterEmbedder{}).Create(ctx, filepath.Join(root, "dims"), corpus)
		require.NoError(t, err)
		defer h.Close()

		_, err = h.SearchVector(ctx, []float32{1, 2}, 1)
		assert.Error(t, err)
	})
}
