package snapshot

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pders01/docchat/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAndReadJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConversationMetaFile)

	meta := models.ConversationMeta{
		ID:          "5c1c0b1e-0000-4000-8000-000000000000",
		CreatedAt:   time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC),
		Description: models.DefaultDescription,
	}
	require.NoError(t, WriteJSON(path, meta))

	var got models.ConversationMeta
	require.NoError(t, ReadJSON(path, ConversationMetaSchema, &got))
	assert.Equal(t, meta.ID, got.ID)
	assert.True(t, meta.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, meta.Description, got.Description)

	// Overwrite leaves no temp files behind
	meta.Description = "Questions about tax forms"
	require.NoError(t, WriteJSON(path, meta))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestReadJSONRejectsInvalidRecords(t *testing.T) {
	tests := []struct {
		name    string
		schema  string
		content string
	}{
		{name: "index meta without source", schema: IndexMetaSchema, content: `{}`},
		{name: "index meta empty source", schema: IndexMetaSchema, content: `{"source_path": ""}`},
		{name: "conversation meta without id", schema: ConversationMetaSchema, content: `{"description": "x"}`},
		{name: "memory with unknown role", schema: MemorySchema, content: `[{"role": "robot", "content": "hi"}]`},
		{name: "manifest with non-time value", schema: ManifestSchema, content: `{"/a.txt": 12}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "record.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			var v any
			err := ReadJSON(path, tt.schema, &v)
			assert.ErrorIs(t, err, ErrInvalidRecord)
		})
	}
}

func TestReadJSONMissingFile(t *testing.T) {
	var meta models.IndexMeta
	err := ReadJSON(filepath.Join(t.TempDir(), IndexMetaFile), IndexMetaSchema, &meta)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
