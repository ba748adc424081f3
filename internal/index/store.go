package index

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/hupe1980/vecgo"
	"github.com/hupe1980/vecgo/metadata"

	"github.com/pders01/docchat/internal/embeddings"
	"github.com/pders01/docchat/internal/models"
	"github.com/pders01/docchat/internal/snapshot"
)

const (
	// MetaFile records the shape of the index next to the engine files
	MetaFile = "index.json"
	// EngineDir holds the vecgo engine files
	EngineDir = "engine"

	insertBatch = 256
)

// MetaSchema validates MetaFile
const MetaSchema = `{
  "type": "object",
  "required": ["dimension", "count"],
  "properties": {
    "dimension": {"type": "integer", "minimum": 0},
    "count": {"type": "integer", "minimum": 0},
    "embed_model": {"type": "string"}
  }
}`

// Meta describes a persisted index
type Meta struct {
	Dimension  int    `json:"dimension"`
	Count      int    `json:"count"`
	EmbedModel string `json:"embed_model,omitempty"`
}

// Embedder turns texts into vectors, one per text in input order
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// record is the payload stored with every vector. The vector is kept in the
// payload so retrievers can rerank without another embedding round trip.
type record struct {
	Chunk
	Vector []float32 `json:"vector"`
}

var recordSchema = metadata.Schema{
	"source": metadata.FieldTypeString,
}

// Store creates and opens indexes
type Store struct {
	embedder   Embedder
	embedModel string
	logger     *slog.Logger
}

// StoreOption configures a Store
type StoreOption func(*Store)

// WithEmbedModel records the embedding model name in every index created
func WithEmbedModel(name string) StoreOption {
	return func(s *Store) {
		s.embedModel = name
	}
}

// WithStoreLogger sets the logger
func WithStoreLogger(l *slog.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewStore creates a store that embeds with embedder
func NewStore(embedder Embedder, opts ...StoreOption) *Store {
	s := &Store{
		embedder: embedder,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create builds a new index in dir from chunks
func (s *Store) Create(ctx context.Context, dir string, chunks []Chunk) (*Handle, error) {
	return s.Extend(ctx, nil, dir, chunks)
}

// Extend builds a new index in dir holding every record of base followed by
// chunks. The engine files of base are copied, only chunks are embedded. base
// stays open and unchanged. A nil base behaves like Create.
func (s *Store) Extend(ctx context.Context, base *Handle, dir string, chunks []Chunk) (*Handle, error) {
	meta := Meta{EmbedModel: s.embedModel}
	if base != nil {
		meta.Dimension = base.meta.Dimension
		meta.Count = base.meta.Count
		if meta.EmbedModel == "" {
			meta.EmbedModel = base.meta.EmbedModel
		} else if base.meta.EmbedModel != "" && base.meta.EmbedModel != meta.EmbedModel {
			return nil, fmt.Errorf("index was built with embedding model %q, configured model is %q", base.meta.EmbedModel, meta.EmbedModel)
		}
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	vectors, err := s.embed(ctx, chunks, meta.Dimension)
	if err != nil {
		return nil, err
	}
	if meta.Dimension == 0 && len(vectors) > 0 {
		meta.Dimension = len(vectors[0])
	}

	engineDir := filepath.Join(dir, EngineDir)
	seeded := base != nil && base.meta.Count > 0
	if seeded {
		if err := os.CopyFS(engineDir, os.DirFS(filepath.Join(base.dir, EngineDir))); err != nil {
			return nil, fmt.Errorf("failed to copy previous index: %w", err)
		}
	}

	if len(chunks) > 0 {
		if err := s.insert(ctx, engineDir, seeded, meta.Dimension, chunks, vectors); err != nil {
			return nil, err
		}
		meta.Count += len(chunks)
	}

	if err := snapshot.WriteJSON(filepath.Join(dir, MetaFile), meta); err != nil {
		return nil, err
	}

	s.logger.Debug("index written", "dir", dir, "count", meta.Count, "embedded", len(chunks))
	return s.Open(ctx, dir)
}

// Open loads the index persisted in dir
func (s *Store) Open(ctx context.Context, dir string) (*Handle, error) {
	var meta Meta
	if err := snapshot.ReadJSON(filepath.Join(dir, MetaFile), MetaSchema, &meta); err != nil {
		return nil, fmt.Errorf("failed to read index meta: %w", err)
	}

	h := &Handle{dir: dir, meta: meta, embedder: s.embedder}
	if meta.Count == 0 {
		return h, nil
	}

	db, err := vecgo.Open(ctx, vecgo.Local(filepath.Join(dir, EngineDir)))
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	h.db = db
	return h, nil
}

func (s *Store) embed(ctx context.Context, chunks []Chunk, dim int) ([][]float32, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	if dim == 0 {
		dim = len(vectors[0])
	}
	for i, v := range vectors {
		if err := embeddings.Validate(v, dim); err != nil {
			return nil, fmt.Errorf("chunk %d of %s: %w", i, chunks[i].Source, err)
		}
		if vectors[i], err = embeddings.Normalize(v); err != nil {
			return nil, err
		}
	}

	return vectors, nil
}

// insert appends chunks to the engine in dir, creating it unless it was
// seeded, and commits. The engine is closed before returning.
func (s *Store) insert(ctx context.Context, dir string, seeded bool, dim int, chunks []Chunk, vectors [][]float32) (err error) {
	// Vectors are unit length, so L2 ranks exactly like cosine similarity
	opts := []vecgo.Option{vecgo.WithSchema(recordSchema)}
	if !seeded {
		opts = append(opts, vecgo.Create(dim, vecgo.MetricL2))
	}

	db, err := vecgo.Open(ctx, vecgo.Local(dir), opts...)
	if err != nil {
		return fmt.Errorf("failed to open index for writing: %w", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close index: %w", cerr)
		}
	}()

	for start := 0; start < len(chunks); start += insertBatch {
		end := min(start+insertBatch, len(chunks))

		docs := make([]metadata.Document, 0, end-start)
		payloads := make([][]byte, 0, end-start)
		for i := start; i < end; i++ {
			payload, err := json.Marshal(record{Chunk: chunks[i], Vector: vectors[i]})
			if err != nil {
				return fmt.Errorf("failed to encode chunk: %w", err)
			}
			docs = append(docs, metadata.Document{"source": metadata.String(chunks[i].Source)})
			payloads = append(payloads, payload)
		}

		if _, err := db.BatchInsert(ctx, vectors[start:end], docs, payloads); err != nil {
			return fmt.Errorf("failed to insert chunks: %w", err)
		}
	}

	if err := db.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit index: %w", err)
	}
	return nil
}

// Result is a retrieved chunk with its cosine similarity to the query
type Result struct {
	models.Passage
	Vector []float32
}

// Handle is an open index
type Handle struct {
	dir      string
	meta     Meta
	db       *vecgo.DB
	embedder Embedder
}

// Dir returns the directory the index lives in
func (h *Handle) Dir() string {
	return h.dir
}

// Len returns the number of chunks in the index
func (h *Handle) Len() int {
	return h.meta.Count
}

// Dimension returns the vector dimension, zero for an empty index
func (h *Handle) Dimension() int {
	return h.meta.Dimension
}

// EmbedModel returns the model the index was built with, if recorded
func (h *Handle) EmbedModel() string {
	return h.meta.EmbedModel
}

// EmbedQuery embeds a single query text
func (h *Handle) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	vectors, err := h.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for one query", len(vectors))
	}
	return vectors[0], nil
}

// Search returns the k chunks most similar to query, best first
func (h *Handle) Search(ctx context.Context, query string, k int) ([]Result, error) {
	if h.db == nil || k <= 0 {
		return nil, nil
	}
	vec, err := h.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	return h.SearchVector(ctx, vec, k)
}

// SearchVector returns the k chunks most similar to vec, best first, with
// their stored vectors
func (h *Handle) SearchVector(ctx context.Context, vec []float32, k int) ([]Result, error) {
	if h.db == nil || k <= 0 {
		return nil, nil
	}
	if err := embeddings.Validate(vec, h.meta.Dimension); err != nil {
		return nil, fmt.Errorf("invalid query vector: %w", err)
	}
	query, err := embeddings.Normalize(vec)
	if err != nil {
		return nil, err
	}

	hits, err := h.db.Search(ctx, query, min(k, h.meta.Count), vecgo.WithPayload())
	if err != nil {
		return nil, fmt.Errorf("failed to search index: %w", err)
	}

	results := make([]Result, 0, len(hits))
	for _, hit := range hits {
		var rec record
		if err := json.Unmarshal(hit.Payload, &rec); err != nil {
			return nil, fmt.Errorf("corrupt payload for record %v: %w", hit.ID, err)
		}
		score, err := embeddings.CosineSimilarity(query, rec.Vector)
		if err != nil {
			return nil, fmt.Errorf("corrupt vector for record %v: %w", hit.ID, err)
		}
		results = append(results, Result{
			Passage: models.Passage{
				Source:   rec.Source,
				Location: rec.Location,
				Text:     rec.Text,
				Score:    score,
			},
			Vector: rec.Vector,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results, nil
}

// Close releases the engine. Closing twice is a no-op.
func (h *Handle) Close() error {
	if h.db == nil {
		return nil
	}
	err := h.db.Close()
	h.db = nil
	return err
}
