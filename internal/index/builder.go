// Package index turns corpus files into embedded chunks and persists them in
// a vecgo engine, one index per snapshot.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Chunk is a piece of a document small enough to embed
type Chunk struct {
	Source   string `json:"source"`
	Location string `json:"location,omitempty"`
	Text     string `json:"text"`
}

// Builder loads and chunks files
type Builder struct {
	splitter *Splitter
	workers  int
	logger   *slog.Logger
}

// BuilderOption configures a Builder
type BuilderOption func(*Builder)

// WithSplitter replaces the default splitter
func WithSplitter(s *Splitter) BuilderOption {
	return func(b *Builder) {
		if s != nil {
			b.splitter = s
		}
	}
}

// WithWorkers sets how many files are loaded concurrently
func WithWorkers(n int) BuilderOption {
	return func(b *Builder) {
		if n > 0 {
			b.workers = n
		}
	}
}

// WithBuilderLogger sets the logger
func WithBuilderLogger(l *slog.Logger) BuilderOption {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBuilder creates a builder with the default splitter and one worker per CPU
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{
		splitter: NewSplitter(DefaultChunkSize, DefaultChunkOverlap),
		workers:  runtime.NumCPU(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build loads every path and splits its documents into chunks. Chunks come
// back grouped by path in input order. Any load failure fails the whole build.
func (b *Builder) Build(ctx context.Context, paths []string) ([]Chunk, error) {
	perFile := make([][]Chunk, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)

	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if !Supported(path) {
				b.logger.Debug("skipping unsupported file", "path", path)
				return nil
			}

			docs, err := Load(path)
			if err != nil {
				return err
			}

			var chunks []Chunk
			for _, doc := range docs {
				for _, text := range b.splitter.Split(doc.Text) {
					chunks = append(chunks, Chunk{Source: doc.Source, Location: doc.Location, Text: text})
				}
			}
			perFile[i] = chunks
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to build chunks: %w", err)
	}

	var all []Chunk
	for _, chunks := range perFile {
		all = append(all, chunks...)
	}

	b.logger.Debug("chunked files", "files", len(paths), "chunks", len(all))
	return all, nil
}
