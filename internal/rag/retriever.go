// Package rag answers questions from an index: retrievers pick the passages,
// the chain turns them into an answer and the summarizer names conversations.
package rag

import (
	"context"
	"fmt"

	"github.com/pders01/docchat/internal/embeddings"
	"github.com/pders01/docchat/internal/index"
	"github.com/pders01/docchat/internal/models"
)

// Search types
const (
	SearchSimilarity = "similarity"
	SearchMMR        = "mmr"
)

// Defaults for Options
const (
	DefaultK      = 4
	DefaultFetchK = 20
	DefaultLambda = 0.5
)

// LLM is the language model behind the chain, the compressor and the summarizer
type LLM interface {
	Chat(ctx context.Context, messages []models.Message) (string, error)
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// Retriever returns the passages relevant to a query, best first
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]models.Passage, error)
}

// Searcher is the part of an open index the retrievers use
type Searcher interface {
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
	SearchVector(ctx context.Context, vec []float32, k int) ([]index.Result, error)
}

// Options selects and tunes a retriever
type Options struct {
	SearchType string
	K          int
	FetchK     int
	Lambda     float64
	Compress   bool
}

// NewRetriever builds the retriever described by opts over s. llm is only
// needed when opts.Compress is set.
func NewRetriever(s Searcher, llm LLM, opts Options) (Retriever, error) {
	if opts.K <= 0 {
		opts.K = DefaultK
	}
	if opts.FetchK < opts.K {
		opts.FetchK = max(DefaultFetchK, opts.K)
	}

	var r Retriever
	switch opts.SearchType {
	case "", SearchSimilarity:
		r = &SimilarityRetriever{searcher: s, k: opts.K}
	case SearchMMR:
		lambda := opts.Lambda
		if lambda < 0 || lambda > 1 {
			return nil, fmt.Errorf("mmr lambda must be within [0, 1], got %v", lambda)
		}
		r = &MMRRetriever{searcher: s, k: opts.K, fetchK: opts.FetchK, lambda: lambda}
	default:
		return nil, fmt.Errorf("unknown search type %q (want %s or %s)", opts.SearchType, SearchSimilarity, SearchMMR)
	}

	if opts.Compress {
		if llm == nil {
			return nil, fmt.Errorf("compression requires a language model")
		}
		r = &CompressingRetriever{base: r, llm: llm}
	}
	return r, nil
}

// SimilarityRetriever returns the k nearest passages
type SimilarityRetriever struct {
	searcher Searcher
	k        int
}

// Retrieve implements Retriever
func (r *SimilarityRetriever) Retrieve(ctx context.Context, query string) ([]models.Passage, error) {
	vec, err := r.searcher.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	results, err := r.searcher.SearchVector(ctx, vec, r.k)
	if err != nil {
		return nil, err
	}
	return passages(results), nil
}

// MMRRetriever fetches fetchK neighbours and keeps the k that balance
// relevance against redundancy
type MMRRetriever struct {
	searcher Searcher
	k        int
	fetchK   int
	lambda   float64
}

// Retrieve implements Retriever
func (r *MMRRetriever) Retrieve(ctx context.Context, query string) ([]models.Passage, error) {
	vec, err := r.searcher.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	results, err := r.searcher.SearchVector(ctx, vec, r.fetchK)
	if err != nil {
		return nil, err
	}

	vectors := make([][]float32, len(results))
	for i, res := range results {
		vectors[i] = res.Vector
	}

	picked := embeddings.MaxMarginalRelevance(vec, vectors, r.k, r.lambda)
	out := make([]models.Passage, len(picked))
	for i, idx := range picked {
		out[i] = results[idx].Passage
	}
	return out, nil
}

func passages(results []index.Result) []models.Passage {
	out := make([]models.Passage, len(results))
	for i, res := range results {
		out[i] = res.Passage
	}
	return out
}
