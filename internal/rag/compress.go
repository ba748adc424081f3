package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/pders01/docchat/internal/models"
)

// NoOutput is what the extractor answers when nothing in a passage is relevant
const NoOutput = "NO_OUTPUT"

const extractPrompt = `Given the following question and context, extract any part of the context *AS IS* that is relevant to answer the question. If none of the context is relevant return %s.

Remember, *DO NOT* edit the extracted parts of the context.

> Question: %s
> Context:
>>>
%s
>>>
Extracted relevant parts:`

// CompressingRetriever asks the language model to cut every retrieved
// passage down to the parts relevant to the query, dropping passages with
// nothing relevant
type CompressingRetriever struct {
	base Retriever
	llm  LLM
}

// Retrieve implements Retriever
func (r *CompressingRetriever) Retrieve(ctx context.Context, query string) ([]models.Passage, error) {
	found, err := r.base.Retrieve(ctx, query)
	if err != nil {
		return nil, err
	}

	var out []models.Passage
	for _, p := range found {
		extracted, err := r.llm.Generate(ctx, "", fmt.Sprintf(extractPrompt, NoOutput, query, p.Text))
		if err != nil {
			return nil, fmt.Errorf("failed to compress passage from %s: %w", p.Source, err)
		}
		extracted = strings.TrimSpace(extracted)
		if extracted == "" || strings.Contains(extracted, NoOutput) {
			continue
		}
		p.Text = extracted
		out = append(out, p)
	}
	return out, nil
}
