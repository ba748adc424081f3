package rag

import (
	"context"
	"fmt"
	"strings"
)

// MaxDescriptionWords bounds the length of a conversation description
const MaxDescriptionWords = 12

const summarizeSystemPrompt = "You write short titles for conversations. Reply with the title only."

const summarizePrompt = `Write a concise description of the following conversation in at most %d words:

"%s"

CONCISE DESCRIPTION:`

// Summarizer describes a conversation in a few words
type Summarizer struct {
	llm LLM
}

// NewSummarizer creates a summarizer on top of llm
func NewSummarizer(llm LLM) *Summarizer {
	return &Summarizer{llm: llm}
}

// Summarize returns a description of text of at most MaxDescriptionWords words
func (s *Summarizer) Summarize(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("nothing to summarize")
	}

	out, err := s.llm.Generate(ctx, summarizeSystemPrompt, fmt.Sprintf(summarizePrompt, MaxDescriptionWords, text))
	if err != nil {
		return "", fmt.Errorf("failed to summarize: %w", err)
	}

	words := strings.Fields(strings.Trim(strings.TrimSpace(out), `"'`))
	if len(words) == 0 {
		return "", fmt.Errorf("summary is empty")
	}
	if len(words) > MaxDescriptionWords {
		words = words[:MaxDescriptionWords]
	}
	return strings.Join(words, " "), nil
}
