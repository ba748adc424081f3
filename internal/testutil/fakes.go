// Package testutil provides corpus fixtures and in-memory stand-ins for the
// embedding and language model backends.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/pders01/docchat/internal/models"
	"github.com/pders01/docchat/internal/rag"
)

// ErrInjected is returned by fakes told to fail
var ErrInjected = errors.New("injected failure")

// Embedder embeds text as letter counts plus a constant component, so texts
// sharing letters are close. FailAfter > 0 makes every call after that many
// successful calls fail.
type Embedder struct {
	mu        sync.Mutex
	calls     int
	texts     []string
	FailAfter int
}

// Embed implements index.Embedder
func (e *Embedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.FailAfter > 0 && e.calls >= e.FailAfter {
		return nil, ErrInjected
	}
	e.calls++
	e.texts = append(e.texts, texts...)

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

// Embedded returns every text embedded so far
func (e *Embedder) Embedded() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.texts...)
}

// Chain answers from the retrieved passages without a language model. It
// records the history it was given on every call.
type Chain struct {
	mu        sync.Mutex
	Histories [][]models.Message
	Err       error
}

// Converse implements conversation.Chain
func (c *Chain) Converse(ctx context.Context, r rag.Retriever, history []models.Message, question string) (string, error) {
	c.mu.Lock()
	c.Histories = append(c.Histories, history)
	c.mu.Unlock()

	if c.Err != nil {
		return "", c.Err
	}

	passages, err := r.Retrieve(ctx, question)
	if err != nil {
		return "", err
	}
	sources := make([]string, len(passages))
	for i, p := range passages {
		sources[i] = p.Text
	}
	return fmt.Sprintf("answer to %q from [%s]", question, strings.Join(sources, " | ")), nil
}

// Summarizer describes a conversation by its first words
type Summarizer struct {
	Err error
}

// Summarize implements conversation.Summarizer
func (s *Summarizer) Summarize(_ context.Context, text string) (string, error) {
	if s.Err != nil {
		return "", s.Err
	}
	words := strings.Fields(text)
	return strings.Join(words[:min(4, len(words))], " "), nil
}

// LLM is a scripted language model. Chat echoes the last message, Generate
// returns the prompt's last line.
type LLM struct {
	Err error
}

// Chat implements rag.LLM
func (l *LLM) Chat(_ context.Context, messages []models.Message) (string, error) {
	if l.Err != nil {
		return "", l.Err
	}
	if len(messages) == 0 {
		return "", nil
	}
	return "echo: " + messages[len(messages)-1].Content, nil
}

// Generate implements rag.LLM
func (l *LLM) Generate(_ context.Context, _, prompt string) (string, error) {
	if l.Err != nil {
		return "", l.Err
	}
	lines := strings.Split(strings.TrimSpace(prompt), "\n")
	return lines[len(lines)-1], nil
}
