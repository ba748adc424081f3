package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pders01/docchat/internal/models"
)

const condensePrompt = `Given the following conversation and a follow up question, rephrase the follow up question to be a standalone question, in its original language.

Chat History:
%s
Follow Up Input: %s
Standalone question:`

const answerSystemPrompt = `Use the following pieces of context to answer the user's question.
If you don't know the answer, just say that you don't know, don't try to make up an answer.
----------------
%s`

// Chain answers a question in the context of a conversation: with history the
// question is first condensed into a standalone one, passages are retrieved
// for it and stuffed into the prompt of the final answer.
type Chain struct {
	llm    LLM
	logger *slog.Logger
}

// NewChain creates a chain on top of llm
func NewChain(llm LLM, logger *slog.Logger) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{llm: llm, logger: logger}
}

// Converse returns the answer to question given the previous messages
func (c *Chain) Converse(ctx context.Context, r Retriever, history []models.Message, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("question cannot be empty")
	}

	standalone := question
	if len(history) > 0 {
		condensed, err := c.llm.Generate(ctx, "", fmt.Sprintf(condensePrompt, formatHistory(history), question))
		if err != nil {
			return "", fmt.Errorf("failed to condense question: %w", err)
		}
		if condensed = strings.TrimSpace(condensed); condensed != "" {
			standalone = condensed
		}
		c.logger.Debug("condensed question", "question", question, "standalone", standalone)
	}

	found, err := r.Retrieve(ctx, standalone)
	if err != nil {
		return "", fmt.Errorf("failed to retrieve context: %w", err)
	}
	c.logger.Debug("retrieved passages", "count", len(found))

	answer, err := c.llm.Chat(ctx, []models.Message{
		{Role: models.RoleSystem, Content: fmt.Sprintf(answerSystemPrompt, StuffPassages(found))},
		{Role: models.RoleUser, Content: standalone},
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate answer: %w", err)
	}
	return answer, nil
}

// StuffPassages joins passage texts into one context block
func StuffPassages(passages []models.Passage) string {
	texts := make([]string, 0, len(passages))
	for _, p := range passages {
		texts = append(texts, p.Text)
	}
	return strings.Join(texts, "\n\n")
}

func formatHistory(history []models.Message) string {
	var sb strings.Builder
	for _, m := range history {
		switch m.Role {
		case models.RoleUser:
			sb.WriteString("Human: ")
		case models.RoleAssistant:
			sb.WriteString("Assistant: ")
		default:
			sb.WriteString(string(m.Role) + ": ")
		}
		sb.WriteString(m.Content)
		sb.WriteByte('\n')
	}
	return strings.TrimRight(sb.String(), "\n")
}
