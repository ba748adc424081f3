// Package conversation implements a single chat thread bound to one snapshot:
// its memory on disk, its description and its lifecycle.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pders01/docchat/internal/models"
	"github.com/pders01/docchat/internal/rag"
	"github.com/pders01/docchat/internal/snapshot"
)

// Chain produces the answer to a question given the conversation so far
type Chain interface {
	Converse(ctx context.Context, r rag.Retriever, history []models.Message, question string) (string, error)
}

// Summarizer writes the description of a conversation
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// Deps are the collaborators of a session
type Deps struct {
	Chain      Chain
	Summarizer Summarizer
	Logger     *slog.Logger
	Now        func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

// Turn is the outcome of one question. Warnings lists the persistence steps
// that failed after the answer was produced.
type Turn struct {
	Answer   string
	Warnings []error
}

// Persisted reports whether memory and description were both written
func (t Turn) Persisted() bool {
	return len(t.Warnings) == 0
}

// Session is one conversation
type Session struct {
	id   string
	dir  string
	deps Deps
	st   state
}

// New creates a session with a fresh id under the snapshot at snapshotPath
func New(snapshotPath string, deps Deps) (*Session, error) {
	id := uuid.NewString()
	dir := snapshot.ConversationPath(snapshotPath, id)

	if err := os.MkdirAll(snapshot.ConversationsPath(snapshotPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create conversations directory: %w", err)
	}
	if err := os.Mkdir(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create conversation directory: %w", err)
	}

	return &Session{id: id, dir: dir, deps: deps.withDefaults(), st: state{phase: PhaseNew}}, nil
}

// Open binds to an existing session under the snapshot at snapshotPath
func Open(snapshotPath, id string, deps Deps) (*Session, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return nil, fmt.Errorf("%w: invalid id %q", ErrSessionNotFound, id)
	}

	dir := snapshot.ConversationPath(snapshotPath, id)
	info, err := os.Stat(dir)
	if errors.Is(err, os.ErrNotExist) || (err == nil && !info.IsDir()) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat conversation: %w", err)
	}

	return &Session{id: id, dir: dir, deps: deps.withDefaults(), st: state{phase: PhaseExisting}}, nil
}

// ID returns the session id
func (s *Session) ID() string {
	return s.id
}

// Dir returns the session directory
func (s *Session) Dir() string {
	return s.dir
}

// Phase returns the current lifecycle phase
func (s *Session) Phase() Phase {
	return s.st.phase
}

// Meta returns the session metadata as last loaded or written
func (s *Session) Meta() models.ConversationMeta {
	return s.st.meta
}

// Start makes a new session live and writes its initial records
func (s *Session) Start(ctx context.Context, r rag.Retriever) error {
	meta := models.ConversationMeta{
		ID:          s.id,
		CreatedAt:   s.deps.Now(),
		Description: models.DefaultDescription,
	}

	next, err := s.st.goLive("start", PhaseNew, r, meta, nil)
	if err != nil {
		return err
	}

	if err := snapshot.WriteJSON(snapshot.ConversationMetaPath(s.dir), meta); err != nil {
		return err
	}
	if err := snapshot.WriteJSON(snapshot.MemoryPath(s.dir), []models.Message{}); err != nil {
		return err
	}

	s.st = next
	s.deps.Logger.Debug("conversation started", "id", s.id)
	return nil
}

// Resume loads an existing session's records and makes it live
func (s *Session) Resume(ctx context.Context, r rag.Retriever) error {
	if err := s.st.requirePhase("resume", PhaseExisting); err != nil {
		return err
	}

	meta, err := ReadMeta(s.dir)
	if err != nil {
		return err
	}

	var history []models.Message
	err = snapshot.ReadJSON(snapshot.MemoryPath(s.dir), snapshot.MemorySchema, &history)
	if errors.Is(err, os.ErrNotExist) {
		s.deps.Logger.Warn("conversation has no memory, starting empty", "id", s.id)
	} else if err != nil {
		return fmt.Errorf("failed to load conversation memory: %w", err)
	}

	next, err := s.st.goLive("resume", PhaseExisting, r, meta, history)
	if err != nil {
		return err
	}
	s.st = next
	s.deps.Logger.Debug("conversation resumed", "id", s.id, "messages", len(history))
	return nil
}

// Ask answers question and persists the grown history and a new description.
// Persistence failures do not fail the call: they are returned as warnings
// alongside the answer.
func (s *Session) Ask(ctx context.Context, question string) (Turn, error) {
	if err := s.st.requireLive("ask"); err != nil {
		return Turn{}, err
	}

	answer, err := s.deps.Chain.Converse(ctx, s.st.retriever, slices.Clone(s.st.history), question)
	if err != nil {
		return Turn{}, fmt.Errorf("failed to answer: %w", err)
	}

	s.st = s.st.withTurn(question, answer)
	turn := Turn{Answer: answer}

	if err := snapshot.WriteJSON(snapshot.MemoryPath(s.dir), s.st.history); err != nil {
		turn.Warnings = append(turn.Warnings, fmt.Errorf("memory not saved: %w", err))
	}

	if desc, err := s.deps.Summarizer.Summarize(ctx, transcript(s.st.history)); err != nil {
		turn.Warnings = append(turn.Warnings, fmt.Errorf("description not updated: %w", err))
	} else {
		next := s.st.withDescription(desc)
		if err := snapshot.WriteJSON(snapshot.ConversationMetaPath(s.dir), next.meta); err != nil {
			turn.Warnings = append(turn.Warnings, fmt.Errorf("description not saved: %w", err))
		} else {
			s.st = next
		}
	}

	for _, w := range turn.Warnings {
		s.deps.Logger.Warn("conversation turn not fully persisted", "id", s.id, "error", w)
	}
	return turn, nil
}

// Messages returns the history, oldest first
func (s *Session) Messages() ([]models.Message, error) {
	if err := s.st.requireLive("messages"); err != nil {
		return nil, err
	}
	return slices.Clone(s.st.history), nil
}

// End closes the session. It cannot be used afterwards.
func (s *Session) End() error {
	if err := s.st.requireLive("end"); err != nil {
		return err
	}
	s.st = s.st.ended()
	return nil
}

// ReadMeta reads conv_meta.json from a session directory
func ReadMeta(dir string) (models.ConversationMeta, error) {
	var meta models.ConversationMeta
	if err := snapshot.ReadJSON(snapshot.ConversationMetaPath(dir), snapshot.ConversationMetaSchema, &meta); err != nil {
		return models.ConversationMeta{}, fmt.Errorf("failed to load conversation meta: %w", err)
	}
	return meta, nil
}

// transcript is the text the description is summarized from
func transcript(history []models.Message) string {
	contents := make([]string, len(history))
	for i, m := range history {
		contents[i] = m.Content
	}
	return strings.Join(contents, "\n")
}
