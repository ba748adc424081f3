package version

import (
	"context"
	"fmt"
	"os"

	"github.com/pders01/docchat/internal/conversation"
	"github.com/pders01/docchat/internal/models"
)

func (v *Version) sessionDeps() conversation.Deps {
	return conversation.Deps{
		Chain:      v.deps.Chain,
		Summarizer: v.deps.Summarizer,
		Logger:     v.deps.Logger,
		Now:        v.deps.Now,
	}
}

// StartConversation starts a new conversation on the active snapshot and
// makes it current. It returns the conversation id.
func (v *Version) StartConversation(ctx context.Context) (string, error) {
	if v.phase != PhaseActive {
		return "", &PhaseError{Op: "start conversation", Phase: v.phase, err: ErrNotLoaded}
	}

	s, err := conversation.New(v.active.snap.Path, v.sessionDeps())
	if err != nil {
		return "", err
	}
	if err := s.Start(ctx, v.active.retriever); err != nil {
		os.RemoveAll(s.Dir())
		return "", err
	}

	v.endSession()
	v.session = s
	return s.ID(), nil
}

// ContinueConversation resumes the conversation id of the active snapshot
// and makes it current
func (v *Version) ContinueConversation(ctx context.Context, id string) error {
	if v.phase != PhaseActive {
		return &PhaseError{Op: "continue conversation", Phase: v.phase, err: ErrNotLoaded}
	}

	s, err := conversation.Open(v.active.snap.Path, id, v.sessionDeps())
	if err != nil {
		return err
	}
	if err := s.Resume(ctx, v.active.retriever); err != nil {
		return err
	}

	v.endSession()
	v.session = s
	return nil
}

// ConversationID returns the id of the current conversation, empty if none
func (v *Version) ConversationID() string {
	if v.session == nil {
		return ""
	}
	return v.session.ID()
}

// Ask puts a question to the current conversation
func (v *Version) Ask(ctx context.Context, question string) (conversation.Turn, error) {
	if v.session == nil {
		return conversation.Turn{}, fmt.Errorf("ask: %w", conversation.ErrNotStarted)
	}
	return v.session.Ask(ctx, question)
}

// Messages returns the history of the current conversation
func (v *Version) Messages() ([]models.Message, error) {
	if v.session == nil {
		return nil, fmt.Errorf("messages: %w", conversation.ErrNotStarted)
	}
	return v.session.Messages()
}

func (v *Version) endSession() {
	if v.session == nil {
		return
	}
	if err := v.session.End(); err != nil {
		v.deps.Logger.Debug("conversation already ended", "id", v.session.ID(), "error", err)
	}
	v.session = nil
}

// ConversationMessages returns the stored history of conversation id of the
// active snapshot without making it current
func (v *Version) ConversationMessages(ctx context.Context, id string) ([]models.Message, error) {
	if v.phase != PhaseActive {
		return nil, &PhaseError{Op: "messages", Phase: v.phase, err: ErrNotLoaded}
	}
	if v.session != nil && id == v.session.ID() {
		return v.session.Messages()
	}

	s, err := conversation.Open(v.active.snap.Path, id, v.sessionDeps())
	if err != nil {
		return nil, err
	}
	if err := s.Resume(ctx, v.active.retriever); err != nil {
		return nil, err
	}
	defer s.End()
	return s.Messages()
}
