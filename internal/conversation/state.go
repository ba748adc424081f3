package conversation

import (
	"errors"
	"fmt"
	"slices"

	"github.com/pders01/docchat/internal/models"
	"github.com/pders01/docchat/internal/rag"
)

var (
	// ErrNotStarted is returned when a session is used before Start or Resume,
	// or after End
	ErrNotStarted = errors.New("conversation not started")
	// ErrSessionNotFound is returned when resuming an id with no session directory
	ErrSessionNotFound = errors.New("conversation not found")
	// ErrAlreadyStarted is returned when Start or Resume is called twice
	ErrAlreadyStarted = errors.New("conversation already started")
	// ErrInvalidTransition is returned when starting a resumed session or
	// resuming a new one
	ErrInvalidTransition = errors.New("invalid conversation transition")
)

// Phase is the lifecycle position of a session
type Phase int

const (
	// PhaseNew is a freshly created session with nothing on disk but its directory
	PhaseNew Phase = iota
	// PhaseExisting is a session found on disk, not loaded yet
	PhaseExisting
	// PhaseLive accepts questions
	PhaseLive
	// PhaseEnded is terminal
	PhaseEnded
)

func (p Phase) String() string {
	switch p {
	case PhaseNew:
		return "new"
	case PhaseExisting:
		return "existing"
	case PhaseLive:
		return "live"
	case PhaseEnded:
		return "ended"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// PhaseError reports an operation attempted in the wrong phase
type PhaseError struct {
	Op    string
	Phase Phase
	err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s: session is %s: %v", e.Op, e.Phase, e.err)
}

func (e *PhaseError) Unwrap() error {
	return e.err
}

// state is the immutable value behind a Session. Every transition returns a
// new state and leaves the receiver untouched.
type state struct {
	phase     Phase
	meta      models.ConversationMeta
	history   []models.Message
	retriever rag.Retriever
}

func (s state) goLive(op string, from Phase, r rag.Retriever, meta models.ConversationMeta, history []models.Message) (state, error) {
	if err := s.requirePhase(op, from); err != nil {
		return s, err
	}
	return state{
		phase:     PhaseLive,
		meta:      meta,
		history:   slices.Clone(history),
		retriever: r,
	}, nil
}

func (s state) requirePhase(op string, want Phase) error {
	if s.phase == want {
		return nil
	}
	sentinel := ErrInvalidTransition
	switch s.phase {
	case PhaseLive:
		sentinel = ErrAlreadyStarted
	case PhaseEnded:
		sentinel = ErrNotStarted
	}
	return &PhaseError{Op: op, Phase: s.phase, err: sentinel}
}

func (s state) requireLive(op string) error {
	if s.phase != PhaseLive {
		return &PhaseError{Op: op, Phase: s.phase, err: ErrNotStarted}
	}
	return nil
}

// withTurn appends a question and its answer
func (s state) withTurn(question, answer string) state {
	next := s
	next.history = make([]models.Message, 0, len(s.history)+2)
	next.history = append(next.history, s.history...)
	next.history = append(next.history,
		models.Message{Role: models.RoleUser, Content: question},
		models.Message{Role: models.RoleAssistant, Content: answer},
	)
	return next
}

func (s state) withDescription(desc string) state {
	next := s
	next.meta.Description = desc
	return next
}

func (s state) ended() state {
	return state{phase: PhaseEnded, meta: s.meta}
}
