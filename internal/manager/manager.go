// Package manager is the entry point of docchat: it discovers every version
// under the data root, keeps at most one of them loaded and exposes the
// indexing and conversation operations on top of it.
package manager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pders01/docchat/internal/conversation"
	"github.com/pders01/docchat/internal/models"
	"github.com/pders01/docchat/internal/snapshot"
	"github.com/pders01/docchat/internal/version"
)

// ErrNoVersionSelected is returned when an operation needs a loaded version
// and none was named or loaded before
var ErrNoVersionSelected = errors.New("no version selected")

// VersionInfo is one snapshot of a version
type VersionInfo struct {
	Version       string    `json:"version"`
	SourcePath    string    `json:"source_path"`
	Snapshot      string    `json:"snapshot"`
	CreatedAt     time.Time `json:"created_at"`
	Latest        bool      `json:"latest"`
	Conversations int       `json:"conversations"`
}

// ConversationInfo is one conversation of a snapshot
type ConversationInfo struct {
	Version     string    `json:"version"`
	SourcePath  string    `json:"source_path"`
	Snapshot    string    `json:"snapshot"`
	Latest      bool      `json:"latest"`
	ID          string    `json:"conv_id"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Manager routes operations to the loaded version
type Manager struct {
	layout  snapshot.Layout
	deps    version.Deps
	logger  *slog.Logger
	current *version.Version
}

// New creates a manager over dataDir. Versions it loads share deps.
func New(dataDir string, deps version.Deps) *Manager {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Snapshots == nil {
		deps.Snapshots = snapshot.NewStore(snapshot.WithLogger(deps.Logger))
	}
	return &Manager{
		layout: snapshot.NewLayout(dataDir),
		deps:   deps,
		logger: deps.Logger,
	}
}

// DataDir returns the data root
func (m *Manager) DataDir() string {
	return m.layout.Root
}

// Current returns the label of the loaded version, empty if none
func (m *Manager) Current() string {
	if m.current == nil {
		return ""
	}
	return m.current.Label()
}

// InitVersion builds a new snapshot of label from every file under
// sourcePath and makes it the loaded version
func (m *Manager) InitVersion(ctx context.Context, label, sourcePath string) (models.Snapshot, error) {
	if err := models.ValidateVersionLabel(label); err != nil {
		return models.Snapshot{}, err
	}

	v := version.New(m.layout, label, m.deps)
	snap, err := v.Init(ctx, sourcePath)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("failed to initialize version %s: %w", label, err)
	}

	m.replace(v)
	return snap, nil
}

// StartConversation starts a conversation on the latest snapshot of label.
// An empty label uses the loaded version.
func (m *Manager) StartConversation(ctx context.Context, label string) (string, error) {
	v, err := m.ensureVersion(ctx, label)
	if err != nil {
		return "", err
	}
	return v.StartConversation(ctx)
}

// ContinueConversation resumes conversation id on the latest snapshot of
// label. An empty label uses the loaded version.
func (m *Manager) ContinueConversation(ctx context.Context, label, id string) error {
	v, err := m.ensureVersion(ctx, label)
	if err != nil {
		return err
	}
	return v.ContinueConversation(ctx, id)
}

// UpdateVectorStore indexes what changed in the corpus of label since its
// latest snapshot. An empty label uses the loaded version.
func (m *Manager) UpdateVectorStore(ctx context.Context, label string) (version.UpdateResult, error) {
	return m.UpdateVectorStoreFrom(ctx, label, "")
}

// UpdateVectorStoreFrom is UpdateVectorStore reading the corpus at
// sourcePath, which must be the one the version was built from
func (m *Manager) UpdateVectorStoreFrom(ctx context.Context, label, sourcePath string) (version.UpdateResult, error) {
	v, err := m.ensureVersion(ctx, label)
	if err != nil {
		return version.UpdateResult{}, err
	}
	return v.UpdateFrom(ctx, sourcePath)
}

// Query asks question in the current conversation of the loaded version
func (m *Manager) Query(ctx context.Context, question string) (conversation.Turn, error) {
	if m.current == nil {
		return conversation.Turn{}, ErrNoVersionSelected
	}
	return m.current.Ask(ctx, question)
}

// GetMessages returns the history of conversation id of label. An empty
// label uses the loaded version, an empty id the current conversation.
func (m *Manager) GetMessages(ctx context.Context, label, id string) ([]models.Message, error) {
	v, err := m.ensureVersion(ctx, label)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return v.Messages()
	}
	return v.ConversationMessages(ctx, id)
}

// PendingChanges lists the files an update of label would index and the
// files deleted since its latest snapshot
func (m *Manager) PendingChanges(ctx context.Context, label string) (changed, deleted []string, err error) {
	v, err := m.ensureVersion(ctx, label)
	if err != nil {
		return nil, nil, err
	}
	return v.Pending()
}

// Search returns the k passages of label most similar to query
func (m *Manager) Search(ctx context.Context, label, query string, k int) ([]models.Passage, error) {
	v, err := m.ensureVersion(ctx, label)
	if err != nil {
		return nil, err
	}
	return v.Search(ctx, query, k)
}

// ensureVersion returns the loaded version when label is empty or names
// it, and loads the latest snapshot of label otherwise
func (m *Manager) ensureVersion(ctx context.Context, label string) (*version.Version, error) {
	if label == "" {
		if m.current == nil {
			return nil, ErrNoVersionSelected
		}
		return m.current, nil
	}
	if err := models.ValidateVersionLabel(label); err != nil {
		return nil, err
	}
	if m.current != nil && m.current.Label() == label {
		return m.current, nil
	}

	v := version.New(m.layout, label, m.deps)
	if _, err := v.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load version %s: %w", label, err)
	}
	m.replace(v)
	return v, nil
}

func (m *Manager) replace(v *version.Version) {
	if m.current != nil {
		if err := m.current.Close(); err != nil {
			m.logger.Warn("failed to close version", "version", m.current.Label(), "error", err)
		}
	}
	m.current = v
}

// Close releases the loaded version
func (m *Manager) Close() error {
	if m.current == nil {
		return nil
	}
	err := m.current.Close()
	m.current = nil
	return err
}
