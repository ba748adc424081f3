package manager

import (
	"github.com/pders01/docchat/internal/conversation"
	"github.com/pders01/docchat/internal/models"
	"github.com/pders01/docchat/internal/snapshot"
)

// ListVersions returns one row per snapshot on disk, grouped by version and
// oldest first. An empty or missing data root yields no rows.
func (m *Manager) ListVersions() ([]VersionInfo, error) {
	rows := []VersionInfo{}
	err := m.walk(func(snap models.Snapshot, source string, latest bool) error {
		convs, err := conversation.List(snap.Path, m.logger)
		if err != nil {
			return err
		}
		rows = append(rows, VersionInfo{
			Version:       snap.Version,
			SourcePath:    source,
			Snapshot:      snap.Name,
			CreatedAt:     snap.Timestamp,
			Latest:        latest,
			Conversations: len(convs),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListConversations returns one row per conversation across every snapshot
func (m *Manager) ListConversations() ([]ConversationInfo, error) {
	rows := []ConversationInfo{}
	err := m.walk(func(snap models.Snapshot, source string, latest bool) error {
		convs, err := conversation.List(snap.Path, m.logger)
		if err != nil {
			return err
		}
		for _, c := range convs {
			rows = append(rows, ConversationInfo{
				Version:     snap.Version,
				SourcePath:  source,
				Snapshot:    snap.Name,
				Latest:      latest,
				ID:          c.ID,
				Description: c.Description,
				CreatedAt:   c.CreatedAt,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// walk calls fn for every snapshot of every version with its recorded
// source path
func (m *Manager) walk(fn func(snap models.Snapshot, source string, latest bool) error) error {
	versions, err := m.deps.Snapshots.ListVersions(m.layout.Root)
	if err != nil {
		return err
	}

	for _, label := range versions {
		snaps, err := m.deps.Snapshots.List(m.layout.VersionRoot(label))
		if err != nil {
			return err
		}
		for i, snap := range snaps {
			var meta models.IndexMeta
			if err := snapshot.ReadJSON(snapshot.IndexMetaPath(snap.Path), snapshot.IndexMetaSchema, &meta); err != nil {
				m.logger.Warn("snapshot has no readable provenance", "snapshot", snap.Path, "error", err)
			}
			if err := fn(snap, meta.SourcePath, i == len(snaps)-1); err != nil {
				return err
			}
		}
	}
	return nil
}
