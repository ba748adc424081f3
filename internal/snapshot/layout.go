package snapshot

import (
	"path/filepath"

	"github.com/pders01/docchat/internal/models"
)

// Record and directory names inside a snapshot.
const (
	ManifestFile         = "files_details.json"
	IndexMetaFile        = "vector_store_meta.json"
	IndexDir             = "vector_store"
	ConversationsDir     = "convs"
	ConversationMetaFile = "conv_meta.json"
	MemoryFile           = "memory.json"
)

// Layout defines the on-disk location of every record under a data root.
// It is the only place paths are assembled.
type Layout struct {
	Root string
}

// NewLayout returns a Layout rooted at dataDir
func NewLayout(dataDir string) Layout {
	return Layout{Root: dataDir}
}

// VersionRoot returns the directory holding all snapshots of a version
func (l Layout) VersionRoot(version string) string {
	return filepath.Join(l.Root, models.VersionDirName(version))
}

// ManifestPath returns the path to files_details.json for a snapshot
func ManifestPath(snapshotPath string) string {
	return filepath.Join(snapshotPath, ManifestFile)
}

// IndexMetaPath returns the path to vector_store_meta.json for a snapshot
func IndexMetaPath(snapshotPath string) string {
	return filepath.Join(snapshotPath, IndexMetaFile)
}

// IndexPath returns the vector index directory for a snapshot
func IndexPath(snapshotPath string) string {
	return filepath.Join(snapshotPath, IndexDir)
}

// ConversationsPath returns the conversations collection for a snapshot
func ConversationsPath(snapshotPath string) string {
	return filepath.Join(snapshotPath, ConversationsDir)
}

// ConversationPath returns the directory of a single session
func ConversationPath(snapshotPath, convID string) string {
	return filepath.Join(ConversationsPath(snapshotPath), convID)
}

// ConversationMetaPath returns the path to conv_meta.json inside a session directory
func ConversationMetaPath(convDir string) string {
	return filepath.Join(convDir, ConversationMetaFile)
}

// MemoryPath returns the path to memory.json inside a session directory
func MemoryPath(convDir string) string {
	return filepath.Join(convDir, MemoryFile)
}
