package conversation

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/pders01/docchat/internal/models"
	"github.com/pders01/docchat/internal/snapshot"
)

// List returns the metadata of every session under the snapshot at
// snapshotPath, oldest first. Sessions with unreadable metadata are skipped
// and logged.
func List(snapshotPath string, logger *slog.Logger) ([]models.ConversationMeta, error) {
	if logger == nil {
		logger = slog.Default()
	}

	entries, err := os.ReadDir(snapshot.ConversationsPath(snapshotPath))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read conversations: %w", err)
	}

	var metas []models.ConversationMeta
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := ReadMeta(snapshot.ConversationPath(snapshotPath, entry.Name()))
		if err != nil {
			logger.Warn("skipping conversation", "id", entry.Name(), "error", err)
			continue
		}
		metas = append(metas, meta)
	}

	sort.SliceStable(metas, func(i, j int) bool {
		if metas[i].CreatedAt.Equal(metas[j].CreatedAt) {
			return metas[i].ID < metas[j].ID
		}
		return metas[i].CreatedAt.Before(metas[j].CreatedAt)
	})
	return metas, nil
}
