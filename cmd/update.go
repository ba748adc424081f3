package cmd

import (
	"errors"
	"fmt"

	"github.com/pders01/docchat/internal/snapshot"
	"github.com/spf13/cobra"
)

var updateSource string

var updateCmd = &cobra.Command{
	Use:   "update [version]",
	Short: "Index the files changed since the latest snapshot",
	Long: `Create a new snapshot of a version holding the previous index plus the
files added or modified since the latest snapshot. Unchanged files are not
embedded again.

If nothing changed no snapshot is created. If indexing fails the new
snapshot is removed and the previous one stays active.

Files deleted from the source directory stay in the index.

Examples:
  docchat update
  docchat update 1.0
  docchat update 1.0 --source ~/notes`,
	Args: cobra.MaximumNArgs(1),
	RunE: runUpdate,
}

func init() {
	rootCmd.AddCommand(updateCmd)

	updateCmd.Flags().StringVar(&updateSource, "source", "", "Source directory (must match the one the version was built from)")
}

func runUpdate(cmd *cobra.Command, args []string) error {
	m, cfg, err := openManager()
	if err != nil {
		return err
	}
	defer m.Close()

	label := versionArg(args, 0, cfg)

	res, err := m.UpdateVectorStoreFrom(commandContext(cmd), label, updateSource)
	if err != nil {
		if errors.Is(err, snapshot.ErrSnapshotExists) {
			return fmt.Errorf("%w (snapshots are named by minute, wait a minute and retry)", err)
		}
		return err
	}

	if res.NoChanges {
		fmt.Printf("No changes in version %s, snapshot %s is current\n", label, res.Snapshot.Name)
		return nil
	}

	fmt.Printf("✓ Updated version %s\n", label)
	fmt.Printf("  Snapshot: %s\n", res.Snapshot.Path)
	fmt.Printf("  Indexed %d changed file(s):\n", len(res.Changed))
	for _, path := range res.Changed {
		fmt.Printf("    %s\n", path)
	}
	if len(res.Deleted) > 0 {
		fmt.Printf("  %d deleted file(s) remain in the index\n", len(res.Deleted))
	}

	return nil
}
