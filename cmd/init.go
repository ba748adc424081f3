package cmd

import (
	"errors"
	"fmt"

	"github.com/pders01/docchat/internal/snapshot"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init <version> <source-path>",
	Short: "Index a document directory as a new version",
	Long: `Build the first snapshot of a version from every file under source-path.

Supported formats: .txt, .md, .csv, .html, .htm and .pdf. Other files are
tracked for changes but not indexed.

Running init on an existing version builds a new full snapshot of it.

Examples:
  docchat init 1.0 ~/notes
  docchat init papers ./library`,
	Args: cobra.ExactArgs(2),
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	m, _, err := openManager()
	if err != nil {
		return err
	}
	defer m.Close()

	label, source := args[0], args[1]

	snap, err := m.InitVersion(commandContext(cmd), label, source)
	if err != nil {
		if errors.Is(err, snapshot.ErrSnapshotExists) {
			return fmt.Errorf("%w (snapshots are named by minute, wait a minute and retry)", err)
		}
		return err
	}

	fmt.Printf("✓ Initialized version %s\n", label)
	fmt.Printf("  Source:   %s\n", source)
	fmt.Printf("  Snapshot: %s\n", snap.Path)
	fmt.Println("\nStart chatting with: docchat chat", label)

	return nil
}
