package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	diffJSON bool
	diffToon bool
)

var diffCmd = &cobra.Command{
	Use:   "diff [version]",
	Short: "Show what the next update would index",
	Long: `Compare the source directory of a version against its latest snapshot
without changing anything:
  - files added or modified since the snapshot (indexed by the next update)
  - files deleted since the snapshot (they stay in the index)

Examples:
  docchat diff
  docchat diff 1.0 --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDiff,
}

func init() {
	rootCmd.AddCommand(diffCmd)

	diffCmd.Flags().BoolVar(&diffJSON, "json", false, "Output as JSON")
	diffCmd.Flags().BoolVar(&diffToon, "toon", false, "Output in LLM-friendly toon format")
}

type pendingChanges struct {
	Version string   `json:"version"`
	Changed []string `json:"changed"`
	Deleted []string `json:"deleted"`
}

func runDiff(cmd *cobra.Command, args []string) error {
	m, cfg, err := openManager()
	if err != nil {
		return err
	}
	defer m.Close()

	label := versionArg(args, 0, cfg)

	changed, deleted, err := m.PendingChanges(commandContext(cmd), label)
	if err != nil {
		return err
	}

	diff := pendingChanges{Version: label, Changed: changed, Deleted: deleted}
	if diff.Deleted == nil {
		diff.Deleted = []string{}
	}
	if done, err := printStructured(diff, diffJSON, diffToon); done {
		return err
	}

	if len(changed) == 0 && len(deleted) == 0 {
		fmt.Printf("Version %s is up to date\n", label)
		return nil
	}

	if len(changed) > 0 {
		fmt.Printf("%d file(s) to index:\n", len(changed))
		for _, path := range changed {
			fmt.Printf("  + %s\n", path)
		}
	}
	if len(deleted) > 0 {
		fmt.Printf("Warning: %d deleted file(s) remain in the index:\n", len(deleted))
		for _, path := range deleted {
			fmt.Printf("  - %s\n", path)
		}
	}

	return nil
}
