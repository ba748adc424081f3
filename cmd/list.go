package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	listJSON bool
	listToon bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all versions and their snapshots",
	Long: `List every snapshot of every version with the source directory it was
built from. The latest snapshot of a version is the one chat and update use.

Examples:
  docchat list
  docchat list --json
  docchat list --toon`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output as JSON")
	listCmd.Flags().BoolVar(&listToon, "toon", false, "Output in LLM-friendly toon format")
}

func runList(cmd *cobra.Command, args []string) error {
	m, _, err := openManager()
	if err != nil {
		return err
	}
	defer m.Close()

	versions, err := m.ListVersions()
	if err != nil {
		return err
	}

	if done, err := printStructured(versions, listJSON, listToon); done {
		return err
	}

	if len(versions) == 0 {
		fmt.Println("No versions found")
		return nil
	}

	fmt.Printf("Found %d snapshot(s):\n\n", len(versions))
	current := ""
	for _, v := range versions {
		if v.Version != current {
			current = v.Version
			fmt.Printf("  %s\n", v.Version)
			fmt.Printf("    Source: %s\n", v.SourcePath)
		}
		marker := " "
		if v.Latest {
			marker = "*"
		}
		fmt.Printf("   %s %s  (%d conversation(s))\n", marker, v.Snapshot, v.Conversations)
	}
	fmt.Println("\n* latest snapshot")

	return nil
}
