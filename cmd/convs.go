package cmd

import (
	"fmt"

	"github.com/pders01/docchat/internal/manager"
	"github.com/spf13/cobra"
)

var (
	convsVersion string
	convsJSON    bool
	convsToon    bool
)

var convsCmd = &cobra.Command{
	Use:   "convs",
	Short: "List conversations",
	Long: `List every conversation with the version and snapshot it belongs to.

A conversation belongs to the snapshot it was started in. Once an update
creates a newer snapshot it can no longer be continued.

Examples:
  docchat convs
  docchat convs --version 1.0
  docchat convs --json`,
	Args: cobra.NoArgs,
	RunE: runConvs,
}

func init() {
	rootCmd.AddCommand(convsCmd)

	convsCmd.Flags().StringVar(&convsVersion, "version", "", "Filter by version")
	convsCmd.Flags().BoolVar(&convsJSON, "json", false, "Output as JSON")
	convsCmd.Flags().BoolVar(&convsToon, "toon", false, "Output in LLM-friendly toon format")
}

func runConvs(cmd *cobra.Command, args []string) error {
	m, _, err := openManager()
	if err != nil {
		return err
	}
	defer m.Close()

	all, err := m.ListConversations()
	if err != nil {
		return err
	}

	convs := []manager.ConversationInfo{}
	for _, c := range all {
		if convsVersion != "" && c.Version != convsVersion {
			continue
		}
		convs = append(convs, c)
	}

	if done, err := printStructured(convs, convsJSON, convsToon); done {
		return err
	}

	if len(convs) == 0 {
		fmt.Println("No conversations found")
		return nil
	}

	fmt.Printf("Found %d conversation(s):\n\n", len(convs))
	for _, c := range convs {
		fmt.Printf("  %s\n", c.ID)
		fmt.Printf("    Version:  %s (snapshot %s)\n", c.Version, c.Snapshot)
		fmt.Printf("    Created:  %s\n", c.CreatedAt.Format("2006-01-02 15:04"))
		fmt.Printf("    About:    %s\n", truncate(c.Description, 60))
		if !c.Latest {
			fmt.Println("    (snapshot superseded, cannot be continued)")
		}
		fmt.Println()
	}

	return nil
}
