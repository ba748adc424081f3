package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	historyJSON bool
	historyToon bool
)

var historyCmd = &cobra.Command{
	Use:   "history <version> <conversation-id>",
	Short: "Show the messages of a conversation",
	Long: `Print the stored messages of a conversation on the latest snapshot of a
version, oldest first.

Examples:
  docchat history 1.0 3f1c...
  docchat history 1.0 3f1c... --json`,
	Args: cobra.ExactArgs(2),
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Output as JSON")
	historyCmd.Flags().BoolVar(&historyToon, "toon", false, "Output in LLM-friendly toon format")
}

func runHistory(cmd *cobra.Command, args []string) error {
	m, _, err := openManager()
	if err != nil {
		return err
	}
	defer m.Close()

	msgs, err := m.GetMessages(commandContext(cmd), args[0], args[1])
	if err != nil {
		return err
	}

	if done, err := printStructured(msgs, historyJSON, historyToon); done {
		return err
	}

	fmt.Printf("Conversation %s (%d message(s))\n\n", args[1], len(msgs))
	printMessages(msgs)
	return nil
}
