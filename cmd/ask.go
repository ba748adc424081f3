package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	askVersion string
	askConv    string
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a single question",
	Long: `Ask one question and print the answer. Without --conv a new conversation
is started and its id printed, so follow-up questions can pass it.

Examples:
  docchat ask "What did I write about caching?"
  docchat ask --version 1.0 --conv 3f1c... "And about invalidation?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().StringVar(&askVersion, "version", "", "Version to ask (default from config)")
	askCmd.Flags().StringVar(&askConv, "conv", "", "Conversation id to continue")
}

func runAsk(cmd *cobra.Command, args []string) error {
	m, cfg, err := openManager()
	if err != nil {
		return err
	}
	defer m.Close()

	ctx := commandContext(cmd)
	label := askVersion
	if label == "" {
		label = cfg.DefaultVersion
	}
	question := strings.Join(args, " ")

	id := askConv
	if id != "" {
		err = m.ContinueConversation(ctx, label, id)
	} else {
		id, err = m.StartConversation(ctx, label)
	}
	if err != nil {
		return err
	}

	turn, err := m.Query(ctx, question)
	if err != nil {
		return err
	}

	fmt.Println(turn.Answer)
	for _, w := range turn.Warnings {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", w)
	}
	fmt.Fprintf(os.Stderr, "conversation: %s\n", id)

	return nil
}
