package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pders01/docchat/internal/models"
	"github.com/spf13/cobra"
)

var chatResume string

var chatCmd = &cobra.Command{
	Use:   "chat [version]",
	Short: "Start or resume an interactive conversation",
	Long: `Chat with the latest snapshot of a version. Every answer is saved, so a
conversation can be resumed later with --resume.

Commands inside the chat:
  /history  show the conversation so far
  /exit     leave the chat

Examples:
  docchat chat
  docchat chat 1.0
  docchat chat 1.0 --resume 3f1c...`,
	Args: cobra.MaximumNArgs(1),
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().StringVar(&chatResume, "resume", "", "Conversation id to resume")
}

func runChat(cmd *cobra.Command, args []string) error {
	m, cfg, err := openManager()
	if err != nil {
		return err
	}
	defer m.Close()

	ctx := commandContext(cmd)
	label := versionArg(args, 0, cfg)

	id := chatResume
	if id != "" {
		if err := m.ContinueConversation(ctx, label, id); err != nil {
			return err
		}
		fmt.Printf("Resumed conversation %s on version %s\n", id, label)
	} else {
		id, err = m.StartConversation(ctx, label)
		if err != nil {
			return err
		}
		fmt.Printf("Started conversation %s on version %s\n", id, label)
	}
	fmt.Println("Type /history to show the conversation, /exit to leave.")
	fmt.Println()

	var in io.Reader = os.Stdin
	if cmd != nil {
		in = cmd.InOrStdin()
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/exit", "/quit":
			return nil
		case "/history":
			msgs, err := m.GetMessages(ctx, "", "")
			if err != nil {
				return err
			}
			printMessages(msgs)
			continue
		}

		turn, err := m.Query(ctx, line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}
		fmt.Printf("\n%s\n\n", turn.Answer)
		for _, w := range turn.Warnings {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", w)
		}
	}

	fmt.Println()
	return scanner.Err()
}

func printMessages(msgs []models.Message) {
	if len(msgs) == 0 {
		fmt.Println("No messages yet")
		return
	}
	for _, msg := range msgs {
		speaker := "You"
		if msg.Role == models.RoleAssistant {
			speaker = "Assistant"
		}
		fmt.Printf("%s: %s\n\n", speaker, msg.Content)
	}
}
