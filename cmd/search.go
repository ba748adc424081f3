package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	searchVersion string
	searchK       int
	searchJSON    bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Show the passages most similar to a query",
	Long: `Search the latest snapshot of a version by semantic similarity and print
the matching passages with their scores. No answer is generated.

Examples:
  docchat search "retry policy"
  docchat search --version 1.0 -k 10 "retry policy"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringVar(&searchVersion, "version", "", "Version to search (default from config)")
	searchCmd.Flags().IntVarP(&searchK, "k", "k", 5, "Number of passages")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Output as JSON")
}

func runSearch(cmd *cobra.Command, args []string) error {
	m, cfg, err := openManager()
	if err != nil {
		return err
	}
	defer m.Close()

	label := searchVersion
	if label == "" {
		label = cfg.DefaultVersion
	}
	query := strings.Join(args, " ")

	passages, err := m.Search(commandContext(cmd), label, query, searchK)
	if err != nil {
		return err
	}

	if done, err := printStructured(passages, searchJSON, false); done {
		return err
	}

	if len(passages) == 0 {
		fmt.Println("No matching passages found")
		return nil
	}

	fmt.Printf("Found %d passage(s):\n\n", len(passages))
	for i, p := range passages {
		location := p.Source
		if p.Location != "" {
			location += " (" + p.Location + ")"
		}
		fmt.Printf("%d. %s\n", i+1, location)
		fmt.Printf("   Score: %.3f\n", p.Score)
		fmt.Printf("   %s\n\n", truncate(strings.Join(strings.Fields(p.Text), " "), 200))
	}

	return nil
}
