package cmd

import (
	"fmt"

	"github.com/pders01/docchat/internal/ollama"
	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that the model server is reachable and has the models",
	Long: `Verify the local setup:
  - the Ollama server answers at the configured URL
  - the embedding and chat models are pulled

Example:
  docchat doctor`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	fmt.Printf("Data directory: %s\n", cfg.DataDir)

	client, err := newOllamaClient(cfg)
	if err != nil {
		return err
	}

	if !ollama.IsAvailable(client.URL()) {
		fmt.Printf("✗ Ollama is not reachable at %s\n", client.URL())
		fmt.Println("  Start it with: ollama serve")
		return fmt.Errorf("ollama unavailable")
	}
	fmt.Printf("✓ Ollama is running at %s\n", client.URL())

	ctx := commandContext(cmd)
	missing := 0
	for _, model := range []string{client.EmbedModel(), client.ChatModel()} {
		if err := client.CheckModel(ctx, model); err != nil {
			fmt.Printf("✗ Model %s: %v\n", model, err)
			fmt.Printf("  Pull it with: ollama pull %s\n", model)
			missing++
			continue
		}
		fmt.Printf("✓ Model %s is available\n", model)
	}

	if missing > 0 {
		return fmt.Errorf("%d model(s) missing", missing)
	}
	return nil
}
