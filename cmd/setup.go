package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/pders01/docchat/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	setupForce bool
	setupPrint bool
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create a default config file",
	Long: `Write the default settings to the config file so they can be edited.

The file is $HOME/.config/docchat/config.toml unless --config is given.
Every setting can also be set from the environment with the DOCCHAT_ prefix,
for example DOCCHAT_OLLAMA_CHAT_MODEL, or from a .env file.

With --print the effective settings are printed as YAML instead.

Examples:
  docchat setup
  docchat setup --print`,
	Args: cobra.NoArgs,
	RunE: runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)

	setupCmd.Flags().BoolVar(&setupForce, "force", false, "Overwrite an existing config file")
	setupCmd.Flags().BoolVar(&setupPrint, "print", false, "Print the effective settings as YAML")
}

func runSetup(cmd *cobra.Command, args []string) error {
	if setupPrint {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		output, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal YAML: %w", err)
		}
		fmt.Print(string(output))
		return nil
	}

	configPath := cfgFile
	if configPath == "" {
		dir, err := configDir()
		if err != nil {
			return err
		}
		configPath = filepath.Join(dir, "config.toml")
	}

	if _, err := os.Stat(configPath); err == nil && !setupForce {
		fmt.Printf("Config already exists: %s\n", configPath)
		fmt.Println("  Use --force to overwrite it")
		return nil
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config.Default()); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(configPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	fmt.Printf("✓ Created default config: %s\n", configPath)
	return nil
}
