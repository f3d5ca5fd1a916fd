package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hookline/hookline/internal/config"
	"github.com/hookline/hookline/internal/constants"
	"github.com/hookline/hookline/internal/rule"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize hookline configuration and starter rules",
	Long: `Initialize creates the hookline configuration file and a set of starter
rule documents.

Files are written under ~/.config/hookline/ (or the directory given by
the HOOKLINE_CONFIG environment variable). Existing rule files are left
alone; use --force to overwrite the configuration file itself.`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	configDir, err := config.GetConfigDir()
	if err != nil {
		return fmt.Errorf("failed to get config directory: %w", err)
	}

	configPath := filepath.Join(configDir, constants.ConfigFileName)

	if _, err := os.Stat(configPath); err == nil && !initForce {
		return fmt.Errorf("config file already exists at %s (use --force to overwrite)", configPath)
	}

	if err := os.MkdirAll(configDir, constants.DirMode); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(configPath, config.GetDefaultConfig(), constants.FileMode); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	rulesPath := filepath.Join(configDir, constants.RulesSubdir)
	if err := rule.WriteDefaults(rulesPath); err != nil {
		return fmt.Errorf("failed to write starter rules: %w", err)
	}

	fmt.Printf("Configuration written to: %s\n", configPath)
	fmt.Printf("Starter rules written to: %s\n", rulesPath)
	fmt.Println("Run 'hookline validate' to verify your rule set.")

	return nil
}
