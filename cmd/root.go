// Package cmd implements the CLI commands for hookline.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/hookline/hookline/internal/audit"
	"github.com/hookline/hookline/internal/config"
	"github.com/hookline/hookline/internal/logger"
)

var (
	// Global flags
	verbose    bool
	dryRun     bool
	noAuditLog bool
	rulesDir   string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "hookline",
	Short: "Rule-driven hook engine for Claude Code events",
	Long: `hookline evaluates one Claude Code hook event against your rule set and
emits a single merged decision.

When called without arguments, it reads an event JSON from stdin and writes
the decision JSON to stdout. Rules are Markdown files with YAML front-matter
in ~/.config/hookline/rules/.

Usage in ~/.claude/settings.json:
  "hooks": {
    "PreToolUse": [{
      "hooks": [{"type": "command", "command": "hookline"}]
    }],
    "UserPromptSubmit": [{
      "hooks": [{"type": "command", "command": "hookline"}]
    }]
  }

One entry per event kind you want handled; the same binary serves them all.`,
	// Run the hook by default when no subcommand is given
	RunE: runHook,
	// Silence usage on errors
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Initialize before running any command
	cobra.OnInitialize(initApp)

	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output (debug logging)")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Print the decision to stderr instead of emitting JSON")
	rootCmd.PersistentFlags().BoolVar(&noAuditLog, "no-audit-log", false, "Disable audit logging")
	rootCmd.PersistentFlags().StringVar(&rulesDir, "rules-dir", "", "Load rules from this directory instead of the configured one")
}

// initApp initializes the application (logger, config, audit)
func initApp() {
	logger.Init(logger.Options{Verbose: verbose})

	config.Init()

	cfg := config.Get()
	disable := noAuditLog || !cfg.Audit.Enabled
	audit.Init(cfg.Audit.Path, disable)
	if cfg.Audit.MaxSize > 0 {
		audit.SetMaxSize(cfg.Audit.MaxSize)
	}
}

// IsVerbose returns whether verbose mode is enabled
func IsVerbose() bool {
	return verbose
}

// IsDryRun returns whether dry-run mode is enabled
func IsDryRun() bool {
	return dryRun
}
