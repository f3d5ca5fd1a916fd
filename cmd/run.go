package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/hookline/hookline/internal/audit"
	"github.com/hookline/hookline/internal/config"
	"github.com/hookline/hookline/internal/constants"
	"github.com/hookline/hookline/internal/hook"
	"github.com/hookline/hookline/internal/logger"
)

// runHook is the default command: read one event from stdin, decide,
// emit. A response is written on every path, so a non-zero exit only
// ever signals input the engine could not parse.
func runHook(cmd *cobra.Command, args []string) error {
	defer audit.Close()

	dir := rulesDir
	if dir == "" {
		dir = os.Getenv(constants.EnvRulesDir)
	}
	opts := hook.Options{
		DryRun:   dryRun,
		RulesDir: dir,
	}

	if _, err := hook.Process(cmd.Context(), os.Stdin, os.Stdout, os.Stderr, config.Get(), opts); err != nil {
		logger.Error("hook processing failed", "error", err)
		return err
	}
	return nil
}
