package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hookline/hookline/internal/config"
	"github.com/hookline/hookline/internal/rule"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the rule set and show what loaded",
	Long: `Validate loads the configuration and every rule document, then reports
which rules compiled and why the rest were rejected.

This is useful for:
- Checking rule front-matter syntax after editing
- Seeing the priority order rules will be evaluated in
- Debugging why a rule never fires`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	if cfg == nil {
		return fmt.Errorf("failed to load configuration")
	}

	dir := cfg.RulesDir
	if rulesDir != "" {
		dir = rulesDir
	}

	var docs []rule.Document
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		fmt.Printf("Rules directory %s does not exist; showing embedded defaults.\n\n", dir)
		docs = rule.DefaultDocuments()
	} else {
		docs = rule.LoadDir(dir)
	}

	store, rejected := rule.Load(docs)

	fmt.Printf("Loaded %d rules from %s\n\n", store.Len(), dir)
	for _, r := range store.All() {
		cooldown := ""
		if r.Cooldown > 0 {
			cooldown = fmt.Sprintf("  cooldown=%s", r.Cooldown)
		}
		fmt.Printf("  [%3d] %-30s %s -> %s%s\n", r.Priority, r.Name, r.EventKind, r.Action.Kind, cooldown)
	}

	if len(rejected) > 0 {
		fmt.Printf("\nRejected %d rules:\n", len(rejected))
		for _, rej := range rejected {
			fmt.Printf("  - %s (%s)\n", rej.Name, rej.Path)
			for _, reason := range rej.Reasons {
				fmt.Printf("      %s\n", reason)
			}
		}
		return fmt.Errorf("%d rules failed validation", len(rejected))
	}

	fmt.Println("\nAll rules valid!")
	return nil
}
