package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hookline/hookline/internal/config"
	"github.com/hookline/hookline/internal/knowledge"
)

var rememberTitle string

var rememberCmd = &cobra.Command{
	Use:   "remember <note text>",
	Short: "Store a note for memory rules to surface later",
	Long: `Remember adds a note to the local knowledge store.

Rules with a memory action search this store with keywords from the
submitted prompt and inject matching notes as context. The store lives
next to the configuration (knowledge.db by default).`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRemember,
}

func init() {
	rootCmd.AddCommand(rememberCmd)
	rememberCmd.Flags().StringVarP(&rememberTitle, "title", "t", "", "Short title for the note (defaults to its first words)")
}

func runRemember(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	if cfg == nil {
		return fmt.Errorf("failed to load configuration")
	}

	text := strings.TrimSpace(strings.Join(args, " "))
	if text == "" {
		return fmt.Errorf("note text is empty")
	}

	title := rememberTitle
	if title == "" {
		title = noteTitle(text)
	}

	store, err := knowledge.Open(cfg.KnowledgePath)
	if err != nil {
		return fmt.Errorf("failed to open knowledge store: %w", err)
	}
	defer store.Close()

	if err := store.Add(title, text); err != nil {
		return fmt.Errorf("failed to store note: %w", err)
	}

	fmt.Printf("Remembered %q in %s\n", title, cfg.KnowledgePath)
	return nil
}

// noteTitle derives a short title from the first words of the note.
func noteTitle(text string) string {
	words := strings.Fields(text)
	if len(words) > 6 {
		words = words[:6]
	}
	return strings.Join(words, " ")
}
