package cmd

import (
	"fmt"

	"github.com/sujankapadia/claude-code-utils/internal/cli"

	"github.com/spf13/cobra"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the full-text search index",
	Long: "Drop and repopulate the search index from the messages and tool_uses\n" +
		"tables. The index is derived data: a failed rebuild never touches the\n" +
		"imported conversations.",
	RunE: runReindex,
}

func init() {
	rootCmd.AddCommand(reindexCmd)
}

func runReindex(cmd *cobra.Command, _ []string) error {
	st, _, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	counts, err := st.RebuildSearchIndex(cmd.Context())
	if err != nil {
		return fmt.Errorf("rebuilding search index: %w", err)
	}

	fmt.Printf("  Indexed %s messages, %s tool uses\n",
		cli.FormatNumber(counts.Messages), cli.FormatNumber(counts.ToolUses))
	return nil
}
