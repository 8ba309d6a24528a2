package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sujankapadia/claude-code-utils/internal/cli"
	"github.com/sujankapadia/claude-code-utils/internal/store"

	"github.com/spf13/cobra"
)

var (
	flagSearchProject string
	flagSearchTool    string
	flagSearchSince   string
	flagSearchUntil   string
	flagSearchScope   string
	flagSearchLimit   int
)

var searchCmd = &cobra.Command{
	Use:   "search QUERY",
	Short: "Full-text search over imported conversations",
	Long: "Search message and tool content with FTS5 query syntax. Results are\n" +
		"ranked by relevance; run `ccu reindex` first to pick up new imports.",
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&flagSearchProject, "project", "p", "", "Filter to project (substring match)")
	searchCmd.Flags().StringVarP(&flagSearchTool, "tool", "t", "", "Filter to tool name (substring match)")
	searchCmd.Flags().StringVar(&flagSearchSince, "since", "", "Only matches on or after this date (YYYY-MM-DD)")
	searchCmd.Flags().StringVar(&flagSearchUntil, "until", "", "Only matches on or before this date (YYYY-MM-DD)")
	searchCmd.Flags().StringVarP(&flagSearchScope, "scope", "s", "all", "Content scope: messages, tool-inputs, tool-results, all")
	searchCmd.Flags().IntVarP(&flagSearchLimit, "limit", "l", 20, "Maximum results")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	scope, err := store.ParseScope(flagSearchScope)
	if err != nil {
		return err
	}

	st, _, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	ctx := cmd.Context()

	ok, err := st.HasSearchIndex(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no search index yet; run `ccu reindex` first")
	}

	results, err := st.Search(ctx, store.SearchOptions{
		Query:   strings.Join(args, " "),
		Project: flagSearchProject,
		Tool:    flagSearchTool,
		Since:   flagSearchSince,
		Until:   flagSearchUntil,
		Scope:   scope,
		Limit:   flagSearchLimit,
	})
	if err != nil {
		return err
	}

	if len(results) == 0 {
		fmt.Println("\n  No matches.")
		return nil
	}

	fmt.Println()
	for i, r := range results {
		fmt.Printf("  %s %s %s\n",
			cli.Header(fmt.Sprintf("%d.", i+1)),
			r.ProjectName,
			cli.Muted(fmt.Sprintf("%s  [%s]  %s #%d",
				cli.FormatTimestamp(r.Timestamp), r.Scope, r.SessionID, r.MessageIndex)))
		fmt.Printf("     %s\n\n", cli.Truncate(strings.ReplaceAll(r.Snippet, "\n", " "), 120))
	}
	fmt.Println(cli.Muted("  " + strconv.Itoa(len(results)) + " result(s)"))

	return nil
}
