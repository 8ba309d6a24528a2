package cmd

import (
	"fmt"
	"strconv"

	"github.com/sujankapadia/claude-code-utils/internal/cli"

	"github.com/spf13/cobra"
)

var (
	flagSessionsProject string
	flagSessionsLimit   int
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List imported sessions",
	RunE:  runSessions,
}

func init() {
	sessionsCmd.Flags().StringVarP(&flagSessionsProject, "project", "p", "", "Filter to project (substring match)")
	sessionsCmd.Flags().IntVarP(&flagSessionsLimit, "limit", "l", 20, "Number of sessions to show")
	rootCmd.AddCommand(sessionsCmd)
}

func runSessions(cmd *cobra.Command, _ []string) error {
	st, _, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	sessions, err := st.ListSessions(cmd.Context(), flagSessionsProject, flagSessionsLimit)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println("\n  No sessions found. Run `ccu import` first.")
		return nil
	}

	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		rows = append(rows, []string{
			cli.Truncate(s.ID, 12),
			cli.Truncate(s.ProjectName, 18),
			cli.FormatTimestamp(s.StartTime),
			strconv.Itoa(s.MessageCount),
			strconv.Itoa(s.ToolUseCount),
			cli.FormatTokens(s.InputTokens + s.OutputTokens),
		})
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("SESSIONS  showing %d", len(sessions))))
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Session", "Project", "Start", "Msgs", "Tools", "Tokens"},
		Rows:    rows,
	}))

	return nil
}
