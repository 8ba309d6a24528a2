package cmd

import (
	"fmt"
	"strings"

	"github.com/sujankapadia/claude-code-utils/internal/cli"
	"github.com/sujankapadia/claude-code-utils/internal/store"

	"github.com/spf13/cobra"
)

var flagShowTools bool

var showCmd = &cobra.Command{
	Use:   "show SESSION_ID",
	Short: "Print one session's conversation",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	showCmd.Flags().BoolVar(&flagShowTools, "tools", false, "Include tool inputs and results")
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	st, _, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	ctx := cmd.Context()
	sessionID := args[0]

	sess, err := st.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	messages, err := st.LoadMessages(ctx, sessionID)
	if err != nil {
		return err
	}

	toolsByIndex := make(map[int][]store.ToolUseRow)
	if flagShowTools {
		toolUses, err := st.LoadToolUses(ctx, sessionID)
		if err != nil {
			return err
		}
		for _, tu := range toolUses {
			toolsByIndex[tu.MessageIndex] = append(toolsByIndex[tu.MessageIndex], tu)
		}
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("%s  %s", sess.ProjectName, cli.Truncate(sess.ID, 20))))
	fmt.Println(cli.Muted(fmt.Sprintf("  %s → %s  %d messages, %d tool uses",
		cli.FormatTimestamp(sess.StartTime), cli.FormatTimestamp(sess.EndTime),
		sess.MessageCount, sess.ToolUseCount)))
	fmt.Println()

	for _, m := range messages {
		fmt.Printf("%s %s\n", cli.Header(fmt.Sprintf("[%d] %s", m.Index, m.Role)),
			cli.Muted(cli.FormatTimestamp(m.Timestamp)))
		for _, line := range strings.Split(m.Content, "\n") {
			fmt.Printf("  %s\n", line)
		}

		for _, tu := range toolsByIndex[m.Index] {
			status := "ok"
			if tu.IsError {
				status = "error"
			}
			if tu.Orphan {
				status += ", orphaned result"
			}
			fmt.Printf("  %s\n", cli.Muted(fmt.Sprintf("↳ %s (%s)", tu.Name, status)))
			if tu.Input != "" {
				fmt.Printf("    %s\n", cli.Muted(cli.Truncate(tu.Input, 160)))
			}
			if tu.HasResult {
				fmt.Printf("    %s\n", cli.Muted(cli.Truncate(strings.ReplaceAll(tu.Result, "\n", " "), 160)))
			}
		}
		fmt.Println()
	}

	return nil
}
