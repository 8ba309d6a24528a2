package cmd

import (
	"fmt"
	"strconv"

	"github.com/sujankapadia/claude-code-utils/internal/cli"

	"github.com/spf13/cobra"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List projects with session counts",
	RunE:  runProjects,
}

func init() {
	rootCmd.AddCommand(projectsCmd)
}

func runProjects(cmd *cobra.Command, _ []string) error {
	st, _, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	projects, err := st.ListProjects(cmd.Context())
	if err != nil {
		return err
	}
	if len(projects) == 0 {
		fmt.Println("\n  No projects found. Run `ccu import` first.")
		return nil
	}

	rows := make([][]string, 0, len(projects))
	for _, p := range projects {
		rows = append(rows, []string{
			cli.Truncate(p.Name, 24),
			strconv.Itoa(p.SessionCount),
			cli.FormatNumber(int64(p.MessageCount)),
		})
	}

	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Projects",
		Headers: []string{"Project", "Sessions", "Messages"},
		Rows:    rows,
	}))

	return nil
}
