package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/sujankapadia/claude-code-utils/internal/cli"
	"github.com/sujankapadia/claude-code-utils/internal/pipeline"

	"github.com/spf13/cobra"
)

var flagImportFile string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import transcripts into the database",
	Long: "Scan the conversations root (or a single file with --file) and merge\n" +
		"every session into the database. Safe to re-run: unchanged data is\n" +
		"skipped, grown sessions gain only their new messages.",
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVarP(&flagImportFile, "file", "f", "", "Import a single transcript file")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, _ []string) error {
	st, cfg, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	imp := &pipeline.Importer{Store: st}
	ctx := cmd.Context()

	var report *pipeline.RunReport
	if flagImportFile != "" {
		report, err = imp.ImportFile(ctx, flagImportFile)
	} else {
		if !flagQuiet {
			fmt.Fprintf(os.Stderr, "  Scanning %s...\n", cfg.General.ConversationsDir)
		}
		report, err = imp.ImportAll(ctx, cfg.General.ConversationsDir, progress)
	}
	if err != nil {
		return err
	}
	if !flagQuiet {
		fmt.Fprintf(os.Stderr, "\r%40s\r", "")
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("IMPORT  %d files, %d projects", report.FilesScanned, report.ProjectCount)))
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Delta", "Count"},
		Rows: [][]string{
			{"Sessions created", strconv.Itoa(report.SessionsCreated)},
			{"Sessions updated", strconv.Itoa(report.SessionsUpdated)},
			{"Messages inserted", strconv.Itoa(report.MessagesInserted)},
			{"Messages skipped", strconv.Itoa(report.MessagesSkipped)},
			{"Tool uses inserted", strconv.Itoa(report.ToolUsesInserted)},
			{"Tool uses completed", strconv.Itoa(report.ToolUsesCompleted)},
			{"Malformed lines", strconv.Itoa(report.LinesSkipped)},
		},
	}))

	if len(report.Failures) > 0 {
		fmt.Println()
		fmt.Println(cli.Error(fmt.Sprintf("  %d file(s) failed:", len(report.Failures))))
		for _, f := range report.Failures {
			fmt.Printf("    %s: %s\n", f.Path, f.Reason)
		}
		return fmt.Errorf("%d file(s) failed to import", len(report.Failures))
	}

	return nil
}
