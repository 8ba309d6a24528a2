package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sujankapadia/claude-code-utils/internal/config"
	"github.com/sujankapadia/claude-code-utils/internal/llm"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

var (
	flagAnalyzeModel string
	flagAnalyzeSave  bool
)

const analyzeSystemPrompt = `You summarize AI coding-assistant conversations.
Given a transcript, produce a concise markdown summary covering: the goal of
the session, the key decisions made, the tools used and what they changed,
and any unresolved follow-ups. Be specific; quote file names and commands
where relevant.`

var analyzeCmd = &cobra.Command{
	Use:   "analyze SESSION_ID",
	Short: "Summarize one session with an LLM",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&flagAnalyzeModel, "model", "m", "", "Override the analysis model")
	analyzeCmd.Flags().BoolVar(&flagAnalyzeSave, "save", true, "Save the summary under the analysis output dir")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	st, cfg, err := openStore()
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

	var b strings.Builder
	fmt.Fprintf(&b, "Project: %s\nSession: %s\n\n", sess.ProjectName, sess.ID)
	for _, m := range messages {
		fmt.Fprintf(&b, "[%s]\n%s\n\n", m.Role, m.Content)
	}

	client, err := llm.NewClient(cfg.Analysis.BaseURL, config.APIKey(cfg))
	if err != nil {
		return err
	}

	model := cfg.Analysis.Model
	if flagAnalyzeModel != "" {
		model = flagAnalyzeModel
	}

	if !flagQuiet {
		fmt.Fprintf(os.Stderr, "  Summarizing %d messages with %s...\n", len(messages), model)
	}

	summary, err := client.Complete(ctx, model, analyzeSystemPrompt, b.String())
	if err != nil {
		return err
	}

	if flagAnalyzeSave {
		outDir := cfg.Analysis.OutputDir
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return fmt.Errorf("creating analysis dir: %w", err)
		}
		outPath := filepath.Join(outDir, fmt.Sprintf("%s-%s.md", sessionID, time.Now().Format("20060102-150405")))
		if err := os.WriteFile(outPath, []byte(summary), 0o644); err != nil {
			return fmt.Errorf("writing analysis: %w", err)
		}
		if !flagQuiet {
			fmt.Fprintf(os.Stderr, "  Saved to %s\n", outPath)
		}
	}

	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		fmt.Println(summary)
		return nil
	}
	rendered, err := r.Render(summary)
	if err != nil {
		fmt.Println(summary)
		return nil
	}
	fmt.Print(rendered)

	return nil
}
