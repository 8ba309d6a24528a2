package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sujankapadia/claude-code-utils/internal/store"
)

func newTestImporter(t *testing.T) *Importer {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return &Importer{Store: st}
}

func writeTranscript(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestImportFile_Idempotent(t *testing.T) {
	imp := newTestImporter(t)
	ctx := context.Background()

	dir := filepath.Join(t.TempDir(), "-Users-x-dev-proj")
	path := writeTranscript(t, dir, "s1.jsonl", conversationLines()...)

	first, err := imp.ImportFile(ctx, path)
	if err != nil {
		t.Fatalf("first import: %v", err)
	}
	if first.SessionsCreated != 1 || first.SessionsUpdated != 0 {
		t.Errorf("run 1 sessions = %d created / %d updated, want 1/0",
			first.SessionsCreated, first.SessionsUpdated)
	}
	if first.MessagesInserted != 6 || first.MessagesSkipped != 0 {
		t.Errorf("run 1 messages = %d inserted / %d skipped, want 6/0",
			first.MessagesInserted, first.MessagesSkipped)
	}
	if first.ToolUsesInserted != 1 {
		t.Errorf("run 1 tool uses inserted = %d, want 1", first.ToolUsesInserted)
	}

	second, err := imp.ImportFile(ctx, path)
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	if second.SessionsCreated != 0 || second.SessionsUpdated != 1 {
		t.Errorf("run 2 sessions = %d created / %d updated, want 0/1",
			second.SessionsCreated, second.SessionsUpdated)
	}
	if second.MessagesInserted != 0 || second.MessagesSkipped != 6 {
		t.Errorf("run 2 messages = %d inserted / %d skipped, want 0/6",
			second.MessagesInserted, second.MessagesSkipped)
	}
	if second.ToolUsesInserted != 0 || second.ToolUsesCompleted != 0 {
		t.Errorf("run 2 tool uses = %d inserted / %d completed, want 0/0",
			second.ToolUsesInserted, second.ToolUsesCompleted)
	}
}

func TestImportFile_GrowingFileCompletesToolUse(t *testing.T) {
	imp := newTestImporter(t)
	ctx := context.Background()

	dir := filepath.Join(t.TempDir(), "-Users-x-dev-proj")
	lines := conversationLines()

	// First four events: the tool invocation is persisted without a result.
	path := writeTranscript(t, dir, "s1.jsonl", lines[:4]...)
	first, err := imp.ImportFile(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if first.MessagesInserted != 4 {
		t.Errorf("run 1 messages inserted = %d, want 4", first.MessagesInserted)
	}
	if first.ToolUsesInserted != 1 || first.ToolUsesCompleted != 0 {
		t.Errorf("run 1 tool uses = %+v", first.Delta)
	}

	// The producer appends the rest, including the trailing tool result.
	path = writeTranscript(t, dir, "s1.jsonl", lines...)
	second, err := imp.ImportFile(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if second.MessagesInserted != 2 || second.MessagesSkipped != 4 {
		t.Errorf("run 2 messages = %d inserted / %d skipped, want 2/4",
			second.MessagesInserted, second.MessagesSkipped)
	}
	if second.ToolUsesInserted != 0 || second.ToolUsesCompleted != 1 {
		t.Errorf("run 2 tool uses = %d inserted / %d completed, want 0/1",
			second.ToolUsesInserted, second.ToolUsesCompleted)
	}

	// The result filled the existing row; no duplicate row appeared.
	tus, err := imp.Store.LoadToolUses(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(tus) != 1 {
		t.Fatalf("tool use rows = %d, want 1", len(tus))
	}
	if !tus[0].HasResult || tus[0].Result != "file.txt" || tus[0].IsError {
		t.Errorf("tool use = %+v", tus[0])
	}
}

func TestImportFile_StaleReadNeverErasesProgress(t *testing.T) {
	imp := newTestImporter(t)
	ctx := context.Background()

	dir := filepath.Join(t.TempDir(), "-Users-x-dev-proj")
	lines := conversationLines()

	path := writeTranscript(t, dir, "s1.jsonl", lines...)
	if _, err := imp.ImportFile(ctx, path); err != nil {
		t.Fatal(err)
	}
	full, err := imp.Store.GetSession(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}

	// Re-import from a truncated copy of the same session.
	path = writeTranscript(t, dir, "s1.jsonl", lines[:2]...)
	if _, err := imp.ImportFile(ctx, path); err != nil {
		t.Fatal(err)
	}

	after, err := imp.Store.GetSession(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if after.MessageCount < full.MessageCount {
		t.Errorf("message_count decreased: %d -> %d", full.MessageCount, after.MessageCount)
	}
	if after.EndTime < full.EndTime {
		t.Errorf("end_time decreased: %s -> %s", full.EndTime, after.EndTime)
	}

	msgs, err := imp.Store.LoadMessages(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 6 {
		t.Fatalf("messages = %d, want all 6 preserved", len(msgs))
	}
	for i, m := range msgs {
		if m.Index != i {
			t.Errorf("message_index gap at %d (got %d)", i, m.Index)
		}
	}
}

func TestImportAll(t *testing.T) {
	imp := newTestImporter(t)
	ctx := context.Background()
	root := t.TempDir()

	writeTranscript(t, filepath.Join(root, "-Users-x-dev-alpha"), "a1.jsonl", conversationLines()...)
	writeTranscript(t, filepath.Join(root, "-Users-x-dev-alpha"), "a2.jsonl",
		`{"type":"user","sessionId":"a2","timestamp":"2025-06-02T09:00:00Z","message":{"role":"user","content":"short session"}}`,
		`not json`,
	)
	writeTranscript(t, filepath.Join(root, "-Users-x-dev-beta"), "b1.jsonl",
		`{"type":"user","sessionId":"b1","timestamp":"2025-06-03T09:00:00Z","message":{"role":"user","content":"beta session"}}`,
	)

	report, err := imp.ImportAll(ctx, root, nil)
	if err != nil {
		t.Fatal(err)
	}
	if report.Failed() {
		t.Fatalf("unexpected failures: %+v", report.Failures)
	}
	if report.FilesScanned != 3 || report.ProjectCount != 2 {
		t.Errorf("scanned %d files, %d projects; want 3, 2", report.FilesScanned, report.ProjectCount)
	}
	if report.SessionsCreated != 3 {
		t.Errorf("sessions created = %d, want 3", report.SessionsCreated)
	}
	if report.MessagesInserted != 8 {
		t.Errorf("messages inserted = %d, want 8", report.MessagesInserted)
	}
	if report.LinesSkipped != 1 {
		t.Errorf("lines skipped = %d, want 1", report.LinesSkipped)
	}

	// Re-running against unchanged input is a zero delta.
	again, err := imp.ImportAll(ctx, root, nil)
	if err != nil {
		t.Fatal(err)
	}
	if again.MessagesInserted != 0 || again.SessionsCreated != 0 || again.ToolUsesInserted != 0 {
		t.Errorf("second run delta = %+v, want zero inserts", again.Delta)
	}
	if again.MessagesSkipped != 8 {
		t.Errorf("second run messages skipped = %d, want 8", again.MessagesSkipped)
	}
}
