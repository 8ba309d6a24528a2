package transcript

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseLine_UserStringContent(t *testing.T) {
	ev := ParseLine([]byte(`{"type":"user","sessionId":"s1","timestamp":"2025-06-01T10:00:00Z","message":{"role":"user","content":"hello there"}}`))

	if ev.Kind != KindUser {
		t.Fatalf("Kind = %q, want %q", ev.Kind, KindUser)
	}
	if !ev.HasMessage {
		t.Fatal("HasMessage = false, want true")
	}
	if ev.SessionID != "s1" {
		t.Errorf("SessionID = %q, want s1", ev.SessionID)
	}
	if len(ev.Blocks) != 1 {
		t.Fatalf("len(Blocks) = %d, want 1", len(ev.Blocks))
	}
	tb, ok := ev.Blocks[0].(TextBlock)
	if !ok || tb.Text != "hello there" {
		t.Errorf("Blocks[0] = %#v, want TextBlock{hello there}", ev.Blocks[0])
	}
	want := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	if !ev.Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", ev.Timestamp, want)
	}
}

func TestParseLine_AssistantBlocks(t *testing.T) {
	line := `{"type":"assistant","sessionId":"s1","timestamp":"2025-06-01T10:01:00Z","message":{"id":"msg1","role":"assistant","model":"claude-sonnet-4","content":[{"type":"text","text":"on it"},{"type":"tool_use","id":"tu1","name":"Bash","input":{"command":"ls"}}],"usage":{"input_tokens":100,"output_tokens":50,"cache_read_input_tokens":25}}}`

	ev := ParseLine([]byte(line))
	if ev.Kind != KindAssistant {
		t.Fatalf("Kind = %q, want assistant", ev.Kind)
	}
	if ev.Model != "claude-sonnet-4" {
		t.Errorf("Model = %q", ev.Model)
	}
	if ev.MessageID != "msg1" {
		t.Errorf("MessageID = %q", ev.MessageID)
	}
	if len(ev.Blocks) != 2 {
		t.Fatalf("len(Blocks) = %d, want 2", len(ev.Blocks))
	}
	tu, ok := ev.Blocks[1].(ToolUseBlock)
	if !ok {
		t.Fatalf("Blocks[1] = %#v, want ToolUseBlock", ev.Blocks[1])
	}
	if tu.ID != "tu1" || tu.Name != "Bash" {
		t.Errorf("ToolUseBlock = %+v", tu)
	}
	if !strings.Contains(tu.Input, `"command"`) {
		t.Errorf("Input = %q, want serialized params", tu.Input)
	}
	if ev.Usage == nil {
		t.Fatal("Usage = nil")
	}
	if ev.Usage.InputTokens != 100 || ev.Usage.OutputTokens != 50 || ev.Usage.CacheReadTokens != 25 {
		t.Errorf("Usage = %+v", ev.Usage)
	}
}

func TestParseLine_CacheCreationBreakdown(t *testing.T) {
	// The TTL-bucket breakdown supersedes the flat count when larger.
	line := `{"type":"assistant","message":{"id":"m1","role":"assistant","usage":{"cache_creation_input_tokens":10,"cache_creation":{"ephemeral_5m_input_tokens":30,"ephemeral_1h_input_tokens":20}}}}`

	ev := ParseLine([]byte(line))
	if ev.Usage == nil {
		t.Fatal("Usage = nil")
	}
	if ev.Usage.CacheCreationTokens != 50 {
		t.Errorf("CacheCreationTokens = %d, want 50", ev.Usage.CacheCreationTokens)
	}
}

func TestParseLine_ToolResultVariants(t *testing.T) {
	cases := []struct {
		name string
		line string
		want string
	}{
		{
			name: "string content",
			line: `{"type":"user","message":{"role":"user","content":[{"type":"tool_result","tool_use_id":"tu1","content":"file.txt"}]}}`,
			want: "file.txt",
		},
		{
			name: "list content",
			line: `{"type":"user","message":{"role":"user","content":[{"type":"tool_result","tool_use_id":"tu1","content":[{"type":"text","text":"line one"},{"type":"text","text":"line two"}]}]}}`,
			want: "line one\nline two",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev := ParseLine([]byte(tc.line))
			if len(ev.Blocks) != 1 {
				t.Fatalf("len(Blocks) = %d, want 1", len(ev.Blocks))
			}
			tr, ok := ev.Blocks[0].(ToolResultBlock)
			if !ok {
				t.Fatalf("Blocks[0] = %#v, want ToolResultBlock", ev.Blocks[0])
			}
			if tr.ToolUseID != "tu1" {
				t.Errorf("ToolUseID = %q", tr.ToolUseID)
			}
			if tr.Content != tc.want {
				t.Errorf("Content = %q, want %q", tr.Content, tc.want)
			}
		})
	}
}

func TestParseLine_UnknownBlockKindDegrades(t *testing.T) {
	line := `{"type":"assistant","message":{"role":"assistant","content":[{"type":"thinking","thinking":"hmm"},{"type":"text","text":"answer"}]}}`

	ev := ParseLine([]byte(line))
	if len(ev.Blocks) != 2 {
		t.Fatalf("len(Blocks) = %d, want 2 (unknown kinds degrade, not drop)", len(ev.Blocks))
	}
	ob, ok := ev.Blocks[0].(OpaqueBlock)
	if !ok || ob.Type != "thinking" {
		t.Errorf("Blocks[0] = %#v, want OpaqueBlock{thinking}", ev.Blocks[0])
	}
}

func TestParseLine_Malformed(t *testing.T) {
	for _, line := range []string{"", "   ", "not json", `{"type":`, `[1,2,3]`} {
		if ev := ParseLine([]byte(line)); ev.Kind != KindUnknown {
			t.Errorf("ParseLine(%q).Kind = %q, want unknown", line, ev.Kind)
		}
	}
}

func TestParseLine_SystemAndSummary(t *testing.T) {
	sys := ParseLine([]byte(`{"type":"system","sessionId":"s1","timestamp":"2025-06-01T10:00:00Z","content":"Compacted conversation"}`))
	if sys.Kind != KindSystem || !sys.HasMessage || sys.Role != "system" {
		t.Errorf("system event = %+v", sys)
	}

	bare := ParseLine([]byte(`{"type":"system","subtype":"turn_duration","timestamp":"2025-06-01T10:00:00Z","durationMs":5000}`))
	if bare.Kind != KindSystem || bare.HasMessage {
		t.Errorf("bare system event should carry no message: %+v", bare)
	}

	sum := ParseLine([]byte(`{"type":"summary","summary":"Fixed the importer","leafUuid":"abc"}`))
	if sum.Kind != KindSummary || sum.Summary != "Fixed the importer" {
		t.Errorf("summary event = %+v", sum)
	}
}

func TestParseLine_UnrecognizedTypeIsMeta(t *testing.T) {
	ev := ParseLine([]byte(`{"type":"file-history-snapshot","sessionId":"s1","timestamp":"2025-06-01T10:00:00Z"}`))
	if ev.Kind != KindMeta {
		t.Errorf("Kind = %q, want meta", ev.Kind)
	}
	if ev.SessionID != "s1" {
		t.Errorf("SessionID = %q, want s1 (metadata kept)", ev.SessionID)
	}
}

func TestReadFile_SkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.jsonl")
	lines := []string{
		`{"type":"user","sessionId":"s1","message":{"role":"user","content":"one"}}`,
		`garbage line`,
		`{"type":"assistant","sessionId":"s1","message":{"role":"assistant","content":"two"}}`,
		`{{{`,
	}
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	events, skipped, err := ReadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("len(events) = %d, want 2", len(events))
	}
	if skipped != 2 {
		t.Errorf("skipped = %d, want 2", skipped)
	}
}
