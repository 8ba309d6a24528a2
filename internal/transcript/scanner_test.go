package transcript

import (
	"os"
	"path/filepath"
	"testing"
)

func TestScanDir(t *testing.T) {
	root := t.TempDir()
	projA := filepath.Join(root, "-Users-x-dev-alpha")
	projB := filepath.Join(root, "-Users-x-dev-beta")
	for _, dir := range []string{projA, projB} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	for _, p := range []string{
		filepath.Join(projA, "session-1.jsonl"),
		filepath.Join(projA, "session-2.jsonl"),
		filepath.Join(projB, "session-3.jsonl"),
		filepath.Join(projB, "notes.txt"), // not a transcript
	} {
		if err := os.WriteFile(p, []byte("{}\n"), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	files, err := ScanDir(root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("len(files) = %d, want 3", len(files))
	}
	if got := CountProjects(files); got != 2 {
		t.Errorf("CountProjects = %d, want 2", got)
	}

	for _, f := range files {
		if f.SessionID == "" {
			t.Errorf("file %s has empty SessionID", f.Path)
		}
		if f.ProjectPath == f.ProjectDir {
			t.Errorf("ProjectPath %q not decoded", f.ProjectPath)
		}
	}
}

func TestScanDir_MissingRoot(t *testing.T) {
	files, err := ScanDir(filepath.Join(t.TempDir(), "does-not-exist"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if files != nil {
		t.Errorf("files = %v, want nil", files)
	}
}

func TestDecodeProjectPath(t *testing.T) {
	cases := []struct{ in, want string }{
		{"-Users-skapadia-dev-personal-monolog", "/Users/skapadia/dev/personal/monolog"},
		{"-home-x-code-app", "/home/x/code/app"},
		{"plain", "plain"},
	}
	for _, tc := range cases {
		if got := DecodeProjectPath(tc.in); got != tc.want {
			t.Errorf("DecodeProjectPath(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestProjectDisplayName(t *testing.T) {
	if got := ProjectDisplayName("/Users/x/dev/monolog"); got != "monolog" {
		t.Errorf("ProjectDisplayName = %q, want monolog", got)
	}
}
