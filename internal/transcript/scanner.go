package transcript

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// DiscoveredFile is one JSONL transcript file found under the conversations root.
type DiscoveredFile struct {
	Path        string
	ProjectDir  string // encoded directory name, e.g. "-Users-x-dev-foo"
	ProjectPath string // decoded path, e.g. "/Users/x/dev/foo"
	SessionID   string // filename stem; fallback when events carry no id
	ModTime     time.Time
	Size        int64
}

// ScanDir walks the conversations root (one subdirectory per project) and
// discovers all JSONL transcript files. Unreadable entries are skipped;
// a missing root is not an error, just an empty result.
func ScanDir(root string) ([]DiscoveredFile, error) {
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, nil
	}

	var files []DiscoveredFile

	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // intentionally skip unreadable entries
		}
		if d.IsDir() || filepath.Ext(path) != ".jsonl" {
			return nil
		}

		rel, _ := filepath.Rel(root, path)
		parts := strings.Split(rel, string(filepath.Separator))
		if len(parts) < 2 {
			return nil
		}

		fi, statErr := d.Info()
		if statErr != nil {
			return nil
		}

		projectDir := parts[0]
		files = append(files, DiscoveredFile{
			Path:        path,
			ProjectDir:  projectDir,
			ProjectPath: DecodeProjectPath(projectDir),
			SessionID:   strings.TrimSuffix(d.Name(), ".jsonl"),
			ModTime:     fi.ModTime(),
			Size:        fi.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Oldest first, so the most recently modified file for a session is the
	// last one applied and ends up authoritative for "latest state".
	sort.Slice(files, func(i, j int) bool {
		return files[i].ModTime.Before(files[j].ModTime)
	})

	return files, nil
}

// DecodeProjectPath converts an encoded project directory name back to a
// filesystem path: "-Users-x-dev-foo" -> "/Users/x/dev/foo". Names without
// the leading dash are returned unchanged.
func DecodeProjectPath(dirName string) string {
	if !strings.HasPrefix(dirName, "-") {
		return dirName
	}
	parts := strings.Split(dirName[1:], "-")
	return "/" + strings.Join(parts, "/")
}

// ProjectDisplayName derives a short human-readable name from a decoded
// project path: the last path component.
func ProjectDisplayName(projectPath string) string {
	name := filepath.Base(projectPath)
	if name == "." || name == string(filepath.Separator) {
		return projectPath
	}
	return name
}

// CountProjects returns the number of unique projects in a set of discovered files.
func CountProjects(files []DiscoveredFile) int {
	seen := make(map[string]struct{})
	for _, f := range files {
		seen[f.ProjectDir] = struct{}{}
	}
	return len(seen)
}
