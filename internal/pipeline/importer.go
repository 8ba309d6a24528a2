package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/sujankapadia/claude-code-utils/internal/model"
	"github.com/sujankapadia/claude-code-utils/internal/store"
	"github.com/sujankapadia/claude-code-utils/internal/transcript"
)

// Importer reconciles reconstructed sessions against the store.
type Importer struct {
	Store *store.Store
}

// ProgressFunc is called during an import run to report progress.
type ProgressFunc func(current, total int)

// FileFailure records one file that could not be imported. The file stays on
// disk and is eligible for retry on the next run.
type FileFailure struct {
	Path   string
	Reason string
}

// RunReport is the observable outcome of an import run.
type RunReport struct {
	store.Delta
	FilesScanned int
	FilesSkipped int // empty or id-less transcripts, reported not fatal
	LinesSkipped int // malformed lines tolerated across all files
	ProjectCount int
	Failures     []FileFailure
}

// Failed reports whether any session failed to import.
func (r *RunReport) Failed() bool { return len(r.Failures) > 0 }

// ImportAll scans every transcript file under the conversations root and
// reconciles each against the store. Reading and reconstruction run on a
// bounded worker pool; all store writes funnel through this goroutine so two
// files never race on the same session. One bad file never aborts the run;
// failures accumulate in the report.
func (imp *Importer) ImportAll(ctx context.Context, root string, progressFn ProgressFunc) (*RunReport, error) {
	files, err := transcript.ScanDir(root)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	}

	report := &RunReport{
		FilesScanned: len(files),
		ProjectCount: transcript.CountProjects(files),
	}
	if len(files) == 0 {
		return report, nil
	}

	type reconstructed struct {
		file    transcript.DiscoveredFile
		session *model.Session
		err     error
	}

	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers < 1 {
		numWorkers = 4
	}
	if numWorkers > len(files) {
		numWorkers = len(files)
	}

	work := make(chan int, len(files))
	results := make([]reconstructed, len(files))
	var wg sync.WaitGroup

	for i := range files {
		work <- i
	}
	close(work)

	wg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func() {
			defer wg.Done()
			for idx := range work {
				df := files[idx]
				sess, err := reconstructFile(df)
				results[idx] = reconstructed{file: df, session: sess, err: err}
			}
		}()
	}
	wg.Wait()

	// Write phase: strictly sequential, in file mtime order, so the most
	// recently modified segment of a resumed session is applied last.
	for i, rc := range results {
		if progressFn != nil {
			progressFn(i+1, len(files))
		}

		switch {
		case errors.Is(rc.err, ErrNoSessionID):
			report.FilesSkipped++
			report.Failures = append(report.Failures, FileFailure{
				Path:   rc.file.Path,
				Reason: "no session id in file or filename",
			})
			continue
		case errors.Is(rc.err, ErrEmptySession):
			report.FilesSkipped++
			continue
		case rc.err != nil:
			report.Failures = append(report.Failures, FileFailure{
				Path:   rc.file.Path,
				Reason: rc.err.Error(),
			})
			continue
		}

		report.LinesSkipped += rc.session.SkippedLines

		delta, err := imp.Store.ApplySession(ctx, rc.session)
		if err != nil {
			// The session's transaction rolled back; prior sessions in this
			// run are unaffected and the file retries next run.
			report.Failures = append(report.Failures, FileFailure{
				Path:   rc.file.Path,
				Reason: err.Error(),
			})
			continue
		}
		report.Delta.Add(delta)
	}

	return report, nil
}

// ImportFile reconciles a single transcript file.
func (imp *Importer) ImportFile(ctx context.Context, path string) (*RunReport, error) {
	df, err := statFile(path)
	if err != nil {
		return nil, err
	}

	report := &RunReport{FilesScanned: 1, ProjectCount: 1}

	sess, err := reconstructFile(df)
	switch {
	case errors.Is(err, ErrNoSessionID):
		report.FilesSkipped++
		report.Failures = append(report.Failures, FileFailure{Path: path, Reason: "no session id in file or filename"})
		return report, nil
	case errors.Is(err, ErrEmptySession):
		report.FilesSkipped++
		return report, nil
	case err != nil:
		return nil, err
	}

	report.LinesSkipped = sess.SkippedLines

	delta, err := imp.Store.ApplySession(ctx, sess)
	if err != nil {
		report.Failures = append(report.Failures, FileFailure{Path: path, Reason: err.Error()})
		return report, nil
	}
	report.Delta = delta
	return report, nil
}

// statFile builds a DiscoveredFile for a path named directly on the CLI,
// outside a directory scan. The parent directory stands in for the project.
func statFile(path string) (transcript.DiscoveredFile, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return transcript.DiscoveredFile{}, err
	}
	projectDir := filepath.Base(filepath.Dir(path))
	return transcript.DiscoveredFile{
		Path:        path,
		ProjectDir:  projectDir,
		ProjectPath: transcript.DecodeProjectPath(projectDir),
		SessionID:   strings.TrimSuffix(filepath.Base(path), ".jsonl"),
		ModTime:     fi.ModTime(),
		Size:        fi.Size(),
	}, nil
}

// reconstructFile runs the parse + reconstruct phase for one file.
func reconstructFile(df transcript.DiscoveredFile) (*model.Session, error) {
	events, skipped, err := transcript.ReadFile(df.Path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", df.Path, err)
	}
	return Reconstruct(df, events, skipped)
}
