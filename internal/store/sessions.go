package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sujankapadia/claude-code-utils/internal/model"
	"github.com/sujankapadia/claude-code-utils/internal/transcript"
)

// Delta reports what one session apply actually changed.
type Delta struct {
	SessionsCreated   int
	SessionsUpdated   int
	MessagesInserted  int
	MessagesSkipped   int
	ToolUsesInserted  int
	ToolUsesCompleted int
}

// Add accumulates another delta.
func (d *Delta) Add(o Delta) {
	d.SessionsCreated += o.SessionsCreated
	d.SessionsUpdated += o.SessionsUpdated
	d.MessagesInserted += o.MessagesInserted
	d.MessagesSkipped += o.MessagesSkipped
	d.ToolUsesInserted += o.ToolUsesInserted
	d.ToolUsesCompleted += o.ToolUsesCompleted
}

// IsZero reports whether the apply changed nothing beyond skips.
func (d Delta) IsZero() bool {
	return d.SessionsCreated == 0 && d.SessionsUpdated == 0 &&
		d.MessagesInserted == 0 && d.ToolUsesInserted == 0 && d.ToolUsesCompleted == 0
}

// ApplySession reconciles one reconstructed session against persisted state.
// All writes happen in a single transaction: either the whole delta commits
// or none of it does. Re-applying the same or a grown session is safe:
// existing messages are skipped, session counters merge monotonically, and
// tool uses complete in place when a result arrives late.
func (s *Store) ApplySession(ctx context.Context, sess *model.Session) (Delta, error) {
	var delta Delta

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return delta, err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(time.RFC3339)

	projectName := transcript.ProjectDisplayName(sess.ProjectPath)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO projects (project_id, project_name, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(project_id) DO NOTHING`,
		sess.ProjectDir, projectName, now,
	); err != nil {
		return delta, fmt.Errorf("upserting project: %w", err)
	}

	created, err := upsertSession(ctx, tx, sess, now)
	if err != nil {
		return delta, err
	}
	if created {
		delta.SessionsCreated++
	} else {
		delta.SessionsUpdated++
	}

	for _, m := range sess.Messages {
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO messages
			 (session_id, message_index, role, content, timestamp,
			  input_tokens, output_tokens, cache_creation_tokens, cache_read_tokens)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			sess.ID, m.Index, m.Role, m.Content, formatTime(m.Timestamp),
			m.InputTokens, m.OutputTokens, m.CacheCreationTokens, m.CacheReadTokens,
		)
		if err != nil {
			return delta, fmt.Errorf("inserting message %d: %w", m.Index, err)
		}
		n, _ := res.RowsAffected()
		if n > 0 {
			delta.MessagesInserted++
		} else {
			delta.MessagesSkipped++
		}
	}

	for _, tu := range sess.ToolUses {
		ins, comp, err := upsertToolUse(ctx, tx, sess.ID, tu)
		if err != nil {
			return delta, err
		}
		delta.ToolUsesInserted += ins
		delta.ToolUsesCompleted += comp
	}

	if err := tx.Commit(); err != nil {
		return Delta{}, err
	}
	return delta, nil
}

// upsertSession inserts the session row, or merges into the existing one with
// monotonic semantics: end_time, message_count, tool_use_count, and token
// aggregates never decrease, so a stale or short reconstruction cannot erase
// progress.
func upsertSession(ctx context.Context, tx *sql.Tx, sess *model.Session, now string) (created bool, err error) {
	var existingModels string
	err = tx.QueryRowContext(ctx,
		`SELECT models FROM sessions WHERE session_id = ?`, sess.ID,
	).Scan(&existingModels)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(ctx,
			`INSERT INTO sessions
			 (session_id, project_id, start_time, end_time, message_count, tool_use_count,
			  input_tokens, output_tokens, cache_creation_tokens, cache_read_tokens,
			  models, file_path, imported_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			sess.ID, sess.ProjectDir, formatTime(sess.StartTime), formatTime(sess.EndTime),
			len(sess.Messages), len(sess.ToolUses),
			sess.Tokens.Input, sess.Tokens.Output, sess.Tokens.CacheCreation, sess.Tokens.CacheRead,
			strings.Join(sess.Models, ","), sess.FilePath, now,
		)
		if err != nil {
			return false, fmt.Errorf("inserting session: %w", err)
		}
		return true, nil

	case err != nil:
		return false, fmt.Errorf("reading session: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE sessions SET
		   start_time            = CASE WHEN start_time IS NULL OR start_time = '' THEN ?1
		                                WHEN ?1 != '' AND ?1 < start_time THEN ?1
		                                ELSE start_time END,
		   end_time              = CASE WHEN ?2 > IFNULL(end_time, '') THEN ?2 ELSE end_time END,
		   message_count         = MAX(message_count, ?3),
		   tool_use_count        = MAX(tool_use_count, ?4),
		   input_tokens          = MAX(input_tokens, ?5),
		   output_tokens         = MAX(output_tokens, ?6),
		   cache_creation_tokens = MAX(cache_creation_tokens, ?7),
		   cache_read_tokens     = MAX(cache_read_tokens, ?8),
		   models                = ?9,
		   file_path             = ?10,
		   imported_at           = ?11
		 WHERE session_id = ?12`,
		formatTime(sess.StartTime), formatTime(sess.EndTime),
		len(sess.Messages), len(sess.ToolUses),
		sess.Tokens.Input, sess.Tokens.Output, sess.Tokens.CacheCreation, sess.Tokens.CacheRead,
		mergeModels(existingModels, sess.Models), sess.FilePath, now, sess.ID,
	)
	if err != nil {
		return false, fmt.Errorf("updating session: %w", err)
	}
	return false, nil
}

// upsertToolUse inserts a new tool use, or fills in result fields on an
// existing row that was persisted before its result arrived. Rows that
// already carry a result are immutable.
func upsertToolUse(ctx context.Context, tx *sql.Tx, sessionID string, tu model.ToolUse) (inserted, completed int, err error) {
	var hasResult int
	err = tx.QueryRowContext(ctx,
		`SELECT has_result FROM tool_uses WHERE session_id = ? AND tool_use_id = ?`,
		sessionID, tu.ID,
	).Scan(&hasResult)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(ctx,
			`INSERT INTO tool_uses
			 (session_id, tool_use_id, message_index, tool_name, tool_input,
			  tool_result, has_result, is_error, is_orphan, timestamp)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			sessionID, tu.ID, tu.MessageIndex, tu.Name, tu.Input,
			tu.Result, boolInt(tu.HasResult), boolInt(tu.IsError), boolInt(tu.Orphan),
			formatTime(tu.Timestamp),
		)
		if err != nil {
			return 0, 0, fmt.Errorf("inserting tool use %s: %w", tu.ID, err)
		}
		return 1, 0, nil

	case err != nil:
		return 0, 0, fmt.Errorf("reading tool use: %w", err)
	}

	if hasResult == 0 && tu.HasResult {
		_, err = tx.ExecContext(ctx,
			`UPDATE tool_uses SET tool_result = ?, has_result = 1, is_error = ?
			 WHERE session_id = ? AND tool_use_id = ?`,
			tu.Result, boolInt(tu.IsError), sessionID, tu.ID,
		)
		if err != nil {
			return 0, 0, fmt.Errorf("completing tool use %s: %w", tu.ID, err)
		}
		return 0, 1, nil
	}
	return 0, 0, nil
}

func mergeModels(existing string, incoming []string) string {
	seen := make(map[string]struct{})
	var merged []string
	for _, m := range strings.Split(existing, ",") {
		if m == "" {
			continue
		}
		if _, ok := seen[m]; !ok {
			seen[m] = struct{}{}
			merged = append(merged, m)
		}
	}
	for _, m := range incoming {
		if _, ok := seen[m]; !ok {
			seen[m] = struct{}{}
			merged = append(merged, m)
		}
	}
	return strings.Join(merged, ",")
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
