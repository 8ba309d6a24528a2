package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ProjectRow is one row of the projects browse surface.
type ProjectRow struct {
	ID           string
	Name         string
	CreatedAt    string
	SessionCount int
	MessageCount int
}

// SessionRow is one row of the sessions browse surface.
type SessionRow struct {
	ID           string
	ProjectID    string
	ProjectName  string
	StartTime    string
	EndTime      string
	MessageCount int
	ToolUseCount int
	InputTokens  int64
	OutputTokens int64
	Models       string
}

// MessageRow is one persisted message.
type MessageRow struct {
	Index     int
	Role      string
	Content   string
	Timestamp string
}

// ToolUseRow is one persisted tool use.
type ToolUseRow struct {
	ID           string
	MessageIndex int
	Name         string
	Input        string
	Result       string
	HasResult    bool
	IsError      bool
	Orphan       bool
	Timestamp    string
}

// ErrSessionNotFound indicates the requested session id is not in the store.
var ErrSessionNotFound = errors.New("session not found")

// ListProjects returns all projects with session and message counts, most
// sessions first.
func (s *Store) ListProjects(ctx context.Context) ([]ProjectRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.project_id, p.project_name, p.created_at,
		       COUNT(DISTINCT se.session_id),
		       IFNULL(SUM(se.message_count), 0)
		FROM projects p
		LEFT JOIN sessions se ON se.project_id = p.project_id
		GROUP BY p.project_id
		ORDER BY COUNT(DISTINCT se.session_id) DESC, p.project_name`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []ProjectRow
	for rows.Next() {
		var p ProjectRow
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatedAt, &p.SessionCount, &p.MessageCount); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListSessions returns sessions newest first, optionally filtered by project
// name substring, capped at limit (0 means no cap).
func (s *Store) ListSessions(ctx context.Context, project string, limit int) ([]SessionRow, error) {
	q := `
		SELECT se.session_id, se.project_id, p.project_name,
		       IFNULL(se.start_time, ''), IFNULL(se.end_time, ''),
		       se.message_count, se.tool_use_count,
		       se.input_tokens, se.output_tokens, se.models
		FROM sessions se
		JOIN projects p ON p.project_id = se.project_id`
	var args []any
	if project != "" {
		q += ` WHERE p.project_name LIKE ?`
		args = append(args, "%"+project+"%")
	}
	q += ` ORDER BY se.start_time DESC`
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []SessionRow
	for rows.Next() {
		var r SessionRow
		if err := rows.Scan(&r.ID, &r.ProjectID, &r.ProjectName, &r.StartTime, &r.EndTime,
			&r.MessageCount, &r.ToolUseCount, &r.InputTokens, &r.OutputTokens, &r.Models); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetSession loads one session row by id.
func (s *Store) GetSession(ctx context.Context, sessionID string) (*SessionRow, error) {
	var r SessionRow
	err := s.db.QueryRowContext(ctx, `
		SELECT se.session_id, se.project_id, p.project_name,
		       IFNULL(se.start_time, ''), IFNULL(se.end_time, ''),
		       se.message_count, se.tool_use_count,
		       se.input_tokens, se.output_tokens, se.models
		FROM sessions se
		JOIN projects p ON p.project_id = se.project_id
		WHERE se.session_id = ?`, sessionID,
	).Scan(&r.ID, &r.ProjectID, &r.ProjectName, &r.StartTime, &r.EndTime,
		&r.MessageCount, &r.ToolUseCount, &r.InputTokens, &r.OutputTokens, &r.Models)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// LoadMessages returns a session's messages in message_index order.
func (s *Store) LoadMessages(ctx context.Context, sessionID string) ([]MessageRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT message_index, role, IFNULL(content, ''), IFNULL(timestamp, '')
		FROM messages WHERE session_id = ? ORDER BY message_index`, sessionID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []MessageRow
	for rows.Next() {
		var m MessageRow
		if err := rows.Scan(&m.Index, &m.Role, &m.Content, &m.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// LoadToolUses returns a session's tool uses in message_index order.
func (s *Store) LoadToolUses(ctx context.Context, sessionID string) ([]ToolUseRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tool_use_id, message_index, IFNULL(tool_name, ''), IFNULL(tool_input, ''),
		       IFNULL(tool_result, ''), has_result, is_error, is_orphan, IFNULL(timestamp, '')
		FROM tool_uses WHERE session_id = ? ORDER BY message_index, tool_use_id`, sessionID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []ToolUseRow
	for rows.Next() {
		var t ToolUseRow
		var hasResult, isError, isOrphan int
		if err := rows.Scan(&t.ID, &t.MessageIndex, &t.Name, &t.Input, &t.Result,
			&hasResult, &isError, &isOrphan, &t.Timestamp); err != nil {
			return nil, err
		}
		t.HasResult = hasResult != 0
		t.IsError = isError != 0
		t.Orphan = isOrphan != 0
		out = append(out, t)
	}
	return out, rows.Err()
}
