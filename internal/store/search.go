package store

import (
	"context"
	"fmt"
	"sort"
)

// Scope selects which content the search runs over.
type Scope string

const (
	ScopeMessages    Scope = "messages"
	ScopeToolInputs  Scope = "tool-inputs"
	ScopeToolResults Scope = "tool-results"
	ScopeAll         Scope = "all"
)

// ParseScope validates a scope string from the CLI.
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case ScopeMessages, ScopeToolInputs, ScopeToolResults, ScopeAll:
		return Scope(s), nil
	case "":
		return ScopeAll, nil
	}
	return "", fmt.Errorf("invalid scope %q (want messages, tool-inputs, tool-results, or all)", s)
}

// SearchOptions are the query plus optional filters.
type SearchOptions struct {
	Query   string
	Project string // project name substring
	Tool    string // tool name substring; restricts matching to tool scopes
	Since   string // inclusive lower bound, YYYY-MM-DD or RFC3339
	Until   string // inclusive upper bound, YYYY-MM-DD or RFC3339
	Scope   Scope
	Limit   int
}

// SearchResult is one ranked match.
type SearchResult struct {
	SessionID    string
	MessageIndex int
	ProjectName  string
	Timestamp    string
	Snippet      string
	Scope        Scope
	Rank         float64 // bm25, lower is better
}

// IndexCounts reports the row counts of a rebuilt index.
type IndexCounts struct {
	Messages int64
	ToolUses int64
}

// RebuildSearchIndex drops and repopulates the full-text index from the
// authoritative messages and tool_uses tables. The index is a derived
// artifact: a failed rebuild leaves the source tables untouched, and readers
// tolerate staleness bounded by the last successful rebuild.
func (s *Store) RebuildSearchIndex(ctx context.Context) (IndexCounts, error) {
	var counts IndexCounts

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return counts, err
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range []string{
		`DROP TABLE IF EXISTS fts_messages`,
		`DROP TABLE IF EXISTS fts_tool_uses`,
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return counts, fmt.Errorf("dropping index: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, ftsSQL); err != nil {
		return counts, fmt.Errorf("creating index: %w", err)
	}

	// rowid alignment is the join key back to the source rows.
	res, err := tx.ExecContext(ctx,
		`INSERT INTO fts_messages (rowid, content)
		 SELECT message_id, IFNULL(content, '') FROM messages`)
	if err != nil {
		return counts, fmt.Errorf("indexing messages: %w", err)
	}
	counts.Messages, _ = res.RowsAffected()

	res, err = tx.ExecContext(ctx,
		`INSERT INTO fts_tool_uses (rowid, tool_input, tool_result)
		 SELECT rowid, IFNULL(tool_input, ''), IFNULL(tool_result, '') FROM tool_uses`)
	if err != nil {
		return counts, fmt.Errorf("indexing tool uses: %w", err)
	}
	counts.ToolUses, _ = res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return IndexCounts{}, err
	}
	return counts, nil
}

// Search runs a ranked full-text query with optional filters. Results are
// ordered by bm25 relevance; ties break to the most recent timestamp.
func (s *Store) Search(ctx context.Context, opts SearchOptions) ([]SearchResult, error) {
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Scope == "" {
		opts.Scope = ScopeAll
	}

	var results []SearchResult

	// A tool-name filter only makes sense against tool scopes; message
	// matches carry no tool name to filter on.
	searchMessages := (opts.Scope == ScopeMessages || opts.Scope == ScopeAll) && opts.Tool == ""

	if searchMessages {
		rs, err := s.searchMessages(ctx, opts)
		if err != nil {
			return nil, err
		}
		results = append(results, rs...)
	}
	if opts.Scope == ScopeToolInputs || opts.Scope == ScopeAll {
		rs, err := s.searchToolUses(ctx, opts, ScopeToolInputs)
		if err != nil {
			return nil, err
		}
		results = append(results, rs...)
	}
	if opts.Scope == ScopeToolResults || opts.Scope == ScopeAll {
		rs, err := s.searchToolUses(ctx, opts, ScopeToolResults)
		if err != nil {
			return nil, err
		}
		results = append(results, rs...)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Rank != results[j].Rank {
			return results[i].Rank < results[j].Rank
		}
		return results[i].Timestamp > results[j].Timestamp
	})
	if len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return results, nil
}

func (s *Store) searchMessages(ctx context.Context, opts SearchOptions) ([]SearchResult, error) {
	q := `
		SELECT m.session_id, m.message_index, p.project_name, IFNULL(m.timestamp, ''),
		       snippet(fts_messages, 0, '>>>', '<<<', '...', 12),
		       bm25(fts_messages)
		FROM fts_messages
		JOIN messages m ON m.message_id = fts_messages.rowid
		JOIN sessions se ON se.session_id = m.session_id
		JOIN projects p ON p.project_id = se.project_id
		WHERE fts_messages MATCH ?`
	args := []any{opts.Query}
	q, args = appendFilters(q, args, opts, "m.timestamp", "")
	q += ` ORDER BY bm25(fts_messages) LIMIT ?`
	args = append(args, opts.Limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("message search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []SearchResult
	for rows.Next() {
		r := SearchResult{Scope: ScopeMessages}
		if err := rows.Scan(&r.SessionID, &r.MessageIndex, &r.ProjectName,
			&r.Timestamp, &r.Snippet, &r.Rank); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) searchToolUses(ctx context.Context, opts SearchOptions, scope Scope) ([]SearchResult, error) {
	col, colIdx := "tool_input", 0
	if scope == ScopeToolResults {
		col, colIdx = "tool_result", 1
	}

	q := fmt.Sprintf(`
		SELECT t.session_id, t.message_index, p.project_name, IFNULL(t.timestamp, ''),
		       snippet(fts_tool_uses, %d, '>>>', '<<<', '...', 12),
		       bm25(fts_tool_uses)
		FROM fts_tool_uses
		JOIN tool_uses t ON t.rowid = fts_tool_uses.rowid
		JOIN sessions se ON se.session_id = t.session_id
		JOIN projects p ON p.project_id = se.project_id
		WHERE fts_tool_uses MATCH ?`, colIdx)
	args := []any{col + ": (" + opts.Query + ")"}
	q, args = appendFilters(q, args, opts, "t.timestamp", "t.tool_name")
	q += ` ORDER BY bm25(fts_tool_uses) LIMIT ?`
	args = append(args, opts.Limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("tool use search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []SearchResult
	for rows.Next() {
		r := SearchResult{Scope: scope}
		if err := rows.Scan(&r.SessionID, &r.MessageIndex, &r.ProjectName,
			&r.Timestamp, &r.Snippet, &r.Rank); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// appendFilters adds the shared project/date filters, plus the tool-name
// filter when a tool column is available.
func appendFilters(q string, args []any, opts SearchOptions, tsCol, toolCol string) (string, []any) {
	if opts.Project != "" {
		q += ` AND p.project_name LIKE ?`
		args = append(args, "%"+opts.Project+"%")
	}
	if opts.Since != "" {
		q += ` AND ` + tsCol + ` >= ?`
		args = append(args, opts.Since)
	}
	if opts.Until != "" {
		until := opts.Until
		if len(until) == len("2006-01-02") {
			until += "T23:59:59Z" // make a bare date inclusive
		}
		q += ` AND ` + tsCol + ` <= ?`
		args = append(args, until)
	}
	if opts.Tool != "" && toolCol != "" {
		q += ` AND ` + toolCol + ` LIKE ?`
		args = append(args, "%"+opts.Tool+"%")
	}
	return q, args
}

// HasSearchIndex reports whether the FTS tables exist (a rebuild has run).
func (s *Store) HasSearchIndex(ctx context.Context) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'fts_messages'`,
	).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
