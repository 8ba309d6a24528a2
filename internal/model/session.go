// Package model defines the session aggregates produced by reconstruction
// and persisted by the store.
package model

import "time"

// Session is the in-memory aggregate reconstructed from one transcript file.
type Session struct {
	ID          string
	ProjectDir  string // encoded directory name (natural key for projects)
	ProjectPath string // decoded filesystem path
	FilePath    string

	StartTime time.Time
	EndTime   time.Time

	Messages []Message
	ToolUses []ToolUse

	Tokens TokenTotals
	Models []string // distinct model identifiers, in first-seen order

	SkippedLines int // malformed lines tolerated during parsing
}

// MessageCount returns the number of messages in the aggregate.
func (s *Session) MessageCount() int { return len(s.Messages) }

// Message is one user/assistant/system message within a session.
// Index is the zero-based, contiguous per-session ordinal and the stable
// join key for tool uses.
type Message struct {
	Index     int
	Role      string
	Content   string // content blocks flattened to text, block order preserved
	Timestamp time.Time

	InputTokens         int64
	OutputTokens        int64
	CacheCreationTokens int64
	CacheReadTokens     int64
}

// ToolUse pairs a tool invocation with its eventual result, anchored to the
// message that carried the invocation (or, for orphaned results, to the
// message that carried the result).
type ToolUse struct {
	ID           string
	MessageIndex int
	Name         string
	Input        string // serialized JSON parameters
	Result       string
	HasResult    bool
	IsError      bool
	Orphan       bool // result arrived with no matching invocation
	Timestamp    time.Time
}

// TokenTotals aggregates token counters across a session.
type TokenTotals struct {
	Input         int64
	Output        int64
	CacheCreation int64
	CacheRead     int64
}

// Add accumulates another set of totals.
func (t *TokenTotals) Add(input, output, cacheCreation, cacheRead int64) {
	t.Input += input
	t.Output += output
	t.CacheCreation += cacheCreation
	t.CacheRead += cacheRead
}
