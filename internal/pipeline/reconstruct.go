// Package pipeline reconstructs session aggregates from transcript events and
// reconciles them incrementally against the store.
package pipeline

import (
	"errors"
	"strings"

	"github.com/sujankapadia/claude-code-utils/internal/model"
	"github.com/sujankapadia/claude-code-utils/internal/transcript"
)

// ErrNoSessionID indicates a transcript that carries no session identifier
// anywhere, neither in its events nor in its filename. No partial session is
// created for such a file.
var ErrNoSessionID = errors.New("transcript has no session id")

// ErrEmptySession indicates a transcript that decoded but produced no messages.
var ErrEmptySession = errors.New("transcript produced no messages")

// Reconstruct builds one Session aggregate from the ordered events of a single
// transcript file. It assigns message_index values sequentially, correlates
// tool invocations with their (possibly later) results by tool-call id, and
// records unmatched results as orphans anchored to the message that carried
// them.
func Reconstruct(df transcript.DiscoveredFile, events []transcript.Event, skippedLines int) (*model.Session, error) {
	s := &model.Session{
		ID:           df.SessionID,
		ProjectDir:   df.ProjectDir,
		ProjectPath:  df.ProjectPath,
		FilePath:     df.Path,
		SkippedLines: skippedLines,
	}

	// Pending invocations awaiting a result, keyed by tool-call id. Values
	// index into s.ToolUses so late results complete in place.
	pending := make(map[string]int)
	seenModels := make(map[string]struct{})

	// Session token aggregates are deduplicated by assistant message envelope
	// id: a resumed or re-streamed transcript repeats the envelope with the
	// final billed usage, and the last entry wins.
	usageByID := make(map[string]transcript.Usage)
	var anonUsage model.TokenTotals

	for _, ev := range events {
		if s.ID == "" && ev.SessionID != "" {
			s.ID = ev.SessionID
		}
		if s.ProjectPath == "" && ev.Cwd != "" {
			s.ProjectPath = ev.Cwd
		}
		if !ev.Timestamp.IsZero() {
			if s.StartTime.IsZero() || ev.Timestamp.Before(s.StartTime) {
				s.StartTime = ev.Timestamp
			}
			if s.EndTime.IsZero() || ev.Timestamp.After(s.EndTime) {
				s.EndTime = ev.Timestamp
			}
		}

		if !ev.HasMessage {
			continue
		}

		// An event whose content is nothing but tool results is a result
		// carrier, not a message: its payload completes pending invocations
		// and assigns no message_index of its own.
		if resultOnly(ev.Blocks) {
			anchor := len(s.Messages) - 1
			if anchor < 0 {
				anchor = 0
			}
			resolveResults(s, pending, ev, anchor)
			continue
		}

		idx := len(s.Messages)
		msg := model.Message{
			Index:     idx,
			Role:      ev.Role,
			Content:   flattenBlocks(ev.Blocks),
			Timestamp: ev.Timestamp,
		}

		if ev.Usage != nil {
			msg.InputTokens = ev.Usage.InputTokens
			msg.OutputTokens = ev.Usage.OutputTokens
			msg.CacheCreationTokens = ev.Usage.CacheCreationTokens
			msg.CacheReadTokens = ev.Usage.CacheReadTokens

			if ev.MessageID != "" {
				usageByID[ev.MessageID] = *ev.Usage
			} else {
				anonUsage.Add(ev.Usage.InputTokens, ev.Usage.OutputTokens,
					ev.Usage.CacheCreationTokens, ev.Usage.CacheReadTokens)
			}
		}

		if ev.Model != "" {
			if _, ok := seenModels[ev.Model]; !ok {
				seenModels[ev.Model] = struct{}{}
				s.Models = append(s.Models, ev.Model)
			}
		}

		for _, b := range ev.Blocks {
			if blk, ok := b.(transcript.ToolUseBlock); ok && blk.ID != "" {
				s.ToolUses = append(s.ToolUses, model.ToolUse{
					ID:           blk.ID,
					MessageIndex: idx,
					Name:         blk.Name,
					Input:        blk.Input,
					Timestamp:    ev.Timestamp,
				})
				pending[blk.ID] = len(s.ToolUses) - 1
			}
		}
		resolveResults(s, pending, ev, idx)

		s.Messages = append(s.Messages, msg)
	}

	if s.ID == "" {
		return nil, ErrNoSessionID
	}
	if len(s.Messages) == 0 {
		return nil, ErrEmptySession
	}

	s.Tokens = anonUsage
	for _, u := range usageByID {
		s.Tokens.Add(u.InputTokens, u.OutputTokens, u.CacheCreationTokens, u.CacheReadTokens)
	}

	return s, nil
}

// resolveResults matches the tool_result blocks of one event against pending
// invocations. Results with no matching invocation are recorded as orphans
// anchored at the given message_index rather than silently dropped.
func resolveResults(s *model.Session, pending map[string]int, ev transcript.Event, anchor int) {
	for _, b := range ev.Blocks {
		blk, ok := b.(transcript.ToolResultBlock)
		if !ok || blk.ToolUseID == "" {
			continue
		}
		if i, matched := pending[blk.ToolUseID]; matched {
			tu := &s.ToolUses[i]
			tu.Result = blk.Content
			tu.HasResult = true
			tu.IsError = blk.IsError
			delete(pending, blk.ToolUseID)
			continue
		}
		s.ToolUses = append(s.ToolUses, model.ToolUse{
			ID:           blk.ToolUseID,
			MessageIndex: anchor,
			Result:       blk.Content,
			HasResult:    true,
			IsError:      blk.IsError,
			Orphan:       true,
			Timestamp:    ev.Timestamp,
		})
	}
}

// resultOnly reports whether every block of a message payload is a tool
// result. Such events carry outcomes for earlier invocations and do not
// become messages themselves.
func resultOnly(blocks []transcript.Block) bool {
	if len(blocks) == 0 {
		return false
	}
	for _, b := range blocks {
		if _, ok := b.(transcript.ToolResultBlock); !ok {
			return false
		}
	}
	return true
}

// flattenBlocks renders structured content blocks to text, preserving block
// order. Tool invocations and results are summarized rather than inlined;
// unknown block kinds degrade to a placeholder.
func flattenBlocks(blocks []transcript.Block) string {
	var parts []string
	for _, b := range blocks {
		switch blk := b.(type) {
		case transcript.TextBlock:
			if blk.Text != "" {
				parts = append(parts, blk.Text)
			}
		case transcript.ToolUseBlock:
			parts = append(parts, "[tool: "+blk.Name+"]")
		case transcript.ToolResultBlock:
			// Result payloads live on the tool_uses relation; the message
			// text keeps a marker so block order stays visible.
			parts = append(parts, "[tool result]")
		case transcript.OpaqueBlock:
			parts = append(parts, "["+blk.Type+"]")
		}
	}
	return strings.Join(parts, "\n")
}
