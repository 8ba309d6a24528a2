// Package transcript discovers and decodes Claude Code JSONL transcript files.
package transcript

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"time"
)

// maxLineSize bounds the scanner token size; transcript lines carrying large
// tool results can run to hundreds of kilobytes.
const maxLineSize = 2 * 1024 * 1024

// ParseLine decodes a single transcript line into an Event. It never fails:
// empty or undecodable lines come back as KindUnknown and are skipped by
// downstream consumers.
func ParseLine(line []byte) Event {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return Event{Kind: KindUnknown}
	}

	var raw rawEntry
	if err := json.Unmarshal(line, &raw); err != nil {
		return Event{Kind: KindUnknown}
	}

	ev := Event{
		SessionID:  raw.SessionID,
		UUID:       raw.UUID,
		ParentUUID: raw.ParentUUID,
		Cwd:        raw.Cwd,
		Version:    raw.Version,
	}
	if raw.Timestamp != "" {
		if ts, err := time.Parse(time.RFC3339Nano, raw.Timestamp); err == nil {
			ev.Timestamp = ts
		}
	}

	switch raw.Type {
	case "user":
		ev.Kind = KindUser
		decodeMessage(&ev, raw.Message, "user")

	case "assistant":
		ev.Kind = KindAssistant
		decodeMessage(&ev, raw.Message, "assistant")

	case "system":
		ev.Kind = KindSystem
		// System entries carry content at the top level, not in a message
		// envelope. Entries without content (turn_duration etc.) contribute
		// only timestamps.
		if len(raw.Content) > 0 {
			ev.HasMessage = true
			ev.Role = "system"
			ev.Blocks = decodeBlocks(raw.Content)
		}

	case "summary":
		ev.Kind = KindSummary
		ev.Summary = raw.Summary
		if ev.SessionID == "" {
			ev.SessionID = raw.LeafUUID
		}

	case "":
		ev.Kind = KindUnknown

	default:
		// file-history-snapshot, queue-operation, progress, and whatever
		// shows up next: keep the metadata, drop the payload.
		ev.Kind = KindMeta
	}

	return ev
}

func decodeMessage(ev *Event, msg *rawMessage, fallbackRole string) {
	if msg == nil {
		ev.Kind = KindMeta
		return
	}
	ev.HasMessage = true
	ev.Role = msg.Role
	if ev.Role == "" {
		ev.Role = fallbackRole
	}
	ev.Model = msg.Model
	ev.MessageID = msg.ID
	ev.Blocks = decodeBlocks(msg.Content)

	if msg.Usage != nil {
		u := msg.Usage
		cacheCreation := u.CacheCreationInputTokens
		if u.CacheCreation != nil {
			if sum := u.CacheCreation.Ephemeral5mInputTokens + u.CacheCreation.Ephemeral1hInputTokens; sum > cacheCreation {
				cacheCreation = sum
			}
		}
		ev.Usage = &Usage{
			InputTokens:         u.InputTokens,
			OutputTokens:        u.OutputTokens,
			CacheCreationTokens: cacheCreation,
			CacheReadTokens:     u.CacheReadInputTokens,
		}
	}
}

// decodeBlocks decodes a message content payload, which is either a bare
// string or an ordered array of typed blocks.
func decodeBlocks(content json.RawMessage) []Block {
	if len(content) == 0 {
		return nil
	}

	var s string
	if err := json.Unmarshal(content, &s); err == nil {
		return []Block{TextBlock{Text: s}}
	}

	var rawBlocks []rawBlock
	if err := json.Unmarshal(content, &rawBlocks); err != nil {
		return nil
	}

	blocks := make([]Block, 0, len(rawBlocks))
	for _, rb := range rawBlocks {
		switch rb.Type {
		case "text":
			blocks = append(blocks, TextBlock{Text: rb.Text})
		case "tool_use":
			blocks = append(blocks, ToolUseBlock{
				ID:    rb.ID,
				Name:  rb.Name,
				Input: string(rb.Input),
			})
		case "tool_result":
			blocks = append(blocks, ToolResultBlock{
				ToolUseID: rb.ToolUseID,
				Content:   flattenResultContent(rb.Content),
				IsError:   rb.IsError,
			})
		default:
			blocks = append(blocks, OpaqueBlock{Type: rb.Type})
		}
	}
	return blocks
}

// flattenResultContent normalizes a tool result payload to text. The payload
// is a string, an array of text-bearing objects, or arbitrary JSON.
func flattenResultContent(content json.RawMessage) string {
	if len(content) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(content, &s); err == nil {
		return s
	}

	var items []rawBlock
	if err := json.Unmarshal(content, &items); err == nil {
		var parts []string
		for _, it := range items {
			if it.Text != "" {
				parts = append(parts, it.Text)
			} else if len(it.Content) > 0 {
				parts = append(parts, flattenResultContent(it.Content))
			}
		}
		return strings.Join(parts, "\n")
	}

	return string(content)
}

// ReadFile decodes every line of a transcript file in order. It returns the
// decoded events and the number of lines that failed to decode; malformed
// lines are counted and skipped, never fatal to the file.
func ReadFile(path string) ([]Event, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = f.Close() }()

	var (
		events  []Event
		skipped int
	)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 256*1024), maxLineSize)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		ev := ParseLine(line)
		if ev.Kind == KindUnknown {
			skipped++
			continue
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, skipped, err
	}

	return events, skipped, nil
}
