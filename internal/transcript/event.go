package transcript

import "time"

// Kind discriminates the decoded event variants.
type Kind string

const (
	KindMeta      Kind = "meta"      // session metadata carrier, no message payload
	KindUser      Kind = "user"      // user message
	KindAssistant Kind = "assistant" // assistant message
	KindSystem    Kind = "system"    // system message
	KindSummary   Kind = "summary"   // conversation summary line
	KindUnknown   Kind = "unknown"   // undecodable or unrecognized line
)

// Event is one decoded transcript line. Cross-line relationships
// (message ordering, tool call/result pairing) are the reconstructor's
// concern, not the parser's.
type Event struct {
	Kind       Kind
	SessionID  string
	UUID       string
	ParentUUID string
	Timestamp  time.Time
	Cwd        string
	Version    string

	// Message payload. HasMessage reports whether this event contributes a
	// message to the session (user/assistant/system with a message body).
	HasMessage bool
	Role       string
	Model      string
	MessageID  string
	Blocks     []Block
	Usage      *Usage

	// Summary payload (KindSummary only).
	Summary string
}

// Usage holds token counts for one assistant message.
type Usage struct {
	InputTokens         int64
	OutputTokens        int64
	CacheCreationTokens int64
	CacheReadTokens     int64
}

// Block is one element of a message's ordered content.
// The set of variants is closed; unrecognized shapes decode to OpaqueBlock.
type Block interface {
	blockKind() string
}

// TextBlock is plain message text.
type TextBlock struct {
	Text string
}

// ToolUseBlock is a tool invocation emitted by the assistant.
type ToolUseBlock struct {
	ID    string
	Name  string
	Input string // serialized JSON parameters
}

// ToolResultBlock carries the outcome of an earlier tool invocation.
type ToolResultBlock struct {
	ToolUseID string
	Content   string
	IsError   bool
}

// OpaqueBlock stands in for a block kind this decoder does not understand.
type OpaqueBlock struct {
	Type string
}

func (TextBlock) blockKind() string       { return "text" }
func (ToolUseBlock) blockKind() string    { return "tool_use" }
func (ToolResultBlock) blockKind() string { return "tool_result" }
func (OpaqueBlock) blockKind() string     { return "opaque" }
