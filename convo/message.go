// Package convo implements the Context Model (spec §3, §4.6): an ordered
// message log plus attachments and tool definitions, with deterministic
// text rendering. It is named "convo" rather than "context" to avoid
// shadowing the standard library's context package throughout the module.
package convo

import "github.com/flowctl/agentruntime/tools"

// Role identifies who produced a ContentMessage.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ToolCallFull is a complete tool invocation request extracted from a
// provider completion.
type ToolCallFull struct {
	Name      tools.Ident
	CallID    string
	Arguments []byte // canonical JSON
}

// ToolCallPartial is an incomplete fragment of a tool call as it streams
// in from the provider, to be reassembled by the aggregator (C4).
type ToolCallPartial struct {
	CallID            string
	NameFragment      string
	ArgumentsFragment string
}

// ToolResult is the outcome of executing a ToolCallFull, appended to the
// context as a batch following an Assistant turn.
type ToolResult struct {
	Name     tools.Ident
	CallID   string
	Content  []byte // JSON value
	IsError  bool
}

// ContentMessage is a System/User/Assistant turn, optionally carrying the
// tool calls an Assistant turn requested.
type ContentMessage struct {
	Role      Role
	Content   string
	ToolCalls []ToolCallFull // only meaningful when Role == RoleAssistant
}

// ImageContentType identifies the encoding of an attached image.
type ImageContentType string

const (
	ImageJPEG ImageContentType = "jpeg"
	ImagePNG  ImageContentType = "png"
	ImageWebP ImageContentType = "webp"
)

// Attachment carries a file reference alongside a User turn.
type Attachment struct {
	Path        string
	Content     string
	IsImage     bool
	ImageFormat ImageContentType // only meaningful when IsImage
}

// Message is the tagged variant stored in a Context's message log: exactly
// one of ContentMessage, ToolResult, or Attachments is populated.
type Message struct {
	Content     *ContentMessage
	ToolResult  *ToolResult
	Attachments []Attachment
}

// User constructs a user ContentMessage wrapped as a Message.
func User(content string) Message {
	return Message{Content: &ContentMessage{Role: RoleUser, Content: content}}
}

// System constructs a system ContentMessage wrapped as a Message.
func System(content string) Message {
	return Message{Content: &ContentMessage{Role: RoleSystem, Content: content}}
}

// Assistant constructs an assistant ContentMessage, with optional tool
// calls, wrapped as a Message.
func Assistant(content string, toolCalls []ToolCallFull) Message {
	return Message{Content: &ContentMessage{Role: RoleAssistant, Content: content, ToolCalls: toolCalls}}
}

// FromToolResult wraps a ToolResult as a Message.
func FromToolResult(r ToolResult) Message {
	return Message{ToolResult: &r}
}

// HasRole reports whether this message is a ContentMessage with the given
// role. Attachments are treated as belonging to the User role, matching
// the original's ContextMessage::has_role.
func (m Message) HasRole(role Role) bool {
	if m.Content != nil {
		return m.Content.Role == role
	}
	if len(m.Attachments) > 0 {
		return role == RoleUser
	}
	return false
}
