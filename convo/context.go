package convo

import (
	"fmt"
	"strings"

	"github.com/flowctl/agentruntime/tools"
)

// ToolChoice constrains which tool(s) the provider may call next.
type ToolChoice struct {
	Auto     bool
	Required bool
	Name     tools.Ident // set when a single tool is forced
}

// Context is the ordered message log plus active tool definitions sent to
// the provider (spec §3, §4.6). Builders are value-returning so turn
// boundaries are easy to reason about and contexts can be safely shared.
type Context struct {
	Messages   []Message
	Tools      []tools.Definition
	ToolChoice *ToolChoice
}

// AddMessage appends a message and returns the updated Context.
func (c Context) AddMessage(m Message) Context {
	c.Messages = append(append([]Message(nil), c.Messages...), m)
	return c
}

// AddToolResults appends a batch of tool results as Messages, in order.
func (c Context) AddToolResults(results []ToolResult) Context {
	out := c
	for _, r := range results {
		out = out.AddMessage(FromToolResult(r))
	}
	return out
}

// ExtendTools appends additional tool definitions.
func (c Context) ExtendTools(defs []tools.Definition) Context {
	c.Tools = append(append([]tools.Definition(nil), c.Tools...), defs...)
	return c
}

// AddAttachments appends an Attachments message.
func (c Context) AddAttachments(a []Attachment) Context {
	return c.AddMessage(Message{Attachments: a})
}

// SetFirstSystemMessage inserts or replaces the System message at position
// 0 without reordering anything else (spec §4.6).
func (c Context) SetFirstSystemMessage(content string) Context {
	if len(c.Messages) == 0 {
		return c.AddMessage(System(content))
	}
	out := c
	out.Messages = append([]Message(nil), c.Messages...)
	if out.Messages[0].Content != nil && out.Messages[0].Content.Role == RoleSystem {
		replaced := *out.Messages[0].Content
		replaced.Content = content
		out.Messages[0] = Message{Content: &replaced}
		return out
	}
	out.Messages = append([]Message{System(content)}, out.Messages...)
	return out
}

// ToText renders the context as a deterministic XML-ish string, used as
// input to Tap transforms and for snapshot tests. Two Contexts equal by
// value render identical text (spec §8 property 1).
func (c Context) ToText() string {
	var b strings.Builder
	b.WriteString("<chat_history>")
	for _, m := range c.Messages {
		switch {
		case m.Content != nil:
			fmt.Fprintf(&b, "<message role=%q>", m.Content.Role)
			fmt.Fprintf(&b, "<content>%s</content>", m.Content.Content)
			for _, call := range m.Content.ToolCalls {
				fmt.Fprintf(&b, "<tool_call name=%q><![CDATA[%s]]></tool_call>", call.Name, call.Arguments)
			}
			b.WriteString("</message>")
		case m.ToolResult != nil:
			b.WriteString("<message role=\"tool\">")
			fmt.Fprintf(&b, "<tool_result name=%q><![CDATA[%s]]></tool_result>", m.ToolResult.Name, m.ToolResult.Content)
			b.WriteString("</message>")
		default:
			for _, a := range m.Attachments {
				fmt.Fprintf(&b, "<file_attachment path=%q>", a.Path)
			}
		}
	}
	b.WriteString("</chat_history>")
	return b.String()
}
