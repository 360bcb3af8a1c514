// Package transform implements the Transform Pipeline (spec §4.7): the set
// of pre-turn context rewrites (Assistant summarisation, User-message
// augmentation, Tap observation) executed at the top of every Agent Runner
// turn. Grounded on original_source/crates/forge_domain/src/orch.rs's
// execute_transform method (lines 196-266), which drives all three kinds
// against a shared Variables map and a sub-agent invocation callback.
package transform

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/flowctl/agentruntime/convo"
	"github.com/flowctl/agentruntime/variables"
	"github.com/flowctl/agentruntime/workflow"
)

// UndefinedVariableError reports a transform that read an output_key the
// named sub-agent never wrote (spec §7 UndefinedVariable — fatal for the
// current execute).
type UndefinedVariableError struct {
	Key string
}

func (e *UndefinedVariableError) Error() string {
	return fmt.Sprintf("undefined variable %q", e.Key)
}

// AgentInvoker runs a sub-agent to completion with the given input
// Variables, as the Agent Runner's init_agent does. The Transform Pipeline
// depends only on this narrow callback, not on the runner package itself,
// so runner can depend on transform without an import cycle.
type AgentInvoker func(ctx context.Context, id workflow.AgentId, input variables.Values) error

// Pipeline runs a sequence of Transforms against a Context, in declaration
// order (spec §4.7: "Order matters and is preserved").
type Pipeline struct {
	store  variables.Backend
	invoke AgentInvoker
}

// NewPipeline constructs a Pipeline bound to store (shared with the rest of
// the orchestrator) and invoke (how to run a named sub-agent).
func NewPipeline(store variables.Backend, invoke AgentInvoker) *Pipeline {
	return &Pipeline{store: store, invoke: invoke}
}

// Run executes transforms in order against c, returning the rewritten
// Context.
func (p *Pipeline) Run(ctx context.Context, transforms []workflow.Transform, c convo.Context) (convo.Context, error) {
	for _, t := range transforms {
		var err error
		switch t.Kind {
		case workflow.TransformAssistant:
			c, err = p.runAssistant(ctx, t, c)
		case workflow.TransformUser:
			c, err = p.runUser(ctx, t, c)
		case workflow.TransformTap:
			err = p.runTap(ctx, t, c)
		default:
			err = fmt.Errorf("unknown transform kind %d", t.Kind)
		}
		if err != nil {
			return c, err
		}
	}
	return c, nil
}

// approxTokens is a rough token estimate (4 bytes/token, the common
// heuristic for English prose) used only to decide when a window exceeds
// token_limit. The original's exact Summarize/token-counting logic was not
// present in the retrieved source, so this approximation is a documented
// design decision (see DESIGN.md) rather than a transcription.
func approxTokens(s string) int {
	return (len(s) + 3) / 4
}

func textOf(m convo.Message) string {
	switch {
	case m.Content != nil:
		return m.Content.Content
	case m.ToolResult != nil:
		return string(m.ToolResult.Content)
	default:
		return ""
	}
}

// nextWindow scans messages starting at start and returns the end index
// (exclusive) of the first run whose cumulative approximate token count
// exceeds limit. found is false when no such window exists before the end
// of messages.
func nextWindow(messages []convo.Message, start, limit int) (end int, found bool) {
	total := 0
	for i := start; i < len(messages); i++ {
		total += approxTokens(textOf(messages[i]))
		if total > limit {
			return i + 1, true
		}
	}
	return 0, false
}

// runAssistant iterates successive over-limit windows, summarising each via
// the named sub-agent and replacing it with a single Assistant message
// carrying the summary, until no window exceeds token_limit (spec §4.7
// Assistant).
func (p *Pipeline) runAssistant(ctx context.Context, t workflow.Transform, c convo.Context) (convo.Context, error) {
	start := 0
	for {
		end, found := nextWindow(c.Messages, start, t.TokenLimit)
		if !found {
			return c, nil
		}

		window := c.Messages[start:end]
		var windowText string
		for _, m := range window {
			windowText += textOf(m)
		}

		input := variables.Values{}.Set(t.InputKey, mustMarshal(windowText))
		if err := p.invoke(ctx, t.AgentID, input); err != nil {
			return c, err
		}

		value, ok := p.store.Get(t.OutputKey)
		if !ok {
			return c, &UndefinedVariableError{Key: t.OutputKey}
		}
		summary := decodeToString(value)

		rewritten := make([]convo.Message, 0, len(c.Messages)-len(window)+1)
		rewritten = append(rewritten, c.Messages[:start]...)
		rewritten = append(rewritten, convo.Assistant(summary, nil))
		rewritten = append(rewritten, c.Messages[end:]...)
		c.Messages = rewritten

		start++
	}
}

// runUser copies the last User message's content into Variables[input_key],
// runs the named sub-agent, and appends the sub-agent's output as an inline
// <output_key> block to that same message (spec §4.7 User). No-op if the
// last message is not a User ContentMessage.
func (p *Pipeline) runUser(ctx context.Context, t workflow.Transform, c convo.Context) (convo.Context, error) {
	if len(c.Messages) == 0 {
		return c, nil
	}
	last := c.Messages[len(c.Messages)-1]
	if last.Content == nil || last.Content.Role != convo.RoleUser {
		return c, nil
	}

	input := variables.Values{}.Set(t.InputKey, mustMarshal(last.Content.Content))
	if err := p.invoke(ctx, t.AgentID, input); err != nil {
		return c, err
	}

	value, ok := p.store.Get(t.OutputKey)
	if !ok {
		return c, &UndefinedVariableError{Key: t.OutputKey}
	}
	message := decodeToString(value)

	updated := *last.Content
	updated.Content = fmt.Sprintf("%s\n<%s>\n%s\n</%s>", updated.Content, t.OutputKey, message, t.OutputKey)

	rewritten := make([]convo.Message, len(c.Messages))
	copy(rewritten, c.Messages)
	rewritten[len(rewritten)-1] = convo.Message{Content: &updated}
	c.Messages = rewritten
	return c, nil
}

// runTap places the entire rendered context into Variables[input_key] and
// runs the named sub-agent for its side effects. It never mutates c (spec
// §4.7 Tap, §8 property 7: ctx_after == ctx_before).
func (p *Pipeline) runTap(ctx context.Context, t workflow.Transform, c convo.Context) error {
	input := variables.Values{}.Set(t.InputKey, mustMarshal(c.ToText()))
	return p.invoke(ctx, t.AgentID, input)
}

func mustMarshal(s string) json.RawMessage {
	raw, err := json.Marshal(s)
	if err != nil {
		// s is always a plain Go string; json.Marshal on a string cannot fail.
		panic(err)
	}
	return raw
}

func decodeToString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
