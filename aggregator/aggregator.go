// Package aggregator implements the Streaming Tool-Call Aggregator (C4):
// it drains a Provider's completion stream and reassembles complete tool
// calls from full messages, partial fragments, and inline XML embedded in
// assistant text (spec §4.4). Grounded on
// original_source/crates/forge_domain/src/orch.rs's collect_messages
// (content concatenation, ToolCallFull::try_from_parts,
// ToolCallFull::try_from_xml) and, for the Recv()/io.EOF drain loop, on the
// teacher's planner.ConsumeStream (runtime/agent/planner/stream.go).
package aggregator

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/flowctl/agentruntime/convo"
	"github.com/flowctl/agentruntime/provider"
	"github.com/flowctl/agentruntime/tools"
)

// Result is one turn's aggregated output (spec §4.4).
type Result struct {
	Content   string
	ToolCalls []convo.ToolCallFull
}

// partialGroup accumulates ToolCallPartial fragments that belong together,
// keyed by call id when one is present.
type partialGroup struct {
	callID    string
	name      string
	arguments string
}

// tryResolve reports whether the accumulated fragments form a complete
// Full call: a non-empty name and arguments that parse as a complete JSON
// value (spec §4.4).
func (g *partialGroup) tryResolve() (convo.ToolCallFull, bool) {
	if g.name == "" {
		return convo.ToolCallFull{}, false
	}
	if !json.Valid([]byte(g.arguments)) {
		return convo.ToolCallFull{}, false
	}
	return convo.ToolCallFull{
		Name:      tools.Ident(g.name),
		CallID:    g.callID,
		Arguments: []byte(g.arguments),
	}, true
}

// Aggregate drains stream to completion, returning the concatenated text
// content and every reassembled tool call. Calls are ordered by source:
// Full calls in arrival order, then resolved partial groups in order of
// their first fragment, then inline XML calls in text order; a Full call
// that arrives after a partial group is still returned before it.
// Duplicates across the full/partial/XML sources are eliminated by call id when
// available; calls without an id are kept even if they coincide (spec
// §4.4: "both paths seeing the same call is rare and rejected at the
// provider").
func Aggregate(ctx context.Context, stream provider.Streamer) (Result, error) {
	var content []byte
	var fullCalls []convo.ToolCallFull

	groupsByID := make(map[string]*partialGroup)
	var groupOrder []*partialGroup
	var currentIDless *partialGroup

	for {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		msg, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return Result{}, err
		}

		content = append(content, msg.ContentDelta...)

		if msg.ToolCall == nil {
			continue
		}
		switch {
		case msg.ToolCall.Full != nil:
			fullCalls = append(fullCalls, *msg.ToolCall.Full)
		case msg.ToolCall.Partial != nil:
			p := msg.ToolCall.Partial
			if p.CallID != "" {
				g, ok := groupsByID[p.CallID]
				if !ok {
					g = &partialGroup{callID: p.CallID}
					groupsByID[p.CallID] = g
					groupOrder = append(groupOrder, g)
				}
				g.name += p.NameFragment
				g.arguments += p.ArgumentsFragment
				continue
			}
			// Open Question 2 resolution (spec §9): the first id-less
			// partial opens a new group; subsequent id-less partials join
			// the most recently opened open group, until it resolves.
			if currentIDless == nil {
				currentIDless = &partialGroup{}
				groupOrder = append(groupOrder, currentIDless)
			}
			currentIDless.name += p.NameFragment
			currentIDless.arguments += p.ArgumentsFragment
			if _, resolved := currentIDless.tryResolve(); resolved {
				currentIDless = nil
			}
		}
	}

	var reassembled []convo.ToolCallFull
	for _, g := range groupOrder {
		if call, ok := g.tryResolve(); ok {
			reassembled = append(reassembled, call)
		}
	}

	xmlCalls, err := ExtractToolCalls(string(content))
	if err != nil {
		return Result{}, err
	}

	all := dedupeByCallID(append(append(fullCalls, reassembled...), xmlCalls...))
	return Result{Content: string(content), ToolCalls: all}, nil
}

// dedupeByCallID drops later occurrences of a call id already seen. Calls
// without a call id are never deduplicated against each other.
func dedupeByCallID(calls []convo.ToolCallFull) []convo.ToolCallFull {
	seen := make(map[string]bool, len(calls))
	out := make([]convo.ToolCallFull, 0, len(calls))
	for _, c := range calls {
		if c.CallID == "" {
			out = append(out, c)
			continue
		}
		if seen[c.CallID] {
			continue
		}
		seen[c.CallID] = true
		out = append(out, c)
	}
	return out
}
