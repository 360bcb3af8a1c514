// Package store defines the Conversation Store contract (spec §6): the one
// persistence interface this runtime requires to survive a process
// restart. The spec treats conversation persistence as an external,
// contract-only collaborator (spec §1); store/inmem and store/mongo are the
// two concrete implementations this runtime ships, mirroring the teacher's
// Mongo-backed features/memory store generalized from per-agent snapshots
// to whole-conversation state (workflow, every agent's Context, and the
// dispatch event log).
package store

import (
	"context"
	"errors"
	"time"

	"github.com/flowctl/agentruntime/convo"
	"github.com/flowctl/agentruntime/workflow"
)

// ErrNotFound is returned by Get when no Conversation exists for the given
// workflow.ConversationId.
var ErrNotFound = errors.New("store: conversation not found")

// EventKind classifies a DispatchEvent.
type EventKind string

const (
	EventToolCall   EventKind = "tool_call"
	EventToolResult EventKind = "tool_result"
	EventAgentStart EventKind = "agent_start"
	EventAgentStop  EventKind = "agent_stop"
)

// DispatchEvent is one entry of a Conversation's append-only event log: a
// record of something the Tool Dispatcher (C3) or Orchestrator (C9) did,
// kept independently of the mutable per-agent Context so a caller can
// replay what happened without reconstructing it from context diffs.
type DispatchEvent struct {
	Kind      EventKind
	Agent     workflow.AgentId
	ToolName  string
	Timestamp time.Time
	Data      map[string]any
}

// Conversation is the durable state of one workflow run: the workflow
// definition it was created from, the retained Context of every
// non-ephemeral agent, and the event log.
type Conversation struct {
	ID       workflow.ConversationId
	Workflow workflow.Workflow
	Contexts map[workflow.AgentId]convo.Context
	Events   []DispatchEvent
}

// ConversationStore is the persistence contract (spec §6): get/create/
// set_context/insert_event. Implementations must make SetContext and
// InsertEvent safe for concurrent use by multiple agents of the same
// conversation.
type ConversationStore interface {
	Get(ctx context.Context, id workflow.ConversationId) (Conversation, error)
	Create(ctx context.Context, wf workflow.Workflow) (workflow.ConversationId, error)
	SetContext(ctx context.Context, id workflow.ConversationId, agent workflow.AgentId, c convo.Context) error
	InsertEvent(ctx context.Context, id workflow.ConversationId, event DispatchEvent) error
}
