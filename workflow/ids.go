// Package workflow is the declarative data model the Orchestrator (C9) and
// Agent Runner (C8) interpret: agents, their prompt templates, transforms,
// and the workflow graph tying them together (spec §3). It is grounded on
// the type surface re-exported by original_source/crates/forge_domain's
// agent/workflow modules as used from orch.rs (Agent.id/model/system_prompt/
// user_prompt/tools/transforms/ephemeral, Workflow.find_agent/get_agent/
// get_head) — those two source files themselves were not retained in the
// filtered original_source tree, so the shape here is reconstructed from
// their call sites rather than transcribed from a definition.
package workflow

import "github.com/flowctl/agentruntime/tools"

// AgentId identifies an Agent within a Workflow. Opaque, hashable,
// equality by value.
type AgentId string

func (id AgentId) String() string { return string(id) }

// ModelId identifies a model a Provider can serve a completion from.
type ModelId string

func (id ModelId) String() string { return string(id) }

// ConversationId identifies a persisted Conversation in the Conversation
// Store collaborator.
type ConversationId string

func (id ConversationId) String() string { return string(id) }

// ToolName is an alias of tools.Ident: within a Workflow a "tool name" an
// Agent lists may resolve either to a registered Tool or to another Agent
// invoked as a sub-agent-as-tool (spec §4.8), so the two identifier spaces
// share a representation.
type ToolName = tools.Ident
