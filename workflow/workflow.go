package workflow

import "fmt"

// UnknownAgentError reports a reference to an AgentId not present in a
// Workflow's agent map (spec §7 UnknownAgent — fatal for the orchestrator).
type UnknownAgentError struct {
	ID AgentId
}

func (e *UnknownAgentError) Error() string {
	return fmt.Sprintf("unknown agent %q", e.ID)
}

// Workflow is the declarative graph of cooperating agents the Orchestrator
// interprets (spec §3, §9). Agents is keyed by AgentId; Head names the
// agent execute() starts from.
type Workflow struct {
	Agents map[AgentId]Agent
	Head   AgentId
}

// GetAgent resolves id to its Agent, or an *UnknownAgentError.
func (w Workflow) GetAgent(id AgentId) (Agent, error) {
	agent, ok := w.Agents[id]
	if !ok {
		return Agent{}, &UnknownAgentError{ID: id}
	}
	return agent, nil
}

// GetHead resolves the workflow's head agent.
func (w Workflow) GetHead() (Agent, error) {
	return w.GetAgent(w.Head)
}

// FindAgent resolves name as an AgentId if the workflow has an agent with
// that id, for sub-agent-as-tool resolution (spec §4.8): when a tool call's
// name matches an AgentId rather than a registered tool, the Orchestrator
// recurses into that agent instead of dispatching a tool.
func (w Workflow) FindAgent(name ToolName) (Agent, bool) {
	agent, ok := w.Agents[AgentId(name)]
	return agent, ok
}

// Validate checks the Workflow invariants from spec §3: head must exist in
// Agents; every AgentId referenced by a transform must exist in Agents.
// Tool-list membership against the global tool catalog or the synthetic
// variable tools is checked by the caller (the registry and agent's own
// tool set are not visible here), matching the spec's three-way allowance
// (registered tool | synthetic variable tool | AgentId).
func (w Workflow) Validate() error {
	if _, ok := w.Agents[w.Head]; !ok {
		return &UnknownAgentError{ID: w.Head}
	}
	for _, agent := range w.Agents {
		for _, t := range agent.Transforms {
			if _, ok := w.Agents[t.AgentID]; !ok {
				return &UnknownAgentError{ID: t.AgentID}
			}
		}
	}
	return nil
}
