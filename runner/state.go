package runner

import (
	"sync"

	"github.com/flowctl/agentruntime/convo"
	"github.com/flowctl/agentruntime/workflow"
)

// State is the OrchestratorState (spec §3): per-agent Context retained
// across turns for non-ephemeral agents only. Created when the
// orchestrator starts; each agent's entry is created on first turn,
// replaced after each turn, and retained until orchestrator teardown.
// Ephemeral agents never appear here — they own their context locally for
// the duration of a single InitAgent call.
type State struct {
	mu      sync.Mutex
	byAgent map[workflow.AgentId]convo.Context
}

// NewState constructs an empty State.
func NewState() *State {
	return &State{byAgent: make(map[workflow.AgentId]convo.Context)}
}

// Get returns the retained Context for id, and whether one exists.
func (s *State) Get(id workflow.AgentId) (convo.Context, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byAgent[id]
	return c, ok
}

// Set replaces the retained Context for id. Writes are totally ordered:
// each turn's write strictly follows the previous turn's read (spec §5).
func (s *State) Set(id workflow.AgentId, c convo.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byAgent[id] = c
}
