package workflow

// TransformKind distinguishes the three Transform Pipeline stage shapes
// (spec §3, §4.7).
type TransformKind int

const (
	TransformAssistant TransformKind = iota
	TransformUser
	TransformTap
)

// Transform is a tagged variant over the three pre-turn context rewrites a
// Transform Pipeline stage (C7) can perform. Which fields are meaningful
// depends on Kind:
//   - Assistant: AgentID, TokenLimit, InputKey, OutputKey
//   - User: AgentID, InputKey, OutputKey
//   - Tap: AgentID, InputKey
type Transform struct {
	Kind       TransformKind
	AgentID    AgentId
	TokenLimit int
	InputKey   string
	OutputKey  string
}

// Agent is a named configuration of model, prompts, allowed tools,
// transforms, and ephemerality (spec §3, GLOSSARY). Templates are rendered
// against a Variables dictionary at init time and at each turn.
type Agent struct {
	ID           AgentId
	Model        ModelId
	SystemPrompt Template
	UserPrompt   Template
	Tools        []ToolName
	Transforms   []Transform
	Ephemeral    bool
}

// AllowsTool reports whether name is in this agent's allowed tool list.
func (a Agent) AllowsTool(name ToolName) bool {
	for _, t := range a.Tools {
		if t == name {
			return true
		}
	}
	return false
}
