package workflow

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// config is the on-disk YAML shape a Workflow is loaded from. Grounded on
// simonyos-Z-CODE/internal/workflows/loader.go's LoadFromFile (read file,
// yaml.Unmarshal, then run the domain Validate), generalized from that
// repo's flat WorkflowDefinition to this spec's agent-map-plus-head shape
// (spec §3 Workflow).
type config struct {
	Head   string                 `yaml:"head"`
	Agents map[string]agentConfig `yaml:"agents"`
}

type agentConfig struct {
	Model        string            `yaml:"model"`
	SystemPrompt string            `yaml:"system_prompt"`
	UserPrompt   string            `yaml:"user_prompt"`
	Tools        []string          `yaml:"tools"`
	Ephemeral    bool              `yaml:"ephemeral"`
	Transforms   []transformConfig `yaml:"transforms"`
}

type transformConfig struct {
	Kind       string `yaml:"kind"` // "assistant" | "user" | "tap"
	Agent      string `yaml:"agent"`
	TokenLimit int    `yaml:"token_limit"`
	Input      string `yaml:"input"`
	Output     string `yaml:"output"`
}

// LoadFile reads path as YAML and decodes it into a validated Workflow.
func LoadFile(path string) (Workflow, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Workflow{}, fmt.Errorf("read workflow file %q: %w", path, err)
	}
	return Parse(content)
}

// Parse decodes raw YAML bytes into a validated Workflow.
func Parse(raw []byte) (Workflow, error) {
	var cfg config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Workflow{}, fmt.Errorf("parse workflow YAML: %w", err)
	}

	agents := make(map[AgentId]Agent, len(cfg.Agents))
	for name, ac := range cfg.Agents {
		agent, err := buildAgent(name, ac)
		if err != nil {
			return Workflow{}, err
		}
		agents[AgentId(name)] = agent
	}

	wf := Workflow{Agents: agents, Head: AgentId(cfg.Head)}
	if err := wf.Validate(); err != nil {
		return Workflow{}, err
	}
	return wf, nil
}

func buildAgent(name string, ac agentConfig) (Agent, error) {
	systemTmpl, err := NewTemplate(name+".system", ac.SystemPrompt)
	if err != nil {
		return Agent{}, err
	}
	userTmpl, err := NewTemplate(name+".user", ac.UserPrompt)
	if err != nil {
		return Agent{}, err
	}

	toolNames := make([]ToolName, len(ac.Tools))
	for i, t := range ac.Tools {
		toolNames[i] = ToolName(t)
	}

	transforms := make([]Transform, len(ac.Transforms))
	for i, tc := range ac.Transforms {
		transform, err := buildTransform(tc)
		if err != nil {
			return Agent{}, fmt.Errorf("agent %q: %w", name, err)
		}
		transforms[i] = transform
	}

	return Agent{
		ID:           AgentId(name),
		Model:        ModelId(ac.Model),
		SystemPrompt: systemTmpl,
		UserPrompt:   userTmpl,
		Tools:        toolNames,
		Transforms:   transforms,
		Ephemeral:    ac.Ephemeral,
	}, nil
}

func buildTransform(tc transformConfig) (Transform, error) {
	t := Transform{
		AgentID:    AgentId(tc.Agent),
		TokenLimit: tc.TokenLimit,
		InputKey:   tc.Input,
		OutputKey:  tc.Output,
	}
	switch tc.Kind {
	case "assistant":
		t.Kind = TransformAssistant
	case "user":
		t.Kind = TransformUser
	case "tap":
		t.Kind = TransformTap
	default:
		return Transform{}, fmt.Errorf("unknown transform kind %q", tc.Kind)
	}
	return t, nil
}
