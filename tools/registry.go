package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Executor accepts a JSON argument value and produces either a JSON result
// value or an error. This is the one open-ended capability point in the
// tool model (spec §3): every tool, whatever its backing implementation,
// reduces to this signature.
type Executor func(ctx context.Context, args json.RawMessage) (json.RawMessage, error)

// Definition describes a tool's name, human-readable usage, and schema.
// Definitions are immutable once registered.
type Definition struct {
	Name         Ident
	Description  string
	InputSchema  JSONSchema
	OutputSchema JSONSchema // optional, may be nil
}

// Tool pairs a Definition with its Executor.
type Tool struct {
	Definition Definition
	Executor   Executor
}

// Registry is a name-keyed catalog of tools. It is safe for concurrent use;
// Register is expected to happen at startup before Lookup/List/UsagePrompt
// are called concurrently, but the mutex makes that not a hard requirement.
type Registry struct {
	mu    sync.RWMutex
	tools map[Ident]Tool
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[Ident]Tool)}
}

// Register adds or replaces a tool under its definition's name.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Definition.Name] = t
}

// Lookup resolves a tool by name.
func (r *Registry) Lookup(name Ident) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns all registered tool definitions sorted lexicographically by
// name. The registry must be deterministic so that identical workflows
// produce byte-identical system prompts across runs (spec §4.1).
func (r *Registry) List() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Definition, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t.Definition)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns the sorted list of registered tool names, used to build
// "unknown tool" recovery messages.
func (r *Registry) Names() []string {
	defs := r.List()
	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.Name.String()
	}
	return names
}

// UsagePrompt concatenates numbered, per-tool documentation in the same
// deterministic order as List, for inclusion in a rendered system prompt.
func (r *Registry) UsagePrompt() string {
	defs := r.List()
	var b strings.Builder
	for i, d := range defs {
		fmt.Fprintf(&b, "%d. %s: %s\n", i+1, d.Name, d.Description)
	}
	return b.String()
}

// ErrUnknownTool reports a dispatch miss and names the tools that are
// actually available, so a model reading the tool-result can recover.
type ErrUnknownTool struct {
	Name      Ident
	Available []string
}

func (e *ErrUnknownTool) Error() string {
	return fmt.Sprintf("unknown tool %q; available tools: %s", e.Name, strings.Join(e.Available, ", "))
}

// Resolve looks up name and returns a ready-to-use ErrUnknownTool error when
// missing, already populated with the current tool names.
func (r *Registry) Resolve(name Ident) (Tool, error) {
	if t, ok := r.Lookup(name); ok {
		return t, nil
	}
	return Tool{}, &ErrUnknownTool{Name: name, Available: r.Names()}
}
