package workflow

import (
	"bytes"
	"encoding/json"
	"fmt"
	"text/template"

	"github.com/flowctl/agentruntime/variables"
)

// Template is a compiled prompt template rendered against a Variables
// snapshot (spec §3: "Templates are rendered against a Variables
// dictionary"). Grounded on the teacher's text/template registry pattern
// (runtime/agent/runtime/hints/hints.go) generalized from a global map of
// per-tool templates to a per-Agent pair of prompt templates.
type Template struct {
	source   string
	compiled *template.Template
}

// NewTemplate parses raw as a text/template body named name.
func NewTemplate(name, raw string) (Template, error) {
	compiled, err := template.New(name).Option("missingkey=zero").Parse(raw)
	if err != nil {
		return Template{}, fmt.Errorf("parse template %q: %w", name, err)
	}
	return Template{source: raw, compiled: compiled}, nil
}

// Source returns the original, unparsed template text.
func (t Template) Source() string { return t.source }

// Render executes the template against data, which may be a plain
// map[string]any (e.g. SystemContext) or a variables.Values snapshot. A key
// missing from data renders as the empty string: text/template prints such
// a key of an interface-valued map as "<no value>", and every occurrence of
// that text is removed from the output.
func (t Template) Render(data any) (string, error) {
	if t.compiled == nil {
		return "", nil
	}
	var buf bytes.Buffer
	if err := t.compiled.Execute(&buf, templateData(data)); err != nil {
		return "", fmt.Errorf("render template %q: %w", t.compiled.Name(), err)
	}
	return string(bytes.ReplaceAll(buf.Bytes(), []byte("<no value>"), nil)), nil
}

// templateData normalizes a variables.Values snapshot into plain Go values
// so templates can reference {{.key}} without caring that the store keeps
// values as raw JSON. Any other input is passed through unchanged.
func templateData(data any) any {
	values, ok := data.(variables.Values)
	if !ok {
		return data
	}
	out := make(map[string]any, len(values))
	for k, raw := range values {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			// Not valid JSON (e.g. a bare rendered string accumulated by a
			// transform) — fall back to the raw bytes as a string.
			out[k] = string(raw)
			continue
		}
		out[k] = v
	}
	return out
}
