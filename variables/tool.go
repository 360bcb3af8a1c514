package variables

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/flowctl/agentruntime/toolerrors"
	"github.com/flowctl/agentruntime/tools"
)

// ReadVariableName and WriteVariableName are the synthetic tool identifiers
// injected into every agent's tool list (spec §4.5), following the suffix
// convention spec.md requires (`*_read_variable`/`*_write_variable`; the
// original's concrete instance is forge_read_variable/forge_write_variable).
const (
	ReadVariableName  tools.Ident = "agent_read_variable"
	WriteVariableName tools.Ident = "agent_write_variable"
)

var readVariableSchema = json.RawMessage(`{
	"type": "object",
	"properties": {"name": {"type": "string"}},
	"required": ["name"]
}`)

var writeVariableSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"name": {"type": "string"},
		"value": {}
	},
	"required": ["name", "value"]
}`)

type readVariableArgs struct {
	Name string `json:"name"`
}

type writeVariableArgs struct {
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value"`
}

type readResult struct {
	Found bool            `json:"found"`
	Value json.RawMessage `json:"value,omitempty"`
	// Message carries the "variable not found" explanation. Per spec §4.5
	// a missing key is a structured result, never an error tool-result.
	Message string `json:"message,omitempty"`
}

type writeResult struct {
	Message string `json:"message"`
}

// ReadVariableTool builds the synthetic read-variable tool bound to store.
func ReadVariableTool(store Backend) tools.Tool {
	return tools.Tool{
		Definition: tools.Definition{
			Name:        ReadVariableName,
			Description: "Reads a workflow-global variable by name.",
			InputSchema: readVariableSchema,
		},
		Executor: func(_ context.Context, raw json.RawMessage) (json.RawMessage, error) {
			var args readVariableArgs
			if err := json.Unmarshal(raw, &args); err != nil {
				return nil, toolerrors.NewWithCause("decode read_variable arguments", err)
			}
			value, ok := store.Get(args.Name)
			if !ok {
				return json.Marshal(readResult{
					Found:   false,
					Message: fmt.Sprintf("variable %q not found", args.Name),
				})
			}
			return json.Marshal(readResult{Found: true, Value: value})
		},
	}
}

// WriteVariableTool builds the synthetic write-variable tool bound to store.
func WriteVariableTool(store Backend) tools.Tool {
	return tools.Tool{
		Definition: tools.Definition{
			Name:        WriteVariableName,
			Description: "Writes a workflow-global variable by name.",
			InputSchema: writeVariableSchema,
		},
		Executor: func(_ context.Context, raw json.RawMessage) (json.RawMessage, error) {
			var args writeVariableArgs
			if err := json.Unmarshal(raw, &args); err != nil {
				return nil, toolerrors.NewWithCause("decode write_variable arguments", err)
			}
			store.Set(args.Name, args.Value)
			return json.Marshal(writeResult{
				Message: fmt.Sprintf("variable %s set", args.Name),
			})
		},
	}
}
