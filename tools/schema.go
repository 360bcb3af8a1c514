package tools

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// SchemaError reports that a tool call's arguments failed validation
// against the tool's registered input schema (spec §7 SchemaError). The
// Dispatcher wraps this as an error tool-result so the model can correct
// its call instead of failing the run.
type SchemaError struct {
	Tool   Ident
	Issues []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("tool %q arguments failed schema validation: %v", e.Tool, e.Issues)
}

// ValidateArguments compiles def.InputSchema (if set) and validates args
// against it. A nil or empty InputSchema is treated as "no constraints".
func ValidateArguments(def Definition, args json.RawMessage) error {
	if len(def.InputSchema) == 0 {
		return nil
	}

	var schemaDoc any
	if err := json.Unmarshal(def.InputSchema, &schemaDoc); err != nil {
		return fmt.Errorf("tool %q: invalid input schema: %w", def.Name, err)
	}

	compiler := jsonschema.NewCompiler()
	resourceName := "mem://" + string(def.Name) + "/input.json"
	if err := compiler.AddResource(resourceName, schemaDoc); err != nil {
		return fmt.Errorf("tool %q: load input schema: %w", def.Name, err)
	}
	schema, err := compiler.Compile(resourceName)
	if err != nil {
		return fmt.Errorf("tool %q: compile input schema: %w", def.Name, err)
	}

	var value any
	if len(args) == 0 {
		value = map[string]any{}
	} else if err := json.Unmarshal(args, &value); err != nil {
		return fmt.Errorf("tool %q: arguments are not valid JSON: %w", def.Name, err)
	}

	if err := schema.Validate(value); err != nil {
		return &SchemaError{Tool: def.Name, Issues: []string{err.Error()}}
	}
	return nil
}
