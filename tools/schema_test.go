package tools_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flowctl/agentruntime/tools"
)

func TestValidateArgumentsAcceptsMatchingPayload(t *testing.T) {
	def := tools.Definition{
		Name: "search",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {"query": {"type": "string"}},
			"required": ["query"]
		}`),
	}
	err := tools.ValidateArguments(def, json.RawMessage(`{"query": "hello"}`))
	require.NoError(t, err)
}

func TestValidateArgumentsRejectsMissingField(t *testing.T) {
	def := tools.Definition{
		Name: "search",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {"query": {"type": "string"}},
			"required": ["query"]
		}`),
	}
	err := tools.ValidateArguments(def, json.RawMessage(`{}`))
	require.Error(t, err)
	var schemaErr *tools.SchemaError
	require.ErrorAs(t, err, &schemaErr)
}

func TestValidateArgumentsNoSchemaAlwaysPasses(t *testing.T) {
	def := tools.Definition{Name: "noop"}
	require.NoError(t, tools.ValidateArguments(def, json.RawMessage(`{"anything": true}`)))
}
