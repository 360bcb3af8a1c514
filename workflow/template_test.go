package workflow_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flowctl/agentruntime/variables"
	"github.com/flowctl/agentruntime/workflow"
)

func TestTemplateRendersVariablesValues(t *testing.T) {
	tmpl, err := workflow.NewTemplate("t", "topic: {{.topic}}")
	require.NoError(t, err)

	vals := variables.Values{"topic": json.RawMessage(`"go generics"`)}
	out, err := tmpl.Render(vals)
	require.NoError(t, err)
	require.Equal(t, "topic: go generics", out)
}

func TestTemplateMissingKeyRendersZeroValue(t *testing.T) {
	tmpl, err := workflow.NewTemplate("t", "value: [{{.missing}}]")
	require.NoError(t, err)

	out, err := tmpl.Render(variables.Values{})
	require.NoError(t, err)
	require.Equal(t, "value: []", out)
}

func TestTemplateRendersPlainMapData(t *testing.T) {
	tmpl, err := workflow.NewTemplate("t", "hello {{.name}}")
	require.NoError(t, err)

	out, err := tmpl.Render(map[string]any{"name": "world"})
	require.NoError(t, err)
	require.Equal(t, "hello world", out)
}
