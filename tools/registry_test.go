package tools_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flowctl/agentruntime/tools"
)

func newTool(name string) tools.Tool {
	return tools.Tool{
		Definition: tools.Definition{Name: tools.Ident(name), Description: "does " + name},
		Executor: func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
			return json.RawMessage(`{}`), nil
		},
	}
}

func TestListIsLexicographicallySorted(t *testing.T) {
	r := tools.NewRegistry()
	r.Register(newTool("zeta"))
	r.Register(newTool("alpha"))
	r.Register(newTool("mike"))

	defs := r.List()
	require.Len(t, defs, 3)
	require.Equal(t, []tools.Ident{"alpha", "mike", "zeta"}, []tools.Ident{defs[0].Name, defs[1].Name, defs[2].Name})
}

func TestUsagePromptIsDeterministic(t *testing.T) {
	r := tools.NewRegistry()
	r.Register(newTool("b"))
	r.Register(newTool("a"))

	first := r.UsagePrompt()
	second := r.UsagePrompt()
	require.Equal(t, first, second)
	require.Contains(t, first, "1. a:")
	require.Contains(t, first, "2. b:")
}

func TestResolveUnknownToolListsAvailable(t *testing.T) {
	r := tools.NewRegistry()
	r.Register(newTool("known"))

	_, err := r.Resolve("missing")
	require.Error(t, err)
	var unknown *tools.ErrUnknownTool
	require.ErrorAs(t, err, &unknown)
	require.Equal(t, []string{"known"}, unknown.Available)
}
