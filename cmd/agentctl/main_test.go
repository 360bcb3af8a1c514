package main

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flowctl/agentruntime/command"
	"github.com/flowctl/agentruntime/convo"
	"github.com/flowctl/agentruntime/provider"
	"github.com/flowctl/agentruntime/store/inmem"
	"github.com/flowctl/agentruntime/telemetry"
	"github.com/flowctl/agentruntime/tools"
	"github.com/flowctl/agentruntime/workflow"
)

type scriptedStreamer struct {
	messages []provider.ChatCompletionMessage
	pos      int
}

func (s *scriptedStreamer) Recv() (provider.ChatCompletionMessage, error) {
	if s.pos >= len(s.messages) {
		return provider.ChatCompletionMessage{}, io.EOF
	}
	m := s.messages[s.pos]
	s.pos++
	return m, nil
}

func (s *scriptedStreamer) Close() error { return nil }

type fakeProvider struct{}

func (fakeProvider) Chat(context.Context, workflow.ModelId, convo.Context) (provider.Streamer, error) {
	return &scriptedStreamer{messages: []provider.ChatCompletionMessage{
		{ContentDelta: "hi there"},
		{FinishReason: "stop"},
	}}, nil
}

func (fakeProvider) Models(context.Context) ([]provider.Model, error) {
	return []provider.Model{{ID: "m", Name: "Model"}}, nil
}

func (fakeProvider) Parameters(context.Context, workflow.ModelId) (provider.Parameters, error) {
	return provider.Parameters{}, nil
}

func mustTemplate(t *testing.T, raw string) workflow.Template {
	t.Helper()
	tmpl, err := workflow.NewTemplate("t", raw)
	require.NoError(t, err)
	return tmpl
}

func testWorkflow(t *testing.T) workflow.Workflow {
	t.Helper()
	return workflow.Workflow{
		Head: "assistant",
		Agents: map[workflow.AgentId]workflow.Agent{
			"assistant": {
				ID:           "assistant",
				Model:        "m",
				SystemPrompt: mustTemplate(t, "you are helpful"),
				UserPrompt:   mustTemplate(t, "{{.message}}"),
			},
		},
	}
}

func newTestCLI(t *testing.T) *cli {
	t.Helper()
	return &cli{
		logger:        telemetry.NewNoopLogger(),
		env:           provider.NewEnvironment(),
		workflow:      testWorkflow(t),
		provider:      fakeProvider{},
		registry:      tools.NewRegistry(),
		conversations: inmem.New(),
		inputKey:      "message",
	}
}

func TestResetCreatesConversationAndOrchestrator(t *testing.T) {
	c := newTestCLI(t)
	require.NoError(t, c.reset(context.Background()))
	require.NotEmpty(t, c.conversationID)
	require.NotNil(t, c.orch)
}

func TestResetWiresTelemetryWhenDebug(t *testing.T) {
	c := newTestCLI(t)
	c.debug = true
	require.NoError(t, c.reset(context.Background()))
	require.NoError(t, c.send(context.Background(), "hello"))
}

func TestSendStreamsTextAndPersistsContext(t *testing.T) {
	c := newTestCLI(t)
	require.NoError(t, c.reset(context.Background()))

	require.NoError(t, c.send(context.Background(), "hello"))

	got, err := c.conversations.Get(context.Background(), c.conversationID)
	require.NoError(t, err)
	require.Contains(t, got.Contexts, workflow.AgentId("assistant"))
}

func TestHandleConfigSetGetList(t *testing.T) {
	c := newTestCLI(t)

	c.handleConfig(command.ConfigCommand{Kind: command.ConfigSet, Key: "tool_timeout", Value: "30"})
	require.Equal(t, "30", c.config["tool_timeout"])

	c.handleConfig(command.ConfigCommand{Kind: command.ConfigGet, Key: "tool_timeout"})
	c.handleConfig(command.ConfigCommand{Kind: command.ConfigList})
}

func TestBuildProviderRejectsUnknownBackend(t *testing.T) {
	_, err := buildProvider("made-up", provider.NewEnvironment())
	require.Error(t, err)
}

func TestBuildProviderRequiresAPIKeyForAnthropic(t *testing.T) {
	for _, name := range []string{"FORGE_KEY", "OPEN_ROUTER_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY"} {
		t.Setenv(name, "")
	}
	_, err := buildProvider("anthropic", provider.NewEnvironment())
	require.Error(t, err)
}
