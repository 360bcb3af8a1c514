// Package runner implements the Agent Runner (C8): the per-agent
// conversation state machine driving prompt rendering, the turn loop, and
// persistence of non-ephemeral per-agent context. Grounded on
// original_source/crates/forge_domain/src/orch.rs's init_agent,
// init_agent_context, init_tool_definitions, and execute_tool (the
// variable-tool / sub-agent-as-tool / generic-dispatch three-way branch).
package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/flowctl/agentruntime/aggregator"
	"github.com/flowctl/agentruntime/convo"
	"github.com/flowctl/agentruntime/dispatch"
	"github.com/flowctl/agentruntime/provider"
	"github.com/flowctl/agentruntime/telemetry"
	"github.com/flowctl/agentruntime/tools"
	"github.com/flowctl/agentruntime/transform"
	"github.com/flowctl/agentruntime/variables"
	"github.com/flowctl/agentruntime/workflow"
)

// DefaultMaxDepth bounds agent-to-agent recursion (spec §9 Design Notes:
// "Keep recursion bounded by a configurable depth (default 16) to prevent
// workflow loops").
const DefaultMaxDepth = 16

// MaxDepthExceededError reports recursion past MaxDepth (spec §9: "fatal
// error").
type MaxDepthExceededError struct {
	MaxDepth int
	AgentID  workflow.AgentId
}

func (e *MaxDepthExceededError) Error() string {
	return fmt.Sprintf("max recursion depth %d exceeded while invoking agent %q", e.MaxDepth, e.AgentID)
}

// Runner drives InitAgent for every agent in a single Workflow, sharing a
// Registry, Dispatcher, Provider, Variable Store, and OrchestratorState.
type Runner struct {
	Workflow   workflow.Workflow
	Registry   *tools.Registry
	Dispatcher *dispatch.Dispatcher
	Provider   provider.Provider
	Variables  variables.Backend
	State      *State
	MaxDepth   int
	Metrics    telemetry.Metrics
	Tracer     telemetry.Tracer
}

// New constructs a Runner with DefaultMaxDepth and no-op telemetry; set
// Metrics/Tracer directly to wire a real backend (e.g.
// telemetry.NewClueMetrics/NewClueTracer).
func New(wf workflow.Workflow, registry *tools.Registry, prov provider.Provider, store variables.Backend) *Runner {
	return &Runner{
		Workflow:   wf,
		Registry:   registry,
		Dispatcher: dispatch.New(registry),
		Provider:   prov,
		Variables:  store,
		State:      NewState(),
		MaxDepth:   DefaultMaxDepth,
		Metrics:    telemetry.NewNoopMetrics(),
		Tracer:     telemetry.NewNoopTracer(),
	}
}

// InitAgent runs agent id's turn loop to completion (spec §4.8).
func (r *Runner) InitAgent(ctx context.Context, id workflow.AgentId, input variables.Values, emit Emitter) error {
	return r.initAgent(ctx, id, input, emit, 0)
}

func (r *Runner) initAgent(ctx context.Context, id workflow.AgentId, input variables.Values, emit Emitter, depth int) error {
	maxDepth := r.MaxDepth
	if maxDepth == 0 {
		maxDepth = DefaultMaxDepth
	}
	if depth > maxDepth {
		return &MaxDepthExceededError{MaxDepth: maxDepth, AgentID: id}
	}

	agent, err := r.Workflow.GetAgent(id)
	if err != nil {
		return err
	}

	cctx, err := r.loadOrInitContext(agent, input)
	if err != nil {
		return err
	}

	userContent, err := agent.UserPrompt.Render(input)
	if err != nil {
		return err
	}
	cctx = cctx.AddMessage(convo.User(userContent))

	invoke := func(ctx context.Context, subID workflow.AgentId, subInput variables.Values) error {
		return r.initAgent(ctx, subID, subInput, emit, depth+1)
	}
	pipeline := transform.NewPipeline(r.Variables, invoke)

	for {
		cctx, err = pipeline.Run(ctx, agent.Transforms, cctx)
		if err != nil {
			return err
		}

		stream, err := r.chat(ctx, agent, cctx)
		if err != nil {
			return err
		}
		result, aggErr := aggregator.Aggregate(ctx, stream)
		stream.Close()
		if aggErr != nil {
			return aggErr
		}

		if result.Content != "" {
			emit.emit(ChatResponse{Kind: ChatText, Text: result.Content})
		}

		toolResults, err := r.executeTools(ctx, result.ToolCalls, emit, depth)
		if err != nil {
			return err
		}

		cctx = cctx.
			AddMessage(convo.Assistant(result.Content, result.ToolCalls)).
			AddToolResults(toolResults)

		if !agent.Ephemeral {
			r.State.Set(agent.ID, cctx)
		}

		if len(toolResults) == 0 {
			emit.emit(ChatResponse{Kind: ChatComplete})
			return nil
		}
	}
}

// chat wraps a single Provider.Chat call with the Runner's Tracer/Metrics,
// so every turn's model call carries a span and latency/error counters
// regardless of which Provider backend is configured.
func (r *Runner) chat(ctx context.Context, agent workflow.Agent, cctx convo.Context) (provider.Streamer, error) {
	spanCtx, span := r.Tracer.Start(ctx, "agent_runner.chat")
	defer span.End()

	start := time.Now()
	stream, err := r.Provider.Chat(spanCtx, agent.Model, cctx)
	r.Metrics.RecordTimer("agent_runner.chat.duration", time.Since(start), "agent", agent.ID.String())
	if err != nil {
		span.RecordError(err)
		r.Metrics.IncCounter("agent_runner.chat.errors", 1, "agent", agent.ID.String())
		return nil, err
	}
	return stream, nil
}

// loadOrInitContext resolves the starting Context for a turn: ephemeral
// agents always start fresh; non-ephemeral agents resume from
// OrchestratorState, building fresh only on a first-turn miss.
func (r *Runner) loadOrInitContext(agent workflow.Agent, input variables.Values) (convo.Context, error) {
	if !agent.Ephemeral {
		if existing, ok := r.State.Get(agent.ID); ok {
			return existing, nil
		}
	}
	return r.initAgentContext(agent, input)
}

func (r *Runner) initAgentContext(agent workflow.Agent, input variables.Values) (convo.Context, error) {
	toolDefs := r.toolDefinitionsFor(agent)

	systemMessage, err := agent.SystemPrompt.Render(map[string]any{
		"tool_information": usagePromptFor(toolDefs),
	})
	if err != nil {
		return convo.Context{}, err
	}

	userMessage, err := agent.UserPrompt.Render(input)
	if err != nil {
		return convo.Context{}, err
	}

	return convo.Context{}.
		SetFirstSystemMessage(systemMessage).
		AddMessage(convo.User(userMessage)).
		ExtendTools(toolDefs), nil
}

// toolDefinitionsFor resolves agent's allowed tool names, plus the
// synthetic variable-read/write tools every agent gets (spec §4.5), against
// the registry and, for names that instead resolve to an AgentId,
// synthesizes a generic sub-agent-as-tool definition so the model knows it
// can invoke it (spec §4.8 S6). Sorted by name for deterministic system
// prompts (spec §4.1).
func (r *Runner) toolDefinitionsFor(agent workflow.Agent) []tools.Definition {
	names := append([]tools.Ident(nil), agent.Tools...)
	for _, synthetic := range []tools.Ident{variables.ReadVariableName, variables.WriteVariableName} {
		if !agent.AllowsTool(synthetic) {
			names = append(names, synthetic)
		}
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	defs := make([]tools.Definition, 0, len(names))
	for _, name := range names {
		if t, ok := r.Registry.Lookup(name); ok {
			defs = append(defs, t.Definition)
			continue
		}
		if sub, ok := r.Workflow.FindAgent(name); ok {
			defs = append(defs, tools.Definition{
				Name:        name,
				Description: fmt.Sprintf("Invoke the %s sub-agent as a tool.", sub.ID),
				InputSchema: json.RawMessage(`{"type":"object"}`),
			})
		}
	}
	return defs
}

func usagePromptFor(defs []tools.Definition) string {
	var out string
	for i, d := range defs {
		out += fmt.Sprintf("%d. %s: %s\n", i+1, d.Name, d.Description)
	}
	return out
}

// executeTools dispatches calls strictly in extraction order (spec §5:
// "no inter-tool parallelism at the orchestration layer"; spec §9 open
// question 3, kept sequential). A call whose name resolves to an AgentId
// recurses into InitAgent instead of producing a ToolResult — sub-agents
// communicate their effect through Variables, not a tool-result message
// (spec §4.8, §8 S6).
func (r *Runner) executeTools(ctx context.Context, calls []convo.ToolCallFull, emit Emitter, depth int) ([]convo.ToolResult, error) {
	var results []convo.ToolResult
	for _, call := range calls {
		emit.emit(ChatResponse{Kind: ChatToolCallDetected, ToolName: call.Name})

		if sub, ok := r.Workflow.FindAgent(call.Name); ok {
			var input variables.Values
			if len(call.Arguments) > 0 {
				if err := json.Unmarshal(call.Arguments, &input); err != nil {
					return nil, fmt.Errorf("decode arguments for sub-agent %q: %w", sub.ID, err)
				}
			}
			emit.emit(ChatResponse{Kind: ChatToolCallStart})
			if err := r.initAgent(ctx, sub.ID, input, emit, depth+1); err != nil {
				return nil, err
			}
			continue
		}

		result := r.Dispatcher.Call(ctx, call)
		results = append(results, result)
		emit.emit(ChatResponse{Kind: ChatToolCallEnd, ToolResult: result})
	}
	return results, nil
}
