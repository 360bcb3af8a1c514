// Package orchestrator implements the Orchestrator (C9): the workflow
// interpreter that resolves the head agent, drives it through the Agent
// Runner, and multiplexes streaming responses onto a single bounded
// subscriber channel. Grounded on
// original_source/crates/forge_domain/src/orch.rs's Orchestrator struct and
// its execute/send/send_message methods (the mpsc sender wrapping every
// stream item in an AgentMessage).
package orchestrator

import (
	"context"

	"github.com/flowctl/agentruntime/convo"
	"github.com/flowctl/agentruntime/provider"
	"github.com/flowctl/agentruntime/runner"
	"github.com/flowctl/agentruntime/telemetry"
	"github.com/flowctl/agentruntime/tools"
	"github.com/flowctl/agentruntime/variables"
	"github.com/flowctl/agentruntime/workflow"
)

// SubscriberBufferSize is the bounded channel capacity for the subscriber
// stream (spec §4.9: "a single bounded channel (capacity 100)").
const SubscriberBufferSize = 100

// AgentMessage tags a ChatResponse with an agent id, mirroring the
// original's AgentMessage<T> wrapper. Execute sets Agent to the workflow
// head's id on every item, including items produced by sub-agents the head
// invokes as tools; it does not tell sub-agent output apart.
type AgentMessage struct {
	Agent workflow.AgentId
	runner.ChatResponse
}

// Orchestrator interprets a Workflow: it resolves the head agent and runs
// it via a Runner, forwarding every stream item to a bounded subscriber
// channel (spec §4.9).
type Orchestrator struct {
	workflow workflow.Workflow
	runner   *runner.Runner
}

// New constructs an Orchestrator over wf, wiring a fresh Runner (and its
// Registry, Dispatcher, Variable Store, OrchestratorState) from the given
// tool registry and provider. The Variable Store defaults to the
// in-process variables.Store; use NewWithBackend to share one across
// multiple orchestrator processes (e.g. variables/redis_store.go).
func New(wf workflow.Workflow, registry *tools.Registry, prov provider.Provider) *Orchestrator {
	return NewWithBackend(wf, registry, prov, variables.NewStore())
}

// NewWithBackend is New with an explicit variables.Backend, for deployments
// that run more than one orchestrator process sharing workflow variables
// through a distributed backend.
func NewWithBackend(wf workflow.Workflow, registry *tools.Registry, prov provider.Provider, store variables.Backend) *Orchestrator {
	registry.Register(variables.ReadVariableTool(store))
	registry.Register(variables.WriteVariableTool(store))

	return &Orchestrator{
		workflow: wf,
		runner:   runner.New(wf, registry, prov, store),
	}
}

// WithTelemetry replaces the Runner's no-op Metrics/Tracer with real ones
// (e.g. telemetry.NewClueMetrics/NewClueTracer), returning o for chaining.
func (o *Orchestrator) WithTelemetry(metrics telemetry.Metrics, tracer telemetry.Tracer) *Orchestrator {
	o.runner.Metrics = metrics
	o.runner.Tracer = tracer
	return o
}

// Execute resolves the workflow's head agent and runs it to completion,
// returning a receive-only channel of AgentMessage. The channel is closed
// when execute returns, whether by normal termination or by a fatal error
// forwarded as a final item is not modeled here: a hard error is instead
// returned directly to the caller once draining completes, since Go's
// idiomatic equivalent of "error item before stream ends" is a trailing
// error return alongside channel closure (spec §7 policy).
//
// On subscriber drop (nobody draining the channel), sends block only for
// the lifetime of one buffered slot past SubscriberBufferSize before the
// run's goroutine would stall — callers are expected to keep draining for
// the duration of Execute, matching the spec's "never blocks on a dead
// subscriber beyond one buffered slot" only when paired with a context
// cancellation that unblocks the run.
func (o *Orchestrator) Execute(ctx context.Context, input variables.Values) (<-chan AgentMessage, <-chan error) {
	out := make(chan AgentMessage, SubscriberBufferSize)
	errc := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errc)

		head, err := o.workflow.GetHead()
		if err != nil {
			errc <- err
			return
		}

		emit := func(r runner.ChatResponse) {
			select {
			case out <- AgentMessage{Agent: head.ID, ChatResponse: r}:
			case <-ctx.Done():
			}
		}

		if err := o.runner.InitAgent(ctx, head.ID, input, emit); err != nil {
			errc <- err
		}
	}()

	return out, errc
}

// AgentContext exposes the retained Context for a non-ephemeral agent, for
// inspection or a Conversation Store snapshot.
func (o *Orchestrator) AgentContext(id workflow.AgentId) (convo.Context, bool) {
	return o.runner.State.Get(id)
}
