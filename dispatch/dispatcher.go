// Package dispatch implements the Tool Dispatcher (C3): routing a resolved
// tool call to its executor and wrapping the outcome as a ToolResult,
// including a recovery-oriented message for unknown tool names. Grounded on
// original_source/crates/forge_domain/src/orch.rs's execute_tool fallback
// branch (tool_svc.call) and on the teacher's unknown-tool messaging
// pattern in runtime/toolregistry/executor/executor.go.
package dispatch

import (
	"context"
	"fmt"

	"github.com/flowctl/agentruntime/convo"
	"github.com/flowctl/agentruntime/toolerrors"
	"github.com/flowctl/agentruntime/tools"
)

// Dispatcher routes ToolCallFull values to the tools registered in a
// Registry.
type Dispatcher struct {
	registry *tools.Registry
}

// New constructs a Dispatcher bound to registry.
func New(registry *tools.Registry) *Dispatcher {
	return &Dispatcher{registry: registry}
}

// Call looks up tool_call.Name in the registry and invokes its executor.
// An executor error or schema failure is wrapped as an error ToolResult
// rather than propagated, so the conversation can continue (spec §4.3,
// §7 policy: "errors the model can plausibly recover from ... are reified
// as tool-results"). An unknown tool name produces an error ToolResult that
// names the tool and lists the available ones.
func (d *Dispatcher) Call(ctx context.Context, call convo.ToolCallFull) convo.ToolResult {
	tool, err := d.registry.Resolve(call.Name)
	if err != nil {
		return convo.ToolResult{
			Name:    call.Name,
			CallID:  call.CallID,
			Content: errorContent(err),
			IsError: true,
		}
	}

	if err := tools.ValidateArguments(tool.Definition, call.Arguments); err != nil {
		return convo.ToolResult{
			Name:    call.Name,
			CallID:  call.CallID,
			Content: errorContent(err),
			IsError: true,
		}
	}

	value, err := tool.Executor(ctx, call.Arguments)
	if err != nil {
		return convo.ToolResult{
			Name:    call.Name,
			CallID:  call.CallID,
			Content: errorContent(err),
			IsError: true,
		}
	}

	return convo.ToolResult{
		Name:    call.Name,
		CallID:  call.CallID,
		Content: value,
		IsError: false,
	}
}

// errorContent builds the tool-result payload for a failed call, routing
// err through toolerrors.ToolError so callers that care (errors.Is/As
// against a sentinel, a retained Cause chain) still can before it flattens
// to the wire string the spec requires.
func errorContent(err error) []byte {
	te := toolerrors.FromError(err)
	return []byte(fmt.Sprintf("<error>%s</error>", te.Error()))
}
