// Package provider defines the Provider contract (spec §6): the one
// interface this runtime requires of an LLM backend. The exact HTTP/SSE
// wire dialect is explicitly out of scope (spec §1); this package is the
// seam concrete adapters (provider/anthropic, provider/openai,
// provider/bedrock) implement. Grounded on the teacher's model.Streamer
// interface (runtime/agent/model, consumed via planner/stream.go's
// Recv()/io.EOF loop) generalized from the teacher's chunk-typed streaming
// to this spec's simpler content-delta/tool-call-fragment/usage message
// shape (spec §6 ChatCompletionMessage).
package provider

import (
	"context"
	"errors"

	"github.com/flowctl/agentruntime/convo"
	"github.com/flowctl/agentruntime/workflow"
)

// ErrRateLimited is returned by a Provider's Chat when the backend rejected
// the request due to rate limiting (e.g. HTTP 429). Adapters should wrap
// their transport-specific rate limit signal with this sentinel so
// provider-agnostic middleware (provider/ratelimit) can react to it.
var ErrRateLimited = errors.New("provider: rate limited")

// ToolCallFragment carries exactly one of a complete or partial tool call,
// as reported by a single streamed message.
type ToolCallFragment struct {
	Full    *convo.ToolCallFull
	Partial *convo.ToolCallPartial
}

// Usage reports token accounting for a completion.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// ChatCompletionMessage is one item of a Provider's completion stream (spec
// §6). Any subset of the optional fields may be populated.
type ChatCompletionMessage struct {
	ContentDelta string
	ToolCall     *ToolCallFragment
	Usage        *Usage
	FinishReason string
}

// Streamer is a lazy sequence of ChatCompletionMessage. Recv returns io.EOF
// once the stream is exhausted; Close releases any underlying transport and
// must be safe to call after EOF or on an abandoned stream (spec §5
// "the stream is drop-safe").
type Streamer interface {
	Recv() (ChatCompletionMessage, error)
	Close() error
}

// Model describes a model a Provider can serve completions from.
type Model struct {
	ID            workflow.ModelId
	Name          string
	ContextWindow int
}

// Parameters are the tunable generation parameters for a given model.
type Parameters struct {
	MaxTokens   int
	Temperature float64
}

// Provider is the external LLM backend collaborator (spec §6).
type Provider interface {
	Chat(ctx context.Context, model workflow.ModelId, c convo.Context) (Streamer, error)
	Models(ctx context.Context) ([]Model, error)
	Parameters(ctx context.Context, model workflow.ModelId) (Parameters, error)
}
