// Package telemetry declares the Logger/Metrics/Tracer contracts used by the
// runtime, grounded on
// goadesign-goa-ai/runtime/agents/telemetry/telemetry.go. Kept deliberately
// small so the Agent Runner and Orchestrator can log/instrument without
// depending on a concrete backend; logging itself is out of spec scope (see
// spec §1 Non-goals) but the ambient interface still needs a home for the
// rest of the runtime to compile against.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Logger captures structured logging used throughout the runtime.
type Logger interface {
	Debug(ctx context.Context, msg string, keyvals ...any)
	Info(ctx context.Context, msg string, keyvals ...any)
	Warn(ctx context.Context, msg string, keyvals ...any)
	Error(ctx context.Context, msg string, keyvals ...any)
}

// Metrics exposes counter, timer, and gauge helpers for runtime
// instrumentation.
type Metrics interface {
	IncCounter(name string, value float64, tags ...string)
	RecordTimer(name string, duration time.Duration, tags ...string)
	RecordGauge(name string, value float64, tags ...string)
}

// Tracer abstracts span creation so runtime code stays agnostic of the
// underlying OpenTelemetry provider.
type Tracer interface {
	Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, Span)
	Span(ctx context.Context) Span
}

// Span represents an in-flight tracing span.
type Span interface {
	End(opts ...trace.SpanEndOption)
	AddEvent(name string, attrs ...any)
	SetStatus(code codes.Code, description string)
	RecordError(err error, opts ...trace.EventOption)
}

// TurnTelemetry captures observability metadata collected during a single
// Agent Runner turn: a tool dispatch or a provider Chat call.
type TurnTelemetry struct {
	// DurationMs is the wall-clock execution time in milliseconds.
	DurationMs int64
	// TokensUsed tracks the total tokens consumed by the call, when known.
	TokensUsed int
	// Model identifies which model served the turn.
	Model string
	// Extra holds call-specific metadata not captured by the common fields.
	Extra map[string]any
}
