package runner

import (
	"github.com/flowctl/agentruntime/convo"
	"github.com/flowctl/agentruntime/provider"
	"github.com/flowctl/agentruntime/tools"
	"github.com/flowctl/agentruntime/workflow"
)

// ChatResponseKind tags a ChatResponse's active field (spec §3
// ChatResponse, §4.9).
type ChatResponseKind int

const (
	ChatText ChatResponseKind = iota
	ChatToolCallDetected
	ChatToolCallArgPart
	ChatToolCallStart
	ChatToolCallEnd
	ChatConversationStarted
	ChatUsage
	ChatCompleteTitle
	ChatVariableSet
	ChatFinishReason
	ChatComplete
)

// ChatResponse is one item of the Orchestrator's subscriber stream (spec
// §3). Only the field(s) relevant to Kind are meaningful.
type ChatResponse struct {
	Kind ChatResponseKind

	Text           string // Text, ToolCallArgPart, CompleteTitle, FinishReason
	ToolName       tools.Ident
	ToolResult     convo.ToolResult
	ConversationID workflow.ConversationId
	Usage          provider.Usage
	VariableKey    string
	VariableValue  []byte
}

// Emitter publishes a ChatResponse to the Orchestrator's subscriber
// channel. A nil Emitter is valid and simply discards every event, so
// Runner can be driven directly in tests without a channel.
type Emitter func(ChatResponse)

func (e Emitter) emit(r ChatResponse) {
	if e != nil {
		e(r)
	}
}
