// Package anthropic adapts github.com/anthropics/anthropic-sdk-go's
// streaming Messages API to the provider.Provider contract. Grounded on
// goadesign-goa-ai/features/model/anthropic/client.go and stream.go, pared
// down from the teacher's Complete/Stream pair (and its thinking/caching
// support) to the single streaming Chat this runtime needs (spec §6).
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"github.com/flowctl/agentruntime/convo"
	"github.com/flowctl/agentruntime/provider"
	"github.com/flowctl/agentruntime/tools"
	"github.com/flowctl/agentruntime/workflow"
)

// MessagesClient captures the subset of the SDK client this adapter needs,
// so tests can substitute a fake.
type MessagesClient interface {
	NewStreaming(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) *ssestream.Stream[sdk.MessageStreamEventUnion]
}

// Client implements provider.Provider on top of Anthropic Claude Messages.
type Client struct {
	msg         MessagesClient
	maxTokens   int
	temperature float64
	models      []provider.Model
}

// Options configures a Client's default generation parameters.
type Options struct {
	MaxTokens   int
	Temperature float64
	Models      []provider.Model
}

// New builds a Client around an already-constructed Anthropic Messages
// client.
func New(msg MessagesClient, opts Options) (*Client, error) {
	if msg == nil {
		return nil, errors.New("anthropic: messages client is required")
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &Client{msg: msg, maxTokens: maxTokens, temperature: opts.Temperature, models: opts.Models}, nil
}

// NewFromAPIKey constructs a Client using the SDK's default HTTP transport.
func NewFromAPIKey(apiKey string, opts Options) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic: api key is required")
	}
	ac := sdk.NewClient(option.WithAPIKey(apiKey))
	return New(&ac.Messages, opts)
}

// Chat streams a completion for c against model.
func (c *Client) Chat(ctx context.Context, model workflow.ModelId, ctxt convo.Context) (provider.Streamer, error) {
	params, err := c.prepareRequest(model, ctxt)
	if err != nil {
		return nil, err
	}
	stream := c.msg.NewStreaming(ctx, *params)
	if err := stream.Err(); err != nil {
		if isRateLimited(err) {
			return nil, fmt.Errorf("%w: %w", provider.ErrRateLimited, err)
		}
		return nil, fmt.Errorf("anthropic messages.new stream: %w", err)
	}
	return newStreamer(stream), nil
}

// httpStatusCoder is satisfied by the SDK's apierror.Error.
type httpStatusCoder interface {
	HTTPStatusCode() int
}

func isRateLimited(err error) bool {
	if err == nil {
		return false
	}
	var sc httpStatusCoder
	if errors.As(err, &sc) {
		return sc.HTTPStatusCode() == 429
	}
	return false
}

// Models reports the models this Client was configured with.
func (c *Client) Models(context.Context) ([]provider.Model, error) {
	return c.models, nil
}

// Parameters returns this Client's default generation parameters; the
// Anthropic Messages API has no per-model parameter discovery endpoint.
func (c *Client) Parameters(context.Context, workflow.ModelId) (provider.Parameters, error) {
	return provider.Parameters{MaxTokens: c.maxTokens, Temperature: c.temperature}, nil
}

func (c *Client) prepareRequest(model workflow.ModelId, ctxt convo.Context) (*sdk.MessageNewParams, error) {
	msgs, system, err := encodeMessages(ctxt.Messages)
	if err != nil {
		return nil, err
	}
	params := sdk.MessageNewParams{
		MaxTokens: int64(c.maxTokens),
		Messages:  msgs,
		Model:     sdk.Model(model.String()),
	}
	if len(system) > 0 {
		params.System = system
	}
	if c.temperature > 0 {
		params.Temperature = sdk.Float(c.temperature)
	}
	if toolDefs := encodeTools(ctxt.Tools); len(toolDefs) > 0 {
		params.Tools = toolDefs
	}
	return &params, nil
}

func encodeMessages(msgs []convo.Message) ([]sdk.MessageParam, []sdk.TextBlockParam, error) {
	conversation := make([]sdk.MessageParam, 0, len(msgs))
	system := make([]sdk.TextBlockParam, 0, len(msgs))

	for _, m := range msgs {
		switch {
		case m.Content != nil && m.Content.Role == convo.RoleSystem:
			if m.Content.Content != "" {
				system = append(system, sdk.TextBlockParam{Text: m.Content.Content})
			}
		case m.Content != nil && m.Content.Role == convo.RoleUser:
			conversation = append(conversation, sdk.NewUserMessage(sdk.NewTextBlock(m.Content.Content)))
		case m.Content != nil && m.Content.Role == convo.RoleAssistant:
			blocks := make([]sdk.ContentBlockParamUnion, 0, 1+len(m.Content.ToolCalls))
			if m.Content.Content != "" {
				blocks = append(blocks, sdk.NewTextBlock(m.Content.Content))
			}
			for _, call := range m.Content.ToolCalls {
				var input any
				if len(call.Arguments) > 0 {
					if err := json.Unmarshal(call.Arguments, &input); err != nil {
						return nil, nil, fmt.Errorf("anthropic: decode tool_use arguments for %q: %w", call.Name, err)
					}
				}
				blocks = append(blocks, sdk.NewToolUseBlock(call.CallID, input, call.Name.String()))
			}
			if len(blocks) > 0 {
				conversation = append(conversation, sdk.NewAssistantMessage(blocks...))
			}
		case m.ToolResult != nil:
			conversation = append(conversation, sdk.NewUserMessage(
				sdk.NewToolResultBlock(m.ToolResult.CallID, string(m.ToolResult.Content), m.ToolResult.IsError),
			))
		}
	}
	return conversation, system, nil
}

func encodeTools(defs []tools.Definition) []sdk.ToolUnionParam {
	if len(defs) == 0 {
		return nil
	}
	out := make([]sdk.ToolUnionParam, 0, len(defs))
	for _, def := range defs {
		schema := toolInputSchema(def.InputSchema)
		u := sdk.ToolUnionParamOfTool(schema, def.Name.String())
		if u.OfTool != nil {
			u.OfTool.Description = sdk.String(def.Description)
		}
		out = append(out, u)
	}
	return out
}

func toolInputSchema(raw json.RawMessage) sdk.ToolInputSchemaParam {
	if len(raw) == 0 {
		return sdk.ToolInputSchemaParam{}
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return sdk.ToolInputSchemaParam{}
	}
	return sdk.ToolInputSchemaParam{ExtraFields: m}
}
