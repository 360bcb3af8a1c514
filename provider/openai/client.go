// Package openai adapts github.com/openai/openai-go's streaming Chat
// Completions API to the provider.Provider contract, proving the contract
// is transport-agnostic (spec §6). Grounded on the structure of
// goadesign-goa-ai/features/model/openai/client.go (message/tool encoding,
// NewFromAPIKey convenience constructor) and provider/anthropic's streaming
// adapter for the event-loop shape, since the teacher's own OpenAI adapter
// targets the non-streaming Chat Completions call.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"
	"github.com/openai/openai-go/shared"

	"github.com/flowctl/agentruntime/convo"
	"github.com/flowctl/agentruntime/provider"
	"github.com/flowctl/agentruntime/tools"
	"github.com/flowctl/agentruntime/workflow"
)

// ChatClient captures the subset of the SDK client this adapter needs.
type ChatClient interface {
	NewStreaming(ctx context.Context, body sdk.ChatCompletionNewParams, opts ...option.RequestOption) *ssestream.Stream[sdk.ChatCompletionChunk]
}

// Options configures a Client's default generation parameters.
type Options struct {
	MaxTokens   int
	Temperature float64
	Models      []provider.Model
}

// Client implements provider.Provider on top of OpenAI Chat Completions.
type Client struct {
	chat        ChatClient
	maxTokens   int
	temperature float64
	models      []provider.Model
}

// New builds a Client around an already-constructed Chat Completions
// client.
func New(chat ChatClient, opts Options) (*Client, error) {
	if chat == nil {
		return nil, errors.New("openai: chat client is required")
	}
	return &Client{chat: chat, maxTokens: opts.MaxTokens, temperature: opts.Temperature, models: opts.Models}, nil
}

// NewFromAPIKey constructs a Client using the SDK's default HTTP transport.
func NewFromAPIKey(apiKey string, opts Options) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("openai: api key is required")
	}
	c := sdk.NewClient(option.WithAPIKey(apiKey))
	return New(&c.Chat.Completions, opts)
}

// Chat streams a completion for ctxt against model.
func (c *Client) Chat(ctx context.Context, model workflow.ModelId, ctxt convo.Context) (provider.Streamer, error) {
	params, err := c.prepareRequest(model, ctxt)
	if err != nil {
		return nil, err
	}
	stream := c.chat.NewStreaming(ctx, params)
	if err := stream.Err(); err != nil {
		if isRateLimited(err) {
			return nil, fmt.Errorf("%w: %w", provider.ErrRateLimited, err)
		}
		return nil, fmt.Errorf("openai chat.completions.new stream: %w", err)
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

// Parameters returns this Client's default generation parameters.
func (c *Client) Parameters(context.Context, workflow.ModelId) (provider.Parameters, error) {
	return provider.Parameters{MaxTokens: c.maxTokens, Temperature: c.temperature}, nil
}

func (c *Client) prepareRequest(model workflow.ModelId, ctxt convo.Context) (sdk.ChatCompletionNewParams, error) {
	msgs, err := encodeMessages(ctxt.Messages)
	if err != nil {
		return sdk.ChatCompletionNewParams{}, err
	}
	params := sdk.ChatCompletionNewParams{
		Model:    sdk.ChatModel(model.String()),
		Messages: msgs,
	}
	if c.maxTokens > 0 {
		params.MaxCompletionTokens = sdk.Int(int64(c.maxTokens))
	}
	if c.temperature > 0 {
		params.Temperature = sdk.Float(c.temperature)
	}
	if defs := encodeTools(ctxt.Tools); len(defs) > 0 {
		params.Tools = defs
	}
	return params, nil
}

func encodeMessages(msgs []convo.Message) ([]sdk.ChatCompletionMessageParamUnion, error) {
	out := make([]sdk.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch {
		case m.Content != nil && m.Content.Role == convo.RoleSystem:
			out = append(out, sdk.SystemMessage(m.Content.Content))
		case m.Content != nil && m.Content.Role == convo.RoleUser:
			out = append(out, sdk.UserMessage(m.Content.Content))
		case m.Content != nil && m.Content.Role == convo.RoleAssistant:
			out = append(out, sdk.AssistantMessage(m.Content.Content))
		case m.ToolResult != nil:
			out = append(out, sdk.ToolMessage(string(m.ToolResult.Content), m.ToolResult.CallID))
		}
	}
	if len(out) == 0 {
		return nil, errors.New("openai: at least one message is required")
	}
	return out, nil
}

func encodeTools(defs []tools.Definition) []sdk.ChatCompletionToolUnionParam {
	if len(defs) == 0 {
		return nil
	}
	out := make([]sdk.ChatCompletionToolUnionParam, 0, len(defs))
	for _, def := range defs {
		var params shared.FunctionParameters
		if len(def.InputSchema) > 0 {
			_ = json.Unmarshal(def.InputSchema, &params)
		}
		out = append(out, sdk.ChatCompletionFunctionTool(shared.FunctionDefinitionParam{
			Name:        def.Name.String(),
			Description: sdk.String(def.Description),
			Parameters:  params,
		}))
	}
	return out
}
