// Package bedrock adapts the AWS Bedrock Converse streaming API to the
// provider.Provider contract, proving the contract is transport-agnostic
// (spec §6: a third adapter invoking Claude-on-Bedrock). Grounded on
// goadesign-goa-ai/features/model/bedrock/client.go and stream.go, pared
// down from the teacher's thinking/citation/ledger-aware Converse pipeline
// to the message/tool/usage surface this runtime's Provider contract needs.
package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/flowctl/agentruntime/convo"
	"github.com/flowctl/agentruntime/provider"
	"github.com/flowctl/agentruntime/tools"
	"github.com/flowctl/agentruntime/workflow"
)

// StreamOutput mirrors the subset of *bedrockruntime.ConverseStreamOutput
// this adapter needs. ConverseStreamOutput's event stream field is
// unexported, so tests cannot construct one directly; depending on this
// interface instead lets a fake stand in for it.
type StreamOutput interface {
	GetStream() *bedrockruntime.ConverseStreamEventStream
}

// RuntimeClient mirrors the subset of *bedrockruntime.Client this adapter
// needs, so tests can substitute a fake.
type RuntimeClient interface {
	ConverseStream(ctx context.Context, params *bedrockruntime.ConverseStreamInput, optFns ...func(*bedrockruntime.Options)) (StreamOutput, error)
}

// Options configures a Client's default generation parameters.
type Options struct {
	MaxTokens   int
	Temperature float32
	Models      []provider.Model
}

// Client implements provider.Provider on top of AWS Bedrock Converse.
type Client struct {
	runtime     RuntimeClient
	maxTokens   int
	temperature float32
	models      []provider.Model
}

// New builds a Client around an already-constructed Bedrock runtime client.
func New(runtime RuntimeClient, opts Options) (*Client, error) {
	if runtime == nil {
		return nil, errors.New("bedrock: runtime client is required")
	}
	return &Client{runtime: runtime, maxTokens: opts.MaxTokens, temperature: opts.Temperature, models: opts.Models}, nil
}

// sdkRuntime adapts *bedrockruntime.Client's concrete
// *bedrockruntime.ConverseStreamOutput return to the StreamOutput
// interface, since Go's interface satisfaction doesn't treat a method
// returning a concrete type as satisfying one returning an interface it
// happens to implement.
type sdkRuntime struct {
	client *bedrockruntime.Client
}

// NewFromSDKClient wraps an already-configured *bedrockruntime.Client
// (e.g. bedrockruntime.NewFromConfig(awsCfg)) for use with New.
func NewFromSDKClient(client *bedrockruntime.Client, opts Options) (*Client, error) {
	if client == nil {
		return nil, errors.New("bedrock: sdk client is required")
	}
	return New(sdkRuntime{client: client}, opts)
}

func (r sdkRuntime) ConverseStream(ctx context.Context, params *bedrockruntime.ConverseStreamInput,
	optFns ...func(*bedrockruntime.Options)) (StreamOutput, error) {
	return r.client.ConverseStream(ctx, params, optFns...)
}

// Chat streams a completion for ctxt against model via ConverseStream.
func (c *Client) Chat(ctx context.Context, model workflow.ModelId, ctxt convo.Context) (provider.Streamer, error) {
	msgs, system, err := encodeMessages(ctxt.Messages)
	if err != nil {
		return nil, err
	}
	input := &bedrockruntime.ConverseStreamInput{
		ModelId:  stringPtr(model.String()),
		Messages: msgs,
	}
	if len(system) > 0 {
		input.System = system
	}
	cfg := &brtypes.InferenceConfiguration{}
	var hasCfg bool
	if c.maxTokens > 0 {
		n := int32(c.maxTokens)
		cfg.MaxTokens = &n
		hasCfg = true
	}
	if c.temperature > 0 {
		cfg.Temperature = &c.temperature
		hasCfg = true
	}
	if hasCfg {
		input.InferenceConfig = cfg
	}
	if toolConfig := encodeTools(ctxt.Tools); toolConfig != nil {
		input.ToolConfig = toolConfig
	}

	out, err := c.runtime.ConverseStream(ctx, input)
	if err != nil {
		if isRateLimited(err) {
			return nil, fmt.Errorf("%w: %w", provider.ErrRateLimited, err)
		}
		return nil, fmt.Errorf("bedrock converse_stream: %w", err)
	}
	return newStreamer(out.GetStream()), nil
}

// isRateLimited reports whether err represents a provider rate limiting
// condition, covering both Bedrock's ThrottlingException code and a generic
// HTTP 429 response.
func isRateLimited(err error) bool {
	if err == nil {
		return false
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "TooManyRequestsException":
			return true
		}
	}
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == 429 {
		return true
	}
	return false
}

// Models reports the models this Client was configured with.
func (c *Client) Models(context.Context) ([]provider.Model, error) {
	return c.models, nil
}

// Parameters returns this Client's default generation parameters.
func (c *Client) Parameters(context.Context, workflow.ModelId) (provider.Parameters, error) {
	return provider.Parameters{MaxTokens: c.maxTokens, Temperature: float64(c.temperature)}, nil
}

func encodeMessages(msgs []convo.Message) ([]brtypes.Message, []brtypes.SystemContentBlock, error) {
	conversation := make([]brtypes.Message, 0, len(msgs))
	var system []brtypes.SystemContentBlock

	for _, m := range msgs {
		switch {
		case m.Content != nil && m.Content.Role == convo.RoleSystem:
			if m.Content.Content != "" {
				system = append(system, &brtypes.SystemContentBlockMemberText{Value: m.Content.Content})
			}
		case m.Content != nil && m.Content.Role == convo.RoleUser:
			conversation = append(conversation, brtypes.Message{
				Role:    brtypes.ConversationRoleUser,
				Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: m.Content.Content}},
			})
		case m.Content != nil && m.Content.Role == convo.RoleAssistant:
			blocks := make([]brtypes.ContentBlock, 0, 1+len(m.Content.ToolCalls))
			if m.Content.Content != "" {
				blocks = append(blocks, &brtypes.ContentBlockMemberText{Value: m.Content.Content})
			}
			for _, call := range m.Content.ToolCalls {
				name := call.Name.String()
				callID := call.CallID
				blocks = append(blocks, &brtypes.ContentBlockMemberToolUse{
					Value: brtypes.ToolUseBlock{
						ToolUseId: &callID,
						Name:      &name,
						Input:     document.NewLazyDocument(json.RawMessage(call.Arguments)),
					},
				})
			}
			if len(blocks) > 0 {
				conversation = append(conversation, brtypes.Message{Role: brtypes.ConversationRoleAssistant, Content: blocks})
			}
		case m.ToolResult != nil:
			callID := m.ToolResult.CallID
			result := brtypes.ToolResultBlock{
				ToolUseId: &callID,
				Content:   []brtypes.ToolResultContentBlock{&brtypes.ToolResultContentBlockMemberText{Value: string(m.ToolResult.Content)}},
			}
			if m.ToolResult.IsError {
				result.Status = brtypes.ToolResultStatusError
			}
			conversation = append(conversation, brtypes.Message{
				Role:    brtypes.ConversationRoleUser,
				Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberToolResult{Value: result}},
			})
		}
	}
	return conversation, system, nil
}

func encodeTools(defs []tools.Definition) *brtypes.ToolConfiguration {
	if len(defs) == 0 {
		return nil
	}
	out := make([]brtypes.Tool, 0, len(defs))
	for _, def := range defs {
		name := def.Name.String()
		desc := def.Description
		out = append(out, &brtypes.ToolMemberToolSpec{
			Value: brtypes.ToolSpecification{
				Name:        &name,
				Description: &desc,
				InputSchema: &brtypes.ToolInputSchemaMemberJson{
					Value: document.NewLazyDocument(json.RawMessage(def.InputSchema)),
				},
			},
		})
	}
	return &brtypes.ToolConfiguration{Tools: out}
}

func stringPtr(s string) *string { return &s }
