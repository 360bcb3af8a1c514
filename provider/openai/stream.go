package openai

import (
	"io"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/packages/ssestream"

	"github.com/flowctl/agentruntime/convo"
	"github.com/flowctl/agentruntime/provider"
)

// streamer adapts an OpenAI Chat Completions SSE stream to
// provider.Streamer. Each chunk maps to at most one ChatCompletionMessage,
// since OpenAI's streaming format (unlike Anthropic's) reports tool-call
// argument fragments and content deltas as separate top-level chunks rather
// than nested content-block events.
type streamer struct {
	stream *ssestream.Stream[sdk.ChatCompletionChunk]
}

func newStreamer(stream *ssestream.Stream[sdk.ChatCompletionChunk]) provider.Streamer {
	return &streamer{stream: stream}
}

func (s *streamer) Recv() (provider.ChatCompletionMessage, error) {
	if !s.stream.Next() {
		if err := s.stream.Err(); err != nil {
			return provider.ChatCompletionMessage{}, err
		}
		return provider.ChatCompletionMessage{}, io.EOF
	}
	return translateChunk(s.stream.Current()), nil
}

func (s *streamer) Close() error {
	return s.stream.Close()
}

func translateChunk(chunk sdk.ChatCompletionChunk) provider.ChatCompletionMessage {
	var msg provider.ChatCompletionMessage

	if u := chunk.Usage; u.TotalTokens != 0 {
		msg.Usage = &provider.Usage{
			PromptTokens:     int(u.PromptTokens),
			CompletionTokens: int(u.CompletionTokens),
			TotalTokens:      int(u.TotalTokens),
		}
	}

	if len(chunk.Choices) == 0 {
		return msg
	}
	choice := chunk.Choices[0]
	if choice.Delta.Content != "" {
		msg.ContentDelta = choice.Delta.Content
	}
	if len(choice.Delta.ToolCalls) > 0 {
		tc := choice.Delta.ToolCalls[0]
		msg.ToolCall = &provider.ToolCallFragment{
			Partial: &convo.ToolCallPartial{
				CallID:            tc.ID,
				NameFragment:      tc.Function.Name,
				ArgumentsFragment: tc.Function.Arguments,
			},
		}
	}
	if choice.FinishReason != "" {
		msg.FinishReason = choice.FinishReason
	}
	return msg
}
