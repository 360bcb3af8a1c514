package anthropic

import (
	"fmt"
	"io"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"github.com/flowctl/agentruntime/convo"
	"github.com/flowctl/agentruntime/provider"
)

// streamer adapts an Anthropic Messages SSE stream to provider.Streamer,
// translating content-block deltas into ChatCompletionMessage values
// synchronously on Recv (no background goroutine: ssestream.Stream.Next
// already blocks on I/O, so a Recv-driven pull loop is sufficient here).
type streamer struct {
	stream *ssestream.Stream[sdk.MessageStreamEventUnion]

	toolBlocks map[int64]*toolBuffer
	stopReason string
	pending    []provider.ChatCompletionMessage
}

type toolBuffer struct {
	name string
	id   string
}

func newStreamer(stream *ssestream.Stream[sdk.MessageStreamEventUnion]) provider.Streamer {
	return &streamer{stream: stream, toolBlocks: make(map[int64]*toolBuffer)}
}

// Recv returns the next translated message, pulling from the underlying SSE
// stream and draining any queued messages a single event produced.
func (s *streamer) Recv() (provider.ChatCompletionMessage, error) {
	for len(s.pending) == 0 {
		if !s.stream.Next() {
			if err := s.stream.Err(); err != nil {
				return provider.ChatCompletionMessage{}, err
			}
			return provider.ChatCompletionMessage{}, io.EOF
		}
		if err := s.handle(s.stream.Current()); err != nil {
			return provider.ChatCompletionMessage{}, err
		}
	}
	msg := s.pending[0]
	s.pending = s.pending[1:]
	return msg, nil
}

func (s *streamer) Close() error {
	return s.stream.Close()
}

func (s *streamer) emit(msg provider.ChatCompletionMessage) {
	s.pending = append(s.pending, msg)
}

func (s *streamer) handle(event sdk.MessageStreamEventUnion) error {
	switch ev := event.AsAny().(type) {
	case sdk.MessageStartEvent:
		s.toolBlocks = make(map[int64]*toolBuffer)
		s.stopReason = ""
	case sdk.ContentBlockStartEvent:
		if toolUse, ok := ev.ContentBlock.AsAny().(sdk.ToolUseBlock); ok {
			if toolUse.ID == "" || toolUse.Name == "" {
				return fmt.Errorf("anthropic stream: tool use block missing id or name")
			}
			s.toolBlocks[ev.Index] = &toolBuffer{name: toolUse.Name, id: toolUse.ID}
		}
	case sdk.ContentBlockDeltaEvent:
		switch delta := ev.Delta.AsAny().(type) {
		case sdk.TextDelta:
			if delta.Text != "" {
				s.emit(provider.ChatCompletionMessage{ContentDelta: delta.Text})
			}
		case sdk.InputJSONDelta:
			if delta.PartialJSON == "" {
				return nil
			}
			tb := s.toolBlocks[ev.Index]
			if tb == nil {
				return nil
			}
			s.emit(provider.ChatCompletionMessage{
				ToolCall: &provider.ToolCallFragment{
					Partial: &convo.ToolCallPartial{
						CallID:            tb.id,
						NameFragment:      tb.name,
						ArgumentsFragment: delta.PartialJSON,
					},
				},
			})
		}
	case sdk.ContentBlockStopEvent:
		delete(s.toolBlocks, ev.Index)
	case sdk.MessageDeltaEvent:
		s.stopReason = string(ev.Delta.StopReason)
		s.emit(provider.ChatCompletionMessage{
			Usage: &provider.Usage{
				PromptTokens:     int(ev.Usage.InputTokens),
				CompletionTokens: int(ev.Usage.OutputTokens),
				TotalTokens:      int(ev.Usage.InputTokens + ev.Usage.OutputTokens),
			},
		})
	case sdk.MessageStopEvent:
		s.emit(provider.ChatCompletionMessage{FinishReason: s.stopReason})
	}
	return nil
}
