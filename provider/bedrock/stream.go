package bedrock

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/flowctl/agentruntime/convo"
	"github.com/flowctl/agentruntime/provider"
)

// streamer adapts a Bedrock ConverseStream event stream to
// provider.Streamer. The AWS SDK delivers events over a channel rather than
// a pull-based decoder, so translation runs on a background goroutine that
// feeds a buffered channel of already-translated messages, mirroring the
// teacher's bedrockStreamer.run goroutine.
type streamer struct {
	cancel context.CancelFunc
	raw    *bedrockruntime.ConverseStreamEventStream

	messages chan provider.ChatCompletionMessage

	mu       sync.Mutex
	finalErr error
}

func newStreamer(raw *bedrockruntime.ConverseStreamEventStream) provider.Streamer {
	ctx, cancel := context.WithCancel(context.Background())
	s := &streamer{cancel: cancel, raw: raw, messages: make(chan provider.ChatCompletionMessage, 32)}
	go s.run(ctx)
	return s
}

func (s *streamer) Recv() (provider.ChatCompletionMessage, error) {
	msg, ok := <-s.messages
	if ok {
		return msg, nil
	}
	if err := s.err(); err != nil {
		return provider.ChatCompletionMessage{}, err
	}
	return provider.ChatCompletionMessage{}, io.EOF
}

func (s *streamer) Close() error {
	s.cancel()
	return s.raw.Close()
}

func (s *streamer) run(ctx context.Context) {
	defer close(s.messages)

	toolBlocks := make(map[int32]toolBuffer)
	events := s.raw.Events()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				if err := s.raw.Err(); err != nil {
					s.setErr(fmt.Errorf("bedrock converse_stream recv: %w", err))
				}
				return
			}
			if err := s.handle(event, toolBlocks); err != nil {
				s.setErr(err)
				return
			}
		}
	}
}

type toolBuffer struct {
	id   string
	name string
}

func (s *streamer) handle(event any, toolBlocks map[int32]toolBuffer) error {
	switch ev := event.(type) {
	case *brtypes.ConverseStreamOutputMemberContentBlockStart:
		if start, ok := ev.Value.Start.(*brtypes.ContentBlockStartMemberToolUse); ok {
			if start.Value.ToolUseId == nil || start.Value.Name == nil {
				return errors.New("bedrock stream: tool use block missing id or name")
			}
			toolBlocks[ev.Value.ContentBlockIndex] = toolBuffer{id: *start.Value.ToolUseId, name: *start.Value.Name}
		}
	case *brtypes.ConverseStreamOutputMemberContentBlockDelta:
		switch delta := ev.Value.Delta.(type) {
		case *brtypes.ContentBlockDeltaMemberText:
			if delta.Value != "" {
				s.emit(provider.ChatCompletionMessage{ContentDelta: delta.Value})
			}
		case *brtypes.ContentBlockDeltaMemberToolUse:
			if delta.Value.Input == nil {
				return nil
			}
			tb, ok := toolBlocks[ev.Value.ContentBlockIndex]
			if !ok {
				return nil
			}
			s.emit(provider.ChatCompletionMessage{
				ToolCall: &provider.ToolCallFragment{
					Partial: &convo.ToolCallPartial{
						CallID:            tb.id,
						NameFragment:      tb.name,
						ArgumentsFragment: *delta.Value.Input,
					},
				},
			})
		}
	case *brtypes.ConverseStreamOutputMemberContentBlockStop:
		delete(toolBlocks, ev.Value.ContentBlockIndex)
	case *brtypes.ConverseStreamOutputMemberMetadata:
		if ev.Value.Usage != nil {
			u := ev.Value.Usage
			var in, out, total int
			if u.InputTokens != nil {
				in = int(*u.InputTokens)
			}
			if u.OutputTokens != nil {
				out = int(*u.OutputTokens)
			}
			if u.TotalTokens != nil {
				total = int(*u.TotalTokens)
			} else {
				total = in + out
			}
			s.emit(provider.ChatCompletionMessage{Usage: &provider.Usage{PromptTokens: in, CompletionTokens: out, TotalTokens: total}})
		}
	case *brtypes.ConverseStreamOutputMemberMessageStop:
		reason := string(ev.Value.StopReason)
		s.emit(provider.ChatCompletionMessage{FinishReason: reason})
	}
	return nil
}

func (s *streamer) emit(msg provider.ChatCompletionMessage) {
	s.messages <- msg
}

func (s *streamer) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finalErr == nil {
		s.finalErr = err
	}
}

func (s *streamer) err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finalErr
}
