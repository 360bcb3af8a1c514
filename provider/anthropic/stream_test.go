package anthropic

import (
	"encoding/json"
	"errors"
	"io"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"
	"github.com/stretchr/testify/require"
)

// fakeDecoder feeds a fixed sequence of SSE events to an ssestream.Stream.
type fakeDecoder struct {
	events []ssestream.Event
	i      int
}

func (d *fakeDecoder) Event() ssestream.Event { return d.events[d.i-1] }

func (d *fakeDecoder) Next() bool {
	if d.i >= len(d.events) {
		return false
	}
	d.i++
	return true
}

func (d *fakeDecoder) Close() error { return nil }
func (d *fakeDecoder) Err() error   { return nil }

func mustEvent(t *testing.T, raw string) ssestream.Event {
	t.Helper()
	var ev sdk.MessageStreamEventUnion
	require.NoError(t, json.Unmarshal([]byte(raw), &ev))
	data, err := json.Marshal(ev)
	require.NoError(t, err)
	var typed struct {
		Type string `json:"type"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &typed))
	return ssestream.Event{Type: typed.Type, Data: data}
}

func TestStreamerTranslatesTextAndToolCall(t *testing.T) {
	events := []ssestream.Event{
		mustEvent(t, `{"type":"message_start"}`),
		mustEvent(t, `{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"hello"}}`),
		mustEvent(t, `{"type":"content_block_start","index":1,"content_block":{"type":"tool_use","id":"t1","name":"echo"}}`),
		mustEvent(t, `{"type":"content_block_delta","index":1,"delta":{"type":"input_json_delta","partial_json":"{\"x\":1}"}}`),
		mustEvent(t, `{"type":"content_block_stop","index":1}`),
		mustEvent(t, `{"type":"message_delta","delta":{"stop_reason":"tool_use"},"usage":{"input_tokens":10,"output_tokens":5}}`),
		mustEvent(t, `{"type":"message_stop"}`),
	}
	stream := ssestream.NewStream[sdk.MessageStreamEventUnion](&fakeDecoder{events: events}, nil)

	s := newStreamer(stream)
	defer s.Close()

	var sawText, sawTool, sawUsage, sawFinish bool
	for {
		msg, err := s.Recv()
		if err != nil {
			require.True(t, errors.Is(err, io.EOF))
			break
		}
		if msg.ContentDelta == "hello" {
			sawText = true
		}
		if msg.ToolCall != nil && msg.ToolCall.Partial != nil {
			sawTool = true
			require.Equal(t, "echo", msg.ToolCall.Partial.NameFragment)
			require.Equal(t, `{"x":1}`, msg.ToolCall.Partial.ArgumentsFragment)
		}
		if msg.Usage != nil {
			sawUsage = true
			require.Equal(t, 15, msg.Usage.TotalTokens)
		}
		if msg.FinishReason == "tool_use" {
			sawFinish = true
		}
	}
	require.True(t, sawText)
	require.True(t, sawTool)
	require.True(t, sawUsage)
	require.True(t, sawFinish)
}
