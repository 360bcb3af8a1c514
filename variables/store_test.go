package variables_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flowctl/agentruntime/variables"
)

func TestStoreGetMissingReturnsFalse(t *testing.T) {
	s := variables.NewStore()
	_, ok := s.Get("missing")
	require.False(t, ok)
}

func TestStoreSetThenGet(t *testing.T) {
	s := variables.NewStore()
	s.Set("topic", json.RawMessage(`"go concurrency"`))

	val, ok := s.Get("topic")
	require.True(t, ok)
	require.JSONEq(t, `"go concurrency"`, string(val))
}

func TestStoreSnapshotIsACopy(t *testing.T) {
	s := variables.NewStore()
	s.Set("a", json.RawMessage(`1`))

	snap := s.Snapshot()
	s.Set("b", json.RawMessage(`2`))

	_, ok := snap.Get("b")
	require.False(t, ok, "snapshot should not observe writes made after it was taken")
}

func TestStoreConcurrentWritesAreSerialized(t *testing.T) {
	s := variables.NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			s.Set("counter", json.RawMessage(`1`))
		}(i)
	}
	wg.Wait()

	_, ok := s.Get("counter")
	require.True(t, ok)
}

func TestReadVariableToolReportsNotFoundWithoutError(t *testing.T) {
	s := variables.NewStore()
	tool := variables.ReadVariableTool(s)

	out, err := tool.Executor(context.Background(), json.RawMessage(`{"name":"missing"}`))
	require.NoError(t, err)
	require.Contains(t, string(out), "not found")
}

func TestWriteVariableToolThenReadVariableTool(t *testing.T) {
	s := variables.NewStore()
	write := variables.WriteVariableTool(s)
	read := variables.ReadVariableTool(s)

	_, err := write.Executor(context.Background(), json.RawMessage(`{"name":"topic","value":"rust vs go"}`))
	require.NoError(t, err)

	out, err := read.Executor(context.Background(), json.RawMessage(`{"name":"topic"}`))
	require.NoError(t, err)
	require.JSONEq(t, `{"found":true,"value":"rust vs go"}`, string(out))
}
