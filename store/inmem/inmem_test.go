package inmem_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flowctl/agentruntime/convo"
	"github.com/flowctl/agentruntime/store"
	"github.com/flowctl/agentruntime/store/inmem"
	"github.com/flowctl/agentruntime/workflow"
)

func TestCreateThenGetRoundtrips(t *testing.T) {
	s := inmem.New()
	wf := workflow.Workflow{Head: "a"}

	id, err := s.Create(context.Background(), wf)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := s.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, id, got.ID)
	require.Equal(t, wf, got.Workflow)
	require.Empty(t, got.Events)
}

func TestGetUnknownReturnsNotFound(t *testing.T) {
	s := inmem.New()
	_, err := s.Get(context.Background(), "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestSetContextThenGetReflectsIt(t *testing.T) {
	s := inmem.New()
	id, err := s.Create(context.Background(), workflow.Workflow{})
	require.NoError(t, err)

	ctxt := convo.Context{Messages: []convo.Message{convo.User("hi")}}
	require.NoError(t, s.SetContext(context.Background(), id, "a", ctxt))

	got, err := s.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, ctxt, got.Contexts["a"])
}

func TestSetContextUnknownConversationReturnsNotFound(t *testing.T) {
	s := inmem.New()
	err := s.SetContext(context.Background(), "missing", "a", convo.Context{})
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestInsertEventAppendsToLog(t *testing.T) {
	s := inmem.New()
	id, err := s.Create(context.Background(), workflow.Workflow{})
	require.NoError(t, err)

	require.NoError(t, s.InsertEvent(context.Background(), id, store.DispatchEvent{Kind: store.EventToolCall, Agent: "a"}))
	require.NoError(t, s.InsertEvent(context.Background(), id, store.DispatchEvent{Kind: store.EventToolResult, Agent: "a"}))

	got, err := s.Get(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, got.Events, 2)
	require.Equal(t, store.EventToolCall, got.Events[0].Kind)
	require.Equal(t, store.EventToolResult, got.Events[1].Kind)
}

func TestInsertEventUnknownConversationReturnsNotFound(t *testing.T) {
	s := inmem.New()
	err := s.InsertEvent(context.Background(), "missing", store.DispatchEvent{})
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestCreateGeneratesDistinctIds(t *testing.T) {
	s := inmem.New()
	id1, err := s.Create(context.Background(), workflow.Workflow{})
	require.NoError(t, err)
	id2, err := s.Create(context.Background(), workflow.Workflow{})
	require.NoError(t, err)
	require.NotEqual(t, id1, id2)
}
