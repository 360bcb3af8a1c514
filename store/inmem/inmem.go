// Package inmem is the default, process-local ConversationStore
// implementation: a mutex-guarded map, grounded on variables.Store's
// single-exclusive-lock discipline (spec §3 "Shared resource policy").
// Conversations do not survive a process restart; store/mongo is the
// durable alternative.
package inmem

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/flowctl/agentruntime/convo"
	"github.com/flowctl/agentruntime/store"
	"github.com/flowctl/agentruntime/workflow"
)

// Store is an in-process ConversationStore backed by a map guarded by a
// single mutex. Safe for concurrent use.
type Store struct {
	mu            sync.Mutex
	conversations map[workflow.ConversationId]*store.Conversation
}

// New constructs an empty Store.
func New() *Store {
	return &Store{conversations: make(map[workflow.ConversationId]*store.Conversation)}
}

// Get returns a copy of the conversation identified by id, or
// store.ErrNotFound.
func (s *Store) Get(_ context.Context, id workflow.ConversationId) (store.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[id]
	if !ok {
		return store.Conversation{}, store.ErrNotFound
	}
	return cloneConversation(c), nil
}

// Create persists a new Conversation for wf and returns its freshly
// generated id.
func (s *Store) Create(_ context.Context, wf workflow.Workflow) (workflow.ConversationId, error) {
	id := newConversationId()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[id] = &store.Conversation{
		ID:       id,
		Workflow: wf,
		Contexts: make(map[workflow.AgentId]convo.Context),
	}
	return id, nil
}

// SetContext replaces the retained Context for agent within conversation
// id.
func (s *Store) SetContext(_ context.Context, id workflow.ConversationId, agent workflow.AgentId, c convo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		return store.ErrNotFound
	}
	if conv.Contexts == nil {
		conv.Contexts = make(map[workflow.AgentId]convo.Context)
	}
	conv.Contexts[agent] = c
	return nil
}

// InsertEvent appends event to conversation id's event log.
func (s *Store) InsertEvent(_ context.Context, id workflow.ConversationId, event store.DispatchEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		return store.ErrNotFound
	}
	conv.Events = append(conv.Events, event)
	return nil
}

func newConversationId() workflow.ConversationId {
	return workflow.ConversationId(fmt.Sprintf("conv-%s", uuid.NewString()))
}

func cloneConversation(c *store.Conversation) store.Conversation {
	out := store.Conversation{ID: c.ID, Workflow: c.Workflow}
	if c.Contexts != nil {
		out.Contexts = make(map[workflow.AgentId]convo.Context, len(c.Contexts))
		for k, v := range c.Contexts {
			out.Contexts[k] = v
		}
	}
	out.Events = append(out.Events, c.Events...)
	return out
}
