package mongo

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/flowctl/agentruntime/convo"
	"github.com/flowctl/agentruntime/store"
	"github.com/flowctl/agentruntime/workflow"
)

// fakeCollection mimics the subset of MongoDB behavior newStoreWithCollection
// exercises, grounded on the teacher's fakeCollection
// (features/memory/mongo/clients/mongo/client_test.go).
type fakeCollection struct {
	mu           sync.Mutex
	indexCreated bool
	docs         map[string]*conversationDoc
}

func newFakeCollection() *fakeCollection {
	return &fakeCollection{docs: make(map[string]*conversationDoc)}
}

func (c *fakeCollection) FindOne(_ context.Context, filter any, _ ...options.Lister[options.FindOneOptions]) singleResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	doc, ok := c.docs[docKey(filter)]
	if !ok {
		return fakeSingleResult{err: mongodriver.ErrNoDocuments}
	}
	clone := *doc
	return fakeSingleResult{doc: &clone}
}

func (c *fakeCollection) InsertOne(_ context.Context, document any, _ ...options.Lister[options.InsertOneOptions]) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	doc, ok := document.(conversationDoc)
	if !ok {
		return errors.New("unsupported insert document")
	}
	c.docs[doc.ID] = &doc
	return nil
}

func (c *fakeCollection) UpdateOne(_ context.Context, filter, update any, _ ...options.Lister[options.UpdateOneOptions]) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	doc, ok := c.docs[docKey(filter)]
	if !ok {
		return mongodriver.ErrNoDocuments
	}
	up, _ := update.(bson.M)
	if set, ok := up["$set"].(bson.M); ok {
		for k, v := range set {
			switch k {
			case "updated_at":
				doc.UpdatedAt, _ = v.(time.Time)
			default:
				// contexts.<agent> keys
				if agent, found := strings.CutPrefix(k, "contexts."); found {
					if doc.Contexts == nil {
						doc.Contexts = make(map[string]convo.Context)
					}
					if c, ok := v.(convo.Context); ok {
						doc.Contexts[agent] = c
					}
				}
			}
		}
	}
	if push, ok := up["$push"].(bson.M); ok {
		if ev, ok := push["events"].(store.DispatchEvent); ok {
			doc.Events = append(doc.Events, ev)
		}
	}
	return nil
}

func (c *fakeCollection) Indexes() indexView {
	return fakeIndexView{parent: c}
}

type fakeIndexView struct {
	parent *fakeCollection
}

func (v fakeIndexView) CreateOne(context.Context, mongodriver.IndexModel, ...options.Lister[options.CreateIndexesOptions]) (string, error) {
	v.parent.mu.Lock()
	v.parent.indexCreated = true
	v.parent.mu.Unlock()
	return "idx_updated_at", nil
}

type fakeSingleResult struct {
	doc *conversationDoc
	err error
}

func (r fakeSingleResult) Decode(val any) error {
	if r.err != nil {
		return r.err
	}
	dest, ok := val.(*conversationDoc)
	if !ok {
		return errors.New("unsupported decode target")
	}
	*dest = *r.doc
	return nil
}

func docKey(filter any) string {
	m, _ := filter.(bson.M)
	id, _ := m["_id"].(string)
	return id
}

func mustNewTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := newStoreWithCollection(newFakeCollection(), time.Second)
	require.NoError(t, err)
	return s
}

func TestNewStoreWithCollectionCreatesIndex(t *testing.T) {
	fc := newFakeCollection()
	_, err := newStoreWithCollection(fc, time.Second)
	require.NoError(t, err)
	require.True(t, fc.indexCreated)
}

func TestGetMissingConversationReturnsNotFound(t *testing.T) {
	s := mustNewTestStore(t)
	_, err := s.Get(context.Background(), "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestCreateThenGetRoundtrips(t *testing.T) {
	s := mustNewTestStore(t)
	wf := workflow.Workflow{Head: "a"}

	id, err := s.Create(context.Background(), wf)
	require.NoError(t, err)

	got, err := s.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, id, got.ID)
	require.Equal(t, workflow.AgentId("a"), got.Workflow.Head)
}

func TestSetContextThenGetReflectsIt(t *testing.T) {
	s := mustNewTestStore(t)
	id, err := s.Create(context.Background(), workflow.Workflow{})
	require.NoError(t, err)

	ctxt := convo.Context{Messages: []convo.Message{convo.User("hi")}}
	require.NoError(t, s.SetContext(context.Background(), id, "a", ctxt))

	got, err := s.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, ctxt, got.Contexts["a"])
}

func TestInsertEventAppendsToLog(t *testing.T) {
	s := mustNewTestStore(t)
	id, err := s.Create(context.Background(), workflow.Workflow{})
	require.NoError(t, err)

	require.NoError(t, s.InsertEvent(context.Background(), id, store.DispatchEvent{Kind: store.EventToolCall, Agent: "a"}))

	got, err := s.Get(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, got.Events, 1)
	require.Equal(t, store.EventToolCall, got.Events[0].Kind)
}
