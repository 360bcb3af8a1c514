package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/flowctl/agentruntime/convo"
	"github.com/flowctl/agentruntime/store"
	"github.com/flowctl/agentruntime/workflow"
)

// Options configures a Store.
type Options struct {
	// Client is the already-connected Mongo client.
	Client *mongodriver.Client
	// Database names the database conversations are persisted to.
	Database string
	// Collection overrides the default "conversations" collection name.
	Collection string
	// Timeout bounds every operation; defaults to 5s.
	Timeout time.Duration
}

// Store is the durable ConversationStore implementation backed by MongoDB.
// Grounded on goadesign-goa-ai/features/memory/mongo/clients/mongo.New:
// same Options/ensureIndexes/collection-interface shape, generalized from
// per-run memory snapshots to whole conversations.
type Store struct {
	coll    collection
	timeout time.Duration
}

var _ store.ConversationStore = (*Store)(nil)

// New builds a Store around an already-connected Mongo client.
func New(opts Options) (*Store, error) {
	if opts.Client == nil {
		return nil, errors.New("mongo: client is required")
	}
	if opts.Database == "" {
		return nil, errors.New("mongo: database name is required")
	}
	name := opts.Collection
	if name == "" {
		name = defaultCollection
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	coll := mongoCollection{coll: opts.Client.Database(opts.Database).Collection(name)}
	return newStoreWithCollection(coll, timeout)
}

func newStoreWithCollection(coll collection, timeout time.Duration) (*Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := ensureIndexes(ctx, coll); err != nil {
		return nil, fmt.Errorf("mongo: ensure indexes: %w", err)
	}
	return &Store{coll: coll, timeout: timeout}, nil
}

// agentDoc is the persisted shape of a workflow.Agent: Template values are
// reduced to their source text, re-parsed with workflow.NewTemplate on
// load.
type agentDoc struct {
	ID               string              `bson:"id"`
	Model            string              `bson:"model"`
	SystemPrompt     string              `bson:"system_prompt"`
	UserPrompt       string              `bson:"user_prompt"`
	Tools            []string            `bson:"tools,omitempty"`
	Transforms       []workflow.Transform `bson:"transforms,omitempty"`
	Ephemeral        bool                `bson:"ephemeral,omitempty"`
}

type workflowDoc struct {
	Head   string     `bson:"head"`
	Agents []agentDoc `bson:"agents,omitempty"`
}

type conversationDoc struct {
	ID        string                        `bson:"_id"`
	Workflow  workflowDoc                   `bson:"workflow"`
	Contexts  map[string]convo.Context      `bson:"contexts,omitempty"`
	Events    []store.DispatchEvent         `bson:"events,omitempty"`
	UpdatedAt time.Time                     `bson:"updated_at"`
}

// Get loads the conversation identified by id.
func (s *Store) Get(ctx context.Context, id workflow.ConversationId) (store.Conversation, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var doc conversationDoc
	if err := s.coll.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return store.Conversation{}, store.ErrNotFound
		}
		return store.Conversation{}, fmt.Errorf("mongo: get conversation %q: %w", id, err)
	}
	return fromDocument(doc)
}

// Create inserts a new conversation document for wf.
func (s *Store) Create(ctx context.Context, wf workflow.Workflow) (workflow.ConversationId, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	id := workflow.ConversationId(bson.NewObjectID().Hex())
	doc := conversationDoc{
		ID:        string(id),
		Workflow:  toWorkflowDoc(wf),
		Contexts:  make(map[string]convo.Context),
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.coll.InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("mongo: create conversation: %w", err)
	}
	return id, nil
}

// SetContext replaces the retained Context for agent within conversation
// id.
func (s *Store) SetContext(ctx context.Context, id workflow.ConversationId, agent workflow.AgentId, c convo.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	filter := bson.M{"_id": string(id)}
	update := bson.M{
		"$set": bson.M{
			"contexts." + agent.String(): c,
			"updated_at":                 time.Now().UTC(),
		},
	}
	if err := s.coll.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("mongo: set context for %q: %w", agent, err)
	}
	return nil
}

// InsertEvent appends event to conversation id's event log.
func (s *Store) InsertEvent(ctx context.Context, id workflow.ConversationId, event store.DispatchEvent) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	filter := bson.M{"_id": string(id)}
	update := bson.M{
		"$push": bson.M{"events": event},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	}
	if err := s.coll.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("mongo: insert event for %q: %w", id, err)
	}
	return nil
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

func toWorkflowDoc(wf workflow.Workflow) workflowDoc {
	doc := workflowDoc{Head: wf.Head.String()}
	for _, a := range wf.Agents {
		tools := make([]string, len(a.Tools))
		for i, t := range a.Tools {
			tools[i] = t.String()
		}
		doc.Agents = append(doc.Agents, agentDoc{
			ID:           a.ID.String(),
			Model:        a.Model.String(),
			SystemPrompt: a.SystemPrompt.Source(),
			UserPrompt:   a.UserPrompt.Source(),
			Tools:        tools,
			Transforms:   a.Transforms,
			Ephemeral:    a.Ephemeral,
		})
	}
	return doc
}

func fromDocument(doc conversationDoc) (store.Conversation, error) {
	wf, err := fromWorkflowDoc(doc.Workflow)
	if err != nil {
		return store.Conversation{}, err
	}
	conv := store.Conversation{
		ID:       workflow.ConversationId(doc.ID),
		Workflow: wf,
		Contexts: make(map[workflow.AgentId]convo.Context, len(doc.Contexts)),
		Events:   doc.Events,
	}
	for id, c := range doc.Contexts {
		conv.Contexts[workflow.AgentId(id)] = c
	}
	return conv, nil
}

func fromWorkflowDoc(doc workflowDoc) (workflow.Workflow, error) {
	wf := workflow.Workflow{Head: workflow.AgentId(doc.Head), Agents: make(map[workflow.AgentId]workflow.Agent, len(doc.Agents))}
	for _, a := range doc.Agents {
		sys, err := workflow.NewTemplate(a.ID+"-system", a.SystemPrompt)
		if err != nil {
			return workflow.Workflow{}, fmt.Errorf("mongo: decode agent %q system prompt: %w", a.ID, err)
		}
		user, err := workflow.NewTemplate(a.ID+"-user", a.UserPrompt)
		if err != nil {
			return workflow.Workflow{}, fmt.Errorf("mongo: decode agent %q user prompt: %w", a.ID, err)
		}
		tools := make([]workflow.ToolName, len(a.Tools))
		for i, t := range a.Tools {
			tools[i] = workflow.ToolName(t)
		}
		wf.Agents[workflow.AgentId(a.ID)] = workflow.Agent{
			ID:           workflow.AgentId(a.ID),
			Model:        workflow.ModelId(a.Model),
			SystemPrompt: sys,
			UserPrompt:   user,
			Tools:        tools,
			Transforms:   a.Transforms,
			Ephemeral:    a.Ephemeral,
		}
	}
	return wf, nil
}
