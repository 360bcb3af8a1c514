//go:build integration

package mongo_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/flowctl/agentruntime/convo"
	"github.com/flowctl/agentruntime/store"
	storemongo "github.com/flowctl/agentruntime/store/mongo"
	"github.com/flowctl/agentruntime/workflow"
)

// startMongo brings up a disposable MongoDB container, grounded on
// goadesign-goa-ai/registry/store/mongo/mongo_test.go's setupMongoDB. Skips
// the test rather than failing when Docker is unavailable.
func startMongo(t *testing.T) *mongodriver.Client {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "mongo:7",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor:   wait.ForLog("Waiting for connections"),
		Tmpfs:        map[string]string{"/data/db": "rw"},
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("docker not available, skipping mongo integration test: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "27017")
	require.NoError(t, err)

	uri := fmt.Sprintf("mongodb://%s:%s", host, port.Port())
	client, err := mongodriver.Connect(options.Client().ApplyURI(uri))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(ctx) })

	require.NoError(t, client.Ping(ctx, nil))
	return client
}

func TestConversationPersistsAcrossStoreRecreation(t *testing.T) {
	client := startMongo(t)
	ctx := context.Background()

	opts := storemongo.Options{Client: client, Database: "agentruntime_test", Collection: t.Name()}

	s1, err := storemongo.New(opts)
	require.NoError(t, err)

	wf := workflow.Workflow{Head: "a"}
	id, err := s1.Create(ctx, wf)
	require.NoError(t, err)

	ctxt := convo.Context{Messages: []convo.Message{convo.User("hello")}}
	require.NoError(t, s1.SetContext(ctx, id, "a", ctxt))
	require.NoError(t, s1.InsertEvent(ctx, id, store.DispatchEvent{Kind: store.EventAgentStart, Agent: "a"}))

	s2, err := storemongo.New(opts)
	require.NoError(t, err)

	got, err := s2.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, workflow.AgentId("a"), got.Workflow.Head)
	require.Equal(t, ctxt, got.Contexts["a"])
	require.Len(t, got.Events, 1)
	require.Equal(t, store.EventAgentStart, got.Events[0].Kind)
}
