//go:build integration

package variables_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/flowctl/agentruntime/variables"
)

// dialRedis connects to a local Redis instance and skips the test when one
// isn't reachable, mirroring store/mongo's container-unavailable skip.
func dialRedis(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379"})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis not available, skipping: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisStoreSetGetSnapshotRoundtrips(t *testing.T) {
	client := dialRedis(t)
	s, err := variables.NewRedisStore(variables.RedisStoreOptions{Client: client, Key: "test:" + t.Name()})
	require.NoError(t, err)
	t.Cleanup(func() { client.Del(context.Background(), "test:"+t.Name()) })

	s.Set("topic", json.RawMessage(`"go generics"`))
	s.Set("count", json.RawMessage(`3`))

	v, ok := s.Get("topic")
	require.True(t, ok)
	require.JSONEq(t, `"go generics"`, string(v))

	snap := s.Snapshot()
	require.Len(t, snap, 2)
	require.JSONEq(t, `3`, string(snap["count"]))
}

func TestRedisStoreGetMissingReturnsFalse(t *testing.T) {
	client := dialRedis(t)
	s, err := variables.NewRedisStore(variables.RedisStoreOptions{Client: client, Key: "test:" + t.Name()})
	require.NoError(t, err)

	_, ok := s.Get("missing")
	require.False(t, ok)
}
