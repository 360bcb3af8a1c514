package variables

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Backend backed by a single Redis hash, for deployments
// that run more than one orchestrator process sharing the same workflow's
// variables (spec §3 notes the Variable Store is "created when the
// orchestrator starts" — RedisStore lets that lifetime span processes
// instead of just one). Grounded on the Redis client wiring in
// goadesign-goa-ai/registry/result_stream.go and registry.go
// (*redis.Client field, ResultStreamManagerOptions shape).
//
// Every call round-trips to Redis; unlike Store it is not suitable for use
// inside a hot loop without considering that latency.
type RedisStore struct {
	client *redis.Client
	key    string
}

// RedisStoreOptions configures a RedisStore.
type RedisStoreOptions struct {
	// Client is an already-connected Redis client.
	Client *redis.Client
	// Key names the Redis hash this store reads and writes. Callers
	// sharing variables across orchestrator processes for the same
	// workflow run must agree on this key, typically derived from the
	// run's ConversationId.
	Key string
}

// NewRedisStore builds a RedisStore from opts.
func NewRedisStore(opts RedisStoreOptions) (*RedisStore, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("variables: redis client is required")
	}
	if opts.Key == "" {
		return nil, fmt.Errorf("variables: redis key is required")
	}
	return &RedisStore{client: opts.Client, key: opts.Key}, nil
}

var _ Backend = (*RedisStore)(nil)

// Set writes name = value to the backing hash. Errors are swallowed to
// satisfy the synchronous Backend interface shared with the in-process
// Store; callers needing error visibility should use SetContext directly.
func (s *RedisStore) Set(name string, value json.RawMessage) {
	_ = s.SetContext(context.Background(), name, value)
}

// SetContext is Set with an explicit context and a returned error.
func (s *RedisStore) SetContext(ctx context.Context, name string, value json.RawMessage) error {
	return s.client.HSet(ctx, s.key, name, string(value)).Err()
}

// Get reads the value bound to name, and whether it was present.
func (s *RedisStore) Get(name string) (json.RawMessage, bool) {
	v, err := s.client.HGet(context.Background(), s.key, name).Result()
	if err != nil {
		return nil, false
	}
	return json.RawMessage(v), true
}

// Snapshot copies the hash's current contents into a Values map.
func (s *RedisStore) Snapshot() Values {
	fields, err := s.client.HGetAll(context.Background(), s.key).Result()
	if err != nil {
		return Values{}
	}
	out := make(Values, len(fields))
	for k, v := range fields {
		out[k] = json.RawMessage(v)
	}
	return out
}
