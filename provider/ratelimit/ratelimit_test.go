package ratelimit

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flowctl/agentruntime/convo"
	"github.com/flowctl/agentruntime/provider"
	"github.com/flowctl/agentruntime/workflow"
)

type fakeProvider struct {
	chatErr error
	calls   int
}

func (f *fakeProvider) Chat(context.Context, workflow.ModelId, convo.Context) (provider.Streamer, error) {
	f.calls++
	return nil, f.chatErr
}
func (f *fakeProvider) Models(context.Context) ([]provider.Model, error) { return nil, nil }
func (f *fakeProvider) Parameters(context.Context, workflow.ModelId) (provider.Parameters, error) {
	return provider.Parameters{}, nil
}

func TestChatBacksOffOnRateLimited(t *testing.T) {
	next := &fakeProvider{chatErr: provider.ErrRateLimited}
	p := New(next, 60000, 60000)

	ctxt := convo.Context{Messages: []convo.Message{convo.User("hello")}}
	_, err := p.Chat(context.Background(), "m", ctxt)
	require.ErrorIs(t, err, provider.ErrRateLimited)

	lim := p.limiterFor("m")
	require.Less(t, lim.tpm(), 60000.0)
}

func TestChatProbesUpOnSuccess(t *testing.T) {
	next := &fakeProvider{}
	p := New(next, 60000, 120000)

	lim := p.limiterFor("m")
	lim.mu.Lock()
	lim.recoveryRate = 1000
	lim.mu.Unlock()

	ctxt := convo.Context{Messages: []convo.Message{convo.User("hello")}}
	_, err := p.Chat(context.Background(), "m", ctxt)
	require.NoError(t, err)

	require.Greater(t, lim.tpm(), 60000.0)
}

func TestChatGivesEachModelItsOwnBucket(t *testing.T) {
	next := &fakeProvider{chatErr: provider.ErrRateLimited}
	p := New(next, 60000, 60000)

	ctxt := convo.Context{Messages: []convo.Message{convo.User("hello")}}
	_, _ = p.Chat(context.Background(), "model-a", ctxt)

	require.Equal(t, 60000.0, p.limiterFor("model-b").tpm())
	require.Less(t, p.limiterFor("model-a").tpm(), 60000.0)
}

func TestEstimateTokensFallsBackToMinimumForEmptyContext(t *testing.T) {
	require.Equal(t, 500, estimateTokens(convo.Context{}))
}

func TestEstimateTokensScalesWithContent(t *testing.T) {
	big := convo.Context{Messages: []convo.Message{convo.User(string(make([]byte, 3000)))}}
	require.Greater(t, estimateTokens(big), 500)
}

func TestChatPropagatesNonRateLimitErrorsWithoutBackoff(t *testing.T) {
	next := &fakeProvider{chatErr: errors.New("boom")}
	p := New(next, 60000, 60000)

	ctxt := convo.Context{Messages: []convo.Message{convo.User("hello")}}
	_, err := p.Chat(context.Background(), "m", ctxt)
	require.Error(t, err)
	require.False(t, errors.Is(err, provider.ErrRateLimited))

	require.Equal(t, 60000.0, p.limiterFor("m").tpm())
}
